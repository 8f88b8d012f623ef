package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite "+dsn, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite "+dsn, err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS view_states (
			session_id TEXT PRIMARY KEY,
			page TEXT NOT NULL,
			symbols TEXT NOT NULL,
			symbol TEXT NOT NULL,
			chart_interval TEXT NOT NULL,
			theme TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create view_states", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveViewState(sessionID string, view models.MViewState) error {
	symbols, err := json.Marshal(view.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	query := `
		INSERT INTO view_states (session_id, page, symbols, symbol, chart_interval, theme, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			page = excluded.page,
			symbols = excluded.symbols,
			symbol = excluded.symbol,
			chart_interval = excluded.chart_interval,
			theme = excluded.theme,
			updated_at = excluded.updated_at
	`
	_, err = d.DB.Exec(query, sessionID, view.Page, string(symbols), view.Symbol, view.Interval, view.Theme, time.Now().UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("save view state "+sessionID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadViewState(sessionID string) (models.MViewState, bool, error) {
	row := d.DB.QueryRow(
		`SELECT page, symbols, symbol, chart_interval, theme FROM view_states WHERE session_id = ?`,
		sessionID)
	return scanViewState(row, sessionID)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// scanViewState reads one view_states row; shared by the SQL backends.
func scanViewState(row *sql.Row, sessionID string) (models.MViewState, bool, error) {
	var view models.MViewState
	var symbols string

	err := row.Scan(&view.Page, &symbols, &view.Symbol, &view.Interval, &view.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MViewState{}, false, nil
	}
	if err != nil {
		return models.MViewState{}, false, helpers.NewDatabaseError("load view state "+sessionID, err)
	}
	if err := json.Unmarshal([]byte(symbols), &view.Symbols); err != nil {
		return models.MViewState{}, false, helpers.NewDatabaseError("decode symbols of "+sessionID, err)
	}
	return view, true, nil
}
