package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps its tables in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."view_states" (
			session_id TEXT PRIMARY KEY,
			page TEXT NOT NULL,
			symbols TEXT NOT NULL,
			symbol TEXT NOT NULL,
			chart_interval TEXT NOT NULL,
			theme TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create view_states", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveViewState(sessionID string, view models.MViewState) error {
	symbols, err := json.Marshal(view.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."view_states" (session_id, page, symbols, symbol, chart_interval, theme, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			page = EXCLUDED.page,
			symbols = EXCLUDED.symbols,
			symbol = EXCLUDED.symbol,
			chart_interval = EXCLUDED.chart_interval,
			theme = EXCLUDED.theme,
			updated_at = EXCLUDED.updated_at
	`, d.Schema)

	_, err = d.DB.Exec(query, sessionID, view.Page, string(symbols), view.Symbol, view.Interval, view.Theme, time.Now().UTC())
	if err != nil {
		return helpers.NewDatabaseError("save view state "+sessionID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadViewState(sessionID string) (models.MViewState, bool, error) {
	row := d.DB.QueryRow(fmt.Sprintf(
		`SELECT page, symbols, symbol, chart_interval, theme FROM "%s"."view_states" WHERE session_id = $1`,
		d.Schema), sessionID)
	return scanViewState(row, sessionID)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
