package storage

import (
	"context"
	"fmt"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"

	redis "github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

const (
	redisKeyPrefix = "marketsync:view:"
	redisTimeout   = 3 * time.Second
)

// -----------------------------------------------------------------------------

// RedisDB keeps each session's view in a hash (marketsync:view:<session>).
type RedisDB struct {
	Config *models.MConfig
	Client *redis.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisDB(cfg *models.MConfig, log *logger.Logger) (*RedisDB, error) {
	return &RedisDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *RedisDB) Initialize() error {
	st := d.Config.Storage
	d.Logger.Info("Initializing Redis client: addr=%s db=%d", st.RedisAddr, st.RedisDB)
	d.Client = redis.NewClient(&redis.Options{
		Addr:     st.RedisAddr,
		Password: st.RedisPassword,
		DB:       st.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := d.Client.Ping(ctx).Err(); err != nil {
		return helpers.NewDatabaseError("ping redis "+st.RedisAddr, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *RedisDB) SaveViewState(sessionID string, view models.MViewState) error {
	symbols, err := json.Marshal(view.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	err = d.Client.HSet(ctx, redisKey(sessionID),
		"page", view.Page,
		"symbols", string(symbols),
		"symbol", view.Symbol,
		"interval", view.Interval,
		"theme", view.Theme,
		"updated_at", time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return helpers.NewDatabaseError("save view state "+sessionID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *RedisDB) LoadViewState(sessionID string) (models.MViewState, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := d.Client.HGetAll(ctx, redisKey(sessionID)).Result()
	if err != nil {
		return models.MViewState{}, false, helpers.NewDatabaseError("load view state "+sessionID, err)
	}
	return viewFromHash(fields, sessionID)
}

// -----------------------------------------------------------------------------

func (d *RedisDB) Close() error {
	if d.Client != nil {
		return d.Client.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// viewFromHash decodes the hash written by SaveViewState; an empty hash means
// nothing was saved.
func viewFromHash(fields map[string]string, sessionID string) (models.MViewState, bool, error) {
	if len(fields) == 0 {
		return models.MViewState{}, false, nil
	}

	view := models.MViewState{
		Page:     fields["page"],
		Symbol:   fields["symbol"],
		Interval: fields["interval"],
		Theme:    fields["theme"],
	}
	if raw := fields["symbols"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &view.Symbols); err != nil {
			return models.MViewState{}, false, helpers.NewDatabaseError("decode symbols of "+sessionID, err)
		}
	}
	return view, true, nil
}
