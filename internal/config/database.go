package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
)

// DBConfig holds the profile store connection and pool settings.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowQuery       time.Duration
	PingTimeout     time.Duration
}

func loadDBConfig() DBConfig {
	return DBConfig{
		DSN:             EnvDefault("DATABASE_URL", ""),
		MaxOpenConns:    EnvIntDefault("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    EnvIntDefault("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: EnvDurationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: EnvDurationDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		SlowQuery:       EnvDurationDefault("DB_SLOW_QUERY", 200*time.Millisecond),
		PingTimeout:     EnvDurationDefault("DB_PING_TIMEOUT", 3*time.Second),
	}
}

var ErrNoDSN = errors.New("DATABASE_URL is empty")

// OpenProfileDB connects to postgres and prepares the profile key/value table.
func OpenProfileDB(ctx context.Context, dbc DBConfig, log *slog.Logger) (*gorm.DB, error) {
	if dbc.DSN == "" {
		return nil, ErrNoDSN
	}
	return openWith(ctx, postgres.Open(dbc.DSN), dbc, log)
}

func openWith(ctx context.Context, dialect gorm.Dialector, dbc DBConfig, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := gorm.Open(dialect, &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger: logger.NewSlogLogger(log.With("component", "gorm"), logger.Config{
			SlowThreshold:             dbc.SlowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("profile db handle: %w", err)
	}
	if dbc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbc.MaxOpenConns)
	}
	if dbc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbc.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(dbc.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dbc.ConnMaxIdleTime)

	timeout := dbc.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping profile db: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.KVEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate profile db: %w", err)
	}
	log.Info("profile db ready", "max_open_conns", dbc.MaxOpenConns, "slow_query", dbc.SlowQuery)
	return db, nil
}
