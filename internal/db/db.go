package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/roe7878/studybot-roe/internal/config"
)

type Db struct {
	*sql.DB
}

// NewDB opens the Postgres handle with a bounded retry loop. Railway
// and docker-compose both bring the database up slower than the bot.
func NewDB(conf *config.DbConfig) (*Db, error) {
	var lastErr error

	for i := 1; i <= conf.MaxAttempts; i++ {
		sqlDB, err := sql.Open("pgx", conf.Dsn)
		if err == nil {
			sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
			sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(conf.ConnMaxLifetime)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err = sqlDB.PingContext(ctx)
			cancel()
			if err == nil {
				return &Db{sqlDB}, nil
			}
			_ = sqlDB.Close()
		}

		lastErr = err
		slog.Warn("database connection failed, retrying...",
			"attempt", i, "error", err)
		time.Sleep(conf.Delay)
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", conf.MaxAttempts, lastErr)
}

// RunMigrations applies the goose SQL migrations from dir.
func (d *Db) RunMigrations(dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(d.DB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
