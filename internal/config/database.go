package config

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig sizes the database connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig returns the pool settings used when none are configured
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// PoolConfig derives pool settings from the application config
func (c *Config) PoolConfig() PoolConfig {
	pool := DefaultPoolConfig()
	if c.DBMaxOpenConns > 0 {
		pool.MaxOpenConns = c.DBMaxOpenConns
	}
	if c.DBMaxIdleConns > 0 {
		pool.MaxIdleConns = c.DBMaxIdleConns
	}
	return pool
}

// NewPostgresConnection opens a PostgreSQL connection pool and verifies it
func NewPostgresConnection(ctx context.Context, dbURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	applyPool(db, pool)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPool(db *sql.DB, pool PoolConfig) {
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
}
