package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ntcogk/auth-server/database"
)

// DBTX is the subset of database/sql used by repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connection is a migrated PostgreSQL connection pool.
type Connection struct {
	*sql.DB
}

// NewConnection opens the pool, checks it and applies migrations.
func NewConnection(ctx context.Context, dsn string, maxOpenConns int) (*Connection, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Connection{DB: db}, nil
}

func (c *Connection) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return c.DB.PingContext(ctx)
}
