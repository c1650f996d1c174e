// Package postgres owns the single primary Postgres connection pool and its
// migration bootstrap, shared by every adapter that needs a database/sql
// handle (quota, projectstore).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Connection is a singleton handle on the primary database. There is no
// read-replica: every call here goes to the same pool (see DESIGN.md for
// the dropped bxcodec/dbresolver/v2 dependency).
type Connection struct {
	connectionString string
	db               *sql.DB
}

// NewConnection builds a Connection without opening it yet.
func NewConnection(connectionString string) *Connection {
	return &Connection{connectionString: connectionString}
}

// Open dials the database and pings it once to fail fast on bad config.
func (c *Connection) Open(ctx context.Context) error {
	db, err := sql.Open("pgx", c.connectionString)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	c.db = db

	return nil
}

// DB returns the underlying pool, opening it lazily if needed.
func (c *Connection) DB(ctx context.Context) (*sql.DB, error) {
	if c.db == nil {
		if err := c.Open(ctx); err != nil {
			return nil, err
		}
	}

	return c.db, nil
}

// Close releases the pool.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}

	return c.db.Close()
}

// Migrate applies every pending migration from the given embedded FS,
// tolerating "no change" as success.
func (c *Connection) Migrate(ctx context.Context, migrations embed.FS, dir string) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
