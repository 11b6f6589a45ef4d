// Package sqlitedb is a resource provider that gives every invocation its own
// private in-memory SQLite database.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"testrig/internal/lifecycle"
	"testrig/pkg/logging"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Provider implements lifecycle.ResourceProvider. The handle is a *sql.DB.
type Provider struct {
	// Schema statements run in order right after the database is opened.
	Schema []string
}

func (p Provider) Start(ctx context.Context, rc *lifecycle.Context) (any, error) {
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a distinct database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for i, stmt := range p.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	logging.Debug("SQLite", "Opened in-memory database for %s", rc.ID())
	return db, nil
}

func (p Provider) Stop(ctx context.Context, handle any) error {
	db, ok := handle.(*sql.DB)
	if !ok {
		return fmt.Errorf("unexpected sqlite handle %T", handle)
	}
	return db.Close()
}

// DB returns the database of the resource name started for rc.
func DB(ctx context.Context, rc *lifecycle.Context, name string) (*sql.DB, error) {
	h, err := rc.Resource(ctx, name)
	if err != nil {
		return nil, err
	}
	db, ok := h.(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("resource %s is %T, not a database", name, h)
	}
	return db, nil
}
