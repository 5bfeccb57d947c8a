package domain

import "context"

// Database defines lifecycle operations for a durable backend. The SQLite
// implementation owns its migration files, so the backend stays swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
