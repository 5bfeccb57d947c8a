package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that uploaded_at sorts correctly as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB is a lazily opened SQLite database. The connection pool is opened and
// migrated on first use, then shared for the life of the process.
type DB struct {
	dsn string
	now func() time.Time

	mu   sync.Mutex
	conn atomic.Pointer[sql.DB]

	// createMu pairs each media timestamp with its row's seq.
	createMu sync.Mutex
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the clock used to stamp new media records.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// New returns a DB for the given connection string without touching the
// database. Accepted forms are a file path, a "file:" URI, or
// "sqlite://<path>".
func New(dsn string, opts ...Option) *DB {
	d := &DB{dsn: strings.TrimSpace(dsn), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SQL returns the shared connection pool, opening and migrating it on the
// first call. Concurrent first calls open exactly one pool.
func (d *DB) SQL(ctx context.Context) (*sql.DB, error) {
	if db := d.conn.Load(); db != nil {
		return db, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if db := d.conn.Load(); db != nil {
		return db, nil
	}
	if d.dsn == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not set", domain.ErrNotConfigured)
	}

	path, err := sqlitePath(d.dsn)
	if err != nil {
		return nil, err
	}
	db, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	d.conn.Store(db)
	slog.Info("database connected", "driver", "sqlite")
	return db, nil
}

// Migrate opens the database if needed, which applies pending migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.SQL(ctx)
	return err
}

// Close closes the pool if it was ever opened.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db := d.conn.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

// Media returns the media metadata repository backed by this database.
func (d *DB) Media() domain.MediaRepository {
	return &mediaRepo{db: d}
}

// FileStore returns a blob backend that keeps file bytes in this database.
func (d *DB) FileStore() domain.FileStore {
	return &fileStore{db: d}
}

// sqlitePath strips the sqlite:// scheme and rejects URLs meant for other
// databases, such as postgres://, which the driver would take as a file name.
func sqlitePath(dsn string) (string, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn, nil
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return rest, nil
	case "file":
		return dsn, nil
	default:
		return "", fmt.Errorf("%w: DATABASE_URL scheme %q is not supported, use a SQLite file path or sqlite:// URL",
			domain.ErrNotConfigured, scheme)
	}
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL gives readers concurrency with the single writer.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
