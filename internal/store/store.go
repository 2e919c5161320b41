package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// PostgreSQL driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Store holds the ent SQL driver and provides access to repositories.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
	seq     *sequenceCounter

	// kvMu serializes read-modify-write cycles issued by this process.
	kvMu sync.Mutex
}

// Open connects to the database identified by driver and dsn and runs
// auto-migration. An empty driver means SQLite.
func Open(driver, dsn string) (*Store, error) {
	var (
		sqlName     string
		dialectName string
	)
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		sqlName, dialectName = "sqlite", dialect.SQLite
		dsn = sqliteDSN(dsn)
	case DriverPostgres, "pgx":
		sqlName, dialectName = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sql.Open(sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	drv := entsql.OpenDB(dialectName, db)
	if err := migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(ctx, drv)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, dialect: dialectName, seq: seq}, nil
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv, schema.WithForeignKeys(false))
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// sqliteDSN appends the connection pragmas to dsn unless it sets its own.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:learnloop.db?mode=rwc"
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	return dsn + sep + strings.Join(params, "&")
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connection.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// KV returns a KV backed by the kv_entries table.
func (s *Store) KV() KV {
	return &sqlKV{store: s}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{drv: s.drv, dialect: s.dialect, seq: s.seq}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LEARNLOOP_DB environment variable
// 2. $XDG_DATA_HOME/learnloop/learnloop.db
// 3. ~/.local/share/learnloop/learnloop.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LEARNLOOP_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "learnloop", "learnloop.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
