package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"quotegw/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	queryGetValue  = `SELECT value FROM kv WHERE key = $1`
	querySetValue  = `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	queryAllKeys   = `SELECT key FROM kv`
	queryKeyPrefix = `SELECT key FROM kv WHERE key LIKE $1 ESCAPE '\'`
	queryKeyExact  = `SELECT key FROM kv WHERE key = $1`
)

// PostgresStore keeps entries in a single kv table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore connects to databaseURL, configures the pool and applies
// pending migrations.
func OpenPostgresStore(databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, domain.E(domain.CodeUnavailable, "store.open", "ping database", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an already opened database without migrating it.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, queryGetValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.Wrap(domain.CodeUnavailable, "store.get", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return domain.E(domain.CodeInvalidArgument, "store.set", "key is required", nil)
	}
	if _, err := s.db.ExecContext(ctx, querySetValue, key, value); err != nil {
		return domain.Wrap(domain.CodeUnavailable, "store.set", err)
	}
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	parsed, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch {
	case parsed.All():
		rows, err = s.db.QueryContext(ctx, queryAllKeys)
	case parsed.Exact:
		rows, err = s.db.QueryContext(ctx, queryKeyExact, parsed.Prefix)
	default:
		rows, err = s.db.QueryContext(ctx, queryKeyPrefix, escapeLike(parsed.Prefix)+"%")
	}
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "store.keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, domain.Wrap(domain.CodeUnavailable, "store.keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "store.keys", err)
	}
	return keys, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

var _ domain.Store = (*PostgresStore)(nil)
