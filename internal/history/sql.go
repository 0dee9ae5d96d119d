package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

type dialect struct {
	driver string
	goose  goose.Dialect
	dir    string
	insert string
	// sqlite has no native timestamp type; times are stored as RFC3339 text
	textTime bool
}

var (
	postgresDialect = dialect{
		driver: "postgres",
		goose:  goose.DialectPostgres,
		dir:    "migrations/postgres",
		insert: `INSERT INTO loot_history (recorded_at, item_name, recipient) VALUES ($1, $2, $3)`,
	}
	sqliteDialect = dialect{
		driver:   "sqlite",
		goose:    goose.DialectSQLite3,
		dir:      "migrations/sqlite",
		insert:   `INSERT INTO loot_history (recorded_at, item_name, recipient) VALUES (?, ?, ?)`,
		textTime: true,
	}
)

const selectHistory = `SELECT recorded_at, item_name, recipient FROM loot_history ORDER BY id`

// SQLStore keeps history in the loot_history table.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// OpenPostgres connects with lib/pq and applies migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open(postgresDialect.driver, databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return newSQLStore(ctx, db, postgresDialect)
}

// OpenSQLite opens (or creates) a database file. ":memory:" works for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("SQLITE_PATH is required")
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, err
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", d.driver, err)
	}
	if err := migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, d: d}, nil
}

func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	fsys, err := fs.Sub(migrations, d.dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", d.dir, err)
	}
	p, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, rec Record) error {
	var ts any = rec.Timestamp.UTC()
	if s.d.textTime {
		ts = rec.Timestamp.UTC().Format(time.RFC3339)
	}
	if _, err := s.db.ExecContext(ctx, s.d.insert, ts, rec.ItemName, rec.Recipient); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectHistory)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			raw string
		)
		if s.d.textTime {
			err = rows.Scan(&raw, &rec.ItemName, &rec.Recipient)
			if err == nil {
				rec.Timestamp, err = time.Parse(time.RFC3339, raw)
			}
		} else {
			err = rows.Scan(&rec.Timestamp, &rec.ItemName, &rec.Recipient)
		}
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
