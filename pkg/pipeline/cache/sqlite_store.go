package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the sqlite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps blobs in the cache_blobs table of a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies pending migrations.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}

	err = migrateUp(db, logger)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrateUp(db *sql.DB, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "unable to read embedded migrations")
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "unable to create sqlite migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "unable to create migrate instance")
	}
	// m is not closed: closing it would close db as well.
	if logger != nil {
		m.Log = &migrateLogger{logger: logger}
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}

	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Blob, bool, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `SELECT blob FROM cache_blobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to query blob %s", id)
	}

	blob, err := Unmarshal(data)
	if err != nil {
		return nil, true, errors.Wrapf(err, "blob %s", id)
	}

	return blob, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, blob *Blob) error {
	data, err := blob.Marshal()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_blobs (id, blob, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, created_at = excluded.created_at`,
		id, data, s.now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "unable to save blob %s", id)
	}

	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug("migrate", "message", fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}

var _ Store = (*SQLiteStore)(nil)
