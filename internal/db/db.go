// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codr1/Footy/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sqlx.DB
	Queries *Queries
}

// New opens a SQLite database for the given data source name, applies the
// embedded migrations and returns a DB with queries bound to the connection.
func New(dataSourceName string) (*DB, error) {
	sqlDB, err := sqlx.Open("sqlite3", sqliteDSN(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(sqlDB.DB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{
		DB:      sqlDB,
		Queries: NewQueries(sqlDB),
	}, nil
}

// NewFromConfig creates the database directory when needed and opens the
// configured database through New.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		return New(cfg.Database.Filename)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// sqliteDSN enables foreign keys, waits on a busy database instead of failing
// and takes the write lock when a transaction begins, so two engine runs
// writing at once queue up rather than deadlock.
func sqliteDSN(dataSourceName string) string {
	for _, param := range []string{"_fk=1", "_busy_timeout=5000", "_txlock=immediate"} {
		name := param[:strings.Index(param, "=")+1]
		if strings.Contains(dataSourceName, name) {
			continue
		}
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&" + param
		} else {
			dataSourceName += "?" + param
		}
	}
	return dataSourceName
}

// OpenSQLite opens the database with the same connection settings as New but
// leaves the schema alone.
func OpenSQLite(dataSourceName string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", sqliteDSN(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return sqlDB, nil
}

// NewMigrate returns a migrate instance over the embedded migrations. Callers
// own the returned instance and should Close it.
func NewMigrate(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", source,
		"sqlite3", driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

func runMigrations(db *sql.DB) error {
	m, err := NewMigrate(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// WithTx creates a new DB instance whose queries run inside tx
func (db *DB) WithTx(tx *sqlx.Tx) *DB {
	return &DB{
		DB:      db.DB,
		Queries: NewQueries(tx),
	}
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return tx, nil
}

// RunInTx runs the given function in a transaction
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txDB := db.WithTx(tx)
	if err := fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}
