package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect names a supported database backend. The value doubles as the database/sql driver name.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// ParseDialect maps a configuration value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectSQLite:
		return DialectSQLite, nil
	case DialectMySQL:
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("unsupported database driver %q (want sqlite or mysql)", s)
}

// DefaultSQLiteDSN returns a file DSN with WAL, busy timeout and foreign keys enabled.
func DefaultSQLiteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}

// Open connects to the database, applies pool settings and verifies the connection.
// PRE: dsn is valid for the dialect
// POST: Returns a live *sql.DB; caller owns Close
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if d == DialectMySQL {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// Dates are scanned as YYYY-MM-DD strings on both backends.
		cfg.ParseTime = false
		cfg.MultiStatements = false
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch d {
	case DialectSQLite:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	case DialectMySQL:
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// migration is one forward-only schema step with a statement list per dialect.
type migration struct {
	version int
	sqlite  []string
	mysql   []string
}

var migrations = []migration{
	{
		version: 1,
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS workouts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date TEXT NOT NULL,
				body_part TEXT NOT NULL,
				exercise TEXT NOT NULL,
				weight REAL,
				reps INTEGER,
				notes TEXT,
				user_id INTEGER NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`,
		},
		mysql: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				username VARCHAR(100) NOT NULL UNIQUE,
				email VARCHAR(100) NOT NULL UNIQUE,
				password VARCHAR(255) NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS workouts (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				date DATE NOT NULL,
				body_part VARCHAR(100) NOT NULL,
				exercise VARCHAR(100) NOT NULL,
				weight DOUBLE NULL,
				reps INT NULL,
				notes VARCHAR(255) NULL,
				user_id INT NOT NULL,
				CONSTRAINT fk_workouts_user FOREIGN KEY (user_id) REFERENCES users(id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		},
	},
	{
		version: 2,
		sqlite: []string{
			`CREATE INDEX IF NOT EXISTS idx_workouts_user_date ON workouts (user_id, date)`,
		},
		mysql: []string{
			`CREATE INDEX idx_workouts_user_date ON workouts (user_id, date)`,
		},
	},
}

// LatestSchemaVersion returns the version the schema reaches after MigrateDB.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the currently applied schema version (0 for a fresh database).
// PRE: db is a valid connection
// POST: schema_version table exists
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// MigrateDB applies every migration newer than the recorded schema version.
// PRE: db is a valid connection for dialect d
// POST: users and workouts tables exist; schema_version equals LatestSchemaVersion
func MigrateDB(ctx context.Context, db *sql.DB, d Dialect) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmts := m.sqlite
		if d == DialectMySQL {
			stmts = m.mysql
		}
		if err := applyMigration(ctx, db, m.version, stmts); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", m.version, "dialect", string(d))
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	return tx.Commit()
}
