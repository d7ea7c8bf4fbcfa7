package db

import (
	"database/sql"
	"embed"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Conn is an open database handle tagged with the dialect it speaks.
type Conn struct {
	*sql.DB
	Dialect Dialect
}

// Rebind rewrites ? placeholders for the connection's dialect.
func (c *Conn) Rebind(query string) string {
	return c.Dialect.Rebind(query)
}

// Open connects to the store named by dsn and applies pending migrations.
// The dialect is chosen from the dsn scheme (see DetectDialect); an empty
// dsn opens the local SQLite file app.db.
//
// Migrations are versioned .sql files under internal/db/migrations/<dialect>:
//
//	0001_name.up.sql
//
// Only new migrations are applied.
func Open(dsn string) (*Conn, error) {
	dialect := DetectDialect(dsn)
	driver, driverDSN, err := dialect.driver(dsn)
	if err != nil {
		return nil, err
	}
	d, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	c := &Conn{DB: d, Dialect: dialect}
	if dialect == SQLite {
		if err := sqlitePragmas(d); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	if err := applyMigrations(c); err != nil {
		_ = d.Close()
		return nil, err
	}
	return c, nil
}

func sqlitePragmas(d *sql.DB) error {
	// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		return err
	}
	_, err := d.Exec(`PRAGMA foreign_keys=ON`)
	return err
}

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	upFile  string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

func loadMigrations(dialect Dialect) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + string(dialect)
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// no migrations for this dialect
		return entries, nil
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		m := migFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		verStr, migName := m[1], m[2]
		var ver int
		if _, err := fmt.Sscanf(verStr, "%04d", &ver); err != nil {
			continue
		}
		entries[ver] = migration{version: ver, name: migName, upFile: dir + "/" + name}
	}
	return entries, nil
}

func ensureMigrationsTable(c *Conn) error {
	var ddl string
	switch c.Dialect {
	case Postgres:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`
	case MySQL:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`
	}
	_, err := c.Exec(ddl)
	return err
}

func appliedVersions(c *Conn) (map[int]bool, error) {
	if err := ensureMigrationsTable(c); err != nil {
		return nil, err
	}
	rows, err := c.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

func applyMigrations(c *Conn) error {
	migs, err := loadMigrations(c.Dialect)
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		// nothing to do
		return nil
	}
	applied, err := appliedVersions(c)
	if err != nil {
		return err
	}
	// order versions
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	record := c.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`)
	for _, v := range versions {
		if applied[v] {
			continue
		}
		sqlText, err := migrationsFS.ReadFile(migs[v].upFile)
		if err != nil {
			return err
		}
		if err := runMigration(c, string(sqlText), record, v); err != nil {
			return fmt.Errorf("migration %04d failed: %w", v, err)
		}
	}
	return nil
}

// runMigration executes one migration script and then the bookkeeping
// statement for version. Scripts starting with "-- NO_TX" run outside a
// transaction (MySQL DDL commits implicitly).
func runMigration(c *Conn, text, bookkeeping string, version int) error {
	if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
		if _, err := c.Exec(text); err != nil {
			return err
		}
		_, err := c.Exec(bookkeeping, version)
		return err
	}
	tx, err := c.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(text); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
