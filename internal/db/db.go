package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Option customises Open.
type Option func(*options)

type options struct {
	log *zerolog.Logger
}

// WithLogger routes slow-query and error logs from gorm to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// Open opens (or creates) the database and applies pending migrations.
// It uses versioned .sql files under internal/db/migrations/<driver> following the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied migration.
func Open(driver, dsn string, opts ...Option) (*gorm.DB, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	gcfg := &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	if o.log != nil {
		gcfg.Logger = gormlogger.New(o.log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	var (
		gdb *gorm.DB
		d   dialect
		err error
	)
	switch driver {
	case "", DriverSQLite:
		d = sqliteDialect
		gdb, err = openSQLite(dsn, gcfg)
	case DriverPostgres:
		d = postgresDialect
		gdb, err = openPostgres(dsn, gcfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := applyMigrations(sqlDB, d); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = "app.db"
	}
	gdb, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}
	d, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas in effect and serialises writers; the
	// unique index on referral_code is the arbiter between concurrent inserts.
	d.SetMaxOpenConns(1)
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	// Pragmas for robustness
	// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = d.Close()
		return nil, err
	}
	return gdb, nil
}

func openPostgres(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	// lib/pq owns the connection; gorm only supplies the dialect.
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// Close releases the pool underneath gdb.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	d, err := gdb.DB()
	if err != nil {
		return err
	}
	return d.Close()
}

// dialect captures what differs between migration backends.
type dialect struct {
	name        string
	createTable string
	insert      string
	remove      string
}

var (
	sqliteDialect = dialect{
		name: DriverSQLite,
		createTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`,
		insert: `INSERT INTO schema_migrations(version) VALUES(?)`,
		remove: `DELETE FROM schema_migrations WHERE version = ?`,
	}
	postgresDialect = dialect{
		name: DriverPostgres,
		createTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
		insert: `INSERT INTO schema_migrations(version) VALUES($1)`,
		remove: `DELETE FROM schema_migrations WHERE version = $1`,
	}
)

// RollbackLast rolls back the most recently applied migration, if its down script exists.
func RollbackLast(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("nil db")
	}
	d, err := gdb.DB()
	if err != nil {
		return err
	}
	dl := sqliteDialect
	if gdb.Dialector.Name() == DriverPostgres {
		dl = postgresDialect
	}
	return rollbackLast(d, dl)
}

func rollbackLast(d *sql.DB, dl dialect) error {
	if err := ensureMigrationsTable(d, dl); err != nil {
		return err
	}
	var version int
	err := d.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil // nothing to rollback
	} else if err != nil {
		return err
	}
	migs, err := loadMigrations(dl.name)
	if err != nil {
		return err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return fmt.Errorf("no down migration found for version %d", version)
	}
	sqlText, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return err
	}
	text := string(sqlText)
	if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
		// Execute as-is without wrapping in a transaction
		if _, err := d.Exec(text); err != nil {
			return err
		}
		if _, err := d.Exec(dl.remove, version); err != nil {
			return err
		}
		return nil
	}
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(text); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(dl.remove, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

//go:embed migrations
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string // path inside embedded FS
	downFile string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations(driver string) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + driver
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// if directory missing, just return empty set
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
		verStr, migName, kind := m[1], m[2], m[3]
		var ver int
		if _, err := fmt.Sscanf(verStr, "%04d", &ver); err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = migName
		p := dir + "/" + name
		if kind == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func ensureMigrationsTable(d *sql.DB, dl dialect) error {
	_, err := d.Exec(dl.createTable)
	return err
}

func appliedVersions(d *sql.DB, dl dialect) (map[int]bool, error) {
	if err := ensureMigrationsTable(d, dl); err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
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

// sortedVersions returns migration versions in ascending order.
func sortedVersions(migs map[int]migration) []int {
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

func applyMigrations(d *sql.DB, dl dialect) error {
	migs, err := loadMigrations(dl.name)
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		// nothing to do
		return nil
	}
	applied, err := appliedVersions(d, dl)
	if err != nil {
		return err
	}
	for _, v := range sortedVersions(migs) {
		if applied[v] {
			continue
		}
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return fmt.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		text := string(sqlText)
		if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
			// Execute as-is without wrapping in a transaction
			if _, err := d.Exec(text); err != nil {
				return fmt.Errorf("migration %04d failed: %w", v, err)
			}
			if _, err := d.Exec(dl.insert, v); err != nil {
				return err
			}
			continue
		}
		tx, err := d.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d failed: %w", v, err)
		}
		if _, err := tx.Exec(dl.insert, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
