package auth

import (
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/oops"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	// DriverSQLite selects the embedded SQLite driver
	DriverSQLite = "sqlite"
	// DriverPostgres selects PostgreSQL through pgx
	DriverPostgres = "postgres"
)

// PersistenceConfig describes the database connection
type PersistenceConfig interface {
	GetDriver() string
	GetDSN() string
	GetDebug() bool
}

// OpenDB opens a bun database for the configured driver
func OpenDB(cfg PersistenceConfig) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch driver := strings.ToLower(strings.TrimSpace(cfg.GetDriver())); driver {
	case "", DriverSQLite:
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.GetDSN())
		if err != nil {
			return nil, oops.In("auth").Code("db_open").With("driver", DriverSQLite).Wrap(err)
		}
		// in memory databases live per connection
		if dsn := cfg.GetDSN(); strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "pgx", "postgresql":
		sqldb, err = sql.Open("pgx", cfg.GetDSN())
		if err != nil {
			return nil, oops.In("auth").Code("db_open").With("driver", DriverPostgres).Wrap(err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, oops.
			In("auth").
			Code("db_driver").
			With("driver", driver).
			Wrap(ErrUnsupportedDriver)
	}

	if cfg.GetDebug() {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
		))
	}

	return db, nil
}
