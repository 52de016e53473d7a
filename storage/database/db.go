// Package database connects to the postgres server backing the `postgres` record store.
package database

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/storage/database/migrations"
)

const (
	// MigrationsDir is the goose directory inside migrations.FS.
	MigrationsDir = "."

	maintenanceDB = "postgres"
	pingAttempts  = 30
)

func init() {
	goose.SetBaseFS(migrations.FS)
}

// dsn builds the connection URL to dbName, as the admin role when asAdmin is set & one is configured.
func dsn(conf core.DatabaseConfig, dbName string, asAdmin bool) string {
	role := url.UserPassword(conf.User, conf.Password)
	if asAdmin && conf.AdminUser != "" {
		role = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}
	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     role,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: url.Values{"sslmode": {sslMode}, "timezone": {"utc"}}.Encode(),
	}
	return u.String()
}

func connect(conf core.DatabaseConfig, dbName string, asAdmin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn(conf, dbName, asAdmin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = waitReady(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady pings until the server answers, backing off 100ms more on each attempt.
func waitReady(db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Open connects to the app database.
func Open(conf *core.Config) (*sql.DB, error) {
	db, err := connect(conf.Database, conf.Database.Name, false)
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

// CreateIfNotExist provisions the app role (as admin) and the app database (as the app role).
func CreateIfNotExist(conf *core.Config) error {
	dbConf := conf.Database

	if dbConf.User != "" {
		admin, err := connect(dbConf, maintenanceDB, true)
		if err != nil {
			return err
		}
		defer func() { _ = admin.Close() }()

		stmt := "CREATE USER " + pq.QuoteIdentifier(dbConf.User) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(dbConf.Password)
		if err = createMissing(admin, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", dbConf.User, stmt); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}

	app, err := connect(dbConf, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	stmt := "CREATE DATABASE " + pq.QuoteIdentifier(dbConf.Name)
	if err = createMissing(app, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbConf.Name, stmt); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// createMissing runs stmt unless existsQuery reports name is already there.
func createMissing(db *sqlx.DB, existsQuery, name, stmt string) error {
	var exists bool
	if err := db.Get(&exists, existsQuery, name); err != nil {
		return errors.Wrapf(err, "looking up %s", name)
	}
	if exists {
		return nil
	}
	_, err := db.Exec(stmt)
	return err
}

// Migrate brings the schema up to date.
func Migrate(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db, MigrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
