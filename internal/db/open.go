package db

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	devenv "sigeduc-scraper/dev/env"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	DRIVER_SQLITE   = "sqlite"
	DRIVER_LIBSQL   = "libsql"
	DRIVER_POSTGRES = "postgres"
)

type Options struct {
	Driver string `json:"driver"`

	// sqlite
	File string `json:"file"`

	// libsql, postgres may also use url instead of the discrete fields below
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`

	// postgres
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"password"`
	SslMode  string `json:"sslmode"`
}

// PostgresDsn renders the connection url for the postgres driver.
func (o Options) PostgresDsn() string {
	if o.Url != "" {
		return o.Url
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	dsn := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(port)),
		Path:   "/" + o.Name,
	}
	if o.User != "" {
		dsn.User = url.UserPassword(o.User, o.Password)
	}
	if o.SslMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {o.SslMode}}.Encode()
	}
	return dsn.String()
}

func openSqlite(file string) (*sql.DB, error) {
	if file == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	inMemory := file == ":memory:"
	if !inMemory {
		dbpath, err := devenv.ResolvePath(file)
		if err != nil {
			return nil, err
		}
		file = dbpath

		_, statErr := os.Stat(file)
		if os.IsNotExist(statErr) {
			f, err := os.Create(file)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	database, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer, an in-memory database also only
	// exists on the connection that created it
	database.SetMaxOpenConns(1)

	if !inMemory {
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, err
		}
	}
	_, err = database.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func openLibsql(o Options) (*sql.DB, error) {
	if o.Url == "" {
		return nil, fmt.Errorf("libsql requires a url")
	}
	link, err := url.Parse(o.Url)
	if err != nil {
		return nil, fmt.Errorf("parse libsql url: %w", err)
	}
	if o.AuthToken != "" {
		query := link.Query()
		query.Set("authToken", o.AuthToken)
		link.RawQuery = query.Encode()
	}
	return sql.Open("libsql", link.String())
}

// Open connects to the database described by o and returns the sql dialect
// its schema and queries need to be rendered in.
func Open(o Options) (*sql.DB, Dialect, error) {
	switch o.Driver {
	case DRIVER_SQLITE, "":
		database, err := openSqlite(o.File)
		return database, DIALECT_SQLITE, err
	case DRIVER_LIBSQL:
		database, err := openLibsql(o)
		return database, DIALECT_SQLITE, err
	case DRIVER_POSTGRES:
		database, err := sql.Open("pgx", o.PostgresDsn())
		return database, DIALECT_POSTGRES, err
	}
	return nil, 0, fmt.Errorf("unknown database driver '%s'", o.Driver)
}
