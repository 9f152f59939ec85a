package sqlite

import (
	"database/sql"

	"github.com/armapper/arm"
	"github.com/armapper/arm/adapters/sqladapter"
	"github.com/armapper/arm/errtranslator"
	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// DriverName database/sql driver name
const DriverName = "sqlite3"

// Dialect sqlite flavour of sql
type Dialect struct{}

func (Dialect) Name() string {
	return "sqlite"
}

func (Dialect) ColumnsQuery(resource string) (string, string) {
	return "PRAGMA table_info(" + resource + ")", "name"
}

// SupportsDeleteLimit sqlite only accepts LIMIT on DELETE when compiled with
// SQLITE_ENABLE_UPDATE_DELETE_LIMIT
func (Dialect) SupportsDeleteLimit() bool {
	return false
}

func (Dialect) Translate(err error) error {
	return (&errtranslator.SqliteErrTranslator{}).Translate(err)
}

// Open returns an adapter over the sqlite database at settings "database"
// (a file path or ":memory:").
//
// Values are always bound by the driver, sqlite string literals have no
// backslash escapes.
func Open(settings *arm.AdapterConfig, config sqladapter.Config) (*sqladapter.Adapter, error) {
	config.BindParams = true

	dsn, err := settings.GetString("database")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a new database
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return sqladapter.New(db, Dialect{}, settings, config), nil
}
