package mysql

import (
	"database/sql"
	"net"

	"github.com/armapper/arm"
	"github.com/armapper/arm/adapters/sqladapter"
	"github.com/armapper/arm/errtranslator"
	"github.com/go-sql-driver/mysql"
)

// DriverName database/sql driver name
const DriverName = "mysql"

// Dialect mysql flavour of sql
type Dialect struct{}

func (Dialect) Name() string {
	return "mysql"
}

func (Dialect) ColumnsQuery(resource string) (string, string) {
	return "SHOW COLUMNS FROM " + resource, "Field"
}

func (Dialect) SupportsDeleteLimit() bool {
	return true
}

func (Dialect) Translate(err error) error {
	return (&errtranslator.MysqlErrTranslator{}).Translate(err)
}

// DSN builds the driver dsn from the adapter settings host (required), port,
// user, passwd, database (or db) and charset
func DSN(settings *arm.AdapterConfig) (string, error) {
	host, err := settings.GetString("host")
	if err != nil {
		return "", err
	}

	config := mysql.NewConfig()
	config.Net = "tcp"
	config.Addr = host
	if settings.Has("port") {
		port, _ := settings.GetString("port")
		config.Addr = net.JoinHostPort(host, port)
	}

	if settings.Has("user") {
		config.User, _ = settings.GetString("user")
	}
	if settings.Has("passwd") {
		config.Passwd, _ = settings.GetString("passwd")
	}

	for _, key := range []string{"database", "db"} {
		if settings.Has(key) {
			config.DBName, _ = settings.GetString(key)
			break
		}
	}

	if settings.Has("charset") {
		charset, _ := settings.GetString("charset")
		config.Params = map[string]string{"charset": charset}
	}
	return config.FormatDSN(), nil
}

// Open returns an adapter over a mysql database described by settings
func Open(settings *arm.AdapterConfig, config sqladapter.Config) (*sqladapter.Adapter, error) {
	dsn, err := DSN(settings)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	return sqladapter.New(db, Dialect{}, settings, config), nil
}
