package arm_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/armapper/arm"
	"github.com/armapper/arm/adapters/sqladapter"
	"github.com/armapper/arm/dialects/mysql"
	"github.com/armapper/arm/logger"
	"github.com/stretchr/testify/require"
)

func newRegistry() *arm.Registry {
	return arm.New(&arm.Config{Logger: logger.Discard})
}

// newSQLRegistry returns a registry whose default adapter runs against sqlmock
func newSQLRegistry(t *testing.T, opts ...arm.ConfigOption) (*arm.Registry, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := arm.New(&arm.Config{Logger: logger.Discard}, opts...)
	require.NoError(t, registry.AddAdapter(sqladapter.New(db, mysql.Dialect{}, nil, sqladapter.Config{})))
	return registry, mock
}

func expectColumns(mock sqlmock.Sqlmock, resource string, columns ...string) {
	rows := sqlmock.NewRows([]string{"Field", "Type"})
	for _, column := range columns {
		rows.AddRow(column, "varchar(255)")
	}
	mock.ExpectQuery("SHOW COLUMNS FROM " + resource).WillReturnRows(rows)
}
