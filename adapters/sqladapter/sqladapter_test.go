package sqladapter_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/armapper/arm"
	"github.com/armapper/arm/adapters/sqladapter"
	"github.com/armapper/arm/dialects/mysql"
	"github.com/armapper/arm/logger"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, config sqladapter.Config) (*sqladapter.Adapter, sqlmock.Sqlmock, *arm.Model) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := sqladapter.New(db, mysql.Dialect{}, nil, config)
	registry := arm.New(&arm.Config{Logger: logger.Discard})
	require.NoError(t, registry.AddAdapter(adapter))
	return adapter, mock, registry.MustDefine("Project")
}

func expectColumns(mock sqlmock.Sqlmock, columns ...string) {
	rows := sqlmock.NewRows([]string{"Field", "Type"})
	for _, column := range columns {
		rows.AddRow(column, "varchar(255)")
	}
	mock.ExpectQuery("SHOW COLUMNS FROM project").WillReturnRows(rows)
}

func TestRead(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	statement := "SELECT project.* FROM project WHERE project.status = 'open' AND project.tags IN ('a','b')"
	mock.ExpectQuery(statement).WillReturnRows(
		sqlmock.NewRows([]string{"id", "status"}).
			AddRow(int64(1), "open").
			AddRow(int64(2), []byte("open")),
	)

	records, err := adapter.Read(context.Background(), project, arm.FindOptions{
		Filters: map[string]interface{}{"status": "open", "tags": []string{"a", "b"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, record := range records {
		assert.False(t, record.IsNew())
		assert.Equal(t, "open", record.Value("status"))
	}
	assert.Equal(t, int64(2), records[1].Value("id"))

	assert.Equal(t, statement, adapter.LastQuery())
	assert.Len(t, adapter.LastResult().Rows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadBindParams(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{BindParams: true})

	mock.ExpectQuery("SELECT project.* FROM project WHERE (project.id > ?) AND project.status = ? LIMIT 1").
		WithArgs(3, "it's").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	records, err := adapter.Read(context.Background(), project, arm.FindOptions{
		Where:   "(project.id > :min)",
		Params:  map[string]interface{}{"min": 3},
		Filters: map[string]interface{}{"status": "it's"},
		Limit:   1,
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, `SELECT project.* FROM project WHERE (project.id > 3) AND project.status = 'it\'s' LIMIT 1`, adapter.LastQuery())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceParameterizedQueries(t *testing.T) {
	tests := []struct {
		parameterized bool
		traced        string
	}{
		{true, "SELECT project.* FROM project WHERE project.secret = ?"},
		{false, "SELECT project.* FROM project WHERE project.secret = 'hunter2'"},
	}
	for _, tt := range tests {
		adapter, mock, project := newAdapter(t, sqladapter.Config{BindParams: true})
		var buf bytes.Buffer
		adapter.SetLogger(logger.New(log.New(&buf, "", 0), logger.Config{LogLevel: logger.Info, ParameterizedQueries: tt.parameterized}))

		mock.ExpectQuery("SELECT project.* FROM project WHERE project.secret = ?").
			WithArgs("hunter2").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := adapter.Read(context.Background(), project, arm.FindOptions{
			Filters: map[string]interface{}{"secret": "hunter2"},
		})
		require.NoError(t, err)

		assert.Contains(t, buf.String(), tt.traced)
		if tt.parameterized {
			assert.NotContains(t, buf.String(), "hunter2")
		}
		assert.Equal(t, "SELECT project.* FROM project WHERE project.secret = 'hunter2'", adapter.LastQuery())
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestReadBindLists(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{BindParams: true})

	mock.ExpectQuery("SELECT project.* FROM project WHERE project.id IN (?,?) AND project.owner = ?").
		WithArgs(1, 2, "bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	records, err := adapter.Read(context.Background(), project, arm.FindOptions{
		Filters: map[string]interface{}{"id": []int{1, 2}, "owner": "bob"},
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "SELECT project.* FROM project WHERE project.id IN (1,2) AND project.owner = 'bob'", adapter.LastQuery())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRawQuery(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	mock.ExpectQuery("SELECT * FROM project WHERE owner = 'bob'").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	records, err := adapter.Read(context.Background(), project, arm.FindOptions{
		Query:  "SELECT * FROM project WHERE owner = :owner",
		Params: map[string]interface{}{"owner": "bob"},
		Where:  "ignored = 1",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadError(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	driverErr := &mysqldriver.MySQLError{Number: 1146, Message: "Table 'shop.project' doesn't exist"}
	mock.ExpectQuery("SELECT project.* FROM project").WillReturnError(driverErr)

	_, err := adapter.Read(context.Background(), project, arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrSQLExecute))

	var mysqlErr *mysqldriver.MySQLError
	assert.True(t, errors.As(err, &mysqlErr))
	assert.Equal(t, uint16(1146), mysqlErr.Number)
	assert.Equal(t, "SELECT project.* FROM project", adapter.LastQuery())
}

func TestReadCheckModel(t *testing.T) {
	adapter, _, _ := newAdapter(t, sqladapter.Config{})

	_, err := adapter.Read(context.Background(), nil, arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrModelType))

	_, err = adapter.Read(context.Background(), &arm.Model{Name: "Ghost"}, arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrModelType))

	assert.True(t, errors.Is(adapter.Create(context.Background(), nil), arm.ErrModelType))
}

func TestCreate(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	expectColumns(mock, "id", "title", "budget")
	mock.ExpectExec("INSERT INTO project (budget,title) VALUES (10,'arm')").WillReturnResult(sqlmock.NewResult(7, 1))

	record := project.MustNew(map[string]interface{}{"title": "arm", "budget": 10, "note": "not a column"})
	require.NoError(t, adapter.Create(context.Background(), record))

	assert.Equal(t, "INSERT INTO project (budget,title) VALUES (10,'arm')", adapter.LastQuery())
	assert.Equal(t, int64(7), adapter.LastResult().LastInsertID)
	assert.Equal(t, int64(1), adapter.LastResult().RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNothingToInsert(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	expectColumns(mock, "id", "title")

	record := project.MustNew(map[string]interface{}{"note": "not a column"})
	err := adapter.Create(context.Background(), record)
	assert.True(t, errors.Is(err, arm.ErrSQLExecute))
	assert.True(t, errors.Is(err, arm.ErrNothingToWrite))
	assert.Contains(t, err.Error(), "nothing to insert")
	assert.Empty(t, adapter.LastQuery())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicatedKey(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	expectColumns(mock, "id", "title")
	mock.ExpectExec("INSERT INTO project (id,title) VALUES (1,'arm')").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"})

	err := adapter.Create(context.Background(), project.MustNew(map[string]interface{}{"id": 1, "title": "arm"}))
	assert.True(t, errors.Is(err, arm.ErrDuplicatedKey))
	assert.True(t, errors.Is(err, arm.ErrSQLExecute))

	var executeErr *arm.ExecuteError
	require.True(t, errors.As(err, &executeErr))
	assert.Equal(t, "INSERT INTO project (id,title) VALUES (1,'arm')", executeErr.Statement)
}

func TestUpdate(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	expectColumns(mock, "id", "title")
	mock.ExpectExec("UPDATE project SET id = 5, title = 'renamed' WHERE id = 5").WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := project.Load(map[string]interface{}{"id": 5, "title": "renamed", "tasks": 3})
	require.NoError(t, err)
	require.NoError(t, adapter.Update(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNothingToUpdate(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	expectColumns(mock, "title")

	record, err := project.Load(map[string]interface{}{"id": 5})
	require.NoError(t, err)

	err = adapter.Update(context.Background(), record)
	assert.True(t, errors.Is(err, arm.ErrNothingToWrite))
	assert.Contains(t, err.Error(), "nothing to update")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBindParams(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{BindParams: true})

	expectColumns(mock, "id", "title")
	mock.ExpectExec("UPDATE project SET id = ?, title = ? WHERE id = ?").
		WithArgs(5, "renamed", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := project.Load(map[string]interface{}{"id": 5, "title": "renamed"})
	require.NoError(t, err)
	require.NoError(t, adapter.Update(context.Background(), record))
	assert.Equal(t, "UPDATE project SET id = 5, title = 'renamed' WHERE id = 5", adapter.LastQuery())
}

func TestDelete(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})

	mock.ExpectExec("DELETE FROM project WHERE id = 5 LIMIT 1").WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := project.Load(map[string]interface{}{"id": 5})
	require.NoError(t, err)
	require.NoError(t, adapter.Delete(context.Background(), record))
	assert.Equal(t, "DELETE FROM project WHERE id = 5 LIMIT 1", adapter.LastQuery())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions(t *testing.T) {
	adapter, mock, project := newAdapter(t, sqladapter.Config{})
	ctx := context.Background()

	mock.ExpectBegin()
	expectColumns(mock, "title")
	mock.ExpectExec("INSERT INTO project (title) VALUES ('arm')").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.StartTransaction(ctx))
	assert.Equal(t, sqladapter.StartTransactionStatement, adapter.LastQuery())
	assert.True(t, errors.Is(adapter.StartTransaction(ctx), arm.ErrInvalidTransaction))

	require.NoError(t, adapter.Create(ctx, project.MustNew(map[string]interface{}{"title": "arm"})))
	require.NoError(t, adapter.CommitTransaction(ctx))
	assert.Equal(t, sqladapter.CommitTransactionStatement, adapter.LastQuery())

	// without an open transaction only the statement is recorded
	require.NoError(t, adapter.CommitTransaction(ctx))
	assert.Equal(t, sqladapter.CommitTransactionStatement, adapter.LastQuery())
	require.NoError(t, adapter.RollbackTransaction(ctx))
	assert.Equal(t, sqladapter.RollbackTransactionStatement, adapter.LastQuery())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollback(t *testing.T) {
	adapter, mock, _ := newAdapter(t, sqladapter.Config{})
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, adapter.StartTransaction(ctx))
	require.NoError(t, adapter.RollbackTransaction(ctx))
	assert.Equal(t, sqladapter.RollbackTransactionStatement, adapter.LastQuery())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapterConfig(t *testing.T) {
	adapter, _, _ := newAdapter(t, sqladapter.Config{})

	adapter.Add("host", "localhost")
	host, err := adapter.Get("host")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)

	_, err = adapter.Get("port")
	assert.True(t, errors.Is(err, arm.ErrConfigKey))
}
