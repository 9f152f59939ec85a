package arm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/armapper/arm"
	"github.com/armapper/arm/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	registry, sqlMock := newSQLRegistry(t)
	project := registry.MustDefine("Project")

	statement := "SELECT project.* FROM project WHERE (project.score > 3) AND project.status = 'open' ORDER BY id LIMIT 10 OFFSET 20"
	sqlMock.ExpectQuery(statement).WillReturnRows(
		sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(21), "arm").AddRow(int64(22), "cli"),
	)

	records, err := project.Find(context.Background(), arm.FindOptions{
		Where:   "(project.score > :min)",
		Params:  map[string]interface{}{"min": 3},
		Filters: map[string]interface{}{"status": "open"},
		Order:   "id",
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "cli", records[1].Value("title"))
	assert.False(t, records[0].IsNew())
	assert.Same(t, project, records[0].Model())

	assert.Equal(t, statement, project.LastQuery())
	assert.Equal(t, int64(2), project.LastResult().RowsAffected)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestFindByID(t *testing.T) {
	registry, sqlMock := newSQLRegistry(t)
	project := registry.MustDefine("Project")
	ctx := context.Background()

	statement := "SELECT project.* FROM project WHERE project.id = '5' LIMIT 1"
	for i := 0; i < 2; i++ {
		sqlMock.ExpectQuery(statement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	}

	byID, err := project.FindByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, byID)

	one, err := project.FindOne(ctx, arm.FindOptions{Filters: map[string]interface{}{"id": "5"}})
	require.NoError(t, err)
	assert.Equal(t, byID.Data(true), one.Data(true))

	sqlMock.ExpectQuery("SELECT project.* FROM project WHERE project.id IN (1,2) LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	none, err := project.FindByID(ctx, []int{1, 2})
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	registry, sqlMock := newSQLRegistry(t)
	project := registry.MustDefine("Project")

	sqlMock.ExpectQuery("SELECT COUNT(*) AS count_rows FROM project WHERE project.status = 'open' LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{arm.CountColumn}).AddRow([]byte("7")))

	count, err := project.Count(context.Background(), arm.FindOptions{
		Filters: map[string]interface{}{"status": "open"},
		Offset:  40,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestFindByQuery(t *testing.T) {
	registry, sqlMock := newSQLRegistry(t)
	project := registry.MustDefine("Project")

	sqlMock.ExpectQuery(`SELECT * FROM project WHERE title = 'it\'s'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	records, err := project.FindByQuery(context.Background(), "SELECT * FROM project WHERE title = :title",
		map[string]interface{}{"title": "it's"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestFindError(t *testing.T) {
	registry, sqlMock := newSQLRegistry(t)
	project := registry.MustDefine("Project")

	failure := errors.New("connection reset")
	sqlMock.ExpectQuery("SELECT project.* FROM project").WillReturnError(failure)

	_, err := project.Find(context.Background(), arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrSQLExecute))
	assert.True(t, errors.Is(err, failure))

	_, err = (&arm.Model{Name: "Project"}).Find(context.Background(), arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrModelType))
}

func TestFindReadAdapter(t *testing.T) {
	registry := newRegistry()
	replica := &mocks.Adapter{}
	require.NoError(t, registry.AddAdapter(replica, "replica"))
	project := registry.MustDefine("Project", arm.WithReadAdapter("replica"))

	options := arm.FindOptions{Filters: map[string]interface{}{"status": "open"}}
	replica.On("Read", mock.Anything, project, options).
		Return([]*arm.Record{project.MustNew(map[string]interface{}{"id": 1})}, nil).Once()

	records, err := project.Find(context.Background(), options)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	replica.AssertExpectations(t)

	other := registry.MustDefine("Other", arm.WithReadAdapter("archive"))
	_, err = other.Find(context.Background(), arm.FindOptions{})
	assert.True(t, errors.Is(err, arm.ErrAdapterNotFound))
}

func TestFindOptions(t *testing.T) {
	options := arm.FindOptions{
		Params:  map[string]interface{}{"min": 1},
		Filters: map[string]interface{}{"status": "open", "id": []int{1, 2}},
	}

	clone := options.Clone()
	clone.Params["min"] = 2
	clone.Filters["extra"] = true
	assert.Equal(t, 1, options.Params["min"])
	assert.NotContains(t, options.Filters, "extra")

	assert.Equal(t, map[string]interface{}{"min": 1, "status": "open"}, options.BindParams())
	assert.Equal(t, "SELECT project.* FROM project WHERE project.id IN (1,2) AND project.status = :status", options.Statement("project"))
	assert.Equal(t, "SELECT 1", arm.FindOptions{Query: "SELECT 1", Limit: 5}.Statement("project"))
}
