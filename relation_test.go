package arm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/armapper/arm"
	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRelationRegistry(t *testing.T, opts ...arm.ConfigOption) (*arm.Registry, *mocks.Adapter) {
	t.Helper()

	registry := arm.New(&arm.Config{Logger: logger.Discard}, opts...)
	adapter := &mocks.Adapter{}
	require.NoError(t, registry.AddAdapter(adapter))

	registry.MustDefine("Project",
		arm.WithRelation("tasks", arm.HasMany("Task", arm.WithQuery(arm.FindOptions{Order: "id", Filters: map[string]interface{}{"done": 0}}))),
		arm.WithRelation("owner", arm.HasOne("Owner")),
	)
	registry.MustDefine("Task", arm.WithRelation("project", arm.BelongsTo("Project")))
	registry.MustDefine("Owner")
	return registry, adapter
}

func TestRelationKeys(t *testing.T) {
	registry, _ := newRelationRegistry(t)
	project, _ := registry.Model("Project")
	task, _ := registry.Model("Task")

	tasks, err := project.Relation("tasks")
	require.NoError(t, err)
	assert.Equal(t, "tasks", tasks.Name())
	assert.Equal(t, arm.HasManyRelation, tasks.Kind)
	relationKey, foreignKey := tasks.Keys(task)
	assert.Equal(t, "id", relationKey)
	assert.Equal(t, "project_id", foreignKey)

	belongsTo, err := task.Relation("project")
	require.NoError(t, err)
	relationKey, foreignKey = belongsTo.Keys(project)
	assert.Equal(t, "project_id", relationKey)
	assert.Equal(t, "id", foreignKey)

	explicit := arm.HasMany(task, arm.WithRelationKey("code"), arm.WithForeignKey("project_code"))
	other := registry.MustDefine("Board", arm.WithRelation("tasks", explicit))
	relationKey, foreignKey = explicit.Keys(task)
	assert.Equal(t, "code", relationKey)
	assert.Equal(t, "project_code", foreignKey)
	assert.Equal(t, []string{"tasks"}, other.Relations())

	target, err := explicit.Target()
	require.NoError(t, err)
	assert.Same(t, task, target)

	_, err = project.Relation("missing")
	assert.True(t, errors.Is(err, arm.ErrUnknownRelation))

	assert.Equal(t, "has many", arm.HasManyRelation.String())
	assert.Equal(t, "has one", arm.HasOneRelation.String())
	assert.Equal(t, "belongs to", arm.BelongsToRelation.String())
}

func TestRelationOptions(t *testing.T) {
	registry, _ := newRelationRegistry(t)
	project, _ := registry.Model("Project")
	tasks, _ := project.Relation("tasks")

	owner := project.MustNew(map[string]interface{}{"id": 5})
	options, err := tasks.Options(owner)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"done": 0, "project_id": 5}, options.Filters)
	assert.Equal(t, "id", options.Order)
	assert.NotContains(t, tasks.Query.Filters, "project_id")

	_, err = tasks.Options(project.MustNew(map[string]interface{}{"title": "arm"}))
	assert.True(t, errors.Is(err, arm.ErrRelationField))
}

func TestRelationThrough(t *testing.T) {
	registry := newRegistry()
	registry.MustDefine("UserGroup")
	registry.MustDefine("Group")
	user := registry.MustDefine("User", arm.WithRelation("groups",
		arm.HasMany("Group", arm.WithThrough(arm.Through("UserGroup")), arm.WithQuery(arm.FindOptions{Where: "group.active = 1"})),
	))

	groups, err := user.Relation("groups")
	require.NoError(t, err)

	options, err := groups.Options(user.MustNew(map[string]interface{}{"id": 7}))
	require.NoError(t, err)
	assert.Equal(t, "LEFT JOIN user_group ON (user_group.group_id = group.id)", options.Joins)
	assert.Equal(t, "group.active = 1 AND (user_group.user_id = :foreign_key)", options.Where)
	assert.Equal(t, map[string]interface{}{"foreign_key": 7}, options.Params)
	assert.Empty(t, options.Filters)

	assert.Equal(t,
		"SELECT group.* FROM group LEFT JOIN user_group ON (user_group.group_id = group.id) WHERE group.active = 1 AND (user_group.user_id = :foreign_key)",
		options.Statement("group"))
}

func TestRelationThroughExplicitKeys(t *testing.T) {
	registry := newRegistry()
	registry.MustDefine("Membership", arm.WithResource("members"))
	registry.MustDefine("Team", arm.WithPrimaryKey("code"))
	user := registry.MustDefine("User", arm.WithRelation("teams",
		arm.HasMany("Team",
			arm.WithRelationKey("login"),
			arm.WithThrough(arm.Through("Membership",
				arm.WithRelationKey("team_code"),
				arm.WithForeignKey("code"),
				arm.WithThroughRelationKey("member_login"),
			)),
		),
	))

	teams, _ := user.Relation("teams")
	options, err := teams.Options(user.MustNew(map[string]interface{}{"login": "ada"}))
	require.NoError(t, err)
	assert.Equal(t, "LEFT JOIN members ON (members.team_code = team.code)", options.Joins)
	assert.Equal(t, "(members.member_login = :foreign_key)", options.Where)
	assert.Equal(t, "ada", options.Params["foreign_key"])
}

func TestRelationLoadCaches(t *testing.T) {
	registry, adapter := newRelationRegistry(t)
	project, _ := registry.Model("Project")
	task, _ := registry.Model("Task")
	ctx := context.Background()

	loaded := []*arm.Record{task.MustNew(map[string]interface{}{"id": 1, "project_id": 5})}
	adapter.On("Read", mock.Anything, task, mock.MatchedBy(func(options arm.FindOptions) bool {
		return options.Filters["project_id"] == 5
	})).Return(loaded, nil).Once()

	owner, err := project.Load(map[string]interface{}{"id": 5})
	require.NoError(t, err)

	_, ok := owner.LoadedRelation("tasks")
	assert.False(t, ok)

	first, err := owner.RelatedMany(ctx, "tasks")
	require.NoError(t, err)
	second, err := owner.RelatedMany(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, loaded, first)
	assert.Equal(t, first, second)

	cached, ok := owner.LoadedRelation("tasks")
	assert.True(t, ok)
	assert.Equal(t, loaded, cached)

	adapter.AssertNumberOfCalls(t, "Read", 1)
	adapter.AssertExpectations(t)
}

func TestRelationLoadNotFound(t *testing.T) {
	registry, adapter := newRelationRegistry(t)
	project, _ := registry.Model("Project")
	owners, _ := registry.Model("Owner")
	ctx := context.Background()

	adapter.On("Read", mock.Anything, owners, mock.MatchedBy(func(options arm.FindOptions) bool {
		return options.Limit == 1 && options.Filters["project_id"] == 5
	})).Return(nil, nil).Once()

	record := project.MustNew(map[string]interface{}{"id": 5})
	for i := 0; i < 3; i++ {
		owner, err := record.RelatedOne(ctx, "owner")
		require.NoError(t, err)
		assert.Nil(t, owner)
	}
	adapter.AssertNumberOfCalls(t, "Read", 1)

	_, err := record.RelatedMany(ctx, "owner")
	assert.True(t, errors.Is(err, arm.ErrUnknownRelation))
	_, err = record.Related(ctx, "missing")
	assert.True(t, errors.Is(err, arm.ErrUnknownRelation))
}

func TestRelationLoadError(t *testing.T) {
	registry, adapter := newRelationRegistry(t)
	project, _ := registry.Model("Project")
	ctx := context.Background()

	failure := errors.New("unavailable")
	adapter.On("Read", mock.Anything, mock.Anything, mock.Anything).Return(nil, failure).Twice()

	record := project.MustNew(map[string]interface{}{"id": 5})
	for i := 0; i < 2; i++ {
		_, err := record.RelatedMany(ctx, "tasks")
		assert.ErrorIs(t, err, failure)
	}

	_, ok := record.LoadedRelation("tasks")
	assert.False(t, ok)
	adapter.AssertExpectations(t)
}

func TestRelationCacheSize(t *testing.T) {
	registry, adapter := newRelationRegistry(t, arm.WithRelationCacheSize(1))
	project, _ := registry.Model("Project")
	ctx := context.Background()

	adapter.On("Read", mock.Anything, mock.Anything, mock.Anything).Return([]*arm.Record{}, nil)

	first := project.MustNew(map[string]interface{}{"id": 1})
	second := project.MustNew(map[string]interface{}{"id": 2})

	_, err := first.RelatedMany(ctx, "tasks")
	require.NoError(t, err)
	_, err = second.RelatedMany(ctx, "tasks")
	require.NoError(t, err)

	_, ok := first.LoadedRelation("tasks")
	assert.False(t, ok, "least recently loaded owner is evicted")
	_, ok = second.LoadedRelation("tasks")
	assert.True(t, ok)

	_, err = first.RelatedMany(ctx, "tasks")
	require.NoError(t, err)
	adapter.AssertNumberOfCalls(t, "Read", 3)
}

func TestRelationUnbound(t *testing.T) {
	registry := newRegistry()
	project := registry.MustDefine("Project")

	_, err := arm.HasMany("Task").Load(context.Background(), project.MustNew(nil))
	assert.True(t, errors.Is(err, arm.ErrUnknownRelation))

	_, err = arm.HasMany("Task").Target()
	assert.True(t, errors.Is(err, arm.ErrModelType))
}
