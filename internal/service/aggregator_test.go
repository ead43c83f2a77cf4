package service_test

import (
	"context"
	"testing"
	"time"

	"taskify/internal/model"
	"taskify/internal/service"
	"taskify/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(view []model.UnifiedTask) []string {
	out := make([]string, len(view))
	for i, u := range view {
		if u.Personal != nil {
			out[i] = u.Personal.Title
		} else {
			out[i] = u.Group.Title
		}
	}
	return out
}

func TestUnifiedView_MergesAndSorts(t *testing.T) {
	f := newGroupFixture(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, "alice", service.CreateTaskInput{Title: "undated personal"})
	require.NoError(t, err)
	_, err = f.tasks.CreateTask(ctx, "alice", service.CreateTaskInput{Title: "personal day 3", DueDate: ptr(fixedNow.Add(72 * time.Hour))})
	require.NoError(t, err)

	group, err := f.groups.CreateGroup(ctx, "bob", service.CreateGroupInput{Name: "Team", Members: []string{"alice"}})
	require.NoError(t, err)
	gid := group.ID.String()
	for _, in := range []service.CreateGroupTaskInput{
		{Title: "group day 1", AssignedTo: "alice", DueDate: ptr(fixedNow.Add(24 * time.Hour))},
		{Title: "undated group", AssignedTo: "alice"},
		{Title: "for bob", AssignedTo: "bob", DueDate: ptr(fixedNow.Add(time.Hour))},
	} {
		_, err := f.groups.CreateGroupTask(ctx, "bob", gid, in)
		require.NoError(t, err)
	}

	view, err := f.view.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"group day 1", "personal day 3", "undated personal", "undated group"}, titles(view))
	assert.Equal(t, model.SourceGroup, view[0].Source)
	assert.Equal(t, "Team", view[0].Group.GroupName)
	assert.Equal(t, model.SourcePersonal, view[1].Source)
}

func TestUnifiedView_EmptySources(t *testing.T) {
	f := newGroupFixture(t, "alice")

	view, err := f.view.UnifiedView(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, view)
	assert.Empty(t, view)
}

func TestUnifiedView_InactiveGroupsExcluded(t *testing.T) {
	f := newGroupFixture(t, "alice", "bob")
	ctx := context.Background()

	group, err := f.groups.CreateGroup(ctx, "bob", service.CreateGroupInput{Name: "Team", Members: []string{"alice"}})
	require.NoError(t, err)
	_, err = f.groups.CreateGroupTask(ctx, "bob", group.ID.String(), service.CreateGroupTaskInput{Title: "x", AssignedTo: "alice"})
	require.NoError(t, err)

	view, err := f.view.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, view, 1)

	require.NoError(t, f.groups.DeleteGroup(ctx, "bob", group.ID.String()))
	view, err = f.view.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, view)
}

func TestUnifiedView_ServedFromCacheUntilInvalidated(t *testing.T) {
	store := testutil.NewStore()
	cache := testutil.NewViewCache()
	// the task service writes without touching the cache, so a cached view is observable
	tasks := service.NewTaskService(store.Tasks(), store.Groups(), nil).WithClock(clock)
	agg := service.NewAggregator(store.Tasks(), store.Groups(), cache)
	ctx := context.Background()

	_, err := tasks.CreateTask(ctx, "alice", service.CreateTaskInput{Title: "first"})
	require.NoError(t, err)
	view, err := agg.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, view, 1)

	_, err = tasks.CreateTask(ctx, "alice", service.CreateTaskInput{Title: "second"})
	require.NoError(t, err)
	view, err = agg.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, view, 1)

	require.NoError(t, cache.Invalidate(ctx, "alice"))
	view, err = agg.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, view, 2)
}

// ctxTaskStore fails reads once the request context is done, like the Postgres store.
type ctxTaskStore struct {
	service.TaskStore
}

func (s ctxTaskStore) ListOpen(ctx context.Context, owner string) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.TaskStore.ListOpen(ctx, owner)
}

func TestUnifiedView_BuildDetachedFromCallerCancellation(t *testing.T) {
	store := testutil.NewStore()
	tasks := service.NewTaskService(store.Tasks(), store.Groups(), nil).WithClock(clock)
	view := service.NewAggregator(ctxTaskStore{store.Tasks()}, store.Groups(), nil)

	_, err := tasks.CreateTask(context.Background(), "alice", service.CreateTaskInput{Title: "read"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := view.UnifiedView(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, titles(got))
}
