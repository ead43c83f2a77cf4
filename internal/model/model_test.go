package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRoles(t *testing.T) {
	g := &Group{Members: []GroupMember{
		{Username: "bob", Role: RoleMember},
		{Username: "alice", Role: RoleAdmin},
		{Username: "carol", Role: RoleAdmin},
	}}

	assert.True(t, g.IsAdmin("alice"))
	assert.False(t, g.IsAdmin("bob"))
	assert.True(t, g.IsMember("bob"))
	assert.False(t, g.IsMember("mallory"))
	assert.False(t, g.IsAdmin("mallory"))

	admins := g.Admins()
	require.Len(t, admins, 2)
	assert.Equal(t, "alice", admins[0].Username)
	assert.Equal(t, "carol", admins[1].Username)

	assert.Equal(t, []string{"bob", "alice", "carol"}, g.MemberUsernames())
}

func TestGroupTaskLookup(t *testing.T) {
	id := uuid.New()
	g := &Group{Tasks: []GroupTask{{ID: uuid.New()}, {ID: id, Title: "Read"}}}

	task := g.Task(id)
	require.NotNil(t, task)
	task.Completed = true
	assert.True(t, g.Tasks[1].Completed, "Task returns a pointer into the group")

	assert.Nil(t, g.Task(uuid.New()))
}

func TestSubtaskLookup(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	task := &Task{Subtasks: []Subtask{
		{ID: first, Title: "Pack"},
		{ID: second, Title: "Pack"},
	}}

	assert.Equal(t, first, task.SubtaskByTitle("Pack").ID)
	assert.Nil(t, task.SubtaskByTitle("pack"))
	assert.Equal(t, second, task.SubtaskByID(second).ID)
	assert.Nil(t, task.SubtaskByID(uuid.New()))
}

func TestUnifiedTaskDueDate(t *testing.T) {
	due := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	personal := UnifiedTask{Source: SourcePersonal, Personal: &Task{DueDate: &due}}
	group := UnifiedTask{Source: SourceGroup, Group: &AnnotatedGroupTask{GroupTask: GroupTask{DueDate: &due}}}

	assert.Equal(t, &due, personal.DueDate())
	assert.Equal(t, &due, group.DueDate())
	assert.Nil(t, UnifiedTask{}.DueDate())
}
