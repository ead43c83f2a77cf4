// Package testutil holds in-memory stand-ins for the Postgres repositories and the
// Redis/NATS adapters. They return the same sentinel errors as the real ones.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskify/internal/model"
	"taskify/internal/repository"

	"github.com/google/uuid"
)

// Store keeps users, tasks and groups in memory. Reads return deep copies so
// callers cannot mutate stored state without going through a write method.
type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]model.User
	tasks  map[uuid.UUID]model.Task
	groups map[uuid.UUID]model.Group
	order  []uuid.UUID // group creation order

	// FailMemberInsert makes the next group Create fail after the group row
	// would have been written, to exercise rollback.
	FailMemberInsert error
}

func NewStore() *Store {
	return &Store{
		users:  map[uuid.UUID]model.User{},
		tasks:  map[uuid.UUID]model.Task{},
		groups: map[uuid.UUID]model.Group{},
	}
}

func (s *Store) Users() *UserStore   { return &UserStore{s} }
func (s *Store) Tasks() *TaskStore   { return &TaskStore{s} }
func (s *Store) Groups() *GroupStore { return &GroupStore{s} }

// GroupCount counts groups regardless of state.
func (s *Store) GroupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// RawTask returns a stored task even if it is completed.
func (s *Store) RawTask(id uuid.UUID) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return copyTask(t), ok
}

// RawGroup returns a stored group even if it is inactive.
func (s *Store) RawGroup(id uuid.UUID) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	return copyGroup(g), ok
}

type UserStore struct{ s *Store }

func (u *UserStore) Create(_ context.Context, user *model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUser
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	u.s.users[user.ID] = *user
	return nil
}

func (u *UserStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Username == username {
			out := existing
			return &out, nil
		}
	}
	return nil, nil
}

func (u *UserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	existing, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

func (u *UserStore) Exists(ctx context.Context, username string) (bool, error) {
	user, err := u.FindByUsername(ctx, username)
	return user != nil, err
}

func (u *UserStore) SetRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	existing, ok := u.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if token != nil {
		t := *token
		token = &t
	}
	existing.RefreshToken = token
	u.s.users[id] = existing
	return nil
}

func (u *UserStore) ClearRefreshToken(_ context.Context, token string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for id, existing := range u.s.users {
		if existing.RefreshToken != nil && *existing.RefreshToken == token {
			existing.RefreshToken = nil
			u.s.users[id] = existing
		}
	}
	return nil
}

// AddUser registers a username with no password, for tests that only need the directory.
func (s *Store) AddUser(usernames ...string) {
	for _, name := range usernames {
		_ = s.Users().Create(context.Background(), &model.User{ID: uuid.New(), Username: name})
	}
}

type TaskStore struct{ s *Store }

func (t *TaskStore) Create(_ context.Context, task *model.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == uuid.Nil {
			task.Subtasks[i].ID = uuid.New()
		}
		task.Subtasks[i].TaskID = task.ID
		task.Subtasks[i].Position = i
	}
	t.s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (t *TaskStore) ListOpen(_ context.Context, owner string) ([]model.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []model.Task
	for _, task := range t.s.tasks {
		if task.OwnerUsername == owner && !task.Completed {
			out = append(out, copyTask(task))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return a.Before(*b)
	})
	return out, nil
}

func (t *TaskStore) GetOwned(_ context.Context, id uuid.UUID, owner string) (*model.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.OwnerUsername != owner {
		return nil, repository.ErrTaskNotFound
	}
	out := copyTask(task)
	return &out, nil
}

func (t *TaskStore) Update(_ context.Context, task *model.Task, replaceSubtasks bool) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	existing, ok := t.s.tasks[task.ID]
	if !ok || existing.OwnerUsername != task.OwnerUsername {
		return repository.ErrTaskNotFound
	}
	if replaceSubtasks {
		for i := range task.Subtasks {
			if task.Subtasks[i].ID == uuid.Nil {
				task.Subtasks[i].ID = uuid.New()
			}
			task.Subtasks[i].TaskID = task.ID
			task.Subtasks[i].Position = i
		}
	}
	next := copyTask(*task)
	next.CreatedAt = existing.CreatedAt
	t.s.tasks[task.ID] = next
	return nil
}

func (t *TaskStore) Complete(_ context.Context, id uuid.UUID, owner string, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.OwnerUsername != owner {
		return repository.ErrTaskNotFound
	}
	if task.Completed {
		return repository.ErrTaskAlreadyCompleted
	}
	task.Completed = true
	task.UpdatedAt = at
	for i := range task.Subtasks {
		task.Subtasks[i].Completed = true
	}
	t.s.tasks[id] = task
	return nil
}

func (t *TaskStore) CompleteSubtask(_ context.Context, taskID, subtaskID uuid.UUID, owner string, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[taskID]
	if !ok || task.OwnerUsername != owner {
		return repository.ErrTaskNotFound
	}
	st := task.SubtaskByID(subtaskID)
	if st == nil {
		return repository.ErrSubtaskNotFound
	}
	if st.Completed {
		return repository.ErrSubtaskAlreadyCompleted
	}
	st.Completed = true
	task.UpdatedAt = at
	t.s.tasks[taskID] = task
	return nil
}

func (t *TaskStore) Delete(_ context.Context, id uuid.UUID, owner string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.OwnerUsername != owner {
		return repository.ErrTaskNotFound
	}
	delete(t.s.tasks, id)
	return nil
}

type GroupStore struct{ s *Store }

func (g *GroupStore) Create(_ context.Context, group *model.Group) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	for _, existing := range g.s.groups {
		if existing.Name == group.Name && existing.CreatorUsername == group.CreatorUsername {
			return repository.ErrDuplicateGroup
		}
	}
	if err := g.s.FailMemberInsert; err != nil {
		g.s.FailMemberInsert = nil
		return err
	}
	for i := range group.Members {
		if group.Members[i].ID == uuid.Nil {
			group.Members[i].ID = uuid.New()
		}
		group.Members[i].GroupID = group.ID
		group.Members[i].Position = i
	}
	g.s.groups[group.ID] = copyGroup(*group)
	g.s.order = append(g.s.order, group.ID)
	return nil
}

func (g *GroupStore) ExistsByNameAndCreator(_ context.Context, name, creator string, excludeID uuid.UUID) (bool, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	for id, existing := range g.s.groups {
		if id != excludeID && existing.Name == name && existing.CreatorUsername == creator {
			return true, nil
		}
	}
	return false, nil
}

func (g *GroupStore) GetByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	group, ok := g.s.groups[id]
	if !ok || !group.IsActive {
		return nil, repository.ErrGroupNotFound
	}
	out := copyGroup(group)
	return &out, nil
}

func (g *GroupStore) ListForUser(_ context.Context, username string) ([]model.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	var out []model.Group
	for i := len(g.s.order) - 1; i >= 0; i-- {
		group := g.s.groups[g.s.order[i]]
		if group.IsActive && group.IsMember(username) {
			out = append(out, copyGroup(group))
		}
	}
	return out, nil
}

func (g *GroupStore) Update(_ context.Context, group *model.Group, replaceMembers bool) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	existing, ok := g.s.groups[group.ID]
	if !ok || !existing.IsActive {
		return repository.ErrGroupNotFound
	}
	existing.Name = group.Name
	existing.Description = group.Description
	existing.UpdatedAt = group.UpdatedAt
	if replaceMembers {
		seen := map[string]bool{}
		for i := range group.Members {
			if seen[group.Members[i].Username] {
				return repository.ErrDuplicateMember
			}
			seen[group.Members[i].Username] = true
			if group.Members[i].ID == uuid.Nil {
				group.Members[i].ID = uuid.New()
			}
			group.Members[i].GroupID = group.ID
			group.Members[i].Position = i
		}
		existing.Members = append([]model.GroupMember(nil), group.Members...)
	}
	g.s.groups[group.ID] = existing
	return nil
}

func (g *GroupStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	existing, ok := g.s.groups[id]
	if !ok || !existing.IsActive {
		return repository.ErrGroupNotFound
	}
	existing.IsActive = false
	g.s.groups[id] = existing
	return nil
}

func (g *GroupStore) AddMember(_ context.Context, member *model.GroupMember) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	existing, ok := g.s.groups[member.GroupID]
	if !ok {
		return repository.ErrGroupNotFound
	}
	if existing.IsMember(member.Username) {
		return repository.ErrDuplicateMember
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	existing.Members = append(existing.Members, *member)
	g.s.groups[member.GroupID] = existing
	return nil
}

func (g *GroupStore) AddTask(_ context.Context, task *model.GroupTask) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	existing, ok := g.s.groups[task.GroupID]
	if !ok {
		return repository.ErrGroupNotFound
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	existing.Tasks = append(existing.Tasks, *task)
	g.s.groups[task.GroupID] = existing
	return nil
}

func (g *GroupStore) CompleteTask(_ context.Context, groupID, taskID uuid.UUID) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	existing, ok := g.s.groups[groupID]
	if !ok {
		return repository.ErrGroupNotFound
	}
	task := existing.Task(taskID)
	if task == nil {
		return repository.ErrGroupTaskNotFound
	}
	if task.Completed {
		return repository.ErrTaskAlreadyCompleted
	}
	task.Completed = true
	g.s.groups[groupID] = existing
	return nil
}

func copyTask(t model.Task) model.Task {
	out := t
	out.Subjects = append(out.Subjects[:0:0], t.Subjects...)
	out.Subtasks = make([]model.Subtask, len(t.Subtasks))
	for i, st := range t.Subtasks {
		st.Subjects = append(st.Subjects[:0:0], st.Subjects...)
		out.Subtasks[i] = st
	}
	return out
}

func copyGroup(g model.Group) model.Group {
	out := g
	out.Members = append([]model.GroupMember(nil), g.Members...)
	out.Tasks = append([]model.GroupTask(nil), g.Tasks...)
	return out
}
