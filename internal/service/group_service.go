package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskify/internal/model"

	"github.com/google/uuid"
)

type CreateGroupInput struct {
	Name        string   `json:"name" validate:"required,min=3,max=50"`
	Description string   `json:"description" validate:"max=500"`
	Members     []string `json:"members"`
}

// UpdateGroupInput is a partial update. A non-nil Members replaces every non-admin member.
type UpdateGroupInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Members     []string `json:"members"`
}

type CreateGroupTaskInput struct {
	Title       string         `json:"title" validate:"required,max=100"`
	Description string         `json:"description" validate:"max=500"`
	DueDate     *time.Time     `json:"dueDate"`
	Priority    model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  string         `json:"assignedTo" validate:"required"`
}

type GroupService struct {
	groups   GroupStore
	users    UserDirectory
	cache    ViewCache
	notifier Notifier
	now      func() time.Time
}

// NewGroupService wires the group operations. cache and notifier may be nil.
func NewGroupService(groups GroupStore, users UserDirectory, cache ViewCache, notifier Notifier) *GroupService {
	return &GroupService{groups: groups, users: users, cache: cache, notifier: notifier, now: time.Now}
}

func (s *GroupService) WithClock(now func() time.Time) *GroupService {
	s.now = now
	return s
}

// CreateGroup stores a new group with the creator as its single admin. The creator's
// own username in members is dropped, so the creator appears exactly once.
func (s *GroupService) CreateGroup(ctx context.Context, creator string, in CreateGroupInput) (*model.Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	exists, err := s.groups.ExistsByNameAndCreator(ctx, in.Name, creator, uuid.Nil)
	if err != nil {
		return nil, translate("create group", err)
	}
	if exists {
		return nil, DuplicateError("group with this name already exists")
	}

	usernames := normalizeUsernames(in.Members, creator)
	if err := s.checkRegistered(ctx, usernames); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	group := &model.Group{
		ID:              uuid.New(),
		Name:            in.Name,
		Description:     in.Description,
		CreatorUsername: creator,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
		Tasks:           []model.GroupTask{},
	}
	for _, u := range usernames {
		group.Members = append(group.Members, model.GroupMember{Username: u, Role: model.RoleMember, JoinedAt: now})
	}
	group.Members = append(group.Members, model.GroupMember{Username: creator, Role: model.RoleAdmin, JoinedAt: now})

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, translate("create group", err)
	}
	for _, u := range usernames {
		s.notify(ctx, model.EventMemberAdded, group, u, creator, nil)
	}
	return group, nil
}

// ListGroupsForUser returns the active groups username belongs to, newest first.
func (s *GroupService) ListGroupsForUser(ctx context.Context, username string) ([]model.Group, error) {
	groups, err := s.groups.ListForUser(ctx, username)
	if err != nil {
		return nil, translate("list groups", err)
	}
	if groups == nil {
		groups = []model.Group{}
	}
	return groups, nil
}

func (s *GroupService) GetGroup(ctx context.Context, caller, groupID string) (*model.Group, error) {
	return s.loadForMember(ctx, caller, groupID, "get group")
}

// UpdateGroup changes name, description and non-admin members. Admins are kept
// verbatim ahead of the new member list and can never be demoted here.
func (s *GroupService) UpdateGroup(ctx context.Context, caller, groupID string, in UpdateGroupInput) (*model.Group, error) {
	group, err := s.loadForAdmin(ctx, caller, groupID, "update group")
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validate.Var(name, "min=3,max=50"); err != nil {
			return nil, ValidationError("name must be between 3 and 50 characters")
		}
		if name != group.Name {
			exists, err := s.groups.ExistsByNameAndCreator(ctx, name, group.CreatorUsername, group.ID)
			if err != nil {
				return nil, translate("update group", err)
			}
			if exists {
				return nil, DuplicateError("group with this name already exists")
			}
		}
		group.Name = name
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Description != nil {
		group.Description = *in.Description
	}

	before := group.MemberUsernames()
	var added []string
	replace := in.Members != nil
	if replace {
		admins := group.Admins()
		exclude := make([]string, len(admins))
		for i, a := range admins {
			exclude[i] = a.Username
		}
		usernames := normalizeUsernames(in.Members, exclude...)
		if err := s.checkRegistered(ctx, usernames); err != nil {
			return nil, err
		}

		joined := make(map[string]time.Time, len(group.Members))
		for _, m := range group.Members {
			joined[m.Username] = m.JoinedAt
		}
		now := s.now().UTC()
		members := append([]model.GroupMember{}, admins...)
		for _, u := range usernames {
			m := model.GroupMember{Username: u, Role: model.RoleMember, JoinedAt: now}
			if at, ok := joined[u]; ok {
				m.JoinedAt = at
			} else {
				added = append(added, u)
			}
			members = append(members, m)
		}
		for i := range members {
			members[i].ID = uuid.Nil
		}
		group.Members = members
	}
	group.UpdatedAt = s.now().UTC()

	if err := s.groups.Update(ctx, group, replace); err != nil {
		return nil, translate("update group", err)
	}
	// cached views carry the group name, so every update drops them
	invalidate(ctx, s.cache, union(before, group.MemberUsernames())...)
	for _, u := range added {
		s.notify(ctx, model.EventMemberAdded, group, u, caller, nil)
	}
	return group, nil
}

// DeleteGroup soft-deletes the group; its tasks disappear from every member's view.
func (s *GroupService) DeleteGroup(ctx context.Context, caller, groupID string) error {
	group, err := s.loadForAdmin(ctx, caller, groupID, "delete group")
	if err != nil {
		return err
	}
	if err := s.groups.SoftDelete(ctx, group.ID); err != nil {
		return translate("delete group", err)
	}
	invalidate(ctx, s.cache, group.MemberUsernames()...)
	return nil
}

func (s *GroupService) AddMember(ctx context.Context, caller, groupID, username string) (*model.Group, error) {
	group, err := s.loadForAdmin(ctx, caller, groupID, "add member")
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ValidationError("username is required")
	}
	if group.IsMember(username) {
		return nil, ConflictError("user is already a member")
	}
	if err := s.checkRegistered(ctx, []string{username}); err != nil {
		return nil, err
	}

	member := model.GroupMember{
		GroupID:  group.ID,
		Username: username,
		Role:     model.RoleMember,
		Position: len(group.Members),
		JoinedAt: s.now().UTC(),
	}
	if err := s.groups.AddMember(ctx, &member); err != nil {
		return nil, translate("add member", err)
	}
	group.Members = append(group.Members, member)

	invalidate(ctx, s.cache, username)
	s.notify(ctx, model.EventMemberAdded, group, username, caller, nil)
	return group, nil
}

// CreateGroupTask embeds a new task in the group. Any member may create one,
// assigned to any current member.
func (s *GroupService) CreateGroupTask(ctx context.Context, caller, groupID string, in CreateGroupTaskInput) (*model.GroupTask, error) {
	group, err := s.loadForMember(ctx, caller, groupID, "create group task")
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !group.IsMember(in.AssignedTo) {
		return nil, ValidationError("assignedTo must be a member of the group")
	}
	now := s.now().UTC()
	if err := checkDueDate(in.DueDate, now); err != nil {
		return nil, err
	}

	task := &model.GroupTask{
		ID:                uuid.New(),
		GroupID:           group.ID,
		Position:          len(group.Tasks),
		Title:             in.Title,
		Description:       in.Description,
		DueDate:           utcPtr(in.DueDate),
		Priority:          priorityOrDefault(in.Priority),
		AssignedTo:        in.AssignedTo,
		CreatedByUsername: caller,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.groups.AddTask(ctx, task); err != nil {
		return nil, translate("create group task", err)
	}

	invalidate(ctx, s.cache, task.AssignedTo)
	s.notify(ctx, model.EventTaskAssigned, group, task.AssignedTo, caller, task)
	return task, nil
}

func (s *GroupService) ListGroupTasks(ctx context.Context, caller, groupID string) ([]model.GroupTask, error) {
	group, err := s.loadForMember(ctx, caller, groupID, "list group tasks")
	if err != nil {
		return nil, err
	}
	if group.Tasks == nil {
		return []model.GroupTask{}, nil
	}
	return group.Tasks, nil
}

// MarkGroupTaskComplete flips a group task to completed. Completing it twice fails
// with an already_completed error and changes nothing.
func (s *GroupService) MarkGroupTaskComplete(ctx context.Context, caller, groupID, taskID string) (*model.GroupTask, error) {
	group, err := s.loadForMember(ctx, caller, groupID, "complete group task")
	if err != nil {
		return nil, err
	}
	tid, err := parseID(taskID, "task")
	if err != nil {
		return nil, err
	}
	task := group.Task(tid)
	if task == nil {
		return nil, NotFoundError("task not found")
	}
	if task.Completed {
		return nil, AlreadyCompletedError("task already completed")
	}

	if err := s.groups.CompleteTask(ctx, group.ID, task.ID); err != nil {
		return nil, translate("complete group task", err)
	}
	task.Completed = true
	task.UpdatedAt = s.now().UTC()

	invalidate(ctx, s.cache, task.AssignedTo)
	s.notify(ctx, model.EventTaskCompleted, group, task.CreatedByUsername, caller, task)
	out := *task
	return &out, nil
}

// load resolves the group: a missing group is reported before any role check.
func (s *GroupService) load(ctx context.Context, groupID, op string) (*model.Group, error) {
	id, err := parseID(groupID, "group")
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, translate(op, err)
	}
	return group, nil
}

func (s *GroupService) loadForMember(ctx context.Context, caller, groupID, op string) (*model.Group, error) {
	group, err := s.load(ctx, groupID, op)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(caller) {
		return nil, ForbiddenError("you are not a member of this group")
	}
	return group, nil
}

func (s *GroupService) loadForAdmin(ctx context.Context, caller, groupID, op string) (*model.Group, error) {
	group, err := s.load(ctx, groupID, op)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(caller) {
		return nil, ForbiddenError("only group admins can do this")
	}
	return group, nil
}

func (s *GroupService) checkRegistered(ctx context.Context, usernames []string) error {
	if s.users == nil {
		return nil
	}
	for _, u := range usernames {
		ok, err := s.users.Exists(ctx, u)
		if err != nil {
			return translate("check user", err)
		}
		if !ok {
			return ValidationError(fmt.Sprintf("user %q does not exist", u))
		}
	}
	return nil
}

func (s *GroupService) notify(ctx context.Context, typ string, group *model.Group, recipient, actor string, task *model.GroupTask) {
	ev := model.Event{
		Type:      typ,
		GroupID:   group.ID.String(),
		GroupName: group.Name,
		Username:  recipient,
		Actor:     actor,
		At:        s.now().UTC(),
	}
	if task != nil {
		ev.TaskID = task.ID.String()
		ev.TaskTitle = task.Title
	}
	publish(ctx, s.notifier, ev)
}

// normalizeUsernames trims, drops blanks and duplicates, and removes every name in exclude.
func normalizeUsernames(in []string, exclude ...string) []string {
	skip := make(map[string]struct{}, len(in)+len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	var out []string
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := skip[u]; ok {
			continue
		}
		skip[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
