package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskify/internal/model"
	"taskify/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type SubtaskInput struct {
	ID          string         `json:"id"`
	Title       string         `json:"title" validate:"required,min=3,max=100"`
	Description string         `json:"description" validate:"max=500"`
	DueDate     *time.Time     `json:"dueDate"`
	Priority    model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Subjects    []string       `json:"subjects"`
}

type CreateTaskInput struct {
	Title       string         `json:"title" validate:"required,max=100"`
	Description string         `json:"description" validate:"max=500"`
	DueDate     *time.Time     `json:"dueDate"`
	Priority    model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Subjects    []string       `json:"subjects"`
	Group       string         `json:"group"`
	Subtasks    []SubtaskInput `json:"subtasks" validate:"dive"`
}

// UpdateTaskInput carries a partial update. Nil fields are left untouched;
// SetDueDate distinguishes "clear the due date" from "not provided".
type UpdateTaskInput struct {
	Title       *string         `json:"title" validate:"omitempty,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	SetDueDate  bool            `json:"-"`
	DueDate     *time.Time      `json:"dueDate"`
	Priority    *model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Subjects    []string        `json:"subjects"`
	Group       *string         `json:"group"`
	Subtasks    []SubtaskInput  `json:"subtasks" validate:"omitempty,dive"`
}

// CompleteInput selects what markComplete acts on. SubtaskID wins over SubtaskTitle;
// with neither the whole task is completed.
type CompleteInput struct {
	SubtaskTitle string `json:"subtaskTitle"`
	SubtaskID    string `json:"subtaskId"`
}

type TaskService struct {
	tasks  TaskStore
	groups GroupStore
	cache  ViewCache
	now    func() time.Time
}

// NewTaskService wires the personal task operations. cache may be nil.
func NewTaskService(tasks TaskStore, groups GroupStore, cache ViewCache) *TaskService {
	return &TaskService{tasks: tasks, groups: groups, cache: cache, now: time.Now}
}

// WithClock replaces the clock used for due date checks and timestamps.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// ListTasks returns the caller's incomplete tasks, dated ones first.
func (s *TaskService) ListTasks(ctx context.Context, caller string) ([]model.Task, error) {
	tasks, err := s.tasks.ListOpen(ctx, caller)
	if err != nil {
		return nil, translate("list tasks", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, caller string, in CreateTaskInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	for i := range in.Subtasks {
		in.Subtasks[i].Title = strings.TrimSpace(in.Subtasks[i].Title)
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := checkDueDate(in.DueDate, now); err != nil {
		return nil, err
	}
	for _, st := range in.Subtasks {
		if err := checkDueDate(st.DueDate, now); err != nil {
			return nil, err
		}
	}

	groupRef, err := s.resolveGroupRef(ctx, caller, in.Group)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:            uuid.New(),
		OwnerUsername: caller,
		Title:         in.Title,
		Description:   in.Description,
		DueDate:       utcPtr(in.DueDate),
		Priority:      priorityOrDefault(in.Priority),
		Subjects:      subjects(in.Subjects),
		GroupRef:      groupRef,
		CreatedAt:     now,
		UpdatedAt:     now,
		Subtasks:      make([]model.Subtask, 0, len(in.Subtasks)),
	}
	for _, st := range in.Subtasks {
		task.Subtasks = append(task.Subtasks, newSubtask(st))
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, translate("create task", err)
	}
	invalidate(ctx, s.cache, caller)
	return task, nil
}

// UpdateTask applies a partial update to a task the caller owns. Completion is not
// settable here; use MarkComplete.
func (s *TaskService) UpdateTask(ctx context.Context, caller, taskID string, in UpdateTaskInput) (*model.Task, error) {
	id, err := parseID(taskID, "task")
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ValidationError("title is required")
		}
		in.Title = &title
	}
	for i := range in.Subtasks {
		in.Subtasks[i].Title = strings.TrimSpace(in.Subtasks[i].Title)
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if in.SetDueDate {
		if err := checkDueDate(in.DueDate, now); err != nil {
			return nil, err
		}
	}

	task, err := s.tasks.GetOwned(ctx, id, caller)
	if err != nil {
		return nil, translate("update task", err)
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.SetDueDate {
		task.DueDate = utcPtr(in.DueDate)
	}
	if in.Priority != nil {
		task.Priority = priorityOrDefault(*in.Priority)
	}
	if in.Subjects != nil {
		task.Subjects = subjects(in.Subjects)
	}
	if in.Group != nil {
		ref, err := s.resolveGroupRef(ctx, caller, *in.Group)
		if err != nil {
			return nil, err
		}
		task.GroupRef = ref
	}

	replace := in.Subtasks != nil
	if replace {
		subtasks := make([]model.Subtask, 0, len(in.Subtasks))
		for _, st := range in.Subtasks {
			next := newSubtask(st)
			dueChanged := true
			if prevID, err := uuid.Parse(st.ID); err == nil {
				if prev := task.SubtaskByID(prevID); prev != nil {
					next.ID = prev.ID
					next.Completed = prev.Completed
					dueChanged = !sameTime(prev.DueDate, next.DueDate)
				}
			}
			if dueChanged {
				if err := checkDueDate(next.DueDate, now); err != nil {
					return nil, err
				}
			}
			subtasks = append(subtasks, next)
		}
		task.Subtasks = subtasks
	}
	task.UpdatedAt = now

	if err := s.tasks.Update(ctx, task, replace); err != nil {
		return nil, translate("update task", err)
	}
	invalidate(ctx, s.cache, caller)
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, caller, taskID string) error {
	id, err := parseID(taskID, "task")
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id, caller); err != nil {
		return translate("delete task", err)
	}
	invalidate(ctx, s.cache, caller)
	return nil
}

// MarkComplete completes one subtask, or the task together with all its subtasks.
// Completion is monotonic: completing something already complete fails.
func (s *TaskService) MarkComplete(ctx context.Context, caller, taskID string, in CompleteInput) (*model.Task, error) {
	id, err := parseID(taskID, "task")
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.GetOwned(ctx, id, caller)
	if err != nil {
		return nil, translate("complete task", err)
	}

	subtask, err := selectSubtask(task, in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	switch {
	case subtask != nil:
		if subtask.Completed {
			return nil, AlreadyCompletedError("subtask already completed")
		}
		if err := s.tasks.CompleteSubtask(ctx, task.ID, subtask.ID, caller, now); err != nil {
			return nil, translate("complete subtask", err)
		}
		subtask.Completed = true
	default:
		if task.Completed {
			return nil, AlreadyCompletedError("task already completed")
		}
		if err := s.tasks.Complete(ctx, task.ID, caller, now); err != nil {
			return nil, translate("complete task", err)
		}
		task.Completed = true
		for i := range task.Subtasks {
			task.Subtasks[i].Completed = true
		}
	}
	task.UpdatedAt = now

	invalidate(ctx, s.cache, caller)
	return task, nil
}

func selectSubtask(task *model.Task, in CompleteInput) (*model.Subtask, error) {
	if id := strings.TrimSpace(in.SubtaskID); id != "" {
		sid, err := uuid.Parse(id)
		if err != nil {
			return nil, NotFoundError("subtask not found")
		}
		if st := task.SubtaskByID(sid); st != nil {
			return st, nil
		}
		return nil, NotFoundError("subtask not found")
	}
	if in.SubtaskTitle != "" {
		if st := task.SubtaskByTitle(in.SubtaskTitle); st != nil {
			return st, nil
		}
		return nil, NotFoundError("subtask not found")
	}
	return nil, nil
}

// resolveGroupRef accepts "personal" (or empty) or the id of an active group the caller belongs to.
func (s *TaskService) resolveGroupRef(ctx context.Context, caller, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == model.PersonalGroup {
		return model.PersonalGroup, nil
	}
	gid, err := uuid.Parse(ref)
	if err != nil {
		return "", ValidationError("group must be \"personal\" or a group id")
	}
	group, err := s.groups.GetByID(ctx, gid)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return "", ValidationError("group not found")
	}
	if err != nil {
		return "", translate("resolve group", err)
	}
	if !group.IsMember(caller) {
		return "", ValidationError("you are not a member of this group")
	}
	return group.ID.String(), nil
}

func newSubtask(in SubtaskInput) model.Subtask {
	return model.Subtask{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     utcPtr(in.DueDate),
		Priority:    priorityOrDefault(in.Priority),
		Subjects:    subjects(in.Subjects),
	}
}

func priorityOrDefault(p model.Priority) model.Priority {
	if p == "" {
		return model.PriorityMedium
	}
	return p
}

// subjects trims, drops empty tags and de-duplicates, keeping first occurrence order.
func subjects(in []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
