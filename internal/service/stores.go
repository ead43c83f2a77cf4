package service

import (
	"context"
	"errors"
	"log"
	"time"

	"taskify/internal/model"
	"taskify/internal/repository"

	"github.com/google/uuid"
)

// TaskStore is implemented by repository.TaskRepository.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListOpen(ctx context.Context, owner string) ([]model.Task, error)
	GetOwned(ctx context.Context, id uuid.UUID, owner string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task, replaceSubtasks bool) error
	Complete(ctx context.Context, id uuid.UUID, owner string, at time.Time) error
	CompleteSubtask(ctx context.Context, taskID, subtaskID uuid.UUID, owner string, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID, owner string) error
}

// GroupStore is implemented by repository.GroupRepository.
type GroupStore interface {
	Create(ctx context.Context, group *model.Group) error
	ExistsByNameAndCreator(ctx context.Context, name, creator string, excludeID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	ListForUser(ctx context.Context, username string) ([]model.Group, error)
	Update(ctx context.Context, group *model.Group, replaceMembers bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *model.GroupMember) error
	AddTask(ctx context.Context, task *model.GroupTask) error
	CompleteTask(ctx context.Context, groupID, taskID uuid.UUID) error
}

// UserStore is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	ClearRefreshToken(ctx context.Context, token string) error
}

// UserDirectory answers whether a username is registered.
type UserDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// ViewCache stores unified views per user. Every invalidation bumps the user's
// generation, so a view built before a write is never served after it.
type ViewCache interface {
	Get(ctx context.Context, username string) (view []model.UnifiedTask, gen int64, ok bool, err error)
	Set(ctx context.Context, username string, gen int64, view []model.UnifiedTask) error
	Invalidate(ctx context.Context, usernames ...string) error
}

// Notifier hands group events to the push delivery service. It never fails the caller.
type Notifier interface {
	Publish(ctx context.Context, ev model.Event)
}

func invalidate(ctx context.Context, cache ViewCache, usernames ...string) {
	if cache == nil || len(usernames) == 0 {
		return
	}
	if err := cache.Invalidate(ctx, usernames...); err != nil {
		log.Printf("view cache: invalidate %v: %v", usernames, err)
	}
}

func publish(ctx context.Context, n Notifier, ev model.Event) {
	if n == nil {
		return
	}
	n.Publish(ctx, ev)
}

// translate maps repository sentinels onto the error taxonomy. Anything unknown becomes internal.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrTaskNotFound), errors.Is(err, repository.ErrGroupTaskNotFound):
		return NotFoundError("task not found")
	case errors.Is(err, repository.ErrGroupNotFound):
		return NotFoundError("group not found")
	case errors.Is(err, repository.ErrSubtaskNotFound):
		return NotFoundError("subtask not found")
	case errors.Is(err, repository.ErrTaskAlreadyCompleted):
		return AlreadyCompletedError("task already completed")
	case errors.Is(err, repository.ErrSubtaskAlreadyCompleted):
		return AlreadyCompletedError("subtask already completed")
	case errors.Is(err, repository.ErrDuplicateGroup):
		return DuplicateError("group with this name already exists")
	case errors.Is(err, repository.ErrDuplicateMember):
		return ConflictError("user is already a member")
	case errors.Is(err, repository.ErrDuplicateUser):
		return &Error{Kind: KindValidation, Code: "username_taken", Message: "username already taken"}
	case errors.Is(err, repository.ErrUserNotFound):
		return NotFoundError("user not found")
	}
	return InternalError(op, err)
}

// parseID turns a path id into a uuid. A malformed id cannot name anything, so it is reported as not found.
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NotFoundError(what + " not found")
	}
	return id, nil
}
