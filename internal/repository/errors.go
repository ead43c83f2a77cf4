package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrTaskNotFound            = errors.New("task not found")
	ErrSubtaskNotFound         = errors.New("subtask not found")
	ErrSubtaskAlreadyCompleted = errors.New("subtask already completed")

	ErrGroupNotFound        = errors.New("group not found")
	ErrGroupTaskNotFound    = errors.New("group task not found")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	ErrDuplicateGroup       = errors.New("group with this name already exists")
	ErrDuplicateMember      = errors.New("user is already a member")

	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username already taken")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == pgUniqueViolation
	}
	return false
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}
