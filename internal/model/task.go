package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PersonalGroup is the group reference of a task that belongs to no group.
const PersonalGroup = "personal"

// Task is a personal task. Subtasks are owned by the task and always loaded with it.
type Task struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerUsername string    `gorm:"not null;index"`
	Title         string    `gorm:"not null"`
	Description   string
	Completed     bool `gorm:"not null"`
	DueDate       *time.Time
	Priority      Priority       `gorm:"type:varchar(10);not null"`
	Subjects      pq.StringArray `gorm:"type:text[]"`
	GroupRef      string         `gorm:"column:group_ref;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Subtasks []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

type Subtask struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Position    int       `gorm:"not null"`
	Title       string    `gorm:"not null"`
	Description string
	Completed   bool `gorm:"not null"`
	DueDate     *time.Time
	Priority    Priority       `gorm:"type:varchar(10);not null"`
	Subjects    pq.StringArray `gorm:"type:text[]"`
}

// SubtaskByTitle returns the first subtask whose title matches exactly.
func (t *Task) SubtaskByTitle(title string) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].Title == title {
			return &t.Subtasks[i]
		}
	}
	return nil
}

func (t *Task) SubtaskByID(id uuid.UUID) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}
