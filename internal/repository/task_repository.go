package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskify/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts the task and its subtasks in one transaction.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	prepareSubtasks(task)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		if len(task.Subtasks) == 0 {
			return nil
		}
		return tx.Create(&task.Subtasks).Error
	})
}

// ListOpen returns the owner's incomplete tasks, earliest due date first, undated last.
func (r *TaskRepository) ListOpen(ctx context.Context, owner string) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Preload("Subtasks", byPosition).
		Where("owner_username = ? AND completed = ?", owner, false).
		Order("due_date ASC NULLS LAST").
		Order("created_at").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetOwned retrieves a task by id only if it belongs to owner.
func (r *TaskRepository) GetOwned(ctx context.Context, id uuid.UUID, owner string) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).
		Preload("Subtasks", byPosition).
		First(&task, "id = ? AND owner_username = ?", id, owner)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Update writes the task's fields and its subtasks. With replaceSubtasks the stored
// subtask list is dropped and re-inserted, otherwise each subtask is updated in place.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task, replaceSubtasks bool) error {
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Task{}).
			Where("id = ? AND owner_username = ?", task.ID, task.OwnerUsername).
			Updates(map[string]interface{}{
				"title":       task.Title,
				"description": task.Description,
				"completed":   task.Completed,
				"due_date":    task.DueDate,
				"priority":    task.Priority,
				"subjects":    task.Subjects,
				"group_ref":   task.GroupRef,
				"updated_at":  task.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		if replaceSubtasks {
			if err := tx.Where("task_id = ?", task.ID).Delete(&model.Subtask{}).Error; err != nil {
				return err
			}
			prepareSubtasks(task)
			if len(task.Subtasks) == 0 {
				return nil
			}
			return tx.Create(&task.Subtasks).Error
		}

		for _, s := range task.Subtasks {
			if err := tx.Model(&model.Subtask{}).
				Where("id = ? AND task_id = ?", s.ID, task.ID).
				Updates(map[string]interface{}{
					"title":       s.Title,
					"description": s.Description,
					"completed":   s.Completed,
					"due_date":    s.DueDate,
					"priority":    s.Priority,
					"subjects":    s.Subjects,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete flips the owner's task from open to completed and completes every
// subtask with it. The conditional update keeps completion monotonic under
// concurrent calls.
func (r *TaskRepository) Complete(ctx context.Context, id uuid.UUID, owner string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Task{}).
			Where("id = ? AND owner_username = ? AND completed = ?", id, owner, false).
			Updates(map[string]interface{}{
				"completed":  true,
				"updated_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Task{}).
				Where("id = ? AND owner_username = ?", id, owner).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrTaskNotFound
			}
			return ErrTaskAlreadyCompleted
		}
		return tx.Model(&model.Subtask{}).
			Where("task_id = ?", id).
			Update("completed", true).Error
	})
}

// CompleteSubtask flips one subtask of the owner's task from open to completed.
func (r *TaskRepository) CompleteSubtask(ctx context.Context, taskID, subtaskID uuid.UUID, owner string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched := tx.Model(&model.Task{}).
			Where("id = ? AND owner_username = ?", taskID, owner).
			Update("updated_at", at)
		if touched.Error != nil {
			return touched.Error
		}
		if touched.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		result := tx.Model(&model.Subtask{}).
			Where("id = ? AND task_id = ? AND completed = ?", subtaskID, taskID, false).
			Update("completed", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&model.Subtask{}).
			Where("id = ? AND task_id = ?", subtaskID, taskID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrSubtaskNotFound
		}
		return ErrSubtaskAlreadyCompleted
	})
}

// Delete removes the owner's task; subtasks go with it.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID, owner string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_username = ?", id, owner).
		Delete(&model.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func prepareSubtasks(task *model.Task) {
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == uuid.Nil {
			task.Subtasks[i].ID = uuid.New()
		}
		task.Subtasks[i].TaskID = task.ID
		task.Subtasks[i].Position = i
	}
}
