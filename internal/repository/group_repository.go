package repository

import (
	"context"
	"errors"
	"time"

	"taskify/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts the group row and its member rows in a single transaction, so a
// group never exists without its creator's admin membership.
func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	for i := range group.Members {
		if group.Members[i].ID == uuid.Nil {
			group.Members[i].ID = uuid.New()
		}
		group.Members[i].GroupID = group.ID
		group.Members[i].Position = i
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(group).Error; err != nil {
			return err
		}
		if len(group.Members) == 0 {
			return nil
		}
		return tx.Create(&group.Members).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateGroup
	}
	return err
}

// ExistsByNameAndCreator checks the (name, creator) uniqueness rule, ignoring the group excludeID.
func (r *GroupRepository) ExistsByNameAndCreator(ctx context.Context, name, creator string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("name = ? AND creator_username = ? AND id <> ?", name, creator, excludeID).
		Count(&count).Error
	return count > 0, err
}

// GetByID loads an active group together with its members and tasks.
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Preload("Members", byPosition).
		Preload("Tasks", byPosition).
		Where("id = ? AND is_active = ?", id, true).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

// ListForUser returns the active groups username belongs to, newest first.
func (r *GroupRepository) ListForUser(ctx context.Context, username string) ([]model.Group, error) {
	var groups []model.Group
	memberOf := r.db.Model(&model.GroupMember{}).Select("group_id").Where("username = ?", username)

	err := r.db.WithContext(ctx).
		Preload("Members", byPosition).
		Preload("Tasks", byPosition).
		Where("is_active = ? AND id IN (?)", true, memberOf).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Update writes name and description; with replaceMembers the member rows are
// rewritten from group.Members in the same transaction.
func (r *GroupRepository) Update(ctx context.Context, group *model.Group, replaceMembers bool) error {
	if group.UpdatedAt.IsZero() {
		group.UpdatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Group{}).
			Where("id = ? AND is_active = ?", group.ID, true).
			Updates(map[string]interface{}{
				"name":        group.Name,
				"description": group.Description,
				"updated_at":  group.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrGroupNotFound
		}
		if !replaceMembers {
			return nil
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		for i := range group.Members {
			if group.Members[i].ID == uuid.Nil {
				group.Members[i].ID = uuid.New()
			}
			group.Members[i].GroupID = group.ID
			group.Members[i].Position = i
		}
		if len(group.Members) == 0 {
			return nil
		}
		return tx.Create(&group.Members).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateGroup
	}
	return err
}

// SoftDelete marks the group inactive. Rows are kept.
func (r *GroupRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// AddMember appends a member row to the group.
func (r *GroupRepository) AddMember(ctx context.Context, member *model.GroupMember) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(member).Error
	if isUniqueViolation(err) {
		return ErrDuplicateMember
	}
	return err
}

// AddTask appends a task to the group's embedded task list.
func (r *GroupRepository) AddTask(ctx context.Context, task *model.GroupTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// CompleteTask flips completed from false to true. The conditional update keeps
// completion monotonic under concurrent calls.
func (r *GroupRepository) CompleteTask(ctx context.Context, groupID, taskID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.GroupTask{}).
		Where("id = ? AND group_id = ? AND completed = ?", taskID, groupID, false).
		Updates(map[string]interface{}{
			"completed":  true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GroupTask{}).
		Where("id = ? AND group_id = ?", taskID, groupID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupTaskNotFound
	}
	return ErrTaskAlreadyCompleted
}
