package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Group is the aggregate root for membership and group tasks.
// Members and Tasks are embedded lists, persisted as child rows ordered by Position.
type Group struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null"`
	Description     string
	CreatorUsername string `gorm:"not null"`
	IsActive        bool   `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	Tasks   []GroupTask   `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

type GroupMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Username string    `gorm:"not null;index"`
	Role     Role      `gorm:"type:varchar(10);not null"`
	Position int       `gorm:"not null"`
	JoinedAt time.Time `gorm:"not null"`
}

type GroupTask struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Position          int       `gorm:"not null"`
	Title             string    `gorm:"not null"`
	Description       string
	Completed         bool `gorm:"not null"`
	DueDate           *time.Time
	Priority          Priority `gorm:"type:varchar(10);not null"`
	AssignedTo        string   `gorm:"not null;index"`
	CreatedByUsername string   `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsAdmin reports whether username holds the admin role in g.
func (g *Group) IsAdmin(username string) bool {
	for _, m := range g.Members {
		if m.Username == username && m.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// IsMember reports whether username appears in g's member list.
func (g *Group) IsMember(username string) bool {
	for _, m := range g.Members {
		if m.Username == username {
			return true
		}
	}
	return false
}

func (g *Group) Admins() []GroupMember {
	var admins []GroupMember
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			admins = append(admins, m)
		}
	}
	return admins
}

func (g *Group) MemberUsernames() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Username
	}
	return out
}

func (g *Group) Task(id uuid.UUID) *GroupTask {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}
