package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username       string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	RefreshToken   *string
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}
