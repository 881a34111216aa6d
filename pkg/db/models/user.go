package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// User mirrors the identity directory entry the payment core needs for
// authorization decisions. Profile management lives elsewhere.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	FullName  string         `gorm:"column:full_name"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'client'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
