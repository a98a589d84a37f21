package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleHomeowner  Role = "homeowner"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`

	// Accounts are never hard-deleted; disabling keeps job history intact.
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Recomputed whenever a new review lands on this user.
	AverageRating float64 `gorm:"default:0" json:"average_rating"`
	RatingCount   int     `gorm:"default:0" json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractorProfile *ContractorProfile `gorm:"foreignKey:UserID;references:ID" json:"contractor_profile,omitempty"`
}
