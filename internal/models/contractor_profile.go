package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractorProfile holds the contractor-side fields the matcher reads:
// location for proximity scoring and the completed-job counter cache.
type ContractorProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Headline string `gorm:"type:varchar(160)" json:"headline"`
	About    string `gorm:"type:text" json:"about"`

	City string `gorm:"type:varchar(120);index" json:"city"`
	// Geocoded point, when the contractor provided one.
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	// Kept in sync by the lifecycle controller on job completion so the
	// matcher does not need to count rows per candidate.
	CompletedJobs int `gorm:"default:0" json:"completed_jobs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
