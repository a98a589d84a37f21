package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is written once per job per direction after completion and never
// edited. Creating one triggers the subject's average-rating recomputation.
type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_author_review" json:"job_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_author_review" json:"author_id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`

	Rating int    `gorm:"not null" json:"rating"` // 1-5
	Text   string `gorm:"type:text" json:"text"`

	CreatedAt time.Time `json:"created_at"`

	Author  *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Subject *User `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
