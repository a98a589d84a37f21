package models

import (
	"time"

	"github.com/google/uuid"
)

type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusAccepted QuoteStatus = "accepted" // at most one per job
	QuoteStatusRejected QuoteStatus = "rejected"
)

// Quote is a contractor's priced bid on a job. Accepting one is what moves
// the job from pending to matched.
type Quote struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_contractor_quote" json:"job_id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_contractor_quote" json:"contractor_id"`

	Amount  int64  `gorm:"not null" json:"amount"` // cents
	Message string `gorm:"type:text" json:"message"`

	Status QuoteStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Contractor *User `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
}
