package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"     // waiting for a quote to be accepted
	JobStatusMatched    JobStatus = "matched"     // contractor assigned via accepted quote
	JobStatusScheduled  JobStatus = "scheduled"   // visit date confirmed
	JobStatusInProgress JobStatus = "in_progress" // contractor on the job
	JobStatusCompleted  JobStatus = "completed"   // homeowner confirmed the work
	JobStatusCancelled  JobStatus = "cancelled"   // terminal, reachable from any non-terminal state except in_progress
)

// PaymentStatus is a small machine of its own, independent of JobStatus:
// unpaid -> pending -> paid.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	HomeownerID uuid.UUID `gorm:"type:uuid;not null;index" json:"homeowner_id"`
	// Nil until the job reaches matched.
	ContractorID *uuid.UUID `gorm:"type:uuid;index" json:"contractor_id,omitempty"`

	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	TradeID     uuid.UUID `gorm:"type:uuid;not null;index" json:"trade_id"`

	// Free-text address plus an optional geocoded point for proximity scoring.
	Location string   `gorm:"type:varchar(255)" json:"location"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`

	Status        JobStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'unpaid'" json:"payment_status"`

	// When the homeowner wants the work done; drives the matcher's
	// availability filter. Nil means "whenever".
	PreferredDate *time.Time `json:"preferred_date,omitempty"`
	// Confirmed visit date, set on the matched -> scheduled transition.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	EstimatedCost *int64 `json:"estimated_cost,omitempty"` // cents
	ActualCost    *int64 `json:"actual_cost,omitempty"`    // cents, frozen once completed

	// Stamped when the contractor marks the work done; the homeowner's
	// confirmation is the actual in_progress -> completed transition.
	CompletionRequestedAt *time.Time `json:"completion_requested_at,omitempty"`

	// Set when matching found nobody, so admins can follow up manually.
	FlaggedAt *time.Time `gorm:"index" json:"flagged_at,omitempty"`

	CancelledBy *uuid.UUID `gorm:"type:uuid" json:"cancelled_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Homeowner  *User  `gorm:"foreignKey:HomeownerID" json:"homeowner,omitempty"`
	Contractor *User  `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	Trade      *Trade `gorm:"foreignKey:TradeID" json:"trade,omitempty"`
}

// Terminal reports whether no further status transitions are possible
// without an admin override.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}
