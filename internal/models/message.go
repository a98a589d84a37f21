package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a job-scoped conversation. Rows are append-only:
// IsRead is the only field that ever changes, and only false -> true.
// Conversations are not stored; they are the (job, counterpart) grouping of
// these rows.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;not null;index" json:"job_id"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index" json:"receiver_id"`

	Content string `gorm:"type:text;not null" json:"content"`

	IsRead bool       `gorm:"default:false" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
