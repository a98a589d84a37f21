package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationLog is a best-effort audit row written for every published
// realtime event. Delivery stays fire-and-forget; this exists so dropped
// pushes can be diagnosed (the Store remains the source of truth either way).
type NotificationLog struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type    string         `gorm:"type:varchar(40);not null" json:"type"`
	Payload datatypes.JSON `json:"payload"`

	// Live sessions the event was handed to at publish time (0 = dropped).
	Sessions int `json:"sessions"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
