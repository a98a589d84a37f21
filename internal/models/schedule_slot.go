package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScheduleSlot is a contractor-declared window of (un)availability. The
// matcher treats a contractor as reachable when at least one available slot
// overlaps its forward horizon.
type ScheduleSlot struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;index" json:"contractor_id"`

	Start     time.Time `gorm:"not null;index" json:"start"`
	End       time.Time `gorm:"not null" json:"end"`
	Available bool      `gorm:"default:true;index" json:"available"`

	// Free-form slot annotations (recurrence hints, notes); opaque to the core.
	Meta datatypes.JSON `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
