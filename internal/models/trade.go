package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade is a fixed taxonomy entry (plumbing, electrical, ...). Seeded by
// admins, immutable afterwards.
type Trade struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"name"`
	Icon string    `gorm:"type:varchar(120)" json:"icon"`

	CreatedAt time.Time `json:"created_at"`
}

// ContractorTrade links a contractor to a trade they work in.
// Unique per (contractor, trade) pair.
type ContractorTrade struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_contractor_trade" json:"contractor_id"`
	TradeID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_contractor_trade" json:"trade_id"`

	CreatedAt time.Time `json:"created_at"`

	Trade *Trade `gorm:"foreignKey:TradeID" json:"trade,omitempty"`
}
