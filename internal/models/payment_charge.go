package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChargeStatus string

const (
	ChargeStatusUnpaid  ChargeStatus = "UNPAID"
	ChargeStatusPaid    ChargeStatus = "PAID"
	ChargeStatusFailed  ChargeStatus = "FAILED"
	ChargeStatusExpired ChargeStatus = "EXPIRED"
)

// PaymentCharge records one charge created at the external processor so the
// webhook can be correlated back to a job. The processor itself stays opaque:
// the core only consumes the resulting paid/failed fact.
type PaymentCharge struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobID uuid.UUID `gorm:"type:uuid;not null;index" json:"job_id"`

	Reference   string `gorm:"type:varchar(64);uniqueIndex" json:"reference"`    // processor-side id
	MerchantRef string `gorm:"type:varchar(64);uniqueIndex" json:"merchant_ref"` // JOB-{jobID}
	Amount      int64  `json:"amount"`                                           // cents
	CheckoutURL string `gorm:"type:text" json:"checkout_url"`

	Status ChargeStatus `gorm:"type:varchar(20);default:'UNPAID'" json:"status"`
	PaidAt *time.Time   `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *PaymentCharge) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
