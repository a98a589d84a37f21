package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
)

// MarkPaymentPending flips the job's payment state unpaid -> pending once a
// charge exists at the processor.
func (c *Controller) MarkPaymentPending(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return c.store.SetJobPaymentStatus(ctx, jobID, models.PaymentStatusUnpaid, models.PaymentStatusPending)
}

// RevertPaymentPending drops an in-flight charge back to unpaid, for when
// the processor refuses the charge or reports it failed or expired.
func (c *Controller) RevertPaymentPending(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return c.store.SetJobPaymentStatus(ctx, jobID, models.PaymentStatusPending, models.PaymentStatusUnpaid)
}

// MarkPaid consumes the processor's "payment succeeded" fact. Idempotent: a
// repeated webhook for an already-paid job is a no-op, not an error.
func (c *Controller) MarkPaid(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PaymentStatus == models.PaymentStatusPaid {
		return job, nil
	}

	updated, err := c.store.SetJobPaymentStatus(ctx, jobID, job.PaymentStatus, models.PaymentStatusPaid)
	if err != nil {
		return nil, err
	}

	recipients := []uuid.UUID{updated.HomeownerID}
	if updated.ContractorID != nil {
		recipients = append(recipients, *updated.ContractorID)
	}
	c.notifier.NotifyAll(ctx, recipients, realtime.PaymentReceived{JobID: jobID, At: time.Now()})
	return updated, nil
}
