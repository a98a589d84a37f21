package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// Store is the durable-record collaborator. Both implementations (Postgres
// via GORM, in-memory for tests) guarantee per-row atomicity; the only
// cross-call race the core relies on is the compare-and-set on Job.Status.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ContractorProfileByUser(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
	UpsertContractorProfile(ctx context.Context, p *models.ContractorProfile) error

	// Trades
	CreateTrade(ctx context.Context, t *models.Trade) error
	TradeByID(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	CreateContractorTrade(ctx context.Context, ct *models.ContractorTrade) error
	ContractorsByTrade(ctx context.Context, tradeID uuid.UUID) ([]models.User, error)
	TradesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ContractorTrade, error)

	// Jobs
	CreateJob(ctx context.Context, j *models.Job) error
	JobByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, j *models.Job) error
	JobsByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Job, error)
	JobsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Job, error)
	JobsByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error)
	FlaggedJobs(ctx context.Context) ([]models.Job, error)
	CompletedJobCount(ctx context.Context, contractorID uuid.UUID) (int, error)

	// UpdateJobStatus is the compare-and-set primitive every lifecycle
	// transition goes through. It fails with a Conflict error when the job's
	// status no longer equals expected at write time; mutate (optional)
	// applies the transition's dependent field changes inside the same
	// atomic step. Returns the job as written.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, expected, next models.JobStatus, mutate func(*models.Job)) (*models.Job, error)

	// SetJobPaymentStatus is the same primitive for the payment sub-machine.
	SetJobPaymentStatus(ctx context.Context, id uuid.UUID, expected, next models.PaymentStatus) (*models.Job, error)

	// Quotes
	CreateQuote(ctx context.Context, q *models.Quote) error
	QuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	UpdateQuote(ctx context.Context, q *models.Quote) error
	QuotesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error)
	QuotesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Quote, error)
	QuoteByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Quote, error)

	// Schedule slots
	CreateScheduleSlot(ctx context.Context, s *models.ScheduleSlot) error
	ScheduleSlotByID(ctx context.Context, id uuid.UUID) (*models.ScheduleSlot, error)
	UpdateScheduleSlot(ctx context.Context, s *models.ScheduleSlot) error
	SlotsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ScheduleSlot, error)
	// AvailableSlotsByContractor returns only available slots overlapping
	// [from, to).
	AvailableSlotsByContractor(ctx context.Context, contractorID uuid.UUID, from, to time.Time) ([]models.ScheduleSlot, error)

	// Messages
	CreateMessage(ctx context.Context, m *models.Message) error
	MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// MarkMessageRead flips IsRead false->true; marking an already-read
	// message is a no-op.
	MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MessagesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Message, error)
	// MessagesByUser returns messages the user sent or received.
	MessagesByUser(ctx context.Context, userID uuid.UUID) ([]models.Message, error)
	CountUnreadByReceiver(ctx context.Context, receiverID uuid.UUID) (int64, error)

	// Reviews
	CreateReview(ctx context.Context, r *models.Review) error
	ReviewsBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Review, error)
	ReviewByJobAndAuthor(ctx context.Context, jobID, authorID uuid.UUID) (*models.Review, error)

	// Payment charges
	CreatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error
	PaymentChargeByReference(ctx context.Context, reference string) (*models.PaymentCharge, error)
	UpdatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error

	// Notification audit
	CreateNotificationLog(ctx context.Context, n *models.NotificationLog) error
}
