package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// gormStore is the Postgres-backed Store.
type gormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Migrate creates/updates the schema for every entity the store manages.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ContractorProfile{},
		&models.Trade{},
		&models.ContractorTrade{},
		&models.Job{},
		&models.Quote{},
		&models.Message{},
		&models.ScheduleSlot{},
		&models.Review{},
		&models.PaymentCharge{},
		&models.NotificationLog{},
	)
}

func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("%s not found", what)
	}
	return errs.Unavailable(what+" query failed", err)
}

// readAttempts bounds the retry loop for read queries.
const readAttempts = 3

// readRetry re-runs a read query on transient failure with a short doubling
// backoff. Only reads go through here: re-running a write risks duplicate
// side effects, so writes fail fast and surface to the caller.
func readRetry(ctx context.Context, fn func() error) error {
	backoff := 50 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) || attempt == readAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// --- users ---

func (s *gormStore) CreateUser(ctx context.Context, u *models.User) error {
	return wrap(s.db.WithContext(ctx).Create(u).Error, "user")
}

func (s *gormStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).Preload("ContractorProfile").First(&u, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "user")
	}
	return &u, nil
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	})
	if err != nil {
		return nil, wrap(err, "user")
	}
	return &u, nil
}

func (s *gormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return wrap(s.db.WithContext(ctx).Save(u).Error, "user")
}

func (s *gormStore) ContractorProfileByUser(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	var p models.ContractorProfile
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, wrap(err, "contractor profile")
	}
	return &p, nil
}

func (s *gormStore) UpsertContractorProfile(ctx context.Context, p *models.ContractorProfile) error {
	var existing models.ContractorProfile
	err := s.db.WithContext(ctx).First(&existing, "user_id = ?", p.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrap(s.db.WithContext(ctx).Create(p).Error, "contractor profile")
	}
	if err != nil {
		return wrap(err, "contractor profile")
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return wrap(s.db.WithContext(ctx).Save(p).Error, "contractor profile")
}

// --- trades ---

func (s *gormStore) CreateTrade(ctx context.Context, t *models.Trade) error {
	return wrap(s.db.WithContext(ctx).Create(t).Error, "trade")
}

func (s *gormStore) TradeByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	var t models.Trade
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "trade")
	}
	return &t, nil
}

func (s *gormStore) Trades(ctx context.Context) ([]models.Trade, error) {
	var out []models.Trade
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "trades")
	}
	return out, nil
}

func (s *gormStore) CreateContractorTrade(ctx context.Context, ct *models.ContractorTrade) error {
	return wrap(s.db.WithContext(ctx).Create(ct).Error, "contractor trade")
}

func (s *gormStore) ContractorsByTrade(ctx context.Context, tradeID uuid.UUID) ([]models.User, error) {
	var out []models.User
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Joins("JOIN contractor_trades ON contractor_trades.contractor_id = users.id").
			Where("contractor_trades.trade_id = ? AND users.is_active = true", tradeID).
			Preload("ContractorProfile").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "contractors by trade")
	}
	return out, nil
}

func (s *gormStore) TradesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ContractorTrade, error) {
	var out []models.ContractorTrade
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Preload("Trade").
			Where("contractor_id = ?", contractorID).
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "contractor trades")
	}
	return out, nil
}

// --- jobs ---

func (s *gormStore) CreateJob(ctx context.Context, j *models.Job) error {
	return wrap(s.db.WithContext(ctx).Create(j).Error, "job")
}

func (s *gormStore) JobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&j, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "job")
	}
	return &j, nil
}

func (s *gormStore) UpdateJob(ctx context.Context, j *models.Job) error {
	return wrap(s.db.WithContext(ctx).Save(j).Error, "job")
}

func (s *gormStore) JobsByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Job, error) {
	var out []models.Job
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("homeowner_id = ?", homeownerID).
			Order("created_at DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "jobs by homeowner")
	}
	return out, nil
}

func (s *gormStore) JobsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Job, error) {
	var out []models.Job
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("contractor_id = ?", contractorID).
			Order("created_at DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "jobs by contractor")
	}
	return out, nil
}

func (s *gormStore) JobsByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	var out []models.Job
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("status = ?", status).
			Order("created_at DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "jobs by status")
	}
	return out, nil
}

func (s *gormStore) FlaggedJobs(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("flagged_at IS NOT NULL AND status = ?", models.JobStatusPending).
			Order("flagged_at ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "flagged jobs")
	}
	return out, nil
}

func (s *gormStore) CompletedJobCount(ctx context.Context, contractorID uuid.UUID) (int, error) {
	var n int64
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).Model(&models.Job{}).
			Where("contractor_id = ? AND status = ?", contractorID, models.JobStatusCompleted).
			Count(&n).Error
	})
	if err != nil {
		return 0, wrap(err, "completed job count")
	}
	return int(n), nil
}

func (s *gormStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, expected, next models.JobStatus, mutate func(*models.Job)) (*models.Job, error) {
	var out *models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var j models.Job
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&j, "id = ?", id).Error; err != nil {
			return wrap(err, "job")
		}
		if j.Status != expected {
			return errs.Conflict("job status changed to %s while the request was in flight", j.Status)
		}
		j.Status = next
		if mutate != nil {
			mutate(&j)
		}
		if err := tx.Save(&j).Error; err != nil {
			return wrap(err, "job")
		}
		out = &j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) SetJobPaymentStatus(ctx context.Context, id uuid.UUID, expected, next models.PaymentStatus) (*models.Job, error) {
	var out *models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var j models.Job
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&j, "id = ?", id).Error; err != nil {
			return wrap(err, "job")
		}
		if j.PaymentStatus != expected {
			return errs.Conflict("payment status is %s, expected %s", j.PaymentStatus, expected)
		}
		j.PaymentStatus = next
		if err := tx.Save(&j).Error; err != nil {
			return wrap(err, "job")
		}
		out = &j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- quotes ---

func (s *gormStore) CreateQuote(ctx context.Context, q *models.Quote) error {
	return wrap(s.db.WithContext(ctx).Create(q).Error, "quote")
}

func (s *gormStore) QuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var q models.Quote
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&q, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "quote")
	}
	return &q, nil
}

func (s *gormStore) UpdateQuote(ctx context.Context, q *models.Quote) error {
	return wrap(s.db.WithContext(ctx).Save(q).Error, "quote")
}

func (s *gormStore) QuotesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	var out []models.Quote
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Preload("Contractor").
			Where("job_id = ?", jobID).
			Order("created_at ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "quotes by job")
	}
	return out, nil
}

func (s *gormStore) QuotesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Quote, error) {
	var out []models.Quote
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("contractor_id = ?", contractorID).
			Order("created_at DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "quotes by contractor")
	}
	return out, nil
}

func (s *gormStore) QuoteByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Quote, error) {
	var q models.Quote
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("job_id = ? AND contractor_id = ?", jobID, contractorID).
			First(&q).Error
	})
	if err != nil {
		return nil, wrap(err, "quote")
	}
	return &q, nil
}

// --- schedule slots ---

func (s *gormStore) CreateScheduleSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	return wrap(s.db.WithContext(ctx).Create(slot).Error, "schedule slot")
}

func (s *gormStore) ScheduleSlotByID(ctx context.Context, id uuid.UUID) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&slot, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "schedule slot")
	}
	return &slot, nil
}

func (s *gormStore) UpdateScheduleSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	return wrap(s.db.WithContext(ctx).Save(slot).Error, "schedule slot")
}

func (s *gormStore) SlotsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ScheduleSlot, error) {
	var out []models.ScheduleSlot
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("contractor_id = ?", contractorID).
			Order("start ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "schedule slots")
	}
	return out, nil
}

func (s *gormStore) AvailableSlotsByContractor(ctx context.Context, contractorID uuid.UUID, from, to time.Time) ([]models.ScheduleSlot, error) {
	var out []models.ScheduleSlot
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("contractor_id = ? AND available = true AND start < ? AND \"end\" > ?", contractorID, to, from).
			Order("start ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "available slots")
	}
	return out, nil
}

// --- messages ---

func (s *gormStore) CreateMessage(ctx context.Context, m *models.Message) error {
	return wrap(s.db.WithContext(ctx).Create(m).Error, "message")
}

func (s *gormStore) MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap(err, "message")
	}
	return &m, nil
}

func (s *gormStore) MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND is_read = false", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
	return wrap(err, "message")
}

func (s *gormStore) MessagesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("job_id = ?", jobID).
			Order("created_at ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "messages by job")
	}
	return out, nil
}

func (s *gormStore) MessagesByUser(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("sender_id = ? OR receiver_id = ?", userID, userID).
			Order("created_at ASC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "messages by user")
	}
	return out, nil
}

func (s *gormStore) CountUnreadByReceiver(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	var n int64
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).Model(&models.Message{}).
			Where("receiver_id = ? AND is_read = false", receiverID).
			Count(&n).Error
	})
	if err != nil {
		return 0, wrap(err, "unread count")
	}
	return n, nil
}

// --- reviews ---

func (s *gormStore) CreateReview(ctx context.Context, r *models.Review) error {
	return wrap(s.db.WithContext(ctx).Create(r).Error, "review")
}

func (s *gormStore) ReviewsBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("subject_id = ?", subjectID).
			Order("created_at DESC").
			Find(&out).Error
	})
	if err != nil {
		return nil, wrap(err, "reviews")
	}
	return out, nil
}

func (s *gormStore) ReviewByJobAndAuthor(ctx context.Context, jobID, authorID uuid.UUID) (*models.Review, error) {
	var r models.Review
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).
			Where("job_id = ? AND author_id = ?", jobID, authorID).
			First(&r).Error
	})
	if err != nil {
		return nil, wrap(err, "review")
	}
	return &r, nil
}

// --- payment charges ---

func (s *gormStore) CreatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error {
	return wrap(s.db.WithContext(ctx).Create(c).Error, "payment charge")
}

func (s *gormStore) PaymentChargeByReference(ctx context.Context, reference string) (*models.PaymentCharge, error) {
	var c models.PaymentCharge
	err := readRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&c, "reference = ?", reference).Error
	})
	if err != nil {
		return nil, wrap(err, "payment charge")
	}
	return &c, nil
}

func (s *gormStore) UpdatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error {
	return wrap(s.db.WithContext(ctx).Save(c).Error, "payment charge")
}

// --- notification audit ---

func (s *gormStore) CreateNotificationLog(ctx context.Context, n *models.NotificationLog) error {
	return wrap(s.db.WithContext(ctx).Create(n).Error, "notification log")
}
