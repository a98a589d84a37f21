package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/matching"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
	"github.com/homefix-app/platform_be_homefix/internal/services/email"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// transitions is the full set of legal status edges. Everything else is an
// InvalidTransition; only AdminResolve may step outside the table.
var transitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusPending:    {models.JobStatusMatched, models.JobStatusCancelled},
	models.JobStatusMatched:    {models.JobStatusScheduled, models.JobStatusCancelled},
	models.JobStatusScheduled:  {models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusInProgress: {models.JobStatusCompleted},
	models.JobStatusCompleted:  nil,
	models.JobStatusCancelled:  nil,
}

func canTransition(from, to models.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedFrom lists the states reachable from the given one. Attached to
// InvalidTransition errors so clients can explain what remains possible.
func AllowedFrom(from models.JobStatus) []string {
	next := transitions[from]
	out := make([]string, len(next))
	for i, s := range next {
		out[i] = string(s)
	}
	return out
}

func invalidTransition(from, to models.JobStatus) error {
	return errs.InvalidTransition(
		fmt.Sprintf("cannot move job from %s to %s", from, to), AllowedFrom(from))
}

// Controller owns the job state machine. It is the only component that
// mutates a job's status; handlers go through it, never the store directly.
type Controller struct {
	store    store.Store
	matcher  *matching.Matcher
	notifier *realtime.Notifier
	mailer   email.Sender // nil disables completion mail
}

func NewController(st store.Store, m *matching.Matcher, n *realtime.Notifier, mailer email.Sender) *Controller {
	return &Controller{store: st, matcher: m, notifier: n, mailer: mailer}
}

type CreateJobInput struct {
	Title         string
	Description   string
	TradeID       uuid.UUID
	Location      string
	Lat           *float64
	Lng           *float64
	PreferredDate *time.Time
	EstimatedCost *int64
}

// CreateJob persists a new pending job, runs the matcher and pushes a
// new-job event at every ranked contractor. Zero matches is not an error:
// the job stays pending and is flagged for the sweeper and admin follow-up.
func (c *Controller) CreateJob(ctx context.Context, homeownerID uuid.UUID, in CreateJobInput) (*models.Job, []matching.Match, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, errs.Validation("title is required")
	}
	if in.EstimatedCost != nil && *in.EstimatedCost < 0 {
		return nil, nil, errs.Validation("estimated cost cannot be negative")
	}
	owner, err := c.store.UserByID(ctx, homeownerID)
	if err != nil {
		return nil, nil, err
	}
	if owner.Role != models.RoleHomeowner {
		return nil, nil, errs.Forbidden("only homeowners can post jobs")
	}
	if _, err := c.store.TradeByID(ctx, in.TradeID); err != nil {
		return nil, nil, err
	}

	job := &models.Job{
		HomeownerID:   homeownerID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		TradeID:       in.TradeID,
		Location:      in.Location,
		Lat:           in.Lat,
		Lng:           in.Lng,
		Status:        models.JobStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		PreferredDate: in.PreferredDate,
		EstimatedCost: in.EstimatedCost,
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, nil, err
	}

	matches, err := c.matcher.FindMatchingContractors(ctx, job)
	if err != nil {
		// The job exists either way; the sweeper retries matching later.
		log.Printf("Matching failed for job %s: %v", job.ID, err)
		matches = nil
	}

	if len(matches) == 0 {
		now := time.Now()
		flagged, err := c.store.UpdateJobStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusPending, func(j *models.Job) {
			j.FlaggedAt = &now
		})
		if err != nil {
			log.Printf("Error flagging unmatched job %s: %v", job.ID, err)
			return job, []matching.Match{}, nil
		}
		return flagged, []matching.Match{}, nil
	}

	event := realtime.NewJobMatch{JobID: job.ID, Title: job.Title, TradeID: job.TradeID}
	for _, m := range matches {
		c.notifier.Notify(ctx, m.ContractorID, event)
	}
	return job, matches, nil
}

// SubmitQuote records a contractor's bid on a pending job and tells the
// homeowner about it.
func (c *Controller) SubmitQuote(ctx context.Context, contractorID, jobID uuid.UUID, amount int64, message string) (*models.Quote, error) {
	if amount <= 0 {
		return nil, errs.Validation("quote amount must be positive")
	}
	actor, err := c.store.UserByID(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleContractor {
		return nil, errs.Forbidden("only contractors can quote jobs")
	}
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusPending {
		return nil, errs.InvalidTransition(
			fmt.Sprintf("quotes are open while the job is pending, job is %s", job.Status),
			AllowedFrom(job.Status))
	}
	if _, err := c.store.QuoteByJobAndContractor(ctx, jobID, contractorID); err == nil {
		return nil, errs.Conflict("you already quoted this job")
	} else if errs.KindOf(err) != errs.KindNotFound {
		return nil, err
	}

	quote := &models.Quote{
		JobID:        jobID,
		ContractorID: contractorID,
		Amount:       amount,
		Message:      message,
		Status:       models.QuoteStatusPending,
	}
	if err := c.store.CreateQuote(ctx, quote); err != nil {
		return nil, err
	}

	c.notifier.Notify(ctx, job.HomeownerID, realtime.QuoteReceived{
		JobID:        jobID,
		QuoteID:      quote.ID,
		ContractorID: contractorID,
		Amount:       amount,
	})
	return quote, nil
}

// AcceptQuote moves the job pending -> matched and assigns the quoting
// contractor. The status CAS is what makes "at most one accepted quote per
// job" hold under concurrent accepts: the loser of the compare gets
// Conflict, not a second assignment.
func (c *Controller) AcceptQuote(ctx context.Context, homeownerID, quoteID uuid.UUID) (*models.Job, error) {
	quote, err := c.store.QuoteByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	job, err := c.store.JobByID(ctx, quote.JobID)
	if err != nil {
		return nil, err
	}
	if job.HomeownerID != homeownerID {
		return nil, errs.Forbidden("only the job's homeowner can accept quotes")
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, errs.InvalidTransition(
			fmt.Sprintf("quote is already %s", quote.Status), AllowedFrom(job.Status))
	}
	if job.Status != models.JobStatusPending {
		return nil, invalidTransition(job.Status, models.JobStatusMatched)
	}

	updated, err := c.store.UpdateJobStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusMatched, func(j *models.Job) {
		contractorID := quote.ContractorID
		amount := quote.Amount
		j.ContractorID = &contractorID
		j.EstimatedCost = &amount
		j.FlaggedAt = nil
	})
	if err != nil {
		return nil, err
	}

	quote.Status = models.QuoteStatusAccepted
	if err := c.store.UpdateQuote(ctx, quote); err != nil {
		return nil, err
	}

	c.notifyStatus(ctx, updated, models.JobStatusPending, homeownerID, quote.ContractorID)
	return updated, nil
}

// RejectQuote closes a quote without touching the job; the homeowner keeps
// collecting other quotes. Rejections carry no realtime event: the
// contractor sees the outcome on their next fetch.
func (c *Controller) RejectQuote(ctx context.Context, homeownerID, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := c.store.QuoteByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	job, err := c.store.JobByID(ctx, quote.JobID)
	if err != nil {
		return nil, err
	}
	if job.HomeownerID != homeownerID {
		return nil, errs.Forbidden("only the job's homeowner can reject quotes")
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, errs.Conflict("quote is already %s", quote.Status)
	}

	quote.Status = models.QuoteStatusRejected
	if err := c.store.UpdateQuote(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// Schedule confirms the visit date, matched -> scheduled. Either party may
// do it; the date must lie ahead.
func (c *Controller) Schedule(ctx context.Context, actorID, jobID uuid.UUID, scheduledFor time.Time) (*models.Job, error) {
	if scheduledFor.IsZero() {
		return nil, errs.Validation("scheduled date is required")
	}
	if !scheduledFor.After(time.Now()) {
		return nil, errs.Validation("scheduled date must be in the future")
	}
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isParty(job, actorID) {
		return nil, errs.Forbidden("only the job's parties can schedule it")
	}
	if job.Status != models.JobStatusMatched {
		return nil, invalidTransition(job.Status, models.JobStatusScheduled)
	}

	updated, err := c.store.UpdateJobStatus(ctx, jobID, models.JobStatusMatched, models.JobStatusScheduled, func(j *models.Job) {
		t := scheduledFor
		j.ScheduledFor = &t
	})
	if err != nil {
		return nil, err
	}

	if other := counterpart(updated, actorID); other != nil {
		c.notifyStatus(ctx, updated, models.JobStatusMatched, actorID, *other)
	}
	return updated, nil
}

// Start marks the contractor on site, scheduled -> in_progress.
func (c *Controller) Start(ctx context.Context, contractorID, jobID uuid.UUID) (*models.Job, error) {
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ContractorID == nil || *job.ContractorID != contractorID {
		return nil, errs.Forbidden("only the assigned contractor can start the job")
	}
	if job.Status != models.JobStatusScheduled {
		return nil, invalidTransition(job.Status, models.JobStatusInProgress)
	}

	updated, err := c.store.UpdateJobStatus(ctx, jobID, models.JobStatusScheduled, models.JobStatusInProgress, nil)
	if err != nil {
		return nil, err
	}

	c.notifyStatus(ctx, updated, models.JobStatusScheduled, contractorID, updated.HomeownerID)
	return updated, nil
}

// RequestCompletion is the contractor's half of the completion handshake:
// it stamps the job without changing status. The homeowner's
// ConfirmCompletion performs the actual transition. Calling it again while
// the request is outstanding is a no-op.
func (c *Controller) RequestCompletion(ctx context.Context, contractorID, jobID uuid.UUID) (*models.Job, error) {
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ContractorID == nil || *job.ContractorID != contractorID {
		return nil, errs.Forbidden("only the assigned contractor can mark the work done")
	}
	if job.Status != models.JobStatusInProgress {
		return nil, errs.InvalidTransition(
			fmt.Sprintf("completion can be requested while the job is in_progress, job is %s", job.Status),
			AllowedFrom(job.Status))
	}
	if job.CompletionRequestedAt != nil {
		return job, nil
	}

	now := time.Now()
	updated, err := c.store.UpdateJobStatus(ctx, jobID, models.JobStatusInProgress, models.JobStatusInProgress, func(j *models.Job) {
		j.CompletionRequestedAt = &now
	})
	if err != nil {
		return nil, err
	}

	c.notifier.Notify(ctx, updated.HomeownerID, realtime.CompletionRequested{
		JobID:        jobID,
		ContractorID: contractorID,
		At:           now,
	})
	return updated, nil
}

// ConfirmCompletion is the homeowner's half of the handshake and the only
// way a job reaches completed. Completion is never unilateral: without a
// prior RequestCompletion from the contractor this fails.
func (c *Controller) ConfirmCompletion(ctx context.Context, homeownerID, jobID uuid.UUID, actualCost *int64) (*models.Job, error) {
	if actualCost != nil && *actualCost < 0 {
		return nil, errs.Validation("actual cost cannot be negative")
	}
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.HomeownerID != homeownerID {
		return nil, errs.Forbidden("only the job's homeowner can confirm completion")
	}
	if job.Status != models.JobStatusInProgress {
		return nil, invalidTransition(job.Status, models.JobStatusCompleted)
	}
	if job.CompletionRequestedAt == nil {
		return nil, errs.InvalidTransition(
			"the contractor has not marked the work done yet", AllowedFrom(job.Status))
	}

	updated, err := c.store.UpdateJobStatus(ctx, jobID, models.JobStatusInProgress, models.JobStatusCompleted, func(j *models.Job) {
		if actualCost != nil {
			j.ActualCost = actualCost
		} else if j.ActualCost == nil {
			j.ActualCost = j.EstimatedCost
		}
	})
	if err != nil {
		return nil, err
	}

	c.bumpCompletedJobs(ctx, *updated.ContractorID)
	c.notifyStatus(ctx, updated, models.JobStatusInProgress, homeownerID, *updated.ContractorID)
	c.sendCompletionMail(ctx, updated)
	return updated, nil
}

// Cancel applies the per-state cancellation policy: pending and matched are
// the homeowner's to cancel, scheduled either party's, in_progress nobody's.
// An in-progress job only leaves through completion or AdminResolve.
func (c *Controller) Cancel(ctx context.Context, actorID, jobID uuid.UUID) (*models.Job, error) {
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !canTransition(job.Status, models.JobStatusCancelled) {
		return nil, invalidTransition(job.Status, models.JobStatusCancelled)
	}
	switch job.Status {
	case models.JobStatusPending, models.JobStatusMatched:
		if job.HomeownerID != actorID {
			return nil, errs.Forbidden("only the homeowner can cancel at this stage")
		}
	case models.JobStatusScheduled:
		if !isParty(job, actorID) {
			return nil, errs.Forbidden("only the job's parties can cancel it")
		}
	}

	from := job.Status
	updated, err := c.store.UpdateJobStatus(ctx, jobID, from, models.JobStatusCancelled, func(j *models.Job) {
		actor := actorID
		j.CancelledBy = &actor
	})
	if err != nil {
		return nil, err
	}

	if other := counterpart(updated, actorID); other != nil {
		c.notifyStatus(ctx, updated, from, actorID, *other)
	}
	return updated, nil
}

// AdminResolve force-moves a stuck job to a terminal state, skipping the
// transition table. This is the one override the immutability rules allow.
func (c *Controller) AdminResolve(ctx context.Context, adminID, jobID uuid.UUID, resolution models.JobStatus) (*models.Job, error) {
	if resolution != models.JobStatusCompleted && resolution != models.JobStatusCancelled {
		return nil, errs.Validation("resolution must be completed or cancelled")
	}
	admin, err := c.store.UserByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != models.RoleAdmin {
		return nil, errs.Forbidden("admin only")
	}
	job, err := c.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == resolution {
		return job, nil
	}

	from := job.Status
	updated, err := c.store.UpdateJobStatus(ctx, jobID, from, resolution, func(j *models.Job) {
		j.FlaggedAt = nil
		if resolution == models.JobStatusCancelled {
			actor := adminID
			j.CancelledBy = &actor
		}
		if resolution == models.JobStatusCompleted && j.ActualCost == nil {
			j.ActualCost = j.EstimatedCost
		}
	})
	if err != nil {
		return nil, err
	}

	if resolution == models.JobStatusCompleted && updated.ContractorID != nil {
		c.bumpCompletedJobs(ctx, *updated.ContractorID)
	}
	recipients := []uuid.UUID{updated.HomeownerID}
	if updated.ContractorID != nil {
		recipients = append(recipients, *updated.ContractorID)
	}
	c.notifyStatus(ctx, updated, from, adminID, recipients...)
	return updated, nil
}

// --- shared helpers ---

func isParty(job *models.Job, userID uuid.UUID) bool {
	if job.HomeownerID == userID {
		return true
	}
	return job.ContractorID != nil && *job.ContractorID == userID
}

// counterpart returns the job party opposite the actor, nil when the job
// has no contractor yet.
func counterpart(job *models.Job, actorID uuid.UUID) *uuid.UUID {
	if job.HomeownerID == actorID {
		return job.ContractorID
	}
	ownerID := job.HomeownerID
	return &ownerID
}

func (c *Controller) notifyStatus(ctx context.Context, job *models.Job, from models.JobStatus, actorID uuid.UUID, recipients ...uuid.UUID) {
	c.notifier.NotifyAll(ctx, recipients, realtime.JobStatusChanged{
		JobID:   job.ID,
		From:    from,
		To:      job.Status,
		ActorID: actorID,
		At:      time.Now(),
	})
}

// bumpCompletedJobs keeps the matcher's counter cache in step with reality.
// Best-effort: a miss here skews ranking slightly, nothing else.
func (c *Controller) bumpCompletedJobs(ctx context.Context, contractorID uuid.UUID) {
	profile, err := c.store.ContractorProfileByUser(ctx, contractorID)
	if err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			log.Printf("Error loading contractor profile %s: %v", contractorID, err)
		}
		return
	}
	profile.CompletedJobs++
	if err := c.store.UpsertContractorProfile(ctx, profile); err != nil {
		log.Printf("Error bumping completed jobs for %s: %v", contractorID, err)
	}
}

func (c *Controller) sendCompletionMail(ctx context.Context, job *models.Job) {
	if c.mailer == nil {
		return
	}
	recipients := []uuid.UUID{job.HomeownerID}
	if job.ContractorID != nil {
		recipients = append(recipients, *job.ContractorID)
	}
	subject := "Job completed: " + job.Title
	for _, id := range recipients {
		user, err := c.store.UserByID(ctx, id)
		if err != nil {
			log.Printf("Error loading user %s for completion mail: %v", id, err)
			continue
		}
		body := fmt.Sprintf("Hi %s,\n\nThe job %q has been confirmed as completed.\n\nThe HomeFix team",
			user.Name, job.Title)
		if err := c.mailer.Send(ctx, user.Email, subject, body); err != nil {
			log.Printf("Error queueing completion mail to %s: %v", user.Email, err)
		}
	}
}
