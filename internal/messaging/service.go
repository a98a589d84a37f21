package messaging

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// previewLen bounds the message excerpt carried in the realtime event. The
// full body is fetched over HTTP.
const previewLen = 80

// Service is the append-only conversation log scoped to a job and two of its
// parties. It persists first and pushes second: a message that made it to the
// store is never lost to a dropped notification.
type Service struct {
	store    store.Store
	notifier *realtime.Notifier
}

func NewService(st store.Store, n *realtime.Notifier) *Service {
	return &Service{store: st, notifier: n}
}

// PostMessage validates both ends of the conversation, persists the message
// and pushes a preview at the receiver's live sessions.
func (s *Service) PostMessage(ctx context.Context, senderID, jobID, receiverID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("message content is required")
	}
	if senderID == receiverID {
		return nil, errs.Validation("cannot message yourself")
	}

	job, err := s.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParties(ctx, job, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		JobID:      jobID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, receiverID, realtime.NewMessage{
		JobID:     jobID,
		MessageID: msg.ID,
		SenderID:  senderID,
		Preview:   preview(content),
	})
	return msg, nil
}

// MarkRead flips the message's read flag. Only the receiver may do it, and
// marking an already-read message is a no-op, not an error.
func (s *Service) MarkRead(ctx context.Context, readerID, messageID uuid.UUID) (*models.Message, error) {
	msg, err := s.store.MessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ReceiverID != readerID {
		return nil, errs.Forbidden("only the receiver can mark a message read")
	}
	if msg.IsRead {
		return msg, nil
	}
	if err := s.store.MarkMessageRead(ctx, messageID, time.Now()); err != nil {
		return nil, err
	}
	return s.store.MessageByID(ctx, messageID)
}

// Thread returns the full exchange between the caller and counterpart on one
// job, oldest first.
func (s *Service) Thread(ctx context.Context, callerID, jobID, counterpartID uuid.UUID) ([]models.Message, error) {
	job, err := s.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.checkParties(ctx, job, callerID, counterpartID); err != nil {
		return nil, err
	}

	all, err := s.store.MessagesByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(all))
	for _, m := range all {
		if between(m, callerID, counterpartID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkThreadRead marks every unread message the caller received in the
// conversation. Idempotent like MarkRead; returns how many flipped.
func (s *Service) MarkThreadRead(ctx context.Context, callerID, jobID, counterpartID uuid.UUID) (int, error) {
	msgs, err := s.Thread(ctx, callerID, jobID, counterpartID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	flipped := 0
	for _, m := range msgs {
		if m.ReceiverID != callerID || m.IsRead {
			continue
		}
		if err := s.store.MarkMessageRead(ctx, m.ID, now); err != nil {
			return flipped, err
		}
		flipped++
	}
	return flipped, nil
}

// Conversation is the client-facing grouping of messages: one entry per
// (job, counterpart) pair the user has exchanged messages with.
type Conversation struct {
	JobID         uuid.UUID        `json:"job_id"`
	JobTitle      string           `json:"job_title"`
	JobStatus     models.JobStatus `json:"job_status"`
	CounterpartID uuid.UUID        `json:"counterpart_id"`
	Counterpart   *models.User     `json:"counterpart,omitempty"`
	LastMessage   models.Message   `json:"last_message"`
	UnreadCount   int              `json:"unread_count"`
}

// Conversations lists the user's conversations, most recently active first.
// That ordering and the per-conversation unread count are the two properties
// inbox clients sort and badge by.
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	msgs, err := s.store.MessagesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type key struct {
		job         uuid.UUID
		counterpart uuid.UUID
	}
	grouped := make(map[key]*Conversation)
	for i := range msgs {
		m := msgs[i]
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		k := key{job: m.JobID, counterpart: other}
		conv, ok := grouped[k]
		if !ok {
			conv = &Conversation{JobID: m.JobID, CounterpartID: other}
			grouped[k] = conv
		}
		// MessagesByUser is ordered oldest first, so the last write wins.
		conv.LastMessage = m
		if m.ReceiverID == userID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	jobs := make(map[uuid.UUID]*models.Job)
	users := make(map[uuid.UUID]*models.User)
	out := make([]Conversation, 0, len(grouped))
	for k, conv := range grouped {
		job, ok := jobs[k.job]
		if !ok {
			job, err = s.store.JobByID(ctx, k.job)
			if err != nil {
				return nil, err
			}
			jobs[k.job] = job
		}
		conv.JobTitle = job.Title
		conv.JobStatus = job.Status

		u, ok := users[k.counterpart]
		if !ok {
			u, err = s.store.UserByID(ctx, k.counterpart)
			if err != nil {
				return nil, err
			}
			users[k.counterpart] = u
		}
		conv.Counterpart = u

		out = append(out, *conv)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return out, nil
}

// UnreadTotal counts unread messages across all of the user's conversations.
func (s *Service) UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.CountUnreadByReceiver(ctx, userID)
}

// checkParties enforces who may talk on a job: the homeowner on one side and
// a contractor with standing on the other. Standing means being the assigned
// contractor or holding a live (pending or accepted) quote; a contractor
// whose only quote was rejected has none.
func (s *Service) checkParties(ctx context.Context, job *models.Job, a, b uuid.UUID) error {
	var contractor uuid.UUID
	switch {
	case job.HomeownerID == a:
		contractor = b
	case job.HomeownerID == b:
		contractor = a
	default:
		return errs.Forbidden("conversation must include the job's homeowner")
	}

	if job.ContractorID != nil && *job.ContractorID == contractor {
		return nil
	}
	quote, err := s.store.QuoteByJobAndContractor(ctx, job.ID, contractor)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return errs.Forbidden("user is not a party to this job")
		}
		return err
	}
	if quote.Status == models.QuoteStatusRejected {
		return errs.Forbidden("user is not a party to this job")
	}
	return nil
}

func between(m models.Message, a, b uuid.UUID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "…"
}
