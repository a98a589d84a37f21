package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// Kind discriminates event payloads on the wire.
type Kind string

const (
	KindNewJobMatch         Kind = "new_job_match"
	KindJobStatusChanged    Kind = "job_status_changed"
	KindCompletionRequested Kind = "completion_requested"
	KindQuoteReceived       Kind = "quote_received"
	KindNewMessage          Kind = "new_message"
	KindPaymentReceived     Kind = "payment_received"
)

// Event is one member of the closed set of realtime payloads. Anything not
// in this set never reaches a socket.
type Event interface {
	Kind() Kind
}

// NewJobMatch is pushed to each contractor the matcher ranked for a new job.
type NewJobMatch struct {
	JobID   uuid.UUID `json:"job_id"`
	Title   string    `json:"title"`
	TradeID uuid.UUID `json:"trade_id"`
}

func (NewJobMatch) Kind() Kind { return KindNewJobMatch }

// JobStatusChanged is pushed to both parties on every lifecycle transition.
type JobStatusChanged struct {
	JobID   uuid.UUID        `json:"job_id"`
	From    models.JobStatus `json:"from"`
	To      models.JobStatus `json:"to"`
	ActorID uuid.UUID        `json:"actor_id"`
	At      time.Time        `json:"at"`
}

func (JobStatusChanged) Kind() Kind { return KindJobStatusChanged }

// CompletionRequested tells the homeowner the contractor marked the work
// done and is waiting on their confirmation.
type CompletionRequested struct {
	JobID        uuid.UUID `json:"job_id"`
	ContractorID uuid.UUID `json:"contractor_id"`
	At           time.Time `json:"at"`
}

func (CompletionRequested) Kind() Kind { return KindCompletionRequested }

// QuoteReceived tells the homeowner a contractor priced their job.
type QuoteReceived struct {
	JobID        uuid.UUID `json:"job_id"`
	QuoteID      uuid.UUID `json:"quote_id"`
	ContractorID uuid.UUID `json:"contractor_id"`
	Amount       int64     `json:"amount"`
}

func (QuoteReceived) Kind() Kind { return KindQuoteReceived }

// NewMessage carries a preview, not the full body; the client fetches the
// thread over HTTP.
type NewMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	MessageID uuid.UUID `json:"message_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Preview   string    `json:"preview"`
}

func (NewMessage) Kind() Kind { return KindNewMessage }

type PaymentReceived struct {
	JobID uuid.UUID `json:"job_id"`
	At    time.Time `json:"at"`
}

func (PaymentReceived) Kind() Kind { return KindPaymentReceived }

// Encode flattens an event into its wire envelope: the event's own fields
// plus a "type" discriminator.
func Encode(e Event) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(e.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}

// DecodeEvent parses a wire envelope back into its typed event. Unknown or
// missing types are rejected, never passed through.
func DecodeEvent(raw []byte) (Event, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errs.Validation("malformed event: %v", err)
	}
	decode := func(e Event) (Event, error) {
		if err := json.Unmarshal(raw, e); err != nil {
			return nil, errs.Validation("malformed %s event: %v", head.Type, err)
		}
		return e, nil
	}
	switch head.Type {
	case KindNewJobMatch:
		return decode(&NewJobMatch{})
	case KindJobStatusChanged:
		return decode(&JobStatusChanged{})
	case KindCompletionRequested:
		return decode(&CompletionRequested{})
	case KindQuoteReceived:
		return decode(&QuoteReceived{})
	case KindNewMessage:
		return decode(&NewMessage{})
	case KindPaymentReceived:
		return decode(&PaymentReceived{})
	default:
		return nil, errs.Validation("unknown event type %q", head.Type)
	}
}
