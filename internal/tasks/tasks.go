package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/homefix-app/platform_be_homefix/internal/services/email"
)

const TypeEmailDeliver = "email:deliver"

// EmailPayload is the wire form of a queued email.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func NewClient(addr, password string) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password})
}

// Queue implements email.Sender by deferring delivery to the worker. The
// HTTP request path never waits on SMTP this way.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

var _ email.Sender = (*Queue)(nil)

func (q *Queue) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(EmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailDeliver, payload)
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue email task: %w", err)
	}
	return nil
}

// Processor holds the dependencies the worker-side handlers need.
type Processor struct {
	sender email.Sender
}

func NewProcessor(sender email.Sender) *Processor {
	return &Processor{sender: sender}
}

func (p *Processor) HandleEmailDeliverTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal email payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		log.Printf("Email delivery to %s failed, asynq will retry: %v", payload.To, err)
		return err
	}
	return nil
}

// Run starts the asynq worker and blocks until it stops. Meant to be run in
// its own goroutine next to the HTTP server.
func Run(addr, password string, p *Processor) error {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr, Password: password},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"default": 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[asynq] task %s failed: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDeliver, p.HandleEmailDeliverTask)

	return srv.Run(mux)
}
