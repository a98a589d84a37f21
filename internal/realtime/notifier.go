package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// Notifier fans an event out to a user's live sessions, here and on other
// instances. Delivery is best-effort by contract: the state change that
// produced the event is already committed, so nothing here may fail the
// caller. Errors are logged and swallowed.
type Notifier struct {
	hub    *Hub
	store  store.Store
	rdb    *redis.Client
	origin string
}

// NewNotifier wires the notifier. rdb may be nil for single-instance runs;
// st may be nil to skip the audit log (tests).
func NewNotifier(hub *Hub, st store.Store, rdb *redis.Client) *Notifier {
	return &Notifier{
		hub:    hub,
		store:  st,
		rdb:    rdb,
		origin: uuid.NewString(),
	}
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, event Event) {
	payload, err := Encode(event)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event.Kind(), err)
		return
	}

	delivered := n.hub.Publish(userID, payload)

	if n.rdb != nil {
		frame, err := json.Marshal(bridgeFrame{
			Origin:  n.origin,
			UserID:  userID,
			Payload: payload,
		})
		if err == nil {
			if err := n.rdb.Publish(ctx, bridgeChannel(userID), frame).Err(); err != nil {
				log.Printf("Error publishing %s event to redis: %v", event.Kind(), err)
			}
		}
	}

	if n.store != nil {
		audit := &models.NotificationLog{
			UserID:   userID,
			Type:     string(event.Kind()),
			Payload:  datatypes.JSON(payload),
			Sessions: delivered,
		}
		if err := n.store.CreateNotificationLog(ctx, audit); err != nil {
			log.Printf("Error writing notification log: %v", err)
		}
	}
}

// NotifyAll is Notify for several recipients, deduplicated.
func (n *Notifier) NotifyAll(ctx context.Context, userIDs []uuid.UUID, event Event) {
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		n.Notify(ctx, id, event)
	}
}
