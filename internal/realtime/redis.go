package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates the Redis client used for the cross-instance event bridge.
func NewRedis(addr, password string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	log.Printf("Redis client created (addr: %s)", addr)
	return rdb
}

const bridgePattern = "rt:user:*"

func bridgeChannel(userID uuid.UUID) string {
	return "rt:user:" + userID.String()
}

// bridgeFrame is what travels over Redis between instances. Origin lets an
// instance skip its own frames: the local hub already got those directly.
type bridgeFrame struct {
	Origin  string          `json:"origin"`
	UserID  uuid.UUID       `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// RunBridge re-delivers events published by other instances to this
// instance's local sessions. Blocks until ctx is cancelled; run it in its
// own goroutine.
func (n *Notifier) RunBridge(ctx context.Context) {
	if n.rdb == nil {
		return
	}
	sub := n.rdb.PSubscribe(ctx, bridgePattern)
	defer sub.Close()
	log.Printf("Realtime bridge subscribed (%s)", bridgePattern)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.Printf("Error decoding bridge frame: %v", err)
				continue
			}
			if frame.Origin == n.origin {
				continue
			}
			n.hub.Publish(frame.UserID, frame.Payload)
		}
	}
}
