package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-app/platform_be_homefix/internal/store"
)

func TestNotifyDeliversAndAudits(t *testing.T) {
	hub := NewHub()
	st := store.NewMemory()
	n := NewNotifier(hub, st, nil)

	userID := uuid.New()
	s := NewSession(userID, nil)
	hub.Register(s)
	defer hub.Unregister(s)

	n.Notify(context.Background(), userID, PaymentReceived{JobID: uuid.New(), At: time.Now()})

	frame := <-s.Send
	event, err := DecodeEvent(frame)
	require.NoError(t, err)
	assert.Equal(t, KindPaymentReceived, event.Kind())

	logs := st.NotificationLogsByUser(userID)
	require.Len(t, logs, 1)
	assert.Equal(t, string(KindPaymentReceived), logs[0].Type)
	assert.Equal(t, 1, logs[0].Sessions)
}

func TestNotifyWithNoSessionsStillAudits(t *testing.T) {
	hub := NewHub()
	st := store.NewMemory()
	n := NewNotifier(hub, st, nil)
	userID := uuid.New()

	n.Notify(context.Background(), userID, NewJobMatch{JobID: uuid.New(), Title: "x", TradeID: uuid.New()})

	logs := st.NotificationLogsByUser(userID)
	require.Len(t, logs, 1)
	assert.Zero(t, logs[0].Sessions, "a push with nobody online is recorded as 0 sessions")
}

func TestNotifyAllDeduplicatesRecipients(t *testing.T) {
	hub := NewHub()
	st := store.NewMemory()
	n := NewNotifier(hub, st, nil)
	userID := uuid.New()

	n.NotifyAll(context.Background(), []uuid.UUID{userID, userID, userID}, PaymentReceived{JobID: uuid.New(), At: time.Now()})

	assert.Len(t, st.NotificationLogsByUser(userID), 1)
}
