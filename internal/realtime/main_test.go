package realtime

import (
	"testing"

	"go.uber.org/goleak"
)

// The hub and notifier are supposed to leave nothing running once sessions
// are unregistered; fail the package if any test leaks a goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
