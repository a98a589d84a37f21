package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
)

func TestSweeperRematchesFlaggedJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trade := env.seedTrade(t, "plumbing")
	owner := env.seedUser(t, models.RoleHomeowner, "hope")

	job, matches, err := env.ctrl.CreateJob(ctx, owner.ID, CreateJobInput{
		Title:   "Swap radiator valve",
		TradeID: trade.ID,
	})
	require.NoError(t, err)
	require.Empty(t, matches)
	require.NotNil(t, job.FlaggedAt)

	// A contractor signs up for the trade after the job was posted.
	worker := env.seedContractor(t, "pat", trade.ID)

	env.ctrl.sweepUnmatched(ctx)

	swept, err := env.st.JobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, swept.FlaggedAt)
	assert.Equal(t, models.JobStatusPending, swept.Status)
	assert.Contains(t, auditKinds(env.st, worker.ID), string(realtime.KindNewJobMatch))
}

func TestSweeperLeavesUnmatchableJobsFlagged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trade := env.seedTrade(t, "asbestos removal")
	owner := env.seedUser(t, models.RoleHomeowner, "hope")

	job, _, err := env.ctrl.CreateJob(ctx, owner.ID, CreateJobInput{
		Title:   "Strip garage roof",
		TradeID: trade.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, job.FlaggedAt)

	env.ctrl.sweepUnmatched(ctx)

	still, err := env.st.JobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.NotNil(t, still.FlaggedAt)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	env.ctrl.StartUnmatchedSweeper(ctx, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	goleak.VerifyNone(t)
}
