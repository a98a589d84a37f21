package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-app/platform_be_homefix/internal/config"
	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type fixture struct {
	st      *store.MemoryStore
	matcher *Matcher
	tradeID uuid.UUID
}

func newFixture(t *testing.T, cfg config.MatchingConfig) *fixture {
	t.Helper()
	st := store.NewMemory()
	trade := &models.Trade{Name: "plumbing"}
	require.NoError(t, st.CreateTrade(context.Background(), trade))
	return &fixture{st: st, matcher: New(st, cfg), tradeID: trade.ID}
}

type contractorOpts struct {
	rating    float64
	completed int
	city      string
	lat, lng  *float64
	tradeID   uuid.UUID // zero value means the fixture's trade
}

func (f *fixture) addContractor(t *testing.T, name string, opts contractorOpts) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	u := &models.User{
		Name:          name,
		Email:         name + "@example.com",
		Password:      "x",
		Role:          models.RoleContractor,
		IsActive:      true,
		AverageRating: opts.rating,
	}
	require.NoError(t, f.st.CreateUser(ctx, u))

	tradeID := opts.tradeID
	if tradeID == uuid.Nil {
		tradeID = f.tradeID
	}
	require.NoError(t, f.st.CreateContractorTrade(ctx, &models.ContractorTrade{
		ContractorID: u.ID,
		TradeID:      tradeID,
	}))

	if opts.completed > 0 || opts.city != "" || opts.lat != nil {
		require.NoError(t, f.st.UpsertContractorProfile(ctx, &models.ContractorProfile{
			UserID:        u.ID,
			City:          opts.city,
			Lat:           opts.lat,
			Lng:           opts.lng,
			CompletedJobs: opts.completed,
		}))
	}
	return u.ID
}

func (f *fixture) job(preferred *time.Time) *models.Job {
	return &models.Job{
		ID:            uuid.New(),
		HomeownerID:   uuid.New(),
		Title:         "Unblock kitchen drain",
		TradeID:       f.tradeID,
		Status:        models.JobStatusPending,
		PreferredDate: preferred,
	}
}

func ids(matches []Match) []uuid.UUID {
	out := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		out[i] = m.ContractorID
	}
	return out
}

func TestFindMatchingContractorsFiltersByTrade(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())
	ctx := context.Background()

	electrical := &models.Trade{Name: "electrical"}
	require.NoError(t, f.st.CreateTrade(ctx, electrical))

	plumber := f.addContractor(t, "plumber", contractorOpts{rating: 4})
	f.addContractor(t, "sparky", contractorOpts{rating: 5, tradeID: electrical.ID})

	matches, err := f.matcher.FindMatchingContractors(ctx, f.job(nil))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, plumber, matches[0].ContractorID)
}

func TestZeroCandidatesIsNotAnError(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())

	matches, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchingRejectsNonPendingJobs(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())

	job := f.job(nil)
	job.Status = models.JobStatusMatched
	_, err := f.matcher.FindMatchingContractors(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidTransition, errs.KindOf(err))

	_, err = f.matcher.FindMatchingContractors(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestAvailabilityFilterOnlyAppliesWithPreferredDate(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())
	ctx := context.Background()

	free := f.addContractor(t, "free", contractorOpts{rating: 3})
	busy := f.addContractor(t, "busy", contractorOpts{rating: 5})

	now := time.Now()
	require.NoError(t, f.st.CreateScheduleSlot(ctx, &models.ScheduleSlot{
		ContractorID: free,
		Start:        now.Add(48 * time.Hour),
		End:          now.Add(52 * time.Hour),
		Available:    true,
	}))
	// busy has declared nothing at all.

	// No preferred date: both stay in, the schedule is irrelevant.
	matches, err := f.matcher.FindMatchingContractors(ctx, f.job(nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{free, busy}, ids(matches))

	// Dated job: only the contractor with an open slot survives.
	preferred := now.Add(72 * time.Hour)
	matches, err = f.matcher.FindMatchingContractors(ctx, f.job(&preferred))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, free, matches[0].ContractorID)
}

func TestAvailabilityFilterIgnoresBlockedSlots(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())
	ctx := context.Background()

	blocked := f.addContractor(t, "blocked", contractorOpts{rating: 4})
	now := time.Now()
	require.NoError(t, f.st.CreateScheduleSlot(ctx, &models.ScheduleSlot{
		ContractorID: blocked,
		Start:        now.Add(24 * time.Hour),
		End:          now.Add(30 * time.Hour),
		Available:    false,
	}))

	preferred := now.Add(48 * time.Hour)
	matches, err := f.matcher.FindMatchingContractors(ctx, f.job(&preferred))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRankingOrdersByRating(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())

	low := f.addContractor(t, "low", contractorOpts{rating: 1.5})
	high := f.addContractor(t, "high", contractorOpts{rating: 4.9})
	mid := f.addContractor(t, "mid", contractorOpts{rating: 3.2})

	matches, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{high, mid, low}, ids(matches))
}

func TestRankingWeightsCompletedHistory(t *testing.T) {
	// Rating carries no weight here, so the veteran must outrank the
	// higher-rated newcomer.
	cfg := config.DefaultMatching()
	cfg.WeightRating = 0
	cfg.WeightGeo = 0
	cfg.WeightHistory = 1
	f := newFixture(t, cfg)

	newcomer := f.addContractor(t, "newcomer", contractorOpts{rating: 5, completed: 1})
	veteran := f.addContractor(t, "veteran", contractorOpts{rating: 2, completed: 40})

	matches, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{veteran, newcomer}, ids(matches))
}

func TestRankingPrefersCloserContractors(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.WeightRating = 0
	cfg.WeightGeo = 1
	cfg.WeightHistory = 0
	f := newFixture(t, cfg)

	nearLat, nearLng := 51.51, -0.12
	farLat, farLng := 53.48, -2.24
	near := f.addContractor(t, "near", contractorOpts{lat: &nearLat, lng: &nearLng})
	far := f.addContractor(t, "far", contractorOpts{lat: &farLat, lng: &farLng})

	job := f.job(nil)
	jobLat, jobLng := 51.50, -0.13
	job.Lat, job.Lng = &jobLat, &jobLng

	matches, err := f.matcher.FindMatchingContractors(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{near, far}, ids(matches))
}

func TestProximityFallsBackToCityMatch(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.WeightRating = 0
	cfg.WeightGeo = 1
	cfg.WeightHistory = 0
	f := newFixture(t, cfg)

	local := f.addContractor(t, "local", contractorOpts{city: "Leeds"})
	elsewhere := f.addContractor(t, "elsewhere", contractorOpts{city: "Bristol"})

	job := f.job(nil)
	job.Location = "14 Harehills Lane, Leeds"

	matches, err := f.matcher.FindMatchingContractors(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{local, elsewhere}, ids(matches))
}

func TestTopNTruncatesTheRanking(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.TopN = 2
	f := newFixture(t, cfg)

	for i := 0; i < 5; i++ {
		f.addContractor(t, fmt.Sprintf("c%d", i), contractorOpts{rating: float64(i)})
	}

	matches, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestTieBreakIsDeterministic(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())

	// Identical on every factor: ordering must still be stable.
	for i := 0; i < 4; i++ {
		f.addContractor(t, fmt.Sprintf("twin%d", i), contractorOpts{rating: 4})
	}

	first, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	second, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ContractorID.String(), first[i].ContractorID.String())
	}
}

func TestScoresStayWithinUnitRange(t *testing.T) {
	f := newFixture(t, config.DefaultMatching())

	f.addContractor(t, "a", contractorOpts{rating: 5, completed: 120})
	f.addContractor(t, "b", contractorOpts{rating: 3, completed: 7})
	f.addContractor(t, "c", contractorOpts{rating: 0})

	matches, err := f.matcher.FindMatchingContractors(context.Background(), f.job(nil))
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1.0)
	}
}
