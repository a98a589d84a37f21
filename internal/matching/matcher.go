package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/config"
	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// proximityScaleKm is the distance at which the geo closeness factor halves.
const proximityScaleKm = 25.0

// Match is one ranked candidate.
type Match struct {
	ContractorID uuid.UUID `json:"contractor_id"`
	Score        float64   `json:"score"`
}

// Matcher ranks contractors for a pending job. It only reads; assigning a
// contractor and notifying candidates stay with the lifecycle controller.
type Matcher struct {
	store store.Store
	cfg   config.MatchingConfig
}

func New(st store.Store, cfg config.MatchingConfig) *Matcher {
	if cfg.TopN <= 0 {
		cfg.TopN = config.DefaultMatching().TopN
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = config.DefaultMatching().HorizonDays
	}
	return &Matcher{store: st, cfg: cfg}
}

// FindMatchingContractors returns up to TopN contractors working the job's
// trade, ranked by rating, proximity and completed-job history. An empty
// result is a valid outcome, not an error: it means nobody qualifies right
// now and the job stays pending.
func (m *Matcher) FindMatchingContractors(ctx context.Context, job *models.Job) ([]Match, error) {
	if job == nil {
		return nil, errs.Validation("job is required")
	}
	if job.Status != models.JobStatusPending {
		return nil, errs.InvalidTransition(
			fmt.Sprintf("matching runs on pending jobs only, job is %s", job.Status), nil)
	}

	candidates, err := m.store.ContractorsByTrade(ctx, job.TradeID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Match{}, nil
	}

	// The availability filter only applies when the homeowner named a date;
	// "whenever" jobs keep every trade-qualified candidate.
	if job.PreferredDate != nil {
		candidates, err = m.filterAvailable(ctx, candidates)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return []Match{}, nil
		}
	}

	ranked := m.rank(job, candidates)
	if len(ranked) > m.cfg.TopN {
		ranked = ranked[:m.cfg.TopN]
	}
	return ranked, nil
}

func (m *Matcher) filterAvailable(ctx context.Context, candidates []models.User) ([]models.User, error) {
	now := time.Now()
	horizon := now.AddDate(0, 0, m.cfg.HorizonDays)

	kept := candidates[:0]
	for _, c := range candidates {
		slots, err := m.store.AvailableSlotsByContractor(ctx, c.ID, now, horizon)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// rank scores each candidate by a weighted sum of three factors, each
// min-max normalized over the candidate set so no raw scale dominates.
// Ties break by ascending contractor id so the result is deterministic.
func (m *Matcher) rank(job *models.Job, candidates []models.User) []Match {
	n := len(candidates)
	ratings := make([]float64, n)
	proximities := make([]float64, n)
	completed := make([]float64, n)

	for i, c := range candidates {
		ratings[i] = c.AverageRating
		proximities[i] = proximity(job, c.ContractorProfile)
		if c.ContractorProfile != nil {
			completed[i] = float64(c.ContractorProfile.CompletedJobs)
		}
	}
	normalize(ratings)
	normalize(proximities)
	normalize(completed)

	wSum := m.cfg.WeightRating + m.cfg.WeightGeo + m.cfg.WeightHistory
	wr, wg, wh := m.cfg.WeightRating, m.cfg.WeightGeo, m.cfg.WeightHistory
	if wSum <= 0 {
		wr, wg, wh = 1, 1, 1
		wSum = 3
	}

	out := make([]Match, n)
	for i, c := range candidates {
		out[i] = Match{
			ContractorID: c.ID,
			Score:        (wr*ratings[i] + wg*proximities[i] + wh*completed[i]) / wSum,
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ContractorID.String() < out[j].ContractorID.String()
	})
	return out
}

// normalize rescales vs in place to [0,1] over the set. A flat factor (all
// values equal) carries no signal and collapses to zeros.
func normalize(vs []float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	for i, v := range vs {
		if span == 0 {
			vs[i] = 0
			continue
		}
		vs[i] = (v - lo) / span
	}
}

// proximity estimates closeness in [0,1]. Geocoded pairs use haversine
// distance; otherwise a city-name hit counts as close and unknown locations
// get a neutral midpoint so missing data never dominates the ranking.
func proximity(job *models.Job, p *models.ContractorProfile) float64 {
	if p == nil {
		return 0.5
	}
	if job.Lat != nil && job.Lng != nil && p.Lat != nil && p.Lng != nil {
		km := haversineKm(*job.Lat, *job.Lng, *p.Lat, *p.Lng)
		return 1 / (1 + km/proximityScaleKm)
	}
	if p.City != "" && strings.Contains(strings.ToLower(job.Location), strings.ToLower(p.City)) {
		return 1
	}
	return 0.5
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
