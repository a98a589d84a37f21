package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// MemoryStore keeps everything in maps behind one mutex. It exists for tests
// and local runs without Postgres; semantics (unique keys, CAS conflicts)
// mirror the gormStore.
type MemoryStore struct {
	mu sync.Mutex

	users     map[uuid.UUID]models.User
	profiles  map[uuid.UUID]models.ContractorProfile // keyed by UserID
	trades    map[uuid.UUID]models.Trade
	ctrades   map[uuid.UUID]models.ContractorTrade
	jobs      map[uuid.UUID]models.Job
	quotes    map[uuid.UUID]models.Quote
	messages  map[uuid.UUID]models.Message
	slots     map[uuid.UUID]models.ScheduleSlot
	reviews   map[uuid.UUID]models.Review
	charges   map[uuid.UUID]models.PaymentCharge
	notifLogs map[uuid.UUID]models.NotificationLog

	// Insertion order, for stable sorts when created_at ties.
	seq    map[uuid.UUID]int64
	nextSq int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]models.User),
		profiles:  make(map[uuid.UUID]models.ContractorProfile),
		trades:    make(map[uuid.UUID]models.Trade),
		ctrades:   make(map[uuid.UUID]models.ContractorTrade),
		jobs:      make(map[uuid.UUID]models.Job),
		quotes:    make(map[uuid.UUID]models.Quote),
		messages:  make(map[uuid.UUID]models.Message),
		slots:     make(map[uuid.UUID]models.ScheduleSlot),
		reviews:   make(map[uuid.UUID]models.Review),
		charges:   make(map[uuid.UUID]models.PaymentCharge),
		notifLogs: make(map[uuid.UUID]models.NotificationLog),
		seq:       make(map[uuid.UUID]int64),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) stamp(id uuid.UUID) {
	s.nextSq++
	s.seq[id] = s.nextSq
}

// --- users ---

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return errs.Conflict("email %s already registered", u.Email)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = *u
	s.stamp(u.ID)
	return nil
}

func (s *MemoryStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	if p, ok := s.profiles[u.ID]; ok {
		cp := p
		u.ContractorProfile = &cp
	}
	return &u, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, errs.NotFound("user not found")
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return errs.NotFound("user not found")
	}
	u.UpdatedAt = time.Now()
	cp := *u
	cp.ContractorProfile = nil
	s.users[u.ID] = cp
	return nil
}

func (s *MemoryStore) ContractorProfileByUser(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, errs.NotFound("contractor profile not found")
	}
	return &p, nil
}

func (s *MemoryStore) UpsertContractorProfile(ctx context.Context, p *models.ContractorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = now
		s.stamp(p.ID)
	}
	p.UpdatedAt = now
	s.profiles[p.UserID] = *p
	return nil
}

// --- trades ---

func (s *MemoryStore) CreateTrade(ctx context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.trades {
		if existing.Name == t.Name {
			return errs.Conflict("trade %s already exists", t.Name)
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.trades[t.ID] = *t
	s.stamp(t.ID)
	return nil
}

func (s *MemoryStore) TradeByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, errs.NotFound("trade not found")
	}
	return &t, nil
}

func (s *MemoryStore) Trades(ctx context.Context) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateContractorTrade(ctx context.Context, ct *models.ContractorTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ctrades {
		if existing.ContractorID == ct.ContractorID && existing.TradeID == ct.TradeID {
			return errs.Conflict("contractor already linked to trade")
		}
	}
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = time.Now()
	}
	s.ctrades[ct.ID] = *ct
	s.stamp(ct.ID)
	return nil
}

func (s *MemoryStore) ContractorsByTrade(ctx context.Context, tradeID uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, ct := range s.ctrades {
		if ct.TradeID != tradeID {
			continue
		}
		u, ok := s.users[ct.ContractorID]
		if !ok || !u.IsActive {
			continue
		}
		if p, ok := s.profiles[u.ID]; ok {
			cp := p
			u.ContractorProfile = &cp
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) TradesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ContractorTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContractorTrade
	for _, ct := range s.ctrades {
		if ct.ContractorID != contractorID {
			continue
		}
		if t, ok := s.trades[ct.TradeID]; ok {
			tt := t
			ct.Trade = &tt
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// --- jobs ---

func (s *MemoryStore) CreateJob(ctx context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = models.JobStatusPending
	}
	if j.PaymentStatus == "" {
		j.PaymentStatus = models.PaymentStatusUnpaid
	}
	s.jobs[j.ID] = *j
	s.stamp(j.ID)
	return nil
}

func (s *MemoryStore) JobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFound("job not found")
	}
	return &j, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return errs.NotFound("job not found")
	}
	j.UpdatedAt = time.Now()
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) jobsWhere(keep func(models.Job) bool, newestFirst bool) []models.Job {
	var out []models.Job
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if newestFirst {
			return s.seq[a.ID] > s.seq[b.ID]
		}
		return s.seq[a.ID] < s.seq[b.ID]
	})
	return out
}

func (s *MemoryStore) JobsByHomeowner(ctx context.Context, homeownerID uuid.UUID) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobsWhere(func(j models.Job) bool { return j.HomeownerID == homeownerID }, true), nil
}

func (s *MemoryStore) JobsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobsWhere(func(j models.Job) bool {
		return j.ContractorID != nil && *j.ContractorID == contractorID
	}, true), nil
}

func (s *MemoryStore) JobsByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobsWhere(func(j models.Job) bool { return j.Status == status }, true), nil
}

func (s *MemoryStore) FlaggedJobs(ctx context.Context) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Job
	for _, j := range s.jobs {
		if j.FlaggedAt != nil && j.Status == models.JobStatusPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlaggedAt.Before(*out[j].FlaggedAt) })
	return out, nil
}

func (s *MemoryStore) CompletedJobCount(ctx context.Context, contractorID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == models.JobStatusCompleted && j.ContractorID != nil && *j.ContractorID == contractorID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, expected, next models.JobStatus, mutate func(*models.Job)) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFound("job not found")
	}
	if j.Status != expected {
		return nil, errs.Conflict("job status changed to %s while the request was in flight", j.Status)
	}
	j.Status = next
	if mutate != nil {
		mutate(&j)
	}
	j.UpdatedAt = time.Now()
	s.jobs[id] = j
	out := j
	return &out, nil
}

func (s *MemoryStore) SetJobPaymentStatus(ctx context.Context, id uuid.UUID, expected, next models.PaymentStatus) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFound("job not found")
	}
	if j.PaymentStatus != expected {
		return nil, errs.Conflict("payment status is %s, expected %s", j.PaymentStatus, expected)
	}
	j.PaymentStatus = next
	j.UpdatedAt = time.Now()
	s.jobs[id] = j
	out := j
	return &out, nil
}

// --- quotes ---

func (s *MemoryStore) CreateQuote(ctx context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.quotes {
		if existing.JobID == q.JobID && existing.ContractorID == q.ContractorID {
			return errs.Conflict("contractor already quoted this job")
		}
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	if q.Status == "" {
		q.Status = models.QuoteStatusPending
	}
	s.quotes[q.ID] = *q
	s.stamp(q.ID)
	return nil
}

func (s *MemoryStore) QuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, errs.NotFound("quote not found")
	}
	return &q, nil
}

func (s *MemoryStore) UpdateQuote(ctx context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[q.ID]; !ok {
		return errs.NotFound("quote not found")
	}
	q.UpdatedAt = time.Now()
	cp := *q
	cp.Contractor = nil
	s.quotes[q.ID] = cp
	return nil
}

func (s *MemoryStore) QuotesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quote
	for _, q := range s.quotes {
		if q.JobID != jobID {
			continue
		}
		if u, ok := s.users[q.ContractorID]; ok {
			cu := u
			q.Contractor = &cu
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) QuotesByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quote
	for _, q := range s.quotes {
		if q.ContractorID == contractorID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) QuoteByJobAndContractor(ctx context.Context, jobID, contractorID uuid.UUID) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.quotes {
		if q.JobID == jobID && q.ContractorID == contractorID {
			out := q
			return &out, nil
		}
	}
	return nil, errs.NotFound("quote not found")
}

// --- schedule slots ---

func (s *MemoryStore) CreateScheduleSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	s.slots[slot.ID] = *slot
	s.stamp(slot.ID)
	return nil
}

func (s *MemoryStore) ScheduleSlotByID(ctx context.Context, id uuid.UUID) (*models.ScheduleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, errs.NotFound("schedule slot not found")
	}
	return &slot, nil
}

func (s *MemoryStore) UpdateScheduleSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot.ID]; !ok {
		return errs.NotFound("schedule slot not found")
	}
	slot.UpdatedAt = time.Now()
	s.slots[slot.ID] = *slot
	return nil
}

func (s *MemoryStore) SlotsByContractor(ctx context.Context, contractorID uuid.UUID) ([]models.ScheduleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleSlot
	for _, slot := range s.slots {
		if slot.ContractorID == contractorID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *MemoryStore) AvailableSlotsByContractor(ctx context.Context, contractorID uuid.UUID, from, to time.Time) ([]models.ScheduleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleSlot
	for _, slot := range s.slots {
		if slot.ContractorID != contractorID || !slot.Available {
			continue
		}
		if slot.Start.Before(to) && slot.End.After(from) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// --- messages ---

func (s *MemoryStore) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages[m.ID] = *m
	s.stamp(m.ID)
	return nil
}

func (s *MemoryStore) MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, errs.NotFound("message not found")
	}
	return &m, nil
}

func (s *MemoryStore) MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return errs.NotFound("message not found")
	}
	if m.IsRead {
		return nil
	}
	m.IsRead = true
	m.ReadAt = &at
	s.messages[id] = m
	return nil
}

func (s *MemoryStore) messagesWhere(keep func(models.Message) bool) []models.Message {
	var out []models.Message
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out
}

func (s *MemoryStore) MessagesByJob(ctx context.Context, jobID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesWhere(func(m models.Message) bool { return m.JobID == jobID }), nil
}

func (s *MemoryStore) MessagesByUser(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesWhere(func(m models.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}), nil
}

func (s *MemoryStore) CountUnreadByReceiver(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

// --- reviews ---

func (s *MemoryStore) CreateReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.JobID == r.JobID && existing.AuthorID == r.AuthorID {
			return errs.Conflict("review already submitted for this job")
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.reviews[r.ID] = *r
	s.stamp(r.ID)
	return nil
}

func (s *MemoryStore) ReviewsBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Review
	for _, r := range s.reviews {
		if r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) ReviewByJobAndAuthor(ctx context.Context, jobID, authorID uuid.UUID) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.JobID == jobID && r.AuthorID == authorID {
			out := r
			return &out, nil
		}
	}
	return nil, errs.NotFound("review not found")
}

// --- payment charges ---

func (s *MemoryStore) CreatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.charges {
		if existing.Reference == c.Reference || existing.MerchantRef == c.MerchantRef {
			return errs.Conflict("charge already exists for %s", c.MerchantRef)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.charges[c.ID] = *c
	s.stamp(c.ID)
	return nil
}

func (s *MemoryStore) PaymentChargeByReference(ctx context.Context, reference string) (*models.PaymentCharge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.charges {
		if c.Reference == reference {
			out := c
			return &out, nil
		}
	}
	return nil, errs.NotFound("payment charge not found")
}

func (s *MemoryStore) UpdatePaymentCharge(ctx context.Context, c *models.PaymentCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.charges[c.ID]; !ok {
		return errs.NotFound("payment charge not found")
	}
	c.UpdatedAt = time.Now()
	s.charges[c.ID] = *c
	return nil
}

// --- notification audit ---

func (s *MemoryStore) CreateNotificationLog(ctx context.Context, n *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifLogs[n.ID] = *n
	s.stamp(n.ID)
	return nil
}

// NotificationLogsByUser is a test helper; the HTTP surface never lists these.
func (s *MemoryStore) NotificationLogsByUser(userID uuid.UUID) []models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.NotificationLog
	for _, n := range s.notifLogs {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}
