package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/explainer"
	"github.com/ajharbinger/tender-eligibility/internal/extraction"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.ContractorProfile
	err      error
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContractorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.profiles[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UserID == userID {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *models.ContractorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.profiles {
		if p.UserID == profile.UserID {
			profile.ID = id
			profile.Version = p.Version + 1
			c := *profile
			m.profiles[id] = &c
			return nil
		}
	}
	profile.ID = uuid.New()
	profile.Version = 1
	c := *profile
	m.profiles[profile.ID] = &c
	return nil
}

// MockTenderRepository implements TenderRepository for testing
type MockTenderRepository struct {
	mu          sync.Mutex
	tenders     map[uuid.UUID]*models.Tender
	lastFilters models.TenderFilters
	saveErr     error
}

func (m *MockTenderRepository) Create(ctx context.Context, tender *models.Tender) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tender.ID == uuid.Nil {
		tender.ID = uuid.New()
	}
	tender.CreatedAt = time.Now()
	c := *tender
	m.tenders[tender.ID] = &c
	return nil
}

func (m *MockTenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenders[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockTenderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TenderStatus, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenders[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	t.ErrorMessage = errMsg
	return nil
}

func (m *MockTenderRepository) SaveExtraction(ctx context.Context, tender *models.Tender) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	tender.Status = models.TenderExtracted
	c := *tender
	m.tenders[tender.ID] = &c
	return nil
}

func (m *MockTenderRepository) ReplaceClauses(ctx context.Context, tenderID uuid.UUID, clauses []models.Clause) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenders[tenderID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Clauses = append([]models.Clause{}, clauses...)
	return nil
}

func (m *MockTenderRepository) List(ctx context.Context, f models.TenderFilters) ([]models.TenderListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilters = f
	var items []models.TenderListItem
	for _, t := range m.tenders {
		if t.UserID != f.UserID {
			continue
		}
		items = append(items, models.TenderListItem{ID: t.ID, FileName: t.FileName, Status: t.Status, CreatedAt: t.CreatedAt})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := len(items)
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func (m *MockTenderRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.DashboardStats{}
	for _, t := range m.tenders {
		if t.UserID == userID {
			stats.TotalTenders++
			if t.RiskLevel() == models.RiskHigh {
				stats.HighRiskCount++
			}
		}
	}
	return stats, nil
}

// MockVerdictRepository implements VerdictRepository for testing
type MockVerdictRepository struct {
	mu        sync.Mutex
	verdicts  []models.Verdict
	lastLimit int
}

func (m *MockVerdictRepository) Create(ctx context.Context, v *models.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	m.verdicts = append(m.verdicts, *v)
	return nil
}

func (m *MockVerdictRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.verdicts {
		if v.ID == id {
			c := v
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockVerdictRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := []models.Verdict{}
	for i := len(m.verdicts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.verdicts[i].UserID == userID {
			out = append(out, m.verdicts[i])
		}
	}
	return out, nil
}

// mockTx runs the function against the same in-memory repositories
type mockTx struct {
	repos *repository.Repositories
}

func (t *mockTx) WithTransaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t.repos)
}

type mockRepos struct {
	*repository.Repositories
	users    *MockUserRepository
	profiles *MockProfileRepository
	tenders  *MockTenderRepository
	verdicts *MockVerdictRepository
}

func newMockRepos() *mockRepos {
	m := &mockRepos{
		users:    &MockUserRepository{users: map[uuid.UUID]*models.User{}},
		profiles: &MockProfileRepository{profiles: map[uuid.UUID]*models.ContractorProfile{}},
		tenders:  &MockTenderRepository{tenders: map[uuid.UUID]*models.Tender{}},
		verdicts: &MockVerdictRepository{},
	}
	m.Repositories = &repository.Repositories{
		User:    m.users,
		Profile: m.profiles,
		Tender:  m.tenders,
		Verdict: m.verdicts,
	}
	m.Repositories.Tx = &mockTx{repos: m.Repositories}
	return m
}

// stubExtractor returns a fixed extraction
type stubExtractor struct {
	result    *extraction.Extraction
	err       error
	text      string
	onExtract func()
}

func (s *stubExtractor) Extract(ctx context.Context, text string) (*extraction.Extraction, error) {
	s.text = text
	if s.onExtract != nil {
		s.onExtract()
	}
	return s.result, s.err
}

// stubExplainer returns a fixed explanation
type stubExplainer struct {
	result *explainer.Explanation
	err    error
	calls  int
	last   explainer.Request
}

func (s *stubExplainer) Explain(ctx context.Context, req explainer.Request) (*explainer.Explanation, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

// stubFetcher serves a fixed document
type stubFetcher struct {
	data        []byte
	contentType string
	err         error
	url         string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	s.url = url
	return s.data, s.contentType, s.err
}

var errBoom = errors.New("boom")
