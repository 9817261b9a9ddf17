package usecase

import (
	"context"
	"sync"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
)

// In-memory collaborators shared by the usecase tests.

type stubCitationRepo struct {
	mu        sync.Mutex
	inserted  []*domain.Citation
	updated   []string
	insertErr error
	updateErr error
	listed    []*domain.Citation
}

func (r *stubCitationRepo) List(_ context.Context, _ string) ([]*domain.Citation, error) {
	return r.listed, nil
}

func (r *stubCitationRepo) Upsert(_ context.Context, _ string, c *domain.Citation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, c)
	return nil
}

func (r *stubCitationRepo) InsertIfAbsent(_ context.Context, _ string, c *domain.Citation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, c)
	return nil
}

func (r *stubCitationRepo) UpdateByID(_ context.Context, _, id, _ string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, id)
	return nil
}

func (r *stubCitationRepo) insertedTypes() map[domain.CiteType]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.CiteType]int{}
	for _, c := range r.inserted {
		out[c.CiteType]++
	}
	return out
}

type stubTaskRepo struct {
	mu        sync.Mutex
	batches   [][]*domain.Task
	updates   []*domain.Task
	listed    []*domain.Task
	insertErr error
	updateErr error
}

func (r *stubTaskRepo) ListByProject(_ context.Context, _ string) ([]*domain.Task, error) {
	return r.listed, nil
}

func (r *stubTaskRepo) InsertBatch(_ context.Context, tasks []*domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.batches = append(r.batches, tasks)
	return nil
}

func (r *stubTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, task)
	return nil
}

type stubWeather struct {
	report *domain.WeatherReport
	err    error
	calls  int
}

func (w *stubWeather) Fetch(_ context.Context, _ string, _ int) (*domain.WeatherReport, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	return w.report, nil
}

type stubProjectStore struct {
	src *domain.ProjectSource
	err error
}

func (s *stubProjectStore) ReadProject(_ context.Context, _ string) (*domain.ProjectSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.src, nil
}

type stubCache struct {
	mu      sync.Mutex
	stored  map[string][]*domain.Citation
	readErr error
}

func newStubCache() *stubCache {
	return &stubCache{stored: map[string][]*domain.Citation{}}
}

func (c *stubCache) ReadCitations(_ context.Context, projectID string) ([]*domain.Citation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.stored[projectID], nil
}

func (c *stubCache) WriteCitations(_ context.Context, projectID string, citations []*domain.Citation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[projectID] = citations
	return nil
}

type stubAnalysis struct {
	payload *ports.InsightPayload
	err     error
	started chan struct{}
	block   chan struct{}
}

func (a *stubAnalysis) Invoke(_ context.Context, _, analysisType string, _ domain.AccessTier) (*ports.InsightPayload, error) {
	if a.started != nil {
		close(a.started)
		a.started = nil
	}
	if a.block != nil {
		<-a.block
	}
	if a.err != nil {
		return nil, a.err
	}
	if a.payload != nil {
		return a.payload, nil
	}
	return &ports.InsightPayload{AnalysisType: analysisType, Engines: []string{"stub"}}, nil
}
