package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/pkg/apperror"
)

func newTestUseCase(store ports.ProjectStore, citations *stubCitationRepo, tasks *stubTaskRepo, cache ports.SnapshotCache, analysis ports.AnalysisService) *ProjectUseCase {
	log := logger.NewNop()
	return NewProjectUseCase(
		store,
		citations,
		tasks,
		cache,
		nil,
		NewSynthesizer(citations, nil, log),
		NewPhaseScheduler(tasks, log),
		nil,
		analysis,
		log,
	)
}

func loadSource() *domain.ProjectSource {
	return &domain.ProjectSource{
		ProjectID: "proj-1",
		RawRecords: []domain.RawRecord{
			{"question_key": "gfa", "answer": "1200"},
			{"cite_type": "TIMELINE", "question_key": "start_date", "answer": "2024-03-01"},
			{"cite_type": "END_DATE", "question_key": "end_date", "answer": "2024-03-31"},
		},
	}
}

func TestProjectUseCase_Load(t *testing.T) {
	citations := &stubCitationRepo{}
	tasks := &stubTaskRepo{}
	cache := newStubCache()
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, citations, tasks, cache, nil)

	session, err := uc.Load(context.Background(), "proj-1")

	assert.NoError(t, err)
	assert.NotNil(t, session)

	// The legacy gfa record came through normalization, not rejection.
	gfa := session.Ledger.Get(domain.CiteTypeGFALock)
	assert.NotNil(t, gfa)
	assert.Equal(t, domain.ProvenanceLegacyMigrated, gfa.Provenance)

	// A project with dates and no tasks gets its initial schedule.
	assert.Len(t, session.Tasks(), 6)
	assert.Len(t, tasks.batches, 1)

	// The post-load citation set landed in the cache.
	cached, _ := cache.ReadCitations(context.Background(), "proj-1")
	assert.NotEmpty(t, cached)
}

func TestProjectUseCase_LoadFallsBackToCache(t *testing.T) {
	cache := newStubCache()
	cached := []*domain.Citation{domain.NewCitation(domain.CiteTypeProjectName, "project_name", "Harbor View", nil)}
	assert.NoError(t, cache.WriteCitations(context.Background(), "proj-1", cached))

	store := &stubProjectStore{err: errors.New("connection refused")}
	uc := newTestUseCase(store, &stubCitationRepo{}, &stubTaskRepo{}, cache, nil)

	session, err := uc.Load(context.Background(), "proj-1")

	assert.NoError(t, err)
	assert.True(t, session.Ledger.Snapshot().Has(domain.CiteTypeProjectName))
	// Degraded sessions never schedule tasks.
	assert.Empty(t, session.Tasks())
}

func TestProjectUseCase_LoadFailsWithoutCache(t *testing.T) {
	store := &stubProjectStore{err: errors.New("connection refused")}
	uc := newTestUseCase(store, &stubCitationRepo{}, &stubTaskRepo{}, newStubCache(), nil)

	_, err := uc.Load(context.Background(), "proj-1")

	assert.True(t, apperror.IsKind(err, apperror.KindSourceUnavailable))
}

func TestProjectUseCase_LoadEmptyPrimaryConsultsCache(t *testing.T) {
	cache := newStubCache()
	cached := []*domain.Citation{domain.NewCitation(domain.CiteTypeProjectName, "project_name", "Harbor View", nil)}
	assert.NoError(t, cache.WriteCitations(context.Background(), "proj-1", cached))

	store := &stubProjectStore{src: &domain.ProjectSource{ProjectID: "proj-1"}}
	uc := newTestUseCase(store, &stubCitationRepo{}, &stubTaskRepo{}, cache, nil)

	session, err := uc.Load(context.Background(), "proj-1")

	assert.NoError(t, err)
	assert.True(t, session.Ledger.Snapshot().Has(domain.CiteTypeProjectName))
}

func TestProjectUseCase_EditCitation(t *testing.T) {
	citations := &stubCitationRepo{}
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, citations, &stubTaskRepo{}, nil, nil)

	c := domain.NewCitation(domain.CiteTypeBudget, "budget", "USD 100.00", 100.0)
	session := &ProjectSession{ProjectID: "proj-1", Ledger: domain.NewLedger("proj-1", []*domain.Citation{c})}

	// Worker-class roles cannot edit at all.
	err := uc.EditCitation(context.Background(), session, Actor{UserID: "u", Role: domain.RoleWorker}, true, c.ID, "USD 120.00", 120.0)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorizationDenied))

	// Owner view access does not imply write access.
	err = uc.EditCitation(context.Background(), session, Actor{UserID: "u", Role: domain.RoleOwner}, false, c.ID, "USD 120.00", 120.0)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorizationDenied))

	err = uc.EditCitation(context.Background(), session, Actor{UserID: "u", Role: domain.RoleForeman}, false, c.ID, "USD 120.00", 120.0)
	assert.NoError(t, err)
	assert.Equal(t, "USD 120.00", session.Ledger.GetByID(c.ID).Answer)
	assert.Equal(t, []string{c.ID}, citations.updated)
}

func TestProjectUseCase_EditCitationPersistFailure(t *testing.T) {
	citations := &stubCitationRepo{updateErr: errors.New("write timeout")}
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, citations, &stubTaskRepo{}, nil, nil)

	c := domain.NewCitation(domain.CiteTypeBudget, "budget", "USD 100.00", 100.0)
	session := &ProjectSession{ProjectID: "proj-1", Ledger: domain.NewLedger("proj-1", []*domain.Citation{c})}

	err := uc.EditCitation(context.Background(), session, Actor{UserID: "u", Role: domain.RoleForeman}, false, c.ID, "USD 120.00", 120.0)

	assert.True(t, apperror.IsKind(err, apperror.KindSourceUnavailable))
}

func TestProjectUseCase_ToggleTask(t *testing.T) {
	tasks := &stubTaskRepo{}
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, &stubCitationRepo{}, tasks, nil, nil)

	assigned := &domain.Task{ID: "t-1", ProjectID: "proj-1", Status: domain.TaskStatusOpen, AssignedTo: "user-worker"}
	other := &domain.Task{ID: "t-2", ProjectID: "proj-1", Status: domain.TaskStatusOpen, AssignedTo: "user-other"}
	session := &ProjectSession{ProjectID: "proj-1", Ledger: domain.NewLedger("proj-1", nil)}
	session.upsertTask(assigned)
	session.upsertTask(other)

	worker := Actor{UserID: "user-worker", Role: domain.RoleWorker}

	toggled, err := uc.ToggleTask(context.Background(), session, worker, "t-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, toggled.Status)
	assert.Len(t, tasks.updates, 1)

	_, err = uc.ToggleTask(context.Background(), session, worker, "t-2")
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorizationDenied))

	_, err = uc.ToggleTask(context.Background(), session, worker, "missing")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestProjectUseCase_ProjectionStripsFinancials(t *testing.T) {
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, &stubCitationRepo{}, &stubTaskRepo{}, nil, nil)

	session := &ProjectSession{ProjectID: "proj-1", Ledger: domain.NewLedger("proj-1", []*domain.Citation{
		domain.NewCitation(domain.CiteTypeProjectName, "project_name", "Harbor View", nil),
		domain.NewCitation(domain.CiteTypeBudget, "budget", "USD 250000.00", 250000.0),
	})}
	keys := []domain.CiteType{domain.CiteTypeProjectName, domain.CiteTypeBudget}

	forOwner := uc.Projection(session, domain.RoleOwner, keys)
	assert.Len(t, forOwner, 2)

	forForeman := uc.Projection(session, domain.RoleForeman, keys)
	assert.Len(t, forForeman, 1)
	assert.Equal(t, domain.CiteTypeProjectName, forForeman[0].CiteType)
}

func TestProjectUseCase_AnalyzeBusyFlag(t *testing.T) {
	analysis := &stubAnalysis{started: make(chan struct{}), block: make(chan struct{})}
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, &stubCitationRepo{}, &stubTaskRepo{}, nil, analysis)
	actor := Actor{UserID: "user-owner", Role: domain.RoleOwner}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := uc.Analyze(context.Background(), "proj-1", "progress", actor)
		assert.NoError(t, err)
	}()

	<-analysis.started
	_, err := uc.Analyze(context.Background(), "proj-1", "progress", actor)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "a second invocation while busy is refused")

	close(analysis.block)
	<-done

	// The flag clears once the call returns.
	_, err = uc.Analyze(context.Background(), "proj-1", "progress", actor)
	assert.NoError(t, err)
}

func TestProjectUseCase_AnalyzeFailureWrapped(t *testing.T) {
	analysis := &stubAnalysis{err: errors.New("model overloaded")}
	uc := newTestUseCase(&stubProjectStore{src: loadSource()}, &stubCitationRepo{}, &stubTaskRepo{}, nil, analysis)

	_, err := uc.Analyze(context.Background(), "proj-1", "progress", Actor{UserID: "u", Role: domain.RoleOwner})

	assert.True(t, apperror.IsKind(err, apperror.KindExternalDegraded))
}
