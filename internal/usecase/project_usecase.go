package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
	"github.com/siteledger/siteledger/pkg/apperror"
)

// ProjectSession is the per-load view of one project: the in-memory fact
// ledger plus the task mirror, kept current by the push feed until Close.
type ProjectSession struct {
	ProjectID string
	Ledger    *domain.Ledger

	mu    sync.RWMutex
	tasks []*domain.Task

	unsubscribe func()
}

// Tasks returns the current task mirror
func (s *ProjectSession) Tasks() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *ProjectSession) upsertTask(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tasks {
		if existing.ID == t.ID {
			s.tasks[i] = t
			return
		}
	}
	s.tasks = append(s.tasks, t)
}

// Close detaches the session from the push feed
func (s *ProjectSession) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// ProjectUseCase orchestrates project load: normalization, synthesis, the
// initial task schedule, cache refresh and feed subscription. Normalization
// and synthesis run once per explicit load, never on a timer.
type ProjectUseCase struct {
	store       ports.ProjectStore
	citations   ports.CitationRepository
	tasks       ports.TaskRepository
	cache       ports.SnapshotCache
	feed        ports.ChangeFeed
	synthesizer *Synthesizer
	scheduler   *PhaseScheduler
	coordinator *ChangeCoordinator
	analysis    ports.AnalysisService
	log         logger.Logger

	// analysisBusy guards double invocation of the long-running AI call.
	// There is no mid-flight cancellation; the flag is the only guard.
	analysisBusy sync.Map
}

// NewProjectUseCase creates the project orchestrator
func NewProjectUseCase(
	store ports.ProjectStore,
	citations ports.CitationRepository,
	tasks ports.TaskRepository,
	cache ports.SnapshotCache,
	feed ports.ChangeFeed,
	synthesizer *Synthesizer,
	scheduler *PhaseScheduler,
	coordinator *ChangeCoordinator,
	analysis ports.AnalysisService,
	log logger.Logger,
) *ProjectUseCase {
	return &ProjectUseCase{
		store:       store,
		citations:   citations,
		tasks:       tasks,
		cache:       cache,
		feed:        feed,
		synthesizer: synthesizer,
		scheduler:   scheduler,
		coordinator: coordinator,
		analysis:    analysis,
		log:         log,
	}
}

// Load reads the project, normalizes raw records into the fact ledger,
// fills gaps via synthesis, and generates the initial task schedule when
// the project has none. The cache is consulted only when the primary read
// returns an empty citation set or fails.
func (uc *ProjectUseCase) Load(ctx context.Context, projectID string) (*ProjectSession, error) {
	src, err := uc.store.ReadProject(ctx, projectID)
	if err != nil {
		return uc.loadFromCache(ctx, projectID, err)
	}

	citations := NormalizeRecords(src.RawRecords)
	if len(citations) == 0 {
		if cached := uc.readCache(ctx, projectID); len(cached) > 0 {
			citations = cached
		}
	}

	ledger := domain.NewLedger(projectID, citations)
	uc.synthesizer.Run(ctx, ledger, src)

	session := &ProjectSession{ProjectID: projectID, Ledger: ledger, tasks: src.Tasks}

	generated, err := uc.scheduler.GenerateIfEmpty(ctx, ledger, src)
	if err == nil {
		for _, t := range generated {
			session.upsertTask(t)
		}
	}

	uc.refreshCache(ctx, projectID, ledger)
	uc.subscribe(session)
	return session, nil
}

// loadFromCache serves a degraded, read-only view when the primary store is
// unavailable. Synthesis is skipped: there is no source data to derive from.
func (uc *ProjectUseCase) loadFromCache(ctx context.Context, projectID string, cause error) (*ProjectSession, error) {
	cached := uc.readCache(ctx, projectID)
	if len(cached) == 0 {
		return nil, apperror.SourceUnavailable("primary store read failed and cache is empty", cause)
	}
	uc.log.Warn(ctx, "serving project from cache", map[string]interface{}{
		"project_id": projectID, "citations": len(cached), "cause": cause.Error(),
	})
	return &ProjectSession{ProjectID: projectID, Ledger: domain.NewLedger(projectID, cached)}, nil
}

func (uc *ProjectUseCase) readCache(ctx context.Context, projectID string) []*domain.Citation {
	if uc.cache == nil {
		return nil
	}
	cached, err := uc.cache.ReadCitations(ctx, projectID)
	if err != nil {
		uc.log.Warn(ctx, "cache read failed", map[string]interface{}{
			"project_id": projectID, "error": err.Error(),
		})
		return nil
	}
	return cached
}

// refreshCache stores the post-synthesis citation set. A failure is logged
// and does not affect the load.
func (uc *ProjectUseCase) refreshCache(ctx context.Context, projectID string, ledger *domain.Ledger) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.WriteCitations(ctx, projectID, ledger.All()); err != nil {
		uc.log.Warn(ctx, "cache refresh failed", map[string]interface{}{
			"project_id": projectID, "error": err.Error(),
		})
	}
}

// subscribe attaches the session to the store's change feed. Handlers only
// update the in-memory mirror; they never re-trigger synthesis.
func (uc *ProjectUseCase) subscribe(session *ProjectSession) {
	if uc.feed == nil {
		return
	}
	unsub, err := uc.feed.Subscribe(session.ProjectID, func(event ports.ChangeEvent) {
		uc.applyEvent(session, event)
	})
	if err != nil {
		uc.log.Warn(context.Background(), "change feed subscription failed", map[string]interface{}{
			"project_id": session.ProjectID, "error": err.Error(),
		})
		return
	}
	session.unsubscribe = unsub
}

func (uc *ProjectUseCase) applyEvent(session *ProjectSession, event ports.ChangeEvent) {
	switch event.Table {
	case "citations":
		// Store rows carry the timestamp in a "ts" column.
		var row struct {
			domain.Citation
			TS time.Time `json:"ts"`
		}
		if err := json.Unmarshal(event.Payload, &row); err != nil {
			return
		}
		c := row.Citation
		if c.Timestamp.IsZero() {
			c.Timestamp = row.TS
		}
		session.Ledger.UpsertByID(&c)
	case "tasks":
		var t domain.Task
		if err := json.Unmarshal(event.Payload, &t); err != nil {
			return
		}
		session.upsertTask(&t)
	case "pending_changes":
		if uc.coordinator == nil {
			return
		}
		var change domain.PendingChange
		if err := json.Unmarshal(event.Payload, &change); err != nil {
			return
		}
		if uc.coordinator.ApplyEvent(&change) {
			uc.log.Info(context.Background(), "new pending change arrived", map[string]interface{}{
				"project_id": change.ProjectID, "change_id": change.ID,
			})
		}
	}
}

// EditCitation applies a user edit to a fact: same id, new answer/value.
// Edits require edit capability; the owner's read tier never implies write.
func (uc *ProjectUseCase) EditCitation(ctx context.Context, session *ProjectSession, actor Actor, editMode bool, citationID, answer string, value interface{}) error {
	if !domain.CanEdit(actor.Role, editMode) {
		return apperror.AuthorizationDenied("role cannot edit project facts")
	}
	if err := session.Ledger.UpdateByID(citationID, answer, value); err != nil {
		return err
	}
	if err := uc.citations.UpdateByID(ctx, session.ProjectID, citationID, answer, value); err != nil {
		return apperror.SourceUnavailable("failed to persist citation edit", err)
	}
	return nil
}

// ToggleTask flips a task's status for callers allowed to touch it
func (uc *ProjectUseCase) ToggleTask(ctx context.Context, session *ProjectSession, actor Actor, taskID string) (*domain.Task, error) {
	var target *domain.Task
	for _, t := range session.Tasks() {
		if t.ID == taskID {
			target = t
			break
		}
	}
	if target == nil {
		return nil, apperror.Validation("task not found")
	}
	if !domain.CanToggleTask(actor.Role, target, actor.UserID) {
		return nil, apperror.AuthorizationDenied("role cannot toggle this task")
	}
	target.Toggle()
	if err := uc.tasks.Update(ctx, target); err != nil {
		return nil, apperror.SourceUnavailable("failed to persist task toggle", err)
	}
	session.upsertTask(target)
	return target, nil
}

// Projection returns the read-only citation view for one screen: only the
// requested cite types, with financial facts stripped for non-owners.
func (uc *ProjectUseCase) Projection(session *ProjectSession, role domain.Role, screenKeys []domain.CiteType) []*domain.Citation {
	wanted := make(map[domain.CiteType]bool, len(screenKeys))
	for _, k := range screenKeys {
		wanted[k] = true
	}
	var out []*domain.Citation
	for _, c := range session.Ledger.All() {
		if !wanted[c.CiteType] {
			continue
		}
		if c.CiteType == domain.CiteTypeBudget && !domain.CanViewFinancials(role) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Analyze invokes the AI analysis service. A caller-side busy flag is the
// only guard against double invocation; there is no cancellation of an
// in-flight call.
func (uc *ProjectUseCase) Analyze(ctx context.Context, projectID, analysisType string, actor Actor) (*ports.InsightPayload, error) {
	if uc.analysis == nil {
		return nil, apperror.ExternalDegraded("analysis service unavailable", nil)
	}
	if _, busy := uc.analysisBusy.LoadOrStore(projectID, true); busy {
		return nil, apperror.Validation("analysis already in progress for project")
	}
	defer uc.analysisBusy.Delete(projectID)

	payload, err := uc.analysis.Invoke(ctx, projectID, analysisType, domain.TierOf(actor.Role))
	if err != nil {
		return nil, apperror.ExternalDegraded("analysis invocation failed", err)
	}
	if payload.Degraded {
		uc.log.Warn(ctx, "analysis returned degraded payload", map[string]interface{}{
			"project_id": projectID, "engines": payload.Engines,
		})
	}
	return payload, nil
}
