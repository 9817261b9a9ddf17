package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/siteledger/siteledger/internal/domain"
	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// PhaseSpec is one construction phase with its relative duration weight and
// the priority of its work task.
type PhaseSpec struct {
	Name         string
	Weight       float64
	WorkPriority domain.TaskPriority
}

var allPhases = []PhaseSpec{
	{Name: "Demolition", Weight: 15, WorkPriority: domain.TaskPriorityHigh},
	{Name: "Preparation", Weight: 25, WorkPriority: domain.TaskPriorityMedium},
	{Name: "Installation", Weight: 45, WorkPriority: domain.TaskPriorityHigh},
	{Name: "Finishing & QC", Weight: 15, WorkPriority: domain.TaskPriorityMedium},
}

// PhasePlan is one scheduled phase laid out on the project timeline
type PhasePlan struct {
	Spec  PhaseSpec
	Days  int
	Start time.Time
	End   time.Time
}

// PlanPhases selects phases for the window [start, end] and allocates days
// proportionally. Demolition is omitted and the remaining weights
// renormalized when hasDemolition is false. Every phase gets at least one
// day; phases are laid out sequentially with a running cursor.
func PlanPhases(start, end time.Time, hasDemolition bool) []PhasePlan {
	specs := allPhases
	if !hasDemolition {
		specs = allPhases[1:]
	}
	var totalWeight float64
	for _, p := range specs {
		totalWeight += p.Weight
	}

	totalDays := int(math.Round(end.Sub(start).Hours() / 24))
	if totalDays < 1 {
		totalDays = 1
	}

	plans := make([]PhasePlan, 0, len(specs))
	cursor := start
	for _, spec := range specs {
		days := int(math.Round(spec.Weight / totalWeight * float64(totalDays)))
		if days < 1 {
			days = 1
		}
		phaseEnd := cursor.AddDate(0, 0, days)
		plans = append(plans, PhasePlan{Spec: spec, Days: days, Start: cursor, End: phaseEnd})
		cursor = phaseEnd
	}
	return plans
}

// PlanTasks yields exactly two tasks per phase: the phase-work task with the
// per-phase priority and a verification task that is always critical, both
// due at the phase's end date.
func PlanTasks(projectID string, plans []PhasePlan) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(plans)*2)
	for _, plan := range plans {
		work := domain.NewTask(projectID, plan.Spec.Name, plan.Spec.Name, plan.Spec.WorkPriority, plan.End)
		verify := domain.NewTask(projectID, plan.Spec.Name+" Verification", plan.Spec.Name, domain.TaskPriorityCritical, plan.End)
		tasks = append(tasks, work, verify)
	}
	return tasks
}

// PhaseScheduler generates the initial task set for projects that load with
// no tasks.
type PhaseScheduler struct {
	tasks ports.TaskRepository
	log   logger.Logger
}

// NewPhaseScheduler creates a phase scheduler
func NewPhaseScheduler(tasks ports.TaskRepository, log logger.Logger) *PhaseScheduler {
	return &PhaseScheduler{tasks: tasks, log: log}
}

// GenerateIfEmpty fires only when the project has zero non-archived tasks
// and both a start and end date are resolvable from the ledger (or the
// financial-summary fallback). The batch is inserted once; a persistence
// failure yields zero tasks for this load attempt, with no partial insert
// and no automatic retry.
func (s *PhaseScheduler) GenerateIfEmpty(ctx context.Context, ledger *domain.Ledger, src *domain.ProjectSource) ([]*domain.Task, error) {
	for _, t := range src.Tasks {
		if !t.Archived() {
			return nil, nil
		}
	}

	start, ok := ledgerDate(ledger, domain.CiteTypeTimeline)
	if !ok {
		return nil, nil
	}
	end, ok := ledgerDate(ledger, domain.CiteTypeEndDate)
	if !ok && src.Financial != nil && src.Financial.TargetEnd != nil {
		end, ok = *src.Financial.TargetEnd, true
	}
	if !ok || !end.After(start) {
		return nil, nil
	}

	plans := PlanPhases(start, end, hasDemolition(ledger))
	batch := PlanTasks(src.ProjectID, plans)

	if err := s.tasks.InsertBatch(ctx, batch); err != nil {
		s.log.Error(ctx, "initial task batch insert failed", err, map[string]interface{}{
			"project_id": src.ProjectID, "tasks": len(batch),
		})
		return nil, err
	}

	s.log.Info(ctx, "generated initial task set", map[string]interface{}{
		"project_id": src.ProjectID, "phases": len(plans), "tasks": len(batch),
	})
	return batch, nil
}

// hasDemolition derives the demolition flag from the site-condition fact
func hasDemolition(ledger *domain.Ledger) bool {
	c := ledger.Get(domain.CiteTypeSiteCondition)
	if c == nil {
		return false
	}
	return strings.Contains(strings.ToLower(c.Answer), "demolition")
}

func ledgerDate(ledger *domain.Ledger, citeType domain.CiteType) (time.Time, bool) {
	c := ledger.Get(citeType)
	if c == nil {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, c.Answer); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
