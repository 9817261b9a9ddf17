package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusOpen     TaskStatus = "OPEN"
	TaskStatusDone     TaskStatus = "DONE"
	TaskStatusArchived TaskStatus = "ARCHIVED"
)

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "LOW"
	TaskPriorityMedium   TaskPriority = "MEDIUM"
	TaskPriorityHigh     TaskPriority = "HIGH"
	TaskPriorityCritical TaskPriority = "CRITICAL"
)

// ChecklistItem is one entry of a task checklist
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task represents a construction task within a project phase
type Task struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"project_id"`
	Title      string          `json:"title"`
	Status     TaskStatus      `json:"status"`
	Priority   TaskPriority    `json:"priority"`
	Phase      string          `json:"phase"`
	AssignedTo string          `json:"assigned_to,omitempty"`
	DueDate    time.Time       `json:"due_date"`
	CreatedAt  time.Time       `json:"created_at"`
	Checklist  []ChecklistItem `json:"checklist,omitempty"`
}

// NewTask creates a task
func NewTask(projectID, title, phase string, priority TaskPriority, dueDate time.Time) *Task {
	return &Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Status:    TaskStatusOpen,
		Priority:  priority,
		Phase:     phase,
		DueDate:   dueDate,
		CreatedAt: time.Now(),
	}
}

// Archived reports whether the task is excluded from scheduling and
// timeline derivation.
func (t *Task) Archived() bool {
	return t.Status == TaskStatusArchived
}

// Toggle flips the task between open and done
func (t *Task) Toggle() {
	if t.Status == TaskStatusDone {
		t.Status = TaskStatusOpen
	} else if t.Status == TaskStatusOpen {
		t.Status = TaskStatusDone
	}
}
