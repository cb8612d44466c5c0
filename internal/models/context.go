package models

import (
	"time"

	"github.com/google/uuid"
)

// CalculationStatus tracks the lifecycle of one calculation request.
type CalculationStatus string

const (
	StatusPending    CalculationStatus = "pending"
	StatusInProgress CalculationStatus = "in_progress"
	StatusCompleted  CalculationStatus = "completed"
	StatusFailed     CalculationStatus = "failed"
	StatusCancelled  CalculationStatus = "cancelled"
)

// CalculationKind names the calculation a context belongs to.
type CalculationKind string

const (
	KindAnnual  CalculationKind = "annual"
	KindHistory CalculationKind = "history"
)

// CalculationContext describes one calculation request for logging.
type CalculationContext struct {
	ID          string            `json:"id"`
	Kind        CalculationKind   `json:"kind"`
	Code        string            `json:"code,omitempty"`
	Year        int               `json:"year,omitempty"`
	Status      CalculationStatus `json:"status"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
}

// NewCalculationContext creates a pending context with a fresh ID.
func NewCalculationContext(kind CalculationKind, code string, year int) *CalculationContext {
	return &CalculationContext{
		ID:        uuid.New().String(),
		Kind:      kind,
		Code:      code,
		Year:      year,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Start moves the context to in_progress.
func (c *CalculationContext) Start() {
	c.Status = StatusInProgress
	c.StartedAt = time.Now()
}

// Finish moves the context to completed or failed depending on err.
func (c *CalculationContext) Finish(err error) {
	c.CompletedAt = time.Now()
	if err != nil {
		c.Status = StatusFailed
		c.Error = err.Error()
		return
	}
	c.Status = StatusCompleted
}

// Cancel marks the context cancelled.
func (c *CalculationContext) Cancel() {
	c.CompletedAt = time.Now()
	c.Status = StatusCancelled
}

// Duration is the elapsed time between start and completion, or zero if unfinished.
func (c *CalculationContext) Duration() time.Duration {
	if c.StartedAt.IsZero() || c.CompletedAt.IsZero() {
		return 0
	}
	return c.CompletedAt.Sub(c.StartedAt)
}

// FilterCriteria selects a subset of a transaction list.
// Zero values disable a criterion.
type FilterCriteria struct {
	InvestmentType InvestmentType `json:"investment_type,omitempty"`
	Code           string         `json:"code,omitempty"`
	Year           int            `json:"year,omitempty"`
	BeforeYear     int            `json:"before_year,omitempty"`
	From           time.Time      `json:"from,omitempty"`
	To             time.Time      `json:"to,omitempty"`
}
