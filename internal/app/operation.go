package app

import (
	"time"

	"fdp-go/internal/fdp"
)

// Operation tracks one CLI command. Its ID tags every log line the
// command writes.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "running", "success" or "error"
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewOperation starts an operation with a fresh ID.
func NewOperation(ids fdp.IDGenerator, clock fdp.Clock, name, parameters string) *Operation {
	return &Operation{
		ID:         ids.New(),
		Name:       name,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  clock.Now(),
	}
}

// Finish records the outcome. Only the first call has an effect.
func (op *Operation) Finish(clock fdp.Clock, err error) {
	if op.Finished() {
		return
	}
	op.FinishedAt = clock.Now()
	if err != nil {
		op.Status = "error"
		return
	}
	op.Status = "success"
}

// Finished reports whether Finish has been called.
func (op *Operation) Finished() bool {
	return !op.FinishedAt.IsZero()
}

// Duration is the run time of a finished operation, or 0.
func (op *Operation) Duration() time.Duration {
	if !op.Finished() {
		return 0
	}
	return op.FinishedAt.Sub(op.StartedAt)
}
