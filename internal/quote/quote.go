// Package quote owns the lifecycle of print jobs and the quotes makers submit
// against them. The one hard invariant lives here: at most one quote per job
// is ever ACCEPTED, enforced by the database rather than by in-process locks.
package quote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/printbay/printbay/internal/mesh"
)

// JobStatus is the lifecycle state of a print job.
type JobStatus string

const (
	JobDraft      JobStatus = "DRAFT"
	JobSubmitted  JobStatus = "SUBMITTED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
)

// QuoteStatus is the lifecycle state of a single quote. ACCEPTED and REJECTED
// are terminal.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "PENDING"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

var (
	// ErrJobNotFound means no job exists with the given id.
	ErrJobNotFound = errors.New("quote: job not found")
	// ErrJobNotOpen means the job is not accepting quotes (not SUBMITTED).
	ErrJobNotOpen = errors.New("quote: job is not open for quotes")
	// ErrInvalidPrice means the quoted price is not strictly positive.
	ErrInvalidPrice = errors.New("quote: price must be positive")
	// ErrInvalidDeliveryDays means the delivery estimate is not a positive day count.
	ErrInvalidDeliveryDays = errors.New("quote: estimated delivery days must be positive")
	// ErrQuoteNotFound means the quote does not exist or belongs to another job.
	ErrQuoteNotFound = errors.New("quote: quote not found")
	// ErrAlreadyAccepted means another quote won the race for this job.
	ErrAlreadyAccepted = errors.New("quote: job already has an accepted quote")
	// ErrInvalidTransition means the operation is not permitted from the current state.
	ErrInvalidTransition = errors.New("quote: invalid state transition")
)

// Job is a creator's print request tracked through its status lifecycle.
// Measurement is the analyzer output of the most recent mesh upload, when one
// succeeded; jobs without a measurement are still fully workable.
type Job struct {
	ID              string            `json:"id"`
	CreatorID       string            `json:"creator_id"`
	Title           string            `json:"title"`
	Notes           string            `json:"notes,omitempty"`
	Status          JobStatus         `json:"status"`
	AcceptedQuoteID string            `json:"accepted_quote_id,omitempty"`
	Measurement     *mesh.Measurement `json:"measurement,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Quote is a maker's priced offer to fulfill a job.
type Quote struct {
	ID                    string          `json:"id"`
	JobID                 string          `json:"job_id"`
	MakerID               string          `json:"maker_id"`
	Price                 decimal.Decimal `json:"price"`
	Notes                 string          `json:"notes,omitempty"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days"`
	Status                QuoteStatus     `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
}
