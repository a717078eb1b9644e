package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printbay/printbay/internal/mesh"
)

// Manager runs every job/quote state transition against sqlite. All
// multi-row updates happen inside one transaction, and the accept path is
// serialized by a conditional update on the job's current status, so two
// racing accepts can never both win.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// CreateJob inserts a new DRAFT job owned by creatorID.
func (m *Manager) CreateJob(ctx context.Context, creatorID, title, notes string) (Job, error) {
	if creatorID == "" {
		return Job{}, fmt.Errorf("create job: creator id is required")
	}

	job := Job{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Title:     title,
		Notes:     notes,
		Status:    JobDraft,
		CreatedAt: time.Now().UTC(),
	}
	job.UpdatedAt = job.CreatedAt

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO jobs (id, creator_id, title, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.CreatorID, job.Title, job.Notes, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

// SubmitJob opens a DRAFT job for quotes (DRAFT -> SUBMITTED).
func (m *Manager) SubmitJob(ctx context.Context, jobID string) (Job, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, JobSubmitted, time.Now().UTC(), jobID, JobDraft)
	if err != nil {
		return Job{}, fmt.Errorf("submit job: %w", err)
	}
	if err := m.requireTransition(ctx, m.db, result, jobID); err != nil {
		return Job{}, err
	}

	return m.GetJob(ctx, jobID)
}

// AttachMeasurement records the analyzer output of a mesh upload. Each upload
// inserts a fresh immutable row; the most recent one is the job's displayed
// measurement.
func (m *Manager) AttachMeasurement(ctx context.Context, jobID string, meas mesh.Measurement) error {
	var exists bool
	if err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE id = ?)`, jobID).Scan(&exists); err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO measurements (id, job_id, width_mm, depth_mm, height_mm, volume_mm3, triangle_count, valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), jobID,
		meas.WidthMM, meas.DepthMM, meas.HeightMM, meas.VolumeMM3,
		meas.TriangleCount, meas.Valid, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// SubmitQuote creates a PENDING quote against an open job. The insert itself
// is guarded on job status so a concurrent cancel cannot slip a quote into a
// closed job.
func (m *Manager) SubmitQuote(ctx context.Context, jobID, makerID string, price decimal.Decimal, notes string, estimatedDeliveryDays int) (Quote, error) {
	if makerID == "" {
		return Quote{}, fmt.Errorf("submit quote: maker id is required")
	}
	if !price.IsPositive() {
		return Quote{}, ErrInvalidPrice
	}
	if estimatedDeliveryDays <= 0 {
		return Quote{}, ErrInvalidDeliveryDays
	}

	q := Quote{
		ID:                    uuid.NewString(),
		JobID:                 jobID,
		MakerID:               makerID,
		Price:                 price,
		Notes:                 notes,
		EstimatedDeliveryDays: estimatedDeliveryDays,
		Status:                QuotePending,
		CreatedAt:             time.Now().UTC(),
	}

	result, err := m.db.ExecContext(ctx, `
		INSERT INTO quotes (id, job_id, maker_id, price, notes, delivery_days, status, created_at)
		SELECT ?, id, ?, ?, ?, ?, ?, ?
		FROM jobs
		WHERE id = ? AND status = ?
	`, q.ID, q.MakerID, q.Price.String(), q.Notes, q.EstimatedDeliveryDays, q.Status, q.CreatedAt,
		jobID, JobSubmitted)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := m.jobStatus(ctx, m.db, jobID); err != nil {
			return Quote{}, err
		}
		return Quote{}, ErrJobNotOpen
	}

	return q, nil
}

// AcceptQuote marks exactly one quote as the winner. The serializing step is
// the conditional update of the job row keyed on its current status: whichever
// transaction flips SUBMITTED -> IN_PROGRESS first wins, every later attempt
// sees zero affected rows and fails with ErrAlreadyAccepted. The quote flip
// and the rejection of the remaining PENDING quotes commit atomically with it.
func (m *Manager) AcceptQuote(ctx context.Context, jobID, quoteID string) (Job, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, fmt.Errorf("begin accept transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, accepted_quote_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, JobInProgress, quoteID, now, jobID, JobSubmitted)
	if err != nil {
		return Job{}, fmt.Errorf("transition job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Job{}, fmt.Errorf("transition job rows affected: %w", err)
	}
	if affected == 0 {
		status, err := m.jobStatus(ctx, tx, jobID)
		if err != nil {
			return Job{}, err
		}
		switch status {
		case JobInProgress, JobCompleted:
			return Job{}, ErrAlreadyAccepted
		default:
			return Job{}, ErrJobNotOpen
		}
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?
		WHERE id = ? AND job_id = ? AND status = ?
	`, QuoteAccepted, quoteID, jobID, QuotePending)
	if err != nil {
		return Job{}, fmt.Errorf("accept quote: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return Job{}, fmt.Errorf("accept quote rows affected: %w", err)
	}
	if affected == 0 {
		var status QuoteStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM quotes WHERE id = ? AND job_id = ?`, quoteID, jobID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrQuoteNotFound
		}
		if err != nil {
			return Job{}, fmt.Errorf("inspect quote: %w", err)
		}
		return Job{}, ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?
		WHERE job_id = ? AND status = ?
	`, QuoteRejected, jobID, QuotePending); err != nil {
		return Job{}, fmt.Errorf("reject remaining quotes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Job{}, fmt.Errorf("commit accept transaction: %w", err)
	}

	return m.GetJob(ctx, jobID)
}

// CancelJob stops a job from SUBMITTED or IN_PROGRESS. PENDING quotes are
// rejected; an already-ACCEPTED quote keeps its status as the historical
// record of the maker's commitment.
func (m *Manager) CancelJob(ctx context.Context, jobID string) (Job, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, JobCancelled, time.Now().UTC(), jobID, JobSubmitted, JobInProgress)
	if err != nil {
		return Job{}, fmt.Errorf("cancel job: %w", err)
	}
	if err := m.requireTransition(ctx, tx, result, jobID); err != nil {
		return Job{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?
		WHERE job_id = ? AND status = ?
	`, QuoteRejected, jobID, QuotePending); err != nil {
		return Job{}, fmt.Errorf("reject pending quotes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Job{}, fmt.Errorf("commit cancel transaction: %w", err)
	}

	return m.GetJob(ctx, jobID)
}

// CompleteJob finishes a job (IN_PROGRESS -> COMPLETED).
func (m *Manager) CompleteJob(ctx context.Context, jobID string) (Job, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, JobCompleted, time.Now().UTC(), jobID, JobInProgress)
	if err != nil {
		return Job{}, fmt.Errorf("complete job: %w", err)
	}
	if err := m.requireTransition(ctx, m.db, result, jobID); err != nil {
		return Job{}, err
	}

	return m.GetJob(ctx, jobID)
}

// GetJob loads a job with its most recent measurement, when one exists.
func (m *Manager) GetJob(ctx context.Context, jobID string) (Job, error) {
	var (
		job      Job
		accepted sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, creator_id, title, COALESCE(notes, ''), status, accepted_quote_id, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`, jobID).Scan(&job.ID, &job.CreatorID, &job.Title, &job.Notes, &job.Status, &accepted, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("query job: %w", err)
	}
	if accepted.Valid {
		job.AcceptedQuoteID = accepted.String
	}

	var meas mesh.Measurement
	err = m.db.QueryRowContext(ctx, `
		SELECT width_mm, depth_mm, height_mm, volume_mm3, triangle_count, valid
		FROM measurements
		WHERE job_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, jobID).Scan(&meas.WidthMM, &meas.DepthMM, &meas.HeightMM, &meas.VolumeMM3, &meas.TriangleCount, &meas.Valid)
	if err == nil {
		job.Measurement = &meas
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("query measurement: %w", err)
	}

	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (m *Manager) ListJobs(ctx context.Context, status JobStatus) ([]Job, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, creator_id, title, COALESCE(notes, ''), status, accepted_quote_id, created_at, updated_at
		FROM jobs
		WHERE (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
	`, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var (
			job      Job
			accepted sql.NullString
		)
		if err := rows.Scan(&job.ID, &job.CreatorID, &job.Title, &job.Notes, &job.Status, &accepted, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if accepted.Valid {
			job.AcceptedQuoteID = accepted.String
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// ListQuotes returns a job's quotes oldest first.
func (m *Manager) ListQuotes(ctx context.Context, jobID string) ([]Quote, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, job_id, maker_id, price, COALESCE(notes, ''), delivery_days, status, created_at
		FROM quotes
		WHERE job_id = ?
		ORDER BY created_at ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		var (
			q     Quote
			price string
		)
		if err := rows.Scan(&q.ID, &q.JobID, &q.MakerID, &price, &q.Notes, &q.EstimatedDeliveryDays, &q.Status, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse quote price %q: %w", price, err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

// GetQuote loads a single quote.
func (m *Manager) GetQuote(ctx context.Context, quoteID string) (Quote, error) {
	var (
		q     Quote
		price string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, job_id, maker_id, price, COALESCE(notes, ''), delivery_days, status, created_at
		FROM quotes
		WHERE id = ?
	`, quoteID).Scan(&q.ID, &q.JobID, &q.MakerID, &price, &q.Notes, &q.EstimatedDeliveryDays, &q.Status, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrQuoteNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("query quote: %w", err)
	}
	q.Price, err = decimal.NewFromString(price)
	if err != nil {
		return Quote{}, fmt.Errorf("parse quote price %q: %w", price, err)
	}
	return q, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *Manager) jobStatus(ctx context.Context, q querier, jobID string) (JobStatus, error) {
	var status JobStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("inspect job: %w", err)
	}
	return status, nil
}

// requireTransition turns a zero-row conditional update into the right
// sentinel: missing job or a state that does not permit the operation.
func (m *Manager) requireTransition(ctx context.Context, q querier, result sql.Result, jobID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := m.jobStatus(ctx, q, jobID); err != nil {
		return err
	}
	return ErrInvalidTransition
}
