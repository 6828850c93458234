package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateJob inserts a new job in `queued` with current=0, the mode's
// initial stage, and message "Queued".
func (s *Store) CreateJob(ctx context.Context, in CreateJobInput) (*Job, error) {
	job := &Job{
		ID:           uuid.NewString(),
		Mode:         in.Mode,
		GenerationID: in.GenerationID,
		Region:       in.Region,
		Voice:        in.Voice,
		PokemonIDs:   IntList(in.PokemonIDs),
		Total:        len(in.PokemonIDs),
		Current:      0,
		Stage:        InitialStage(in.Mode),
		Status:       StatusQueued,
		Message:      "Queued",
	}

	const query = `
		INSERT INTO jobs (id, mode, generation_id, region, voice, pokemon_ids, total, current, stage, status, message)
		VALUES (:id, :mode, :generation_id, :region, :voice, :pokemon_ids, :total, :current, :stage, :status, :message)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("create job: scan timestamps: %w", err)
		}
	}

	return job, nil
}

// GetJob reads a single job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := s.db.GetContext(ctx, &j, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &j, nil
}

// ClaimNextQueuedJob atomically selects the oldest queued job, flips it
// to running, clears cooldown_until, and returns the updated row. Returns
// (nil, nil) if no queued job exists. FOR UPDATE SKIP LOCKED gives
// linearizable claims without blocking other concurrent claimers.
func (s *Store) ClaimNextQueuedJob(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim next queued job: begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.GetContext(ctx, &id, `
		SELECT id FROM jobs WHERE status = $1
		ORDER BY created_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED`, StatusQueued)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next queued job: select: %w", err)
	}

	var j Job
	err = tx.GetContext(ctx, &j, `
		UPDATE jobs SET status = $1, cooldown_until = NULL, updated_at = now()
		WHERE id = $2
		RETURNING *`, StatusRunning, id)
	if err != nil {
		return nil, fmt.Errorf("claim next queued job: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim next queued job: commit: %w", err)
	}
	return &j, nil
}

// SetJobProgress updates stage, current, total, and message.
func (s *Store) SetJobProgress(ctx context.Context, id string, stage Stage, current, total int, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET stage = $1, current = $2, total = $3, message = $4, updated_at = now()
		WHERE id = $5`, stage, current, total, message, id)
	if err != nil {
		return fmt.Errorf("set job progress %s: %w", id, err)
	}
	return nil
}

// SetJobCooldownUntil sets or clears (ts == nil) the job's cooldown.
func (s *Store) SetJobCooldownUntil(ctx context.Context, id string, ts *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET cooldown_until = $1, updated_at = now() WHERE id = $2`, ts, id)
	if err != nil {
		return fmt.Errorf("set job cooldown %s: %w", id, err)
	}
	return nil
}

// legalTransitions enumerates the legal (from, to) status pairs per
// spec.md §4.1. "any non-terminal -> failed" is handled separately in
// SetJobStatus rather than enumerated here.
var legalTransitions = map[Status]map[Status]bool{
	StatusQueued: {StatusRunning: true},
	// Running -> Queued covers the scheduler requeuing a job that it
	// claimed while that job's own stage was already at its concurrency cap.
	StatusRunning: {StatusQueued: true, StatusPaused: true, StatusCanceled: true, StatusCompleted: true},
	StatusPaused:  {StatusQueued: true, StatusCanceled: true},
}

// SetJobStatus transitions a job's status, enforcing the legal
// transitions spec.md §4.1 lists. Clears cooldown_until on any
// transition out of running, matching the job invariant.
func (s *Store) SetJobStatus(ctx context.Context, id string, to Status) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set job status %s: begin tx: %w", id, err)
	}
	defer tx.Rollback()

	var current Status
	if err := tx.GetContext(ctx, &current, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("set job status %s: read current: %w", id, err)
	}

	legal := to == StatusFailed && !current.Terminal()
	if !legal && legalTransitions[current] != nil {
		legal = legalTransitions[current][to]
	}
	if !legal {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, to)
	}

	clearsCooldown := current == StatusRunning
	if clearsCooldown {
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET status = $1, cooldown_until = NULL, updated_at = now() WHERE id = $2`, to, id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET status = $1, updated_at = now() WHERE id = $2`, to, id)
	}
	if err != nil {
		return fmt.Errorf("set job status %s: update: %w", id, err)
	}

	return tx.Commit()
}

// SetJobError sets status=failed and records the error message.
func (s *Store) SetJobError(ctx context.Context, id string, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, error = $2, cooldown_until = NULL, updated_at = now()
		WHERE id = $3`, StatusFailed, msg, id)
	if err != nil {
		return fmt.Errorf("set job error %s: %w", id, err)
	}
	return nil
}

// PauseJob transitions a running job to paused.
func (s *Store) PauseJob(ctx context.Context, id string) error {
	return s.SetJobStatus(ctx, id, StatusPaused)
}

// ResumeJob transitions a paused job back to queued.
func (s *Store) ResumeJob(ctx context.Context, id string) error {
	return s.SetJobStatus(ctx, id, StatusQueued)
}

// CancelJob transitions a running or paused job to canceled.
func (s *Store) CancelJob(ctx context.Context, id string) error {
	return s.SetJobStatus(ctx, id, StatusCanceled)
}

// RecoverStalledJobs flips every running job whose updated_at is older
// than now - threshold back to queued, clearing cooldown and setting
// message to "Recovered". Returns the count affected.
func (s *Store) RecoverStalledJobs(ctx context.Context, threshold time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, cooldown_until = NULL, message = 'Recovered', updated_at = now()
		WHERE status = $2 AND updated_at < now() - $3::interval`,
		StatusQueued, StatusRunning, fmt.Sprintf("%d milliseconds", threshold.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("recover stalled jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover stalled jobs: rows affected: %w", err)
	}
	return int(n), nil
}

// PauseAllJobs pauses every job in a non-terminal status. Returns the
// count affected.
func (s *Store) PauseAllJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, cooldown_until = NULL, updated_at = now()
		WHERE status IN ($2, $3)`, StatusPaused, StatusQueued, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("pause all jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CancelAllJobs cancels every job in a non-terminal status. Returns the
// count affected.
func (s *Store) CancelAllJobs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, cooldown_until = NULL, updated_at = now()
		WHERE status IN ($2, $3, $4)`, StatusCanceled, StatusQueued, StatusRunning, StatusPaused)
	if err != nil {
		return 0, fmt.Errorf("cancel all jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountRunningByStage counts jobs currently running in the given stage,
// used by the scheduler to enforce per-stage concurrency caps.
func (s *Store) CountRunningByStage(ctx context.Context, stage Stage) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT count(*) FROM jobs WHERE status = $1 AND stage = $2`, StatusRunning, stage)
	if err != nil {
		return 0, fmt.Errorf("count running by stage: %w", err)
	}
	return n, nil
}
