// Package engine runs the durable job pipeline: a scheduler claims
// queued jobs and executes their stages, enforcing per-stage
// concurrency caps, cooldown pacing, and pause/resume/cancel semantics
// driven entirely through the Store (spec.md §4.6).
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apresai/fieldlog/internal/catalog"
	"github.com/apresai/fieldlog/internal/config"
	"github.com/apresai/fieldlog/internal/observability"
	"github.com/apresai/fieldlog/internal/providers"
	"github.com/apresai/fieldlog/internal/store"
)

// Runner holds everything a job's stage workers need: the store, the
// two upstream provider clients, and the tunables that bound
// concurrency and batching.
type Runner struct {
	store   *store.Store
	catalog catalog.Client
	text    providers.TextGenerator
	tts     providers.TTSGenerator
	cfg     *config.Config
	log     *slog.Logger

	baseCtx context.Context

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	stop      context.CancelFunc
}

// NewRunner builds a Runner. baseCtx should be cancelled on shutdown so
// in-flight job goroutines observe it and return promptly.
func NewRunner(baseCtx context.Context, s *store.Store, cat catalog.Client, text providers.TextGenerator, tts providers.TTSGenerator, cfg *config.Config, log *slog.Logger) *Runner {
	return &Runner{
		store:   s,
		catalog: cat,
		text:    text,
		tts:     tts,
		cfg:     cfg,
		log:     log,
		baseCtx: baseCtx,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches the scheduler's tick loop exactly once per process;
// subsequent calls are no-ops. The loop must never be started from an
// HTTP handler — callers start it once at process boot.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(r.baseCtx)
		r.stop = cancel
		go r.loop(ctx)
	})
}

// Stop cancels the scheduler loop and every in-flight job goroutine.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		if r.stop != nil {
			r.stop()
		}

		r.mu.Lock()
		for _, cancel := range r.cancels {
			cancel()
		}
		r.mu.Unlock()
	})
}

func (r *Runner) loop(ctx context.Context) {
	tick := time.Duration(r.cfg.SchedulerTickMillis) * time.Millisecond
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	stalled := time.Duration(r.cfg.StalledThresholdMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.store.RecoverStalledJobs(ctx, stalled); err != nil {
				r.log.ErrorContext(ctx, "recover stalled jobs failed", "error", err)
			} else if n > 0 {
				r.log.InfoContext(ctx, "recovered stalled jobs", "count", n)
			}
			r.claimAndDispatch(ctx)
		}
	}
}

// claimAndDispatch claims at most one queued job per tick and, if its
// stage is under its concurrency cap, starts a goroutine to run it.
// Nothing is claimed while both stages are at their caps. A job whose
// own stage is over cap at claim time (its stage filled up after the
// pre-claim count, or it is full while the other stage has room) is
// returned to queued rather than blocked in memory, per spec.md §4.6
// step 4.
func (r *Runner) claimAndDispatch(ctx context.Context) {
	textRunning, err := r.store.CountRunningByStage(ctx, store.StageSummary)
	if err != nil {
		r.log.ErrorContext(ctx, "count running by stage failed", "error", err)
		return
	}
	audioRunning, err := r.store.CountRunningByStage(ctx, store.StageAudio)
	if err != nil {
		r.log.ErrorContext(ctx, "count running by stage failed", "error", err)
		return
	}
	if textRunning >= r.cfg.MaxTextJobs && audioRunning >= r.cfg.MaxAudioJobs {
		return
	}

	job, err := r.store.ClaimNextQueuedJob(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, "claim next queued job failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	limit := r.capFor(job.Stage)
	running, err := r.store.CountRunningByStage(ctx, job.Stage)
	if err != nil {
		r.log.ErrorContext(ctx, "count running by stage failed", "error", err, "job_id", job.ID)
		return
	}
	// running already counts this job (it was just flipped to running by
	// the claim), so the cap check is against running-1 active peers.
	if running-1 >= limit {
		if rerr := r.store.SetJobStatus(ctx, job.ID, store.StatusQueued); rerr != nil {
			r.log.ErrorContext(ctx, "requeue over-cap job failed", "error", rerr, "job_id", job.ID)
		}
		return
	}

	jobCtx := observability.DetachTraceContextFrom(ctx, r.baseCtx)
	jobCtx, cancel := context.WithCancel(jobCtx)

	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	go r.runJob(jobCtx, job)
}

func (r *Runner) capFor(stage store.Stage) int {
	if stage == store.StageAudio {
		return r.cfg.MaxAudioJobs
	}
	return r.cfg.MaxTextJobs
}

// runJob drives a claimed job through its remaining stages to a
// terminal outcome, or until paused/canceled.
func (r *Runner) runJob(ctx context.Context, job *store.Job) {
	defer func() {
		r.mu.Lock()
		delete(r.cancels, job.ID)
		r.mu.Unlock()
	}()

	log := r.log.With("job_id", job.ID, "mode", job.Mode)

	if job.Stage == store.StageSummary {
		res, err := r.runSummaryStage(ctx, job)
		switch res {
		case ResultPaused, ResultCanceled:
			return
		}
		if err != nil {
			log.ErrorContext(ctx, "summary stage failed", "error", err)
			r.fail(ctx, job.ID, err)
			return
		}

		if job.Mode == store.ModeSummaryOnly {
			r.complete(ctx, job.ID)
			return
		}

		if err := r.store.SetJobProgress(ctx, job.ID, store.StageAudio, 0, job.Total, "Starting audio stage"); err != nil {
			log.ErrorContext(ctx, "advance to audio stage failed", "error", err)
			r.fail(ctx, job.ID, err)
			return
		}
		job.Stage = store.StageAudio
		job.Current = 0
	}

	res, err := r.runAudioStage(ctx, job)
	switch res {
	case ResultPaused, ResultCanceled:
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "audio stage failed", "error", err)
		r.fail(ctx, job.ID, err)
		return
	}

	r.complete(ctx, job.ID)
}

func (r *Runner) complete(ctx context.Context, jobID string) {
	if err := r.store.SetJobStatus(ctx, jobID, store.StatusCompleted); err != nil {
		r.log.ErrorContext(ctx, "mark job completed failed", "error", err, "job_id", jobID)
	}
}

func (r *Runner) fail(ctx context.Context, jobID string, cause error) {
	if err := r.store.SetJobError(ctx, jobID, cause.Error()); err != nil {
		r.log.ErrorContext(ctx, "mark job failed failed", "error", err, "job_id", jobID)
	}
}
