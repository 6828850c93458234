package api

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apresai/fieldlog/internal/store"
)

// Control wraps the store with the request-normalization and
// validation logic the HTTP layer needs, kept separate from gin so it
// can be tested without an HTTP server.
type Control struct {
	store *store.Store
}

func NewControl(s *store.Store) *Control {
	return &Control{store: s}
}

var validModes = map[string]store.Mode{
	"FULL":         store.ModeFull,
	"SUMMARY_ONLY": store.ModeSummaryOnly,
	"AUDIO_ONLY":   store.ModeAudioOnly,
}

// normalizeIDs dedupes, drops non-positive values, and sorts ascending,
// per spec.md §6's POST /jobs validation rule.
func normalizeIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// CreateJob validates and normalizes req, then inserts a new queued job.
func (c *Control) CreateJob(ctx context.Context, req createJobRequest) (*store.Job, error) {
	mode, ok := validModes[req.Mode]
	if !ok {
		return nil, fmt.Errorf("mode must be one of FULL, SUMMARY_ONLY, AUDIO_ONLY")
	}

	ids := normalizeIDs(req.PokemonIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("pokemonIds must be a non-empty list of positive ids")
	}

	return c.store.CreateJob(ctx, store.CreateJobInput{
		Mode:         mode,
		GenerationID: req.GenerationID,
		Region:       req.Region,
		Voice:        req.Voice,
		PokemonIDs:   ids,
	})
}

func (c *Control) GetJob(ctx context.Context, id string) (*store.Job, error) {
	return c.store.GetJob(ctx, id)
}

func (c *Control) PauseJob(ctx context.Context, id string) error {
	return c.store.PauseJob(ctx, id)
}

func (c *Control) ResumeJob(ctx context.Context, id string) error {
	return c.store.ResumeJob(ctx, id)
}

func (c *Control) CancelJob(ctx context.Context, id string) error {
	return c.store.CancelJob(ctx, id)
}

func (c *Control) RecoverStalled(ctx context.Context, thresholdMs int64) (int, error) {
	if thresholdMs <= 0 {
		thresholdMs = 300_000
	}
	return c.store.RecoverStalledJobs(ctx, time.Duration(thresholdMs)*time.Millisecond)
}

func (c *Control) PauseAll(ctx context.Context) (int, error) {
	return c.store.PauseAllJobs(ctx)
}

func (c *Control) CancelAll(ctx context.Context) (int, error) {
	return c.store.CancelAllJobs(ctx)
}

func (c *Control) GetSummary(ctx context.Context, id int) (*store.Summary, error) {
	return c.store.GetSummary(ctx, id)
}

func (c *Control) GetAudioLog(ctx context.Context, id int) (*store.AudioLog, error) {
	return c.store.GetAudioLog(ctx, id)
}

func (c *Control) GetPrompt(ctx context.Context, t store.PromptType) (*store.Prompt, error) {
	return c.store.GetPrompt(ctx, t)
}

func (c *Control) UpsertPrompt(ctx context.Context, t store.PromptType, content string) error {
	return c.store.UpsertPrompt(ctx, t, content)
}
