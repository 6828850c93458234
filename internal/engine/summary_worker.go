package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/apresai/fieldlog/internal/store"
)

// runSummaryStage walks a job's id list from its current cursor,
// generating and persisting one summary per id (spec.md §4.4).
func (r *Runner) runSummaryStage(ctx context.Context, job *store.Job) (Result, error) {
	ids := job.PokemonIDs
	total := len(ids)

	for i := job.Current; i < total; i++ {
		if res := checkControl(ctx, r.store, job.ID); res != ResultOK {
			return res, nil
		}

		id := ids[i]
		if err := r.store.SetJobProgress(ctx, job.ID, store.StageSummary, i, total,
			fmt.Sprintf("Generating summary for #%d...", id)); err != nil {
			return ResultOK, err
		}

		details, err := r.catalog.Details(ctx, id)
		if err != nil {
			return ResultOK, fmt.Errorf("resolve catalog details for #%d: %w", id, err)
		}

		summaryPrompt := resolveSummaryPrompt(ctx, r.store)

		var text string
		res, err := retryOuter(ctx, r.store, job.ID, func() error {
			t, genErr := r.text.GenerateSummary(ctx, details, job.Region, summaryPrompt)
			if genErr != nil {
				return genErr
			}
			text = t
			return nil
		})
		if res != ResultOK {
			return res, nil
		}
		if err != nil {
			return ResultOK, fmt.Errorf("generate summary for #%d: %w", id, err)
		}

		if err := r.store.UpsertSummary(ctx, store.Summary{
			ID:           id,
			Name:         details.Name,
			Summary:      text,
			Region:       job.Region,
			GenerationID: job.GenerationID,
		}); err != nil {
			return ResultOK, fmt.Errorf("save summary for #%d: %w", id, err)
		}

		if err := r.store.SetJobProgress(ctx, job.ID, store.StageSummary, i+1, total,
			fmt.Sprintf("Saved summary for #%d", id)); err != nil {
			return ResultOK, err
		}

		if i < total-1 {
			until := jitterDeadline(summaryCooldown)
			if err := r.store.SetJobCooldownUntil(ctx, job.ID, &until); err != nil {
				return ResultOK, err
			}

			if res := sleepWithPolling(ctx, r.store, job.ID, time.Until(until)); res != ResultOK {
				return res, nil
			}

			if err := r.store.SetJobCooldownUntil(ctx, job.ID, nil); err != nil {
				return ResultOK, err
			}
		}
	}

	return ResultOK, nil
}
