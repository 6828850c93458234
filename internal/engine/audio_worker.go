package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/apresai/fieldlog/internal/audio"
	"github.com/apresai/fieldlog/internal/providers"
	"github.com/apresai/fieldlog/internal/store"
)

// runAudioStage synthesizes and persists one audio log per catalog id in
// job, batching entries for TTS and splitting each batch's combined
// response back into per-id clips (spec.md §4.5).
func (r *Runner) runAudioStage(ctx context.Context, job *store.Job) (Result, error) {
	ids := job.PokemonIDs

	summaries, err := r.store.GetSummaries(ctx, ids)
	if err != nil {
		return ResultOK, fmt.Errorf("load summaries: %w", err)
	}
	byID := make(map[int]store.Summary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	entries := make([]audio.Entry, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return ResultOK, fmt.Errorf("missing saved summary for #%d", id)
		}
		entries = append(entries, audio.Entry{ID: id, Text: s.Summary})
	}

	batches := audio.PartitionBatches(entries, r.cfg.MaxBatchCount, r.cfg.MaxBatchChars)
	total := len(batches)

	if err := r.store.SetJobProgress(ctx, job.ID, store.StageAudio, job.Current, total, "Starting audio synthesis"); err != nil {
		return ResultOK, err
	}

	ttsPrompt := resolveTTSPrompt(ctx, r.store)

	for i := job.Current; i < total; i++ {
		if res := checkControl(ctx, r.store, job.ID); res != ResultOK {
			return res, nil
		}

		batch := batches[i]
		if err := r.store.SetJobProgress(ctx, job.ID, store.StageAudio, i, total,
			fmt.Sprintf("Synthesizing batch %d/%d (%d entries)", i+1, total, len(batch.Entries))); err != nil {
			return ResultOK, err
		}

		var raw []byte
		res, err := retryOuter(ctx, r.store, job.ID, func() error {
			b, genErr := r.tts.GenerateTTS(ctx, batch.Prompt(), job.Voice, ttsPrompt)
			if genErr != nil {
				return genErr
			}
			raw = b
			return nil
		})
		if res != ResultOK {
			return res, nil
		}
		if err != nil {
			return ResultOK, fmt.Errorf("synthesize batch %d: %w", i+1, err)
		}

		segments := audio.Split(raw, providers.PCMSampleRate, len(batch.Entries))
		// Split always returns len(batch.Entries) segments by construction
		// (it pads with evenly-spaced fallback points when detection comes
		// up short), even for an empty response; the bounds check below is
		// purely defensive.
		for j, entry := range batch.Entries {
			seg := raw
			if j < len(segments) {
				seg = segments[j]
			}

			sampleRate := providers.PCMSampleRate
			if err := r.store.UpsertAudioLog(ctx, store.AudioLog{
				ID:           entry.ID,
				Name:         byID[entry.ID].Name,
				Region:       job.Region,
				GenerationID: job.GenerationID,
				Voice:        job.Voice,
				AudioBase64:  base64.StdEncoding.EncodeToString(seg),
				AudioFormat:  store.AudioFormatPCM,
				SampleRate:   &sampleRate,
			}); err != nil {
				return ResultOK, fmt.Errorf("save audio for #%d: %w", entry.ID, err)
			}
		}

		if err := r.store.SetJobProgress(ctx, job.ID, store.StageAudio, i+1, total,
			fmt.Sprintf("Saved batch %d/%d", i+1, total)); err != nil {
			return ResultOK, err
		}

		if i < total-1 {
			until := jitterDeadline(audioCooldown)
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
