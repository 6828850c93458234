package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// UpsertSummary inserts or replaces a summary record in place,
// preserving created_at across updates.
func (s *Store) UpsertSummary(ctx context.Context, sum Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, name, summary, region, generation_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			summary = EXCLUDED.summary,
			region = EXCLUDED.region,
			generation_id = EXCLUDED.generation_id,
			updated_at = now()`,
		sum.ID, sum.Name, sum.Summary, sum.Region, sum.GenerationID)
	if err != nil {
		return fmt.Errorf("upsert summary %d: %w", sum.ID, err)
	}
	return nil
}

// GetSummary retrieves a single summary by catalog id.
func (s *Store) GetSummary(ctx context.Context, id int) (*Summary, error) {
	var sum Summary
	err := s.db.GetContext(ctx, &sum, `SELECT * FROM summaries WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %d: %w", id, err)
	}
	return &sum, nil
}

// GetSummaries retrieves summaries for a set of ids, in the order ids
// were given. Missing ids are simply absent from the result — callers
// that need to detect a missing id (spec.md §4.5 step 1) compare the
// returned count/keys against ids themselves.
func (s *Store) GetSummaries(ctx context.Context, ids []int) ([]Summary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Summary
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM summaries WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get summaries: %w", err)
	}

	byID := make(map[int]Summary, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	ordered := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// UpsertAudioLog inserts or replaces an audio record in place,
// preserving created_at across updates.
func (s *Store) UpsertAudioLog(ctx context.Context, a AudioLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_logs (id, name, region, generation_id, voice, audio_base64, audio_format, sample_rate, bitrate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			region = EXCLUDED.region,
			generation_id = EXCLUDED.generation_id,
			voice = EXCLUDED.voice,
			audio_base64 = EXCLUDED.audio_base64,
			audio_format = EXCLUDED.audio_format,
			sample_rate = EXCLUDED.sample_rate,
			bitrate = EXCLUDED.bitrate,
			updated_at = now()`,
		a.ID, a.Name, a.Region, a.GenerationID, a.Voice, a.AudioBase64, a.AudioFormat, a.SampleRate, a.Bitrate)
	if err != nil {
		return fmt.Errorf("upsert audio log %d: %w", a.ID, err)
	}
	return nil
}

// GetAudioLog retrieves a single audio record by catalog id.
func (s *Store) GetAudioLog(ctx context.Context, id int) (*AudioLog, error) {
	var a AudioLog
	err := s.db.GetContext(ctx, &a, `SELECT * FROM audio_logs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audio log %d: %w", id, err)
	}
	return &a, nil
}

// GetPrompt reads a prompt override by type. Returns ErrNotFound if no
// override has been stored — callers fall back to a built-in default.
func (s *Store) GetPrompt(ctx context.Context, t PromptType) (*Prompt, error) {
	var p Prompt
	err := s.db.GetContext(ctx, &p, `SELECT * FROM prompts WHERE type = $1`, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt %s: %w", t, err)
	}
	return &p, nil
}

// UpsertPrompt inserts or replaces a prompt override, preserving
// created_at across updates.
func (s *Store) UpsertPrompt(ctx context.Context, t PromptType, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (type, content)
		VALUES ($1, $2)
		ON CONFLICT (type) DO UPDATE SET content = EXCLUDED.content, updated_at = now()`,
		t, content)
	if err != nil {
		return fmt.Errorf("upsert prompt %s: %w", t, err)
	}
	return nil
}
