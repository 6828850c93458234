// Package store is the durable persistence layer: jobs, summaries,
// audio logs, and prompt overrides, backed by PostgreSQL through sqlx.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Mode is the job's processing mode.
type Mode string

const (
	ModeFull        Mode = "FULL"
	ModeSummaryOnly Mode = "SUMMARY_ONLY"
	ModeAudioOnly   Mode = "AUDIO_ONLY"
)

// Stage is a phase of a job.
type Stage string

const (
	StageSummary Stage = "summary"
	StageAudio   Stage = "audio"
)

// Status is the job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is one of the three terminal statuses.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// IntList is an ordered list of positive integers stored as a JSON
// array column (jobs.pokemon_ids).
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	return json.Marshal([]int(l))
}

func (l *IntList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("IntList.Scan: unsupported type %T", src)
	}
	var out []int
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("IntList.Scan: %w", err)
	}
	*l = out
	return nil
}

// Job is the durable job record (spec.md §3.1).
type Job struct {
	ID            string     `db:"id" json:"id"`
	Mode          Mode       `db:"mode" json:"mode"`
	GenerationID  int        `db:"generation_id" json:"generationId"`
	Region        string     `db:"region" json:"region"`
	Voice         string     `db:"voice" json:"voice"`
	PokemonIDs    IntList    `db:"pokemon_ids" json:"pokemonIds"`
	Total         int        `db:"total" json:"total"`
	Current       int        `db:"current" json:"current"`
	Stage         Stage      `db:"stage" json:"stage"`
	Status        Status     `db:"status" json:"status"`
	Message       string     `db:"message" json:"message"`
	CooldownUntil *time.Time `db:"cooldown_until" json:"cooldownUntil,omitempty"`
	Error         *string    `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// InitialStage returns the stage a job of mode m starts in.
func InitialStage(m Mode) Stage {
	if m == ModeAudioOnly {
		return StageAudio
	}
	return StageSummary
}

// CreateJobInput is the validated, normalized input to CreateJob.
type CreateJobInput struct {
	Mode         Mode
	GenerationID int
	Region       string
	Voice        string
	PokemonIDs   []int
}

// Summary is the per-catalog-id text record (spec.md §3.2).
type Summary struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Summary      string    `db:"summary" json:"summary"`
	Region       string    `db:"region" json:"region"`
	GenerationID int       `db:"generation_id" json:"generationId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// AudioFormat tags the encoding of a stored audio payload.
type AudioFormat string

const (
	AudioFormatPCM AudioFormat = "pcm"
	AudioFormatMP3 AudioFormat = "mp3"
)

// AudioLog is the per-catalog-id audio record (spec.md §3.3).
type AudioLog struct {
	ID           int         `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Region       string      `db:"region" json:"region"`
	GenerationID int         `db:"generation_id" json:"generationId"`
	Voice        string      `db:"voice" json:"voice"`
	AudioBase64  string      `db:"audio_base64" json:"audioBase64"`
	AudioFormat  AudioFormat `db:"audio_format" json:"audioFormat"`
	SampleRate   *int        `db:"sample_rate" json:"sampleRate,omitempty"`
	Bitrate      *int        `db:"bitrate" json:"bitrate,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// PromptType distinguishes the two override slots (spec.md §3.4).
type PromptType string

const (
	PromptSummary PromptType = "summary"
	PromptTTS     PromptType = "tts"
)

// Prompt is a stored override for a built-in prompt template.
type Prompt struct {
	Type      PromptType `db:"type" json:"type"`
	Content   string     `db:"content" json:"content"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}
