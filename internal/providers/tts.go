package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ttsMaxAttempts = 5
	ttsBase        = 1 * time.Second
	ttsCap         = 64 * time.Second
	ttsRateBase    = 15 * time.Second
	ttsRateCap     = 120 * time.Second

	// PCMSampleRate is the canonical sample rate the engine stores and
	// the splitter operates on: 16-bit signed little-endian mono at
	// 24kHz, the same format the teacher's FFmpeg conversion step
	// documents for its own PCM inputs.
	PCMSampleRate = 24000
)

// TTSGenerator synthesizes speech for a combined batch prompt.
type TTSGenerator interface {
	GenerateTTS(ctx context.Context, text string, voice string, promptOverride string) ([]byte, error)
}

// HTTPTTSGenerator is a generic JSON/HTTP TTS client: POST text+voice,
// receive base64 PCM back. The upstream TTS vendor is a black box per
// spec.md §1; this one concrete implementation plus the TTSGenerator
// interface is enough to let a real vendor be swapped in without
// touching the engine.
type HTTPTTSGenerator struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPTTSGenerator(baseURL, apiKey string) *HTTPTTSGenerator {
	return &HTTPTTSGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type ttsRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	// Prompt carries the stored tts prompt override (spec.md §3.4),
	// an opaque styling instruction passed straight through to the
	// vendor alongside the text — e.g. a delivery/tone directive. Empty
	// when no override is stored.
	Prompt string `json:"prompt,omitempty"`
}

type ttsResponse struct {
	AudioBase64 string `json:"audio_base64"`
}

func (g *HTTPTTSGenerator) GenerateTTS(ctx context.Context, text string, voice string, promptOverride string) ([]byte, error) {
	policy := retryPolicy{
		maxAttempts:   ttsMaxAttempts,
		base:          ttsBase,
		cap:           ttsCap,
		rateLimitBase: ttsRateBase,
		rateLimitCap:  ttsRateCap,
	}

	var result []byte
	err := withRetry(ctx, policy, func(attempt int) (error, bool, bool) {
		body, err := json.Marshal(ttsRequest{Text: text, Voice: voice, SampleRate: PCMSampleRate, Prompt: promptOverride})
		if err != nil {
			return newErr(Validation, "encode tts request", err), false, false
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/synthesize", bytes.NewReader(body))
		if err != nil {
			return newErr(Validation, "build tts request", err), false, false
		}
		req.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiKey)
		}

		resp, err := g.http.Do(req)
		if err != nil {
			return fmt.Errorf("tts request: %w", err), true, false
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("tts rate limited (status %d)", resp.StatusCode), true, true
		}
		if resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusServiceUnavailable {
			return fmt.Errorf("tts transient failure (status %d)", resp.StatusCode), true, false
		}
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			return newErr(PermanentContract, fmt.Sprintf("tts request failed (status %d): %s", resp.StatusCode, string(data)), nil), false, false
		}

		var decoded ttsResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return newErr(PermanentContract, "decode tts response", err), false, false
		}
		if decoded.AudioBase64 == "" {
			return newErr(PermanentContract, "empty tts response", nil), false, false
		}

		audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
		if err != nil {
			return newErr(PermanentContract, "invalid base64 in tts response", err), false, false
		}
		if len(audio) == 0 {
			return newErr(PermanentContract, "empty tts audio payload", nil), false, false
		}

		result = audio
		return nil, false, false
	})

	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, newErr(Transient, "tts generation failed after retries", err)
	}
	return result, nil
}
