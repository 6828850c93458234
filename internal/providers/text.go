package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/apresai/fieldlog/internal/catalog"
)

const (
	summaryMaxAttempts = 4
	summaryBase        = 1 * time.Second
	summaryCap         = 64 * time.Second
	summaryRateBase    = 15 * time.Second
	summaryRateCap     = 120 * time.Second

	summaryModel     = "claude-haiku-4-5-20251001"
	summaryMaxTokens = 1024
	summaryTemp      = 0.7
)

// TextGenerator produces a field-log summary for a catalog entry.
type TextGenerator interface {
	GenerateSummary(ctx context.Context, details catalog.Details, region string, promptOverride string) (string, error)
}

// AnthropicTextGenerator is the text-generation client, backed by the
// Anthropic Messages API. It is pure I/O: it never touches the Store.
type AnthropicTextGenerator struct {
	apiKey string
}

func NewAnthropicTextGenerator(apiKey string) *AnthropicTextGenerator {
	return &AnthropicTextGenerator{apiKey: apiKey}
}

func (g *AnthropicTextGenerator) GenerateSummary(ctx context.Context, details catalog.Details, region string, promptOverride string) (string, error) {
	var client anthropic.Client
	if g.apiKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(g.apiKey))
	} else {
		client = anthropic.NewClient()
	}

	sysPrompt := promptOverride
	if sysPrompt == "" {
		sysPrompt = DefaultSummaryPrompt
	}
	userPrompt := buildSummaryUserPrompt(details, region)

	policy := retryPolicy{
		maxAttempts:   summaryMaxAttempts,
		base:          summaryBase,
		cap:           summaryCap,
		rateLimitBase: summaryRateBase,
		rateLimitCap:  summaryRateCap,
	}

	var result string
	err := withRetry(ctx, policy, func(attempt int) (error, bool, bool) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(summaryModel),
			MaxTokens:   summaryMaxTokens,
			Temperature: anthropic.Float(summaryTemp),
			System: []anthropic.TextBlockParam{
				{Text: sysPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			transient, rateLimited := classifyAnthropicErr(err)
			if !transient {
				return newErr(PermanentContract, "text generation request failed", err), false, false
			}
			return fmt.Errorf("text generation request: %w", err), true, rateLimited
		}

		text := extractSummaryText(message)
		summary, perr := parseSummaryJSON(text)
		if perr != nil {
			// A malformed or empty response is a contract violation, not
			// a transport failure — it is not retried by the client.
			return newErr(PermanentContract, "summary response missing required field", perr), false, false
		}

		result = summary
		return nil, false, false
	})

	if err != nil {
		if _, ok := err.(*Error); ok {
			return "", err
		}
		return "", newErr(Transient, "text generation failed after retries", err)
	}
	return result, nil
}

// DefaultSummaryPrompt is used when no prompt override is stored.
const DefaultSummaryPrompt = `You write short, vivid field-log entries about catalog ` +
	`entries for a field guide. Respond with a JSON object of the shape ` +
	`{"summary": "..."}. The summary should be 2-4 sentences, evocative ` +
	`but factual, written in the present tense.`

func buildSummaryUserPrompt(details catalog.Details, region string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entry: %s (id %d)\n", details.Name, details.ID)
	if details.Description != "" {
		fmt.Fprintf(&b, "Reference notes: %s\n", details.Description)
	}
	if region != "" {
		fmt.Fprintf(&b, "Region: %s\n", region)
	}
	b.WriteString("Write the field-log summary now.")
	return b.String()
}

func extractSummaryText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func parseSummaryJSON(text string) (string, error) {
	text = stripMarkdownFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}

	var r summaryResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return "", fmt.Errorf("missing summary field")
	}
	return r.Summary, nil
}

func stripMarkdownFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return text
	}
	lines := strings.Split(t, "\n")
	if len(lines) < 2 {
		return text
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// classifyAnthropicErr reports whether err should be retried and
// whether it specifically represents a rate-limit response (429),
// matching the classification spec.md §4.2 calls for: HTTP 429/500/503
// and explicit "resource exhausted"/"overloaded" language.
func classifyAnthropicErr(err error) (transient bool, rateLimited bool) {
	if aerr, ok := err.(interface{ StatusCode() int }); ok {
		code := aerr.StatusCode()
		return isTransientStatus(code), code == http.StatusTooManyRequests
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted") {
		return true, true
	}
	if strings.Contains(msg, "500") || strings.Contains(msg, "503") || strings.Contains(msg, "overloaded") {
		return true, false
	}
	return false, false
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusInternalServerError || code == http.StatusServiceUnavailable
}
