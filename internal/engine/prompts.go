package engine

import (
	"context"

	"github.com/apresai/fieldlog/internal/providers"
	"github.com/apresai/fieldlog/internal/store"
)

// DefaultTTSPrompt is used when no prompt override is stored. The TTS
// client treats this as opaque, same as the engine does (spec.md §3.4).
const DefaultTTSPrompt = ""

// resolvePrompt fetches a stored prompt override, falling back to
// fallback when none is set.
func resolvePrompt(ctx context.Context, s *store.Store, t store.PromptType, fallback string) string {
	p, err := s.GetPrompt(ctx, t)
	if err != nil {
		// Any error here, not just ErrNotFound, just means "use the
		// default" — prompt resolution is not worth failing a job over.
		return fallback
	}
	return p.Content
}

func resolveSummaryPrompt(ctx context.Context, s *store.Store) string {
	return resolvePrompt(ctx, s, store.PromptSummary, providers.DefaultSummaryPrompt)
}

func resolveTTSPrompt(ctx context.Context, s *store.Store) string {
	return resolvePrompt(ctx, s, store.PromptTTS, DefaultTTSPrompt)
}
