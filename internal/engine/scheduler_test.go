package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apresai/fieldlog/internal/config"
	"github.com/apresai/fieldlog/internal/store"
)

func TestCapFor_SelectsPerStageLimit(t *testing.T) {
	r := &Runner{cfg: &config.Config{MaxTextJobs: 3, MaxAudioJobs: 1}}

	assert.Equal(t, 3, r.capFor(store.StageSummary))
	assert.Equal(t, 1, r.capFor(store.StageAudio))
}
