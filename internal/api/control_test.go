package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/fieldlog/internal/store"
)

func TestNormalizeIDs(t *testing.T) {
	cases := []struct {
		name string
		in   []int
		want []int
	}{
		{"dedupes", []int{3, 1, 3, 2}, []int{1, 2, 3}},
		{"drops non-positive", []int{0, -5, 4}, []int{4}},
		{"already sorted", []int{1, 2, 3}, []int{1, 2, 3}},
		{"empty", nil, []int{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := normalizeIDs(c.in)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestCreateJob_RejectsUnknownMode(t *testing.T) {
	c := NewControl(nil)
	_, err := c.CreateJob(context.Background(), createJobRequest{
		Mode:       "BOGUS",
		PokemonIDs: []int{1, 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode must be one of")
}

func TestCreateJob_RejectsEmptyIDs(t *testing.T) {
	c := NewControl(nil)
	_, err := c.CreateJob(context.Background(), createJobRequest{
		Mode:       "FULL",
		PokemonIDs: []int{0, -1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pokemonIds")
}

func TestValidModes_CoverAllStoreModes(t *testing.T) {
	want := map[store.Mode]bool{
		store.ModeFull:        true,
		store.ModeSummaryOnly: true,
		store.ModeAudioOnly:   true,
	}
	got := make(map[store.Mode]bool, len(validModes))
	for _, m := range validModes {
		got[m] = true
	}
	assert.Equal(t, want, got)
}
