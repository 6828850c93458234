package audio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionBatches_PreservesOrderAndBoundsByCount(t *testing.T) {
	var entries []Entry
	for i := 1; i <= 32; i++ {
		entries = append(entries, Entry{ID: i, Text: "short summary"})
	}

	batches := PartitionBatches(entries, 15, 100000)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Entries, 15)
	assert.Len(t, batches[1].Entries, 15)
	assert.Len(t, batches[2].Entries, 2)

	var ids []int
	for _, b := range batches {
		for _, e := range b.Entries {
			ids = append(ids, e.ID)
		}
	}
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}
}

func TestPartitionBatches_BoundsByCharLimit(t *testing.T) {
	long := strings.Repeat("x", 40)
	entries := []Entry{
		{ID: 1, Text: long},
		{ID: 2, Text: long},
		{ID: 3, Text: long},
	}

	batches := PartitionBatches(entries, 100, 90)
	require.Len(t, batches, 3)
	for _, b := range batches {
		assert.Len(t, b.Entries, 1)
	}
}

func TestPartitionBatches_OversizedEntryGetsOwnBatch(t *testing.T) {
	entries := []Entry{
		{ID: 1, Text: strings.Repeat("y", 5000)},
		{ID: 2, Text: "short"},
	}

	batches := PartitionBatches(entries, 15, 3500)
	require.Len(t, batches, 2)
	assert.Equal(t, 1, batches[0].Entries[0].ID)
	assert.Equal(t, 2, batches[1].Entries[0].ID)
}

func TestBatchPrompt_ConcatenatesWithPauseMarker(t *testing.T) {
	b := Batch{Entries: []Entry{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}}
	assert.Equal(t, "a"+PauseMarker+"b", b.Prompt())
}

func TestPartitionBatches_Empty(t *testing.T) {
	batches := PartitionBatches(nil, 15, 3500)
	assert.Empty(t, batches)
}
