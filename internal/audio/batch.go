package audio

// DefaultMaxBatchCount is the default cap on entries per TTS batch
// (spec.md §4.5 step 2, "default 15").
const DefaultMaxBatchCount = 15

// DefaultMaxBatchChars is the default cap on characters per TTS batch.
// spec.md §9 Open Question 2 leaves this as an undefined imported
// constant in the source; here it is a named, documented, tunable
// policy knob instead, overridable via config.
const DefaultMaxBatchChars = 3500

// PauseMarker separates concatenated entries within one batch prompt.
// It must be something the TTS voice will render as a deliberate pause
// long enough for the splitter's silence detector to find it.
const PauseMarker = "\n\n... ... ...\n\n"

// Entry is one summary waiting to be batched for TTS.
type Entry struct {
	ID   int
	Text string
}

// Batch is an ordered group of entries to synthesize as one TTS call.
type Batch struct {
	Entries []Entry
}

// Prompt concatenates the batch's entries with PauseMarker between
// them, preserving entry order.
func (b Batch) Prompt() string {
	out := ""
	for i, e := range b.Entries {
		if i > 0 {
			out += PauseMarker
		}
		out += e.Text
	}
	return out
}

// PartitionBatches groups entries into batches bounded by maxCount
// entries and maxChars characters per batch. Entry order is preserved;
// an entry that would push a batch over either limit starts a new
// batch. A single entry longer than maxChars still gets its own batch
// rather than being dropped or split.
func PartitionBatches(entries []Entry, maxCount, maxChars int) []Batch {
	if maxCount <= 0 {
		maxCount = DefaultMaxBatchCount
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxBatchChars
	}

	var batches []Batch
	var current []Entry
	currentChars := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, Batch{Entries: current})
			current = nil
			currentChars = 0
		}
	}

	for _, e := range entries {
		entryChars := len(e.Text)
		wouldExceedCount := len(current) >= maxCount
		wouldExceedChars := len(current) > 0 && currentChars+len(PauseMarker)+entryChars > maxChars

		if wouldExceedCount || wouldExceedChars {
			flush()
		}

		current = append(current, e)
		if len(current) == 1 {
			currentChars = entryChars
		} else {
			currentChars += len(PauseMarker) + entryChars
		}
	}
	flush()

	return batches
}
