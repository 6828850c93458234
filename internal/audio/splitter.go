// Package audio implements the pure, deterministic pieces of the audio
// pipeline: silence-based segmentation of one combined TTS response
// into per-entry clips, and batching of summaries into TTS requests.
// Nothing in this package performs I/O.
package audio

import (
	"encoding/binary"
	"sort"
	"time"
)

const (
	bytesPerSample = 2 // 16-bit signed little-endian

	windowDuration = 50 * time.Millisecond

	strictMinRun   = 2000 * time.Millisecond
	lenientMinRun  = 1500 * time.Millisecond
	minSpacing     = 500 * time.Millisecond
	snapSearchMult = 10 // search window is ±(10 * analysis window)

	strictLowRMS  = 500
	strictHighRMS = 800
	lenientLowRMS = 900
	lenientHighRMS = 1400
)

// candidate is a detected silent run, scored for selection as a split
// point.
type candidate struct {
	midSample int
	duration  time.Duration
	minRMS    float64
}

func (c candidate) score() float64 {
	return 10*c.duration.Seconds() + maxFloat(0, 1500-c.minRMS)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Split partitions pcm (16-bit signed little-endian mono samples at
// sampleRate Hz) into exactly expectedCount contiguous sub-buffers,
// using silence detection to find the expectedCount-1 boundaries
// between adjacent entries. Deterministic: the same input always
// produces the same segmentation.
func Split(pcm []byte, sampleRate int, expectedCount int) [][]byte {
	if expectedCount <= 1 {
		return [][]byte{pcm}
	}

	windowSamples := int(float64(sampleRate) * windowDuration.Seconds())
	if windowSamples < 1 {
		windowSamples = 1
	}

	totalSamples := len(pcm) / bytesPerSample
	rms := windowRMS(pcm, windowSamples)

	needed := expectedCount - 1

	candidates := detectRuns(rms, windowSamples, sampleRate, strictLowRMS, strictHighRMS, strictMinRun)
	if len(candidates) < needed {
		lenient := detectRuns(rms, windowSamples, sampleRate, lenientLowRMS, lenientHighRMS, lenientMinRun)
		candidates = mergeCandidates(candidates, lenient)
	}

	points := selectPoints(candidates, needed, sampleRate)
	points = fillFallback(points, needed, totalSamples, sampleRate, rms, windowSamples)

	return sliceAt(pcm, points)
}

// windowRMS computes the RMS amplitude of each non-overlapping window of
// windowSamples samples.
func windowRMS(pcm []byte, windowSamples int) []float64 {
	totalSamples := len(pcm) / bytesPerSample
	numWindows := (totalSamples + windowSamples - 1) / windowSamples
	if numWindows < 1 {
		numWindows = 1
	}
	out := make([]float64, numWindows)

	for w := 0; w < numWindows; w++ {
		start := w * windowSamples
		end := start + windowSamples
		if end > totalSamples {
			end = totalSamples
		}
		if start >= end {
			out[w] = 0
			continue
		}

		var sumSquares float64
		count := 0
		for i := start; i < end; i++ {
			off := i * bytesPerSample
			if off+1 >= len(pcm) {
				break
			}
			sample := float64(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
			sumSquares += sample * sample
			count++
		}
		if count == 0 {
			out[w] = 0
			continue
		}
		out[w] = sqrt(sumSquares / float64(count))
	}
	return out
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	// Newton's method; avoids importing math solely for Sqrt in a
	// package that otherwise has no float dependency beyond this.
	x := v
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// detectRuns finds runs of consecutive windows whose RMS dips below low
// and rises back above high (hysteresis), each lasting at least minRun.
func detectRuns(rms []float64, windowSamples, sampleRate int, low, high float64, minRun time.Duration) []candidate {
	var out []candidate
	inRun := false
	runStart := 0

	windowDur := time.Duration(float64(windowSamples) / float64(sampleRate) * float64(time.Second))

	for i, v := range rms {
		if !inRun && v < low {
			inRun = true
			runStart = i
		} else if inRun && v > high {
			runLen := i - runStart
			dur := time.Duration(runLen) * windowDur
			if dur >= minRun {
				minV := minInRange(rms, runStart, i)
				mid := (runStart + i) / 2 * windowSamples
				out = append(out, candidate{midSample: mid, duration: dur, minRMS: minV})
			}
			inRun = false
		}
	}
	// A run that never rises back above high by the end of the buffer is
	// not closed and is not counted — only closed runs are candidates.
	return out
}

func minInRange(rms []float64, start, end int) float64 {
	if start >= end {
		return 0
	}
	m := rms[start]
	for i := start + 1; i < end; i++ {
		if rms[i] < m {
			m = rms[i]
		}
	}
	return m
}

func mergeCandidates(a, b []candidate) []candidate {
	out := make([]candidate, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// selectPoints picks `needed` split points from candidates, sorted by
// score descending, enforcing a minimum spacing between selections.
func selectPoints(candidates []candidate, needed int, sampleRate int) []int {
	if needed <= 0 {
		return nil
	}
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score() > sorted[j].score()
	})

	minSpacingSamples := int(minSpacing.Seconds() * float64(sampleRate))

	var chosen []int
	for _, c := range sorted {
		if len(chosen) >= needed {
			break
		}
		tooClose := false
		for _, p := range chosen {
			d := p - c.midSample
			if d < 0 {
				d = -d
			}
			if d < minSpacingSamples {
				tooClose = true
				break
			}
		}
		if !tooClose {
			chosen = append(chosen, c.midSample)
		}
	}

	sort.Ints(chosen)
	return chosen
}

// fillFallback pads points out to `needed` entries using evenly spaced
// time points snapped to the lowest-energy window nearby, when the
// detected candidates fall short.
func fillFallback(points []int, needed int, totalSamples, sampleRate int, rms []float64, windowSamples int) []int {
	if len(points) >= needed {
		return points[:needed]
	}

	missing := needed - len(points)

	for k := 1; k <= missing; k++ {
		// Evenly space the fallback points across the whole buffer,
		// independent of where earlier detected points fell — simple
		// and deterministic.
		frac := float64(k) / float64(missing+1)
		raw := int(frac * float64(totalSamples))
		snapped := snapToLowEnergy(raw, rms, windowSamples, sampleRate)
		points = append(points, snapped)
	}

	sort.Ints(points)
	return points
}

// snapToLowEnergy finds the lowest-RMS window within ±(10*window)
// samples of raw and returns its center sample index.
func snapToLowEnergy(raw int, rms []float64, windowSamples, sampleRate int) int {
	if windowSamples < 1 || len(rms) == 0 {
		return raw
	}
	centerWindow := raw / windowSamples
	span := snapSearchMult

	best := centerWindow
	bestRMS := -1.0
	for w := centerWindow - span; w <= centerWindow+span; w++ {
		if w < 0 || w >= len(rms) {
			continue
		}
		if bestRMS < 0 || rms[w] < bestRMS {
			bestRMS = rms[w]
			best = w
		}
	}
	return best*windowSamples + windowSamples/2
}

// sliceAt converts sample-index split points to even byte offsets and
// slices pcm into len(points)+1 contiguous sub-buffers.
func sliceAt(pcm []byte, points []int) [][]byte {
	offsets := make([]int, 0, len(points)+2)
	offsets = append(offsets, 0)
	for _, p := range points {
		off := p * bytesPerSample
		if off%bytesPerSample != 0 {
			off -= off % bytesPerSample
		}
		if off < 0 {
			off = 0
		}
		if off > len(pcm) {
			off = len(pcm)
		}
		offsets = append(offsets, off)
	}
	offsets = append(offsets, len(pcm))

	segments := make([][]byte, 0, len(offsets)-1)
	for i := 0; i < len(offsets)-1; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end {
			start = end
		}
		segments = append(segments, pcm[start:end])
	}
	return segments
}
