package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 24000

func tone(durationSec float64, amplitude int16, freq float64) []byte {
	n := int(durationSec * testSampleRate)
	buf := make([]byte, n*bytesPerSample)
	for i := 0; i < n; i++ {
		v := float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return buf
}

func silence(durationSec float64) []byte {
	n := int(durationSec * testSampleRate)
	return make([]byte, n*bytesPerSample)
}

func concatAll(bufs ...[]byte) []byte {
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

func TestSplit_SingleSegmentReturnsWholeInput(t *testing.T) {
	pcm := tone(1.0, 10000, 1000)
	segs := Split(pcm, testSampleRate, 1)
	require.Len(t, segs, 1)
	assert.Equal(t, pcm, segs[0])
}

func TestSplit_TwoEntriesWithClearSilence(t *testing.T) {
	pcm := concatAll(
		tone(1.0, 12000, 1000),
		silence(2.0),
		tone(1.0, 12000, 1000),
	)

	segs := Split(pcm, testSampleRate, 2)
	require.Len(t, segs, 2)

	// Concatenation must reconstruct the input exactly.
	assert.Equal(t, pcm, concatAll(segs...))

	// Each segment should contain at least 0.9s of signal, i.e. not be
	// dominated by the silence gap.
	minBytes := int(0.9 * testSampleRate * bytesPerSample)
	assert.GreaterOrEqual(t, len(segs[0]), minBytes)
	assert.GreaterOrEqual(t, len(segs[1]), minBytes)
}

func TestSplit_FourEntriesThreeSilences(t *testing.T) {
	pcm := concatAll(
		tone(1.0, 12000, 800),
		silence(2.0),
		tone(1.0, 12000, 900),
		silence(2.0),
		tone(1.0, 12000, 1000),
		silence(2.0),
		tone(1.0, 12000, 1100),
	)

	segs := Split(pcm, testSampleRate, 4)
	require.Len(t, segs, 4)
	assert.Equal(t, pcm, concatAll(segs...))
}

func TestSplit_FallbackWhenSilencesInsufficient(t *testing.T) {
	// Only two silences but four entries requested: one boundary must
	// come from the evenly-spaced fallback.
	pcm := concatAll(
		tone(1.0, 12000, 800),
		silence(2.0),
		tone(1.0, 12000, 900),
		silence(2.0),
		tone(2.0, 12000, 1000),
	)

	segs := Split(pcm, testSampleRate, 4)
	require.Len(t, segs, 4)
	assert.Equal(t, pcm, concatAll(segs...))
}

func TestSplit_Deterministic(t *testing.T) {
	pcm := concatAll(tone(1.0, 12000, 1000), silence(2.0), tone(1.0, 12000, 1000))

	a := Split(pcm, testSampleRate, 2)
	b := Split(pcm, testSampleRate, 2)

	require.Len(t, a, len(b))
	for i := range a {
		assert.True(t, bytes.Equal(a[i], b[i]))
	}
}

func TestSplit_CompletenessAcrossSegmentCounts(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		pcm := tone(float64(n)*1.5, 10000, 1000)
		segs := Split(pcm, testSampleRate, n)
		require.Len(t, segs, n)
		assert.Equal(t, pcm, concatAll(segs...))
	}
}
