package lora

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTapsDumpPerStep(t *testing.T) {
	d, err := NewPyramidDemod(DefaultDemodConfig())
	require.NoError(t, err)
	n := d.SamplesPerSymbol()

	var raw, up, upW, dn, fft bytes.Buffer
	d.AttachTaps(Taps{Raw: &raw, UpBlock: &up, UpBlockWindowed: &upW, DownBlock: &dn, FFT: &fft})

	sig := make([]complex128, 5*n)
	for i := range sig {
		sig[i] = complex(0.5, -0.25)
	}
	consumed, _, err := d.Work(sig)
	require.NoError(t, err)
	require.Equal(t, d.StepStride(), consumed)

	// One record per step: N interleaved float32 I/Q pairs for the sample
	// taps, fftSize float32 magnitudes for the spectrum tap.
	assert.Equal(t, 8*n, raw.Len())
	assert.Equal(t, 8*n, up.Len())
	assert.Equal(t, 8*n, upW.Len())
	assert.Equal(t, 8*n, dn.Len())
	assert.Equal(t, 4*d.geo.fftSize, fft.Len())

	i := math.Float32frombits(binary.LittleEndian.Uint32(raw.Bytes()[:4]))
	q := math.Float32frombits(binary.LittleEndian.Uint32(raw.Bytes()[4:8]))
	assert.InDelta(t, 0.5, float64(i), 1e-6)
	assert.InDelta(t, -0.25, float64(q), 1e-6)

	_, _, err = d.Work(sig[consumed:])
	require.NoError(t, err)
	assert.Equal(t, 16*n, raw.Len())
}

func TestZeroTapsAreInert(t *testing.T) {
	d, err := NewPyramidDemod(DefaultDemodConfig())
	require.NoError(t, err)

	assert.False(t, d.taps.active())
	_, _, err = d.Work(make([]complex128, 4*d.SamplesPerSymbol()))
	require.NoError(t, err)
}

func TestPartialTapsWriteOnlyAttached(t *testing.T) {
	d, err := NewPyramidDemod(DefaultDemodConfig())
	require.NoError(t, err)
	n := d.SamplesPerSymbol()

	var fft bytes.Buffer
	d.AttachTaps(Taps{FFT: &fft})

	_, _, err = d.Work(make([]complex128, 4*n))
	require.NoError(t, err)
	assert.Equal(t, 4*d.geo.fftSize, fft.Len())
}
