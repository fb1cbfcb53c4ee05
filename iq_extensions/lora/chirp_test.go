package lora

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChirpTablesConjugatePair(t *testing.T) {
	ct := newChirpTables(256, 2)
	for i := 0; i < 256; i++ {
		prod := ct.upchirp[i] * ct.downchirp[i]
		assert.InDelta(t, 1.0, real(prod), 1e-12, "sample %d", i)
		assert.InDelta(t, 0.0, imag(prod), 1e-12, "sample %d", i)
	}
}

func TestChirpTablesUnitMagnitude(t *testing.T) {
	ct := newChirpTables(256, 2)
	for i := 0; i < 256; i++ {
		assert.InDelta(t, 1.0, cmplx.Abs(ct.upchirp[i]), 1e-12)
		assert.InDelta(t, 1.0, cmplx.Abs(ct.downchirp[i]), 1e-12)
	}
}

func TestDechirpUpCollapsesUpchirp(t *testing.T) {
	ct := newChirpTables(256, 2)
	dst := make([]complex128, 256)
	ct.dechirpUp(dst, ct.upchirp)
	for i, c := range dst {
		assert.InDelta(t, 1.0, real(c), 1e-12, "sample %d", i)
		assert.InDelta(t, 0.0, imag(c), 1e-12, "sample %d", i)
	}
}

func TestDechirpDownCollapsesDownchirp(t *testing.T) {
	ct := newChirpTables(256, 2)
	dst := make([]complex128, 256)
	ct.dechirpDown(dst, ct.downchirp)
	for i, c := range dst {
		assert.InDelta(t, 1.0, real(c), 1e-12, "sample %d", i)
		assert.InDelta(t, 0.0, imag(c), 1e-12, "sample %d", i)
	}
}

// A chirp cyclically shifted against its conjugate stays a single tone, which
// is the property the whole symbol detector rests on.
func TestDechirpShiftedChirpIsTone(t *testing.T) {
	const n, p = 256, 2
	ct := newChirpTables(n, p)
	shifted := make([]complex128, n)
	const shift = 48
	for i := 0; i < n; i++ {
		shifted[i] = ct.upchirp[(i+shift)%n]
	}
	dst := make([]complex128, n)
	ct.dechirpUp(dst, shifted)

	// Constant sample-to-sample phase increment means constant frequency.
	ref := dst[1] * cmplx.Conj(dst[0])
	for i := 2; i < n; i++ {
		step := dst[i] * cmplx.Conj(dst[i-1])
		assert.InDelta(t, cmplx.Phase(ref), cmplx.Phase(step), 1e-9, "sample %d", i)
	}
}
