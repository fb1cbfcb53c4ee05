package lora

import (
	"math"
	"math/cmplx"
)

/*
 * Reference Chirps and Dechirping
 * Multiplying incoming samples by a conjugate chirp turns modulated chirps
 * into constant-frequency tones whose FFT bin identifies the symbol
 */

// chirpTables holds one symbol period of the reference up- and down-chirp.
type chirpTables struct {
	upchirp   []complex128
	downchirp []complex128
}

// newChirpTables precomputes the reference chirps over i in [0, n) with
// phase (pi/p)*(i - i^2/n).
func newChirpTables(n, p int) chirpTables {
	up := make([]complex128, n)
	down := make([]complex128, n)
	for i := 0; i < n; i++ {
		fi := float64(i)
		phase := math.Pi / float64(p) * (fi - fi*fi/float64(n))
		down[i] = cmplx.Exp(complex(0, phase))
		up[i] = cmplx.Exp(complex(0, -phase))
	}
	return chirpTables{upchirp: up, downchirp: down}
}

// dechirpUp fills dst with in multiplied by the reference down-chirp,
// collapsing up-chirp features (preamble, sync word, data) into tones.
func (t chirpTables) dechirpUp(dst, in []complex128) {
	for i := range dst {
		dst[i] = in[i] * t.downchirp[i]
	}
}

// dechirpDown fills dst with in multiplied by the reference up-chirp,
// collapsing down-chirp features (the SFD) into tones. The result feeds the
// diagnostic tap only.
func (t chirpTables) dechirpDown(dst, in []complex128) {
	for i := range dst {
		dst[i] = in[i] * t.upchirp[i]
	}
}
