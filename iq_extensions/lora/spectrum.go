package lora

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

/*
 * Folded Magnitude Spectrum
 * Zero-padded FFT of a dechirped block, folded onto the symbol-bin grid
 */

// spectrumAnalyzer owns the FFT plan and the scratch buffers for one
// demodulator block. It computes folded magnitude spectra of length binSize
// from numSamples-sample dechirped blocks.
type spectrumAnalyzer struct {
	numSamples int
	fftSize    int
	binSize    int

	fft    *fourier.CmplxFFT
	padded []complex128 // zero-padded FFT input
	coeffs []complex128 // FFT output
	mag    []float64    // raw magnitudes, length fftSize
}

func newSpectrumAnalyzer(numSamples, fftSize, binSize int) *spectrumAnalyzer {
	return &spectrumAnalyzer{
		numSamples: numSamples,
		fftSize:    fftSize,
		binSize:    binSize,
		fft:        fourier.NewCmplxFFT(fftSize),
		padded:     make([]complex128, fftSize),
		coeffs:     make([]complex128, fftSize),
		mag:        make([]float64, fftSize),
	}
}

// foldedMagnitudes FFTs block (zero-padding it to fftSize) and folds the
// magnitude spectrum into dst (length binSize) by summing the two lowest and
// the two highest binSize-wide slices. The fold collapses the zero-padded
// spectrum onto the symbol-bin grid and rejects energy outside it.
func (s *spectrumAnalyzer) foldedMagnitudes(dst []float64, block []complex128) {
	copy(s.padded, block[:s.numSamples])
	for i := s.numSamples; i < s.fftSize; i++ {
		s.padded[i] = 0
	}
	s.fft.Coefficients(s.coeffs, s.padded)

	for i, c := range s.coeffs {
		s.mag[i] = cmplx.Abs(c)
	}

	b := s.binSize
	lo2 := s.mag[b : 2*b]
	hi2 := s.mag[s.fftSize-2*b : s.fftSize-b]
	hi1 := s.mag[s.fftSize-b:]
	for i := 0; i < b; i++ {
		dst[i] = s.mag[i] + lo2[i] + hi2[i] + hi1[i]
	}
}

// rawMagnitudes exposes the magnitude buffer of the most recent FFT for the
// diagnostic tap.
func (s *spectrumAnalyzer) rawMagnitudes() []float64 {
	return s.mag
}
