package lora

import (
	"encoding/binary"
	"io"
	"math"
)

/*
 * Diagnostic Taps
 * Optional raw dump streams for offline inspection. Each tap receives one
 * record per demodulation step: complex streams as interleaved little-endian
 * float32 I/Q, spectra as little-endian float32 magnitudes. A nil writer
 * disables its tap.
 */

// Taps bundles the per-step dump writers. The zero value disables all
// dumping.
type Taps struct {
	Raw             io.Writer // input samples of the step window
	UpBlock         io.Writer // dechirped (up) block before windowing
	UpBlockWindowed io.Writer // dechirped block after the Kaiser window
	DownBlock       io.Writer // dechirped (down) block
	FFT             io.Writer // raw unfolded magnitude spectrum
}

func (t Taps) active() bool {
	return t.Raw != nil || t.UpBlock != nil || t.UpBlockWindowed != nil ||
		t.DownBlock != nil || t.FFT != nil
}

// dumpStep writes the current step's intermediate signals to the attached
// taps. It must run after the unwindowed spectrum has been computed so the
// FFT tap sees this step's raw magnitudes. Write errors are ignored; the
// taps are diagnostics, not part of the signal path.
func (t Taps) dumpStep(d *PyramidDemod, in []complex128) {
	if !t.active() {
		return
	}
	n := d.geo.numSamples
	writeComplex(t.Raw, in[:n])
	writeComplex(t.UpBlock, d.upBlock)
	writeComplex(t.UpBlockWindowed, d.upBlockW)
	writeComplex(t.DownBlock, d.dnBlock)
	writeFloats(t.FFT, d.analyzer.rawMagnitudes())
}

func writeComplex(w io.Writer, block []complex128) {
	if w == nil {
		return
	}
	buf := make([]byte, 8*len(block))
	for i, c := range block {
		binary.LittleEndian.PutUint32(buf[8*i:], math.Float32bits(float32(real(c))))
		binary.LittleEndian.PutUint32(buf[8*i+4:], math.Float32bits(float32(imag(c))))
	}
	w.Write(buf)
}

func writeFloats(w io.Writer, vals []float64) {
	if w == nil {
		return
	}
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	w.Write(buf)
}
