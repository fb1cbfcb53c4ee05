package lora

import "fmt"

/*
 * LoRa Demodulator Configuration
 * Chirp-spread-spectrum parameters and their derived constants
 */

// Fixed demodulator constants.
const (
	// OverlapFactor is the number of analysis windows per symbol. The step
	// stride through the input stream is NumSamples/OverlapFactor.
	OverlapFactor = 16

	// NumPreambleChirps is the expected number of identical preamble
	// up-chirps a transmitter sends before the sync word.
	NumPreambleChirps = 6

	// TimestampMod bounds the step timestamp counter. A full packet span
	// must stay well under TimestampMod/2 so that modular timestamp
	// distances remain unambiguous.
	TimestampMod = 1 << 24

	// HistoryDepth is how many symbol periods of already-consumed input the
	// step may peek backwards into. The SFD is 2.25 chirp periods long.
	HistoryDepth = 3

	// TrackPoolSize and PacketPoolSize bound the number of simultaneously
	// open peak tracks and in-flight packets.
	TrackPoolSize  = 40
	PacketPoolSize = 40

	// MinPacketSymbols is the minimum payload length of a valid LoRa packet.
	MinPacketSymbols = 8
)

// DemodConfig contains the demodulator configuration
type DemodConfig struct {
	SpreadingFactor int     // LoRa spreading factor (7-12)
	LowDataRate     bool    // Low data rate optimization flag
	Beta            float64 // Kaiser window shape parameter
	FFTFactor       int     // FFT zero-padding factor (>= 1)
	Threshold       float64 // Peak magnitude floor
	FsBwRatio       float64 // Sample rate / bandwidth ratio (integer-valued)
}

// DefaultDemodConfig returns the configuration used by the reference
// receive chain: SF7 at twice the bandwidth with a beta=4.7 Kaiser window.
func DefaultDemodConfig() DemodConfig {
	return DemodConfig{
		SpreadingFactor: 7,
		LowDataRate:     false,
		Beta:            4.7,
		FFTFactor:       1,
		Threshold:       0.005,
		FsBwRatio:       2,
	}
}

// Validate checks the configuration for construction-time errors
func (c DemodConfig) Validate() error {
	if c.SpreadingFactor < 7 || c.SpreadingFactor > 12 {
		return fmt.Errorf("spreading factor must be in [7,12], got %d", c.SpreadingFactor)
	}
	if c.FFTFactor < 1 {
		return fmt.Errorf("fft factor must be positive, got %d", c.FFTFactor)
	}
	if float64(int(c.FsBwRatio)) != c.FsBwRatio {
		return fmt.Errorf("fs/bw ratio must be integer-valued, got %g", c.FsBwRatio)
	}
	if c.FsBwRatio < 2 {
		// The spectral fold sums four binSize-wide slices of the raw FFT,
		// which only exist when the FFT is at least twice oversampled.
		return fmt.Errorf("fs/bw ratio must be at least 2, got %g", c.FsBwRatio)
	}
	return nil
}

// geometry holds the constants derived from a validated DemodConfig.
type geometry struct {
	p            int // oversampling ratio (fs/bw)
	numSymbols   int // M = 2^sf, symbols per chirp
	numSamples   int // N = p*M, samples per symbol
	binSize      int // B = fftFactor*M, bins after folding
	fftSize      int // fftFactor*N, raw FFT length
	binTolerance int // peak-track bin matching tolerance
	ttl          int // packet time-to-live in steps
}

func deriveGeometry(c DemodConfig) geometry {
	m := 1 << c.SpreadingFactor
	p := int(c.FsBwRatio)
	tol := c.FFTFactor / 2
	if c.LowDataRate {
		tol = c.FFTFactor * 2
	}
	return geometry{
		p:            p,
		numSymbols:   m,
		numSamples:   p * m,
		binSize:      c.FFTFactor * m,
		fftSize:      c.FFTFactor * p * m,
		binTolerance: tol,
		ttl:          6 * OverlapFactor,
	}
}
