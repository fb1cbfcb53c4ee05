package lora

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DemodResult is the JSON envelope sent for each finished packet
type DemodResult struct {
	ID              string   `json:"id"`           // Unique packet ID
	Timestamp       int64    `json:"timestamp"`    // Unix milliseconds at emission
	SampleIndex     uint64   `json:"sample_index"` // Stream position of the preamble anchor
	SpreadingFactor int      `json:"spreading_factor"`
	Symbols         []uint16 `json:"symbols"`
	SymbolCount     int      `json:"symbol_count"`
	Missing         []int    `json:"missing,omitempty"` // Symbol positions demodulated as 0 with no peak
}

// LoRaExtension wraps the pyramid demodulator as an IQExtension. It owns the
// sliding sample buffer that feeds the demodulator's step loop.
type LoRaExtension struct {
	demod  *PyramidDemod
	config DemodConfig

	// Sliding buffer. pos is the demodulator's cursor into buf; samples
	// before pos up to the history depth are kept for diagnostics.
	buf []complex128
	pos int

	// Stream accounting. origin is the index of the first sample ever
	// buffered; consumed counts samples the demodulator has stepped past.
	origin    uint64
	received  uint64
	consumed  uint64
	seenFirst bool

	// Control
	running  bool
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// numberParam fetches a numeric parameter regardless of its decoded type
func numberParam(params map[string]interface{}, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// NewLoRaExtension creates a new LoRa IQ extension
func NewLoRaExtension(sampleRate, bandwidth int, extensionParams map[string]interface{}) (*LoRaExtension, error) {
	// Start with default config
	config := DefaultDemodConfig()

	if bandwidth <= 0 || sampleRate%bandwidth != 0 {
		return nil, fmt.Errorf("sample rate %d is not an integer multiple of bandwidth %d", sampleRate, bandwidth)
	}
	config.FsBwRatio = float64(sampleRate / bandwidth)

	// Override with user parameters. Numeric values arrive as float64 from
	// JSON and as int from YAML.
	if sf, ok := numberParam(extensionParams, "spreading_factor"); ok {
		config.SpreadingFactor = int(sf)
	}
	if ldr, ok := extensionParams["low_data_rate"].(bool); ok {
		config.LowDataRate = ldr
	}
	if beta, ok := numberParam(extensionParams, "beta"); ok {
		config.Beta = beta
	}
	if ff, ok := numberParam(extensionParams, "fft_factor"); ok {
		config.FFTFactor = int(ff)
	}
	if th, ok := numberParam(extensionParams, "threshold"); ok {
		config.Threshold = th
	}

	demod, err := NewPyramidDemod(config)
	if err != nil {
		return nil, err
	}

	log.Printf("[LoRa Extension] Created with config: SF=%d, LDR=%v, Beta=%.2f, FFTFactor=%d, Threshold=%g, Fs/BW=%g",
		config.SpreadingFactor, config.LowDataRate, config.Beta, config.FFTFactor, config.Threshold, config.FsBwRatio)

	return &LoRaExtension{
		demod:    demod,
		config:   config,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins processing IQ samples
func (e *LoRaExtension) Start(iqChan <-chan IQSample, resultChan chan<- []byte) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("extension already running")
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.processLoop(iqChan, resultChan)

	return nil
}

// Stop stops the extension
func (e *LoRaExtension) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	return nil
}

// GetName returns the extension name
func (e *LoRaExtension) GetName() string {
	return "lora"
}

// Demod exposes the underlying demodulator for taps and stats
func (e *LoRaExtension) Demod() *PyramidDemod {
	return e.demod
}

// Stats returns the demodulator counters
func (e *LoRaExtension) Stats() Stats {
	return e.demod.Stats()
}

// processLoop is the main processing loop. It appends incoming chunks to the
// sliding buffer and steps the demodulator as long as enough lookahead is
// buffered. A demodulator error is fatal: the tracking state is gone and the
// loop exits.
func (e *LoRaExtension) processLoop(iqChan <-chan IQSample, resultChan chan<- []byte) {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			return

		case chunk, ok := <-iqChan:
			if !ok {
				return
			}
			if !e.seenFirst {
				e.origin = chunk.SampleIndex
				e.seenFirst = true
			} else if want := e.origin + e.received; chunk.SampleIndex != want {
				log.Printf("[LoRa Extension] Input discontinuity: expected sample %d, got %d",
					want, chunk.SampleIndex)
			}
			e.received += uint64(len(chunk.IQ))
			e.buf = append(e.buf, chunk.IQ...)
			if !e.drain(resultChan) {
				return
			}
			e.compact()
		}
	}
}

// drain steps the demodulator until it stops consuming. Returns false when
// the loop must exit.
func (e *LoRaExtension) drain(resultChan chan<- []byte) bool {
	for {
		consumed, msgs, err := e.demod.Work(e.buf[e.pos:])
		if err != nil {
			log.Printf("[LoRa Extension] Demodulator error, stopping: %v", err)
			return false
		}
		e.pos += consumed
		e.consumed += uint64(consumed)
		for _, msg := range msgs {
			e.publish(resultChan, msg)
		}
		if consumed == 0 {
			return true
		}
	}
}

// anchorSampleIndex rebuilds the absolute stream position of a packet anchor
// from its wrapped timestamp. Packets expire well within one timestamp wrap
// of the cursor, so the fold-back is unambiguous.
func (e *LoRaExtension) anchorSampleIndex(anchorTS int) uint64 {
	delta := posMod(int(e.consumed%uint64(TimestampMod))-anchorTS, TimestampMod)
	return e.origin + e.consumed - uint64(delta)
}

func (e *LoRaExtension) publish(resultChan chan<- []byte, msg PacketMessage) {
	result := DemodResult{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UnixMilli(),
		SampleIndex:     e.anchorSampleIndex(msg.AnchorTS),
		SpreadingFactor: e.config.SpreadingFactor,
		Symbols:         msg.Symbols,
		SymbolCount:     len(msg.Symbols),
		Missing:         msg.Missing,
	}
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("[LoRa Extension] Failed to marshal result: %v", err)
		return
	}
	select {
	case resultChan <- payload:
	default:
		log.Printf("[LoRa Extension] Result channel full, dropping packet %s", result.ID)
	}
}

// compact drops consumed samples from the front of the buffer, keeping the
// history depth behind the cursor.
func (e *LoRaExtension) compact() {
	_, history := e.demod.Forecast(1)
	if e.pos <= history {
		return
	}
	keep := e.pos - history
	n := copy(e.buf, e.buf[keep:])
	e.buf = e.buf[:n]
	e.pos = history
}
