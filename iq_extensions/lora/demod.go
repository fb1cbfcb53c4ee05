package lora

import (
	"fmt"
	"log"
)

/*
 * Pyramid Demodulator
 * Streaming multi-packet LoRa symbol demodulator. Consumes complex baseband
 * samples one overlap stride at a time and emits, per detected packet, the
 * symbol index sequence for the downstream decoder.
 *
 * Unlike a locked-loop demodulator this block never synchronises to a single
 * packet: every step it dechirps one symbol window, folds the FFT onto the
 * symbol-bin grid, tracks all simultaneous spectral peaks, and assembles
 * closed peak tracks into whichever in-flight packet they phase-align with.
 * Colliding packets demodulate independently.
 */

// PacketMessage is one demodulated packet. Symbols are indices in
// [0, 2^sf); Missing lists the grid positions where no peak was found (those
// symbols are emitted as 0). AnchorTS is the preamble anchor timestamp in
// the block's sample clock, modulo TimestampMod. Metadata is reserved for
// future CFO/SNR annotations.
type PacketMessage struct {
	Metadata map[string]interface{}
	AnchorTS int
	Symbols  []uint16
	Missing  []int
}

// Stats is a snapshot of demodulator counters.
type Stats struct {
	Steps             uint64
	Peaks             uint64
	TracksOpened      uint64
	TracksClosed      uint64
	PreamblesDetected uint64
	OrphanDataPeaks   uint64
	PacketsPublished  uint64
	PacketsDropped    uint64 // finalised with fewer than MinPacketSymbols

	OpenTracks    int
	FreeTrackIDs  int
	OpenPackets   int
	FreePacketIDs int
}

// PyramidDemod is the demodulator block. It is single-threaded: one Work
// call is one atomic step, and the caller must never run two concurrently.
type PyramidDemod struct {
	cfg DemodConfig
	geo geometry

	chirps    chirpTables
	window    []float64
	analyzer  *spectrumAnalyzer
	tracker   *peakTracker
	assembler *packetAssembler

	// Reference cursors. They advance by one overlap stride per step and
	// compensate the natural drift of the unsynchronised dechirp grid, so a
	// track holding one true frequency holds one relative bin.
	tsRef  int
	binRef int

	// Work buffers, reused across steps. Their contents never survive a
	// step.
	upBlock  []complex128
	upBlockW []complex128
	dnBlock  []complex128
	magSum   []float64
	magSumW  []float64

	taps  Taps
	stats Stats
}

// NewPyramidDemod validates cfg and builds the block: chirp tables, Kaiser
// window, FFT plan, peak tracker and packet assembler.
func NewPyramidDemod(cfg DemodConfig) (*PyramidDemod, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pyramid demod config: %w", err)
	}
	geo := deriveGeometry(cfg)

	return &PyramidDemod{
		cfg:       cfg,
		geo:       geo,
		chirps:    newChirpTables(geo.numSamples, geo.p),
		window:    kaiserWindow(geo.numSamples, cfg.Beta),
		analyzer:  newSpectrumAnalyzer(geo.numSamples, geo.fftSize, geo.binSize),
		tracker:   newPeakTracker(geo.binSize, geo.binTolerance),
		assembler: newPacketAssembler(geo.numSamples, geo.ttl),
		upBlock:   make([]complex128, geo.numSamples),
		upBlockW:  make([]complex128, geo.numSamples),
		dnBlock:   make([]complex128, geo.numSamples),
		magSum:    make([]float64, geo.binSize),
		magSumW:   make([]float64, geo.binSize),
	}, nil
}

// AttachTaps installs diagnostic dump writers. Nil writers are no-ops; the
// zero Taps value disables dumping entirely.
func (d *PyramidDemod) AttachTaps(t Taps) {
	d.taps = t
}

// SymbolsPerChirp returns M = 2^sf.
func (d *PyramidDemod) SymbolsPerChirp() int { return d.geo.numSymbols }

// SamplesPerSymbol returns N = p * 2^sf.
func (d *PyramidDemod) SamplesPerSymbol() int { return d.geo.numSamples }

// StepStride returns how many samples one successful Work call consumes.
func (d *PyramidDemod) StepStride() int { return d.geo.numSamples / OverlapFactor }

// Forecast reports the input the block wants before producing nout symbols,
// and the history depth in samples the caller must keep available behind
// the cursor.
func (d *PyramidDemod) Forecast(nout int) (nin, history int) {
	return nout * d.geo.numSymbols, HistoryDepth * d.geo.numSamples
}

// Stats returns a snapshot of the demodulator counters.
func (d *PyramidDemod) Stats() Stats {
	s := d.stats
	s.OpenTracks = d.tracker.openCount()
	s.FreeTrackIDs = d.tracker.freeIDs()
	s.OpenPackets = d.assembler.inflightCount()
	s.FreePacketIDs = d.assembler.freeIDs()
	return s
}

// Work runs one demodulation step on in. It requires at least four symbol
// periods of lookahead; with less input it consumes nothing and returns. On
// success it consumes one overlap stride and returns any packets whose TTL
// expired this step.
//
// A pool-exhaustion error is fatal to the stream: the block's tracking state
// is no longer coherent and the caller must rebuild it with a higher
// threshold or larger pools.
func (d *PyramidDemod) Work(in []complex128) (consumed int, msgs []PacketMessage, err error) {
	n := d.geo.numSamples
	if len(in) < 4*n {
		return 0, nil, nil
	}

	d.chirps.dechirpUp(d.upBlock, in[:n])
	d.chirps.dechirpDown(d.dnBlock, in[:n])
	for i := range d.upBlockW {
		d.upBlockW[i] = d.upBlock[i] * complex(d.window[i], 0)
	}

	d.analyzer.foldedMagnitudes(d.magSum, d.upBlock)
	d.taps.dumpStep(d, in)
	d.analyzer.foldedMagnitudes(d.magSumW, d.upBlockW)

	findPeaks(d.magSum, d.magSumW, d.cfg.Threshold, func(bin int, h float64) {
		if err != nil {
			return
		}
		d.stats.Peaks++
		opened, oerr := d.tracker.observe(d.tsRef, d.binRef, bin, h)
		if oerr != nil {
			err = oerr
			return
		}
		if opened {
			d.stats.TracksOpened++
		}
	})
	if err != nil {
		return 0, nil, err
	}

	d.tracker.sweep(func(obs []peak) {
		if err != nil {
			return
		}
		d.stats.TracksClosed++
		pk, kind := classifyTrack(obs, n)
		switch kind {
		case symbolPreamble:
			d.stats.PreamblesDetected++
			log.Printf("[LoRa Demod] New preamble (ts=%.2f sym, bin=%d, h=%.4f)",
				float64(pk.ts)/float64(n), pk.bin, pk.h)
			err = d.assembler.addPreamble(pk)
		case symbolData:
			if !d.assembler.addData(pk) {
				d.stats.OrphanDataPeaks++
			}
		}
	})
	if err != nil {
		return 0, nil, err
	}

	d.assembler.expire(func(pkt []peak) {
		// emitSymbols rebases the peaks in place, so take the anchor first.
		anchorTS := pkt[0].ts
		symbols, missing := emitSymbols(pkt, n, d.geo.binSize, d.cfg.FFTFactor)
		if len(symbols) < MinPacketSymbols {
			d.stats.PacketsDropped++
			log.Printf("[LoRa Demod] Dropping short packet (%d symbols)", len(symbols))
			return
		}
		d.stats.PacketsPublished++
		log.Printf("[LoRa Demod] Finished packet: %d symbols, %d missing", len(symbols), len(missing))
		msgs = append(msgs, PacketMessage{
			Metadata: map[string]interface{}{},
			AnchorTS: anchorTS,
			Symbols:  symbols,
			Missing:  missing,
		})
	})

	d.tsRef = posMod(d.tsRef+n/OverlapFactor, TimestampMod)
	d.binRef = posMod(d.binRef+d.geo.binSize/OverlapFactor, d.geo.binSize)
	d.stats.Steps++

	return n / OverlapFactor, msgs, nil
}
