package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	emitN = 256 // samples per symbol
	emitB = 128 // folded bins
	emitF = 1   // fft factor
)

// gridPeak places a peak exactly k symbol periods after the anchor carrying
// symbol value sym. On the exact grid the bin drift term vanishes, so the
// peak bin is anchor bin + sym*F.
func gridPeak(anchor peak, k, sym int) peak {
	return peak{
		ts:  posMod(anchor.ts+k*emitN, TimestampMod),
		bin: posMod(anchor.bin+sym*emitF, emitB),
		h:   anchor.h,
	}
}

func TestEmitSymbolsOnGrid(t *testing.T) {
	anchor := peak{ts: 5000, bin: 10, h: 100}
	pkt := []peak{
		anchor,
		gridPeak(anchor, 5, 42),
		gridPeak(anchor, 6, 77),
		gridPeak(anchor, 7, 3),
	}
	symbols, missing := emitSymbols(pkt, emitN, emitB, emitF)
	assert.Equal(t, []uint16{42, 77, 3}, symbols)
	assert.Empty(t, missing)
}

func TestEmitSymbolsPrefersPhaseAlignedPeak(t *testing.T) {
	anchor := peak{ts: 0, bin: 10, h: 100}
	offGrid := peak{ts: 5*emitN - 100, bin: 60, h: 100}
	onGrid := gridPeak(anchor, 5, 42)
	pkt := []peak{anchor, offGrid, onGrid}

	symbols, missing := emitSymbols(pkt, emitN, emitB, emitF)
	assert.Equal(t, []uint16{42}, symbols)
	assert.Empty(t, missing)
}

func TestEmitSymbolsHeightBreaksPhaseTie(t *testing.T) {
	anchor := peak{ts: 0, bin: 10, h: 100}

	// Slightly off grid but at the anchor height.
	nearTS := 5*emitN - 10
	shift := posMod(nearTS, emitN) * emitB / emitN
	near := peak{ts: nearTS, bin: posMod(10+7*emitF+shift, emitB), h: 100}

	// Perfectly on grid but at a tenth of the anchor height.
	weak := gridPeak(anchor, 5, 99)
	weak.h = 10

	symbols, missing := emitSymbols([]peak{anchor, near, weak}, emitN, emitB, emitF)
	assert.Equal(t, []uint16{7}, symbols)
	assert.Empty(t, missing)
}

func TestEmitSymbolsMissingInterval(t *testing.T) {
	anchor := peak{ts: 0, bin: 10, h: 100}
	pkt := []peak{
		anchor,
		gridPeak(anchor, 5, 5),
		gridPeak(anchor, 7, 9),
		gridPeak(anchor, 8, 11),
	}
	symbols, missing := emitSymbols(pkt, emitN, emitB, emitF)
	assert.Equal(t, []uint16{5, 0, 9, 11}, symbols)
	assert.Equal(t, []int{1}, missing)
}

func TestEmitSymbolsBinDriftCompensation(t *testing.T) {
	anchor := peak{ts: 0, bin: 10, h: 100}

	// A quarter period late: the dechirp grid has drifted by a quarter of
	// the bin span and the raw peak bin carries that offset on top of the
	// symbol value.
	ts := 5*emitN + emitN/4
	shift := posMod(ts, emitN) * emitB / emitN
	pk := peak{ts: ts, bin: posMod(10+33*emitF+shift, emitB), h: 100}

	symbols, _ := emitSymbols([]peak{anchor, pk}, emitN, emitB, emitF)
	assert.Equal(t, []uint16{33}, symbols)
}

func TestEmitSymbolsTimestampWrap(t *testing.T) {
	anchor := peak{ts: TimestampMod - 2*emitN, bin: 10, h: 100}
	pkt := []peak{
		anchor,
		gridPeak(anchor, 5, 21), // wrapped past zero
		gridPeak(anchor, 6, 84),
	}
	symbols, missing := emitSymbols(pkt, emitN, emitB, emitF)
	assert.Equal(t, []uint16{21, 84}, symbols)
	assert.Empty(t, missing)
}

func TestEmitSymbolsIgnoresStalePeaks(t *testing.T) {
	anchor := peak{ts: 0, bin: 10, h: 100}
	pkt := []peak{
		anchor,
		{ts: 2 * emitN, bin: 40, h: 50}, // inside the SFD span, never a symbol
		gridPeak(anchor, 5, 64),
	}
	symbols, missing := emitSymbols(pkt, emitN, emitB, emitF)
	assert.Equal(t, []uint16{64}, symbols)
	assert.Empty(t, missing)
}
