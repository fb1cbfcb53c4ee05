package lora

import (
	"math"
	"sort"
)

/*
 * Symbol Emission
 * Reconstructs the symbol index sequence of a finalised packet from its
 * (timestamp, bin) peaks relative to the preamble anchor.
 */

// emitSymbols walks the inter-symbol grid of a finalised packet and returns
// the demodulated symbol indices plus the grid positions where no peak was
// found. The peaks slice is normalised and sorted in place.
//
// LoRa places the first payload symbol 4.25 symbol periods after the
// preamble (preamble + NetID + SFD); with the quarter-symbol fix already
// applied to the anchor that is 5 periods, so the first symbol's timestamp
// falls in (4.5, 5.5) periods. Each grid interval selects the peak that best
// matches the anchor in phase and height; the binShift term removes the
// bin-per-sample drift accumulated between the anchor and the peak so that
// bin - preBin recovers the modulation index.
func emitSymbols(pkt []peak, numSamples, binSize, fftFactor int) (symbols []uint16, missing []int) {
	preTS := pkt[0].ts
	preBin := pkt[0].bin
	preH := pkt[0].h

	// Rebase timestamps so the anchor sits at zero.
	for i := range pkt {
		pkt[i].ts = posMod(pkt[i].ts-preTS, TimestampMod)
	}

	sort.SliceStable(pkt, func(i, j int) bool {
		return pkt[i].ts < pkt[j].ts
	})

	intervalL := 4*numSamples + numSamples/2

	// Index 0 is the anchor itself; the walk consumes the rest.
	for idx := 1; idx < len(pkt); {
		// Peaks at or before the interval never match a later one either.
		for idx < len(pkt) && pkt[idx].ts <= intervalL {
			idx++
		}
		if idx >= len(pkt) {
			break
		}

		if pkt[idx].ts < intervalL+numSamples {
			end := idx
			for end < len(pkt) && pkt[end].ts > intervalL && pkt[end].ts < intervalL+numSamples {
				end++
			}

			best := idx
			minDis := math.Inf(1)
			for i := idx; i < end; i++ {
				dis := phaseDistance(pkt[i].ts, numSamples)
				dis += math.Abs(pkt[i].h-preH) / preH
				if dis < minDis {
					minDis = dis
					best = i
				}
			}

			binShift := posMod(pkt[best].ts, numSamples) * binSize / numSamples
			bin := posMod(pkt[best].bin-preBin-binShift, binSize)
			symbols = append(symbols, uint16(bin/fftFactor))
			idx = end
		} else {
			// Empty interval: keep the grid position, try the remaining
			// peaks against the next interval.
			missing = append(missing, len(symbols))
			symbols = append(symbols, 0)
		}

		intervalL = posMod(intervalL+numSamples, TimestampMod)
	}

	return symbols, missing
}
