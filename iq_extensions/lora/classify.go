package lora

/*
 * Track Classification
 * A closed track is a preamble plateau, a data pyramid, or noise. Preamble
 * tracks are long and flat-topped (the same tone for NumPreambleChirps
 * symbol periods); data tracks are short pyramids that rise and fall within
 * two symbol periods. The two size regimes disambiguate them without a
 * header.
 */

type symbolKind int

const (
	symbolBroken symbolKind = iota
	symbolPreamble
	symbolData
)

// classifyTrack reduces a closed track to a single representative peak.
//
// Preamble tracks anchor the trailing edge of the final preamble chirp plus
// a quarter-symbol offset, matching LoRa's 0.25-symbol fractional shift
// between preamble and payload. The anchor is taken from whichever edge of
// the steady plateau is taller, biased to the right branch on ties. The
// anchor height is the mean of the inner steady portion of the plateau.
//
// Data tracks reduce to their apex, the observation of maximum height.
func classifyTrack(obs []peak, numSamples int) (peak, symbolKind) {
	n := len(obs)

	if n >= OverlapFactor*(NumPreambleChirps-1)+2 {
		lo := n/2 - OverlapFactor*(NumPreambleChirps-1)/2
		hi := (n-1)/2 + OverlapFactor*(NumPreambleChirps-1)/2
		var pk peak
		if obs[lo].h > obs[hi].h {
			pk.ts = obs[lo].ts + numSamples/4 + (NumPreambleChirps-1)*numSamples
			pk.bin = obs[lo].bin
		} else {
			pk.ts = obs[hi].ts + numSamples/4
			pk.bin = obs[hi].bin
		}
		sum := 0.0
		for i := OverlapFactor * 2; i < OverlapFactor*(NumPreambleChirps-2); i++ {
			sum += obs[i].h
		}
		pk.h = sum / float64(OverlapFactor*(NumPreambleChirps-4))
		return pk, symbolPreamble
	}

	if n >= 2 && n <= 2*OverlapFactor {
		apex := obs[0]
		for _, pk := range obs[1:] {
			if pk.h > apex.h {
				apex = pk
			}
		}
		return apex, symbolData
	}

	return peak{}, symbolBroken
}
