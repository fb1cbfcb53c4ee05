package lora

import "errors"

/*
 * Peak Tracking
 * Follows simultaneous chirp peaks across overlapped FFT frames. A track is
 * the trajectory of one spectral peak over consecutive steps; it is extended
 * while the peak stays within bin tolerance and closed the first step the
 * peak is absent.
 */

// ErrTrackPoolExhausted is returned when a step finds more simultaneous peak
// tracks than the pool can hold. The threshold is set too low for the noise
// floor; dropping tracks silently would mask that tuning error.
var ErrTrackPoolExhausted = errors.New("track id pool exhausted: raise the peak threshold or the track pool size")

// openTrackRef indexes an open track by its reference-relative bin. At most
// one ref exists per track, and open refs stay pairwise separated by more
// than the bin tolerance modulo binSize.
type openTrackRef struct {
	bin     int
	trackID uint16
	updated bool
}

// peakTracker owns the open-track index, the track observation arena and the
// track-id free list.
type peakTracker struct {
	binSize      int
	binTolerance int

	open   []openTrackRef
	tracks [][]peak // arena indexed by track id
	ids    *idPool
}

func newPeakTracker(binSize, binTolerance int) *peakTracker {
	tracks := make([][]peak, TrackPoolSize)
	for i := range tracks {
		tracks[i] = make([]peak, 0, OverlapFactor*(NumPreambleChirps+2))
	}
	return &peakTracker{
		binSize:      binSize,
		binTolerance: binTolerance,
		open:         make([]openTrackRef, 0, TrackPoolSize),
		tracks:       tracks,
		ids:          newIDPool(TrackPoolSize),
	}
}

// observe routes one peak observation into an open track, or opens a new
// track when no open ref matches within the bin tolerance. bin is the
// absolute spectral bin; the open-track index is keyed by the bin relative
// to binRef so that a constant true frequency stays on a constant key while
// the unsynchronised dechirp grid drifts. opened reports whether a new
// track was created for this observation.
func (pt *peakTracker) observe(tsRef, binRef, bin int, h float64) (opened bool, err error) {
	curBin := posMod(bin-binRef, pt.binSize)

	for i := range pt.open {
		ref := &pt.open[i]
		dis := posMod(curBin-ref.bin, pt.binSize)
		if dis <= pt.binTolerance || dis >= pt.binSize-pt.binTolerance {
			ref.updated = true
			pt.tracks[ref.trackID] = append(pt.tracks[ref.trackID], peak{ts: tsRef, bin: bin, h: h})
			return false, nil
		}
	}

	id, ok := pt.ids.acquire()
	if !ok {
		return false, ErrTrackPoolExhausted
	}
	pt.open = append(pt.open, openTrackRef{bin: curBin, trackID: id, updated: true})
	pt.tracks[id] = append(pt.tracks[id], peak{ts: tsRef, bin: bin, h: h})
	return true, nil
}

// sweep closes every track that was not updated this step, handing its
// observation sequence to closed, then recycles the id and resets the
// updated flags on the survivors. The closed callback must not retain the
// slice: the arena storage is reused.
func (pt *peakTracker) sweep(closed func(obs []peak)) {
	kept := pt.open[:0]
	for _, ref := range pt.open {
		if !ref.updated {
			closed(pt.tracks[ref.trackID])
			pt.tracks[ref.trackID] = pt.tracks[ref.trackID][:0]
			pt.ids.release(ref.trackID)
			continue
		}
		ref.updated = false
		kept = append(kept, ref)
	}
	pt.open = kept
}

func (pt *peakTracker) openCount() int {
	return len(pt.open)
}

func (pt *peakTracker) freeIDs() int {
	return pt.ids.freeCount()
}
