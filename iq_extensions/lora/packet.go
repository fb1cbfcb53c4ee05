package lora

import (
	"errors"
	"math"
)

/*
 * Packet Assembly
 * Routes classified symbol peaks into in-flight packets. A packet opens on a
 * preamble, collects the data peaks whose timestamps phase-align with its
 * anchor, and closes when its TTL runs out.
 */

// ErrPacketPoolExhausted is returned when a preamble arrives while every
// packet slot is in flight. Like the track pool, this is a tuning failure
// that must not be papered over by dropping packets.
var ErrPacketPoolExhausted = errors.New("packet id pool exhausted: raise the peak threshold or the packet pool size")

// packetState tracks one in-flight packet. The TTL decrements once per step
// and resets whenever the packet accepts a peak.
type packetState struct {
	packetID uint16
	ttl      int
}

// packetAssembler owns the packet peak arena, the in-flight state list and
// the packet-id free list.
type packetAssembler struct {
	numSamples int
	ttlInit    int

	inflight []packetState
	packets  [][]peak // arena indexed by packet id
	ids      *idPool
}

func newPacketAssembler(numSamples, ttlInit int) *packetAssembler {
	packets := make([][]peak, PacketPoolSize)
	for i := range packets {
		packets[i] = make([]peak, 0, 64)
	}
	return &packetAssembler{
		numSamples: numSamples,
		ttlInit:    ttlInit,
		inflight:   make([]packetState, 0, PacketPoolSize),
		packets:    packets,
		ids:        newIDPool(PacketPoolSize),
	}
}

// addPreamble opens a new packet anchored on the preamble peak.
func (pa *packetAssembler) addPreamble(pk peak) error {
	id, ok := pa.ids.acquire()
	if !ok {
		return ErrPacketPoolExhausted
	}
	pa.packets[id] = append(pa.packets[id], pk)
	pa.inflight = append(pa.inflight, packetState{packetID: id, ttl: pa.ttlInit})
	return nil
}

// addData routes a data peak to the in-flight packet whose inter-symbol grid
// it best phase-aligns with, and resets that packet's TTL. Candidates must
// sit past the SFD gap (more than four symbol periods after the anchor) and
// must not be so old that the timestamp distance has wrapped. Returns false
// when no packet accepts the peak.
func (pa *packetAssembler) addData(pk peak) bool {
	bestIdx := -1
	var bestID uint16
	minDis := math.Inf(1)

	for i, ps := range pa.inflight {
		anchor := pa.packets[ps.packetID][0]
		tsDis := posMod(pk.ts-anchor.ts, TimestampMod)
		if tsDis <= 4*pa.numSamples || tsDis >= TimestampMod/2 {
			continue
		}
		dis := phaseDistance(tsDis, pa.numSamples)
		if dis < minDis {
			bestIdx = i
			bestID = ps.packetID
			minDis = dis
		}
	}

	if bestIdx < 0 {
		return false
	}
	pa.inflight[bestIdx].ttl = pa.ttlInit
	pa.packets[bestID] = append(pa.packets[bestID], pk)
	return true
}

// phaseDistance maps a timestamp distance onto [0,1]: 0 when tsDis is a
// whole number of symbol periods (a perfectly grid-aligned peak), 1 when it
// is a half period off. Fractions near 0 and near 1 both mean "close to the
// grid", so the upper half folds down.
func phaseDistance(tsDis, numSamples int) float64 {
	f := float64(posMod(tsDis, numSamples)) / float64(numSamples)
	if f > 0.5 {
		return (1 - f) * 2
	}
	return f * 2
}

// expire finalises every packet whose TTL has reached zero, handing its peak
// sequence to emit (which must not retain the slice), then decrements the
// TTL of the survivors. Emission order is TTL-expiry order, which is the
// order of the packets' last-touched steps.
func (pa *packetAssembler) expire(emit func(pkt []peak)) {
	kept := pa.inflight[:0]
	for _, ps := range pa.inflight {
		if ps.ttl <= 0 {
			emit(pa.packets[ps.packetID])
			pa.packets[ps.packetID] = pa.packets[ps.packetID][:0]
			pa.ids.release(ps.packetID)
			continue
		}
		ps.ttl--
		kept = append(kept, ps)
	}
	pa.inflight = kept
}

func (pa *packetAssembler) inflightCount() int {
	return len(pa.inflight)
}

func (pa *packetAssembler) freeIDs() int {
	return pa.ids.freeCount()
}
