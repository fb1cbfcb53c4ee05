package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseDistance(t *testing.T) {
	assert.InDelta(t, 0.0, phaseDistance(256, 256), 1e-12)
	assert.InDelta(t, 0.0, phaseDistance(5*256, 256), 1e-12)
	assert.InDelta(t, 1.0, phaseDistance(128, 256), 1e-12)
	assert.InDelta(t, 0.5, phaseDistance(64, 256), 1e-12)
	assert.InDelta(t, 0.5, phaseDistance(192, 256), 1e-12)
}

func TestAssemblerGatesDataPeaks(t *testing.T) {
	pa := newPacketAssembler(256, 4)
	require.NoError(t, pa.addPreamble(peak{ts: 0, bin: 5, h: 1}))

	// At or inside the four-period SFD gap: rejected.
	assert.False(t, pa.addData(peak{ts: 4 * 256, bin: 9, h: 1}))

	// Wrapped so far that the distance is ambiguous: rejected.
	assert.False(t, pa.addData(peak{ts: TimestampMod/2 + 16, bin: 9, h: 1}))

	// Just past the gap: accepted.
	assert.True(t, pa.addData(peak{ts: 5 * 256, bin: 9, h: 1}))
}

func TestAssemblerRoutesByPhase(t *testing.T) {
	pa := newPacketAssembler(256, 1)
	require.NoError(t, pa.addPreamble(peak{ts: 0, bin: 5, h: 1}))
	require.NoError(t, pa.addPreamble(peak{ts: 128, bin: 50, h: 1}))

	// Grid-aligned with the second anchor, half a period off the first.
	assert.True(t, pa.addData(peak{ts: 128 + 5*256, bin: 60, h: 1}))
	// Grid-aligned with the first anchor.
	assert.True(t, pa.addData(peak{ts: 5 * 256, bin: 20, h: 1}))

	var finished [][]peak
	expireAll := func() {
		pa.expire(func(pkt []peak) {
			cp := make([]peak, len(pkt))
			copy(cp, pkt)
			finished = append(finished, cp)
		})
	}
	expireAll() // ttl 1 -> 0
	require.Empty(t, finished)
	expireAll() // finalise both
	require.Len(t, finished, 2)

	assert.Equal(t, []peak{{ts: 0, bin: 5, h: 1}, {ts: 5 * 256, bin: 20, h: 1}}, finished[0])
	assert.Equal(t, []peak{{ts: 128, bin: 50, h: 1}, {ts: 128 + 5*256, bin: 60, h: 1}}, finished[1])
	assert.Equal(t, 0, pa.inflightCount())
	assert.Equal(t, PacketPoolSize, pa.freeIDs())
}

func TestAssemblerTTLRefreshOnData(t *testing.T) {
	pa := newPacketAssembler(256, 2)
	require.NoError(t, pa.addPreamble(peak{ts: 0, bin: 5, h: 1}))

	noFinish := func(pkt []peak) { t.Fatalf("packet finalised early with %d peaks", len(pkt)) }
	pa.expire(noFinish) // ttl 2 -> 1
	pa.expire(noFinish) // ttl 1 -> 0

	// A matching data peak resets the countdown.
	require.True(t, pa.addData(peak{ts: 5 * 256, bin: 9, h: 1}))
	pa.expire(noFinish) // ttl 2 -> 1
	pa.expire(noFinish) // ttl 1 -> 0

	finished := 0
	pa.expire(func(pkt []peak) {
		finished++
		assert.Len(t, pkt, 2)
	})
	assert.Equal(t, 1, finished)
}

func TestAssemblerPoolExhaustion(t *testing.T) {
	pa := newPacketAssembler(256, 4)
	for i := 0; i < PacketPoolSize; i++ {
		require.NoError(t, pa.addPreamble(peak{ts: i, bin: i, h: 1}))
	}
	err := pa.addPreamble(peak{ts: 999, bin: 1, h: 1})
	assert.ErrorIs(t, err, ErrPacketPoolExhausted)
	assert.Equal(t, 0, pa.freeIDs())
	assert.Equal(t, PacketPoolSize, pa.inflightCount())
}
