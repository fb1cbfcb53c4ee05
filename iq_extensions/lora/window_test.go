package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKaiserWindowShape(t *testing.T) {
	w := kaiserWindow(256, 4.7)
	for i := 0; i < 128; i++ {
		assert.InDelta(t, w[i], w[255-i], 1e-12, "window must be symmetric at %d", i)
	}
	for i := 1; i <= 127; i++ {
		assert.Greater(t, w[i], w[i-1], "window must rise towards the centre at %d", i)
	}
	assert.Less(t, w[0], 0.1)
	assert.Greater(t, w[0], 0.0)
	assert.LessOrEqual(t, w[127], 1.0)
	assert.Greater(t, w[127], 0.99)
}

func TestKaiserWindowZeroBetaIsRectangular(t *testing.T) {
	for _, v := range kaiserWindow(64, 0) {
		assert.InDelta(t, 1.0, v, 1e-15)
	}
}

func TestKaiserWindowSinglePoint(t *testing.T) {
	assert.Equal(t, []float64{1}, kaiserWindow(1, 4.7))
}

func TestBesselI0(t *testing.T) {
	assert.InDelta(t, 1.0, besselI0(0), 1e-15)
	// I0(1) = 1.2660658..., I0(4.7) = 20.8585...
	assert.InDelta(t, 1.2660658, besselI0(1), 1e-6)
	assert.InDelta(t, 20.8585, besselI0(4.7), 1e-2)
}
