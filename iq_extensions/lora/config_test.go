package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultDemodConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DemodConfig)
	}{
		{"sf too low", func(c *DemodConfig) { c.SpreadingFactor = 6 }},
		{"sf too high", func(c *DemodConfig) { c.SpreadingFactor = 13 }},
		{"zero fft factor", func(c *DemodConfig) { c.FFTFactor = 0 }},
		{"fractional fs/bw", func(c *DemodConfig) { c.FsBwRatio = 2.5 }},
		{"fs/bw below 2", func(c *DemodConfig) { c.FsBwRatio = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDemodConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDeriveGeometrySF7(t *testing.T) {
	geo := deriveGeometry(DefaultDemodConfig())
	assert.Equal(t, 2, geo.p)
	assert.Equal(t, 128, geo.numSymbols)
	assert.Equal(t, 256, geo.numSamples)
	assert.Equal(t, 128, geo.binSize)
	assert.Equal(t, 256, geo.fftSize)
	assert.Equal(t, 0, geo.binTolerance)
	assert.Equal(t, 6*OverlapFactor, geo.ttl)
}

func TestDeriveGeometryLowDataRate(t *testing.T) {
	cfg := DefaultDemodConfig()
	cfg.LowDataRate = true
	cfg.FFTFactor = 2
	geo := deriveGeometry(cfg)
	assert.Equal(t, 4, geo.binTolerance)
	assert.Equal(t, 256, geo.binSize)
	assert.Equal(t, 512, geo.fftSize)
}
