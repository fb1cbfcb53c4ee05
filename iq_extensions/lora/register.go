package lora

import (
	"fmt"
)

// IQSample is one chunk of complex baseband samples. SampleIndex is the
// stream position of the first sample in IQ.
type IQSample struct {
	IQ          []complex128
	SampleIndex uint64
}

// IQExtensionParams contains IQ stream parameters (from the input source, not user-configurable)
type IQExtensionParams struct {
	SampleRate int // Hz (e.g., 1000000)
	Bandwidth  int // Hz (e.g., 125000, 250000, 500000)
}

// IQExtension interface for extensible IQ processors
type IQExtension interface {
	Start(iqChan <-chan IQSample, resultChan chan<- []byte) error
	Stop() error
	GetName() string
}

// IQExtensionFactory is a function that creates a new extension instance
type IQExtensionFactory func(iqParams IQExtensionParams, extensionParams map[string]interface{}) (IQExtension, error)

// Factory creates a new LoRa extension instance
func Factory(iqParams IQExtensionParams, extensionParams map[string]interface{}) (IQExtension, error) {
	if iqParams.SampleRate <= 0 {
		return nil, fmt.Errorf("LoRa requires a positive sample rate (got %d)", iqParams.SampleRate)
	}
	if iqParams.Bandwidth <= 0 {
		return nil, fmt.Errorf("LoRa requires a positive bandwidth (got %d)", iqParams.Bandwidth)
	}

	return NewLoRaExtension(iqParams.SampleRate, iqParams.Bandwidth, extensionParams)
}

// GetInfo returns extension metadata
func GetInfo() map[string]interface{} {
	return map[string]interface{}{
		"name":        "lora",
		"description": "Multi-packet LoRa chirp spread spectrum symbol demodulator",
		"version":     "1.0.0",
		"parameters": map[string]interface{}{
			"spreading_factor": map[string]interface{}{
				"type":        "number",
				"description": "LoRa spreading factor",
				"default":     7.0,
				"min":         7.0,
				"max":         12.0,
			},
			"low_data_rate": map[string]interface{}{
				"type":        "boolean",
				"description": "Low data rate optimisation (widens peak tracking tolerance)",
				"default":     false,
			},
			"beta": map[string]interface{}{
				"type":        "number",
				"description": "Kaiser window beta for the peak detection spectrum",
				"default":     4.7,
			},
			"fft_factor": map[string]interface{}{
				"type":        "number",
				"description": "FFT zero-padding factor (bins per symbol index)",
				"default":     1.0,
				"min":         1.0,
			},
			"threshold": map[string]interface{}{
				"type":        "number",
				"description": "Peak detection magnitude threshold",
				"default":     0.005,
			},
		},
		"output_format": map[string]interface{}{
			"type":        "json",
			"description": "One JSON object per demodulated packet",
			"fields": []map[string]interface{}{
				{
					"name":        "id",
					"type":        "string",
					"description": "Unique packet ID (UUID)",
				},
				{
					"name":        "timestamp",
					"type":        "number",
					"description": "Unix milliseconds at packet emission",
				},
				{
					"name":        "sample_index",
					"type":        "number",
					"description": "Stream position of the preamble anchor",
				},
				{
					"name":        "spreading_factor",
					"type":        "number",
					"description": "Spreading factor the packet was demodulated with",
				},
				{
					"name":        "symbols",
					"type":        "array",
					"description": "Demodulated symbol indices in [0, 2^sf)",
				},
				{
					"name":        "symbol_count",
					"type":        "number",
					"description": "Number of demodulated symbols",
				},
				{
					"name":        "missing",
					"type":        "array",
					"description": "Symbol positions emitted as 0 because no peak was found",
				},
			},
		},
	}
}
