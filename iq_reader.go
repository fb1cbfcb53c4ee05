package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwsl/lora_pyramid/iq_extensions/lora"
)

// IQReader reads interleaved little-endian float32 I/Q pairs from a stream
// and delivers them as complex chunks.
type IQReader struct {
	r         io.Reader
	chunkSize int
	closer    io.Closer
}

// NewIQReader wraps an open stream. chunkSize is the number of complex
// samples per delivered chunk.
func NewIQReader(r io.Reader, chunkSize int) *IQReader {
	return &IQReader{
		r:         bufio.NewReaderSize(r, 1<<16),
		chunkSize: chunkSize,
	}
}

// OpenIQReader opens an IQ input by path. "-" means stdin.
func OpenIQReader(path string, chunkSize int) (*IQReader, error) {
	if path == "-" {
		return NewIQReader(os.Stdin, chunkSize), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open IQ input: %w", err)
	}
	reader := NewIQReader(f, chunkSize)
	reader.closer = f
	return reader, nil
}

// Stream reads the input to EOF, sending chunks on iqChan. The channel is
// closed when the input is exhausted. A send in progress is abandoned when
// stopChan closes. A trailing partial chunk is delivered; trailing bytes
// short of one I/Q pair are discarded.
func (ir *IQReader) Stream(iqChan chan<- lora.IQSample, stopChan <-chan struct{}) error {
	defer close(iqChan)

	buf := make([]byte, ir.chunkSize*8)
	var index uint64
	for {
		n, err := io.ReadFull(ir.r, buf)
		if err == io.EOF {
			return nil
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("failed to read IQ input: %w", err)
		}

		pairs := n / 8
		if pairs == 0 {
			return nil
		}
		samples := make([]complex128, pairs)
		for i := 0; i < pairs; i++ {
			re := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8+4:]))
			samples[i] = complex(float64(re), float64(im))
		}

		select {
		case iqChan <- lora.IQSample{IQ: samples, SampleIndex: index}:
		case <-stopChan:
			return nil
		}
		index += uint64(pairs)

		if err == io.ErrUnexpectedEOF {
			return nil
		}
	}
}

// Close closes the underlying file, if any
func (ir *IQReader) Close() error {
	if ir.closer != nil {
		return ir.closer.Close()
	}
	return nil
}
