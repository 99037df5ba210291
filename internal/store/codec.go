package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*float32Size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte, dims int) ([]float32, error) {
	if len(b) != dims*float32Size {
		return nil, fmt.Errorf("vector blob is %d bytes, expected %d", len(b), dims*float32Size)
	}
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}
