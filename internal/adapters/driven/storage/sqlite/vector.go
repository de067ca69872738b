package sqlite

import (
	"encoding/binary"
	"math"
)

// Vectors are stored as raw little-endian float32 components: exactly 4n
// bytes for n components, no header, length prefix, or padding. This layout
// is the sole on-disk representation and must not change, or existing
// databases become unreadable.

// float32SliceToBytes converts a []float32 to its BLOB representation.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a BLOB back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes dot(a,b) / (|a| * |b|). It returns 0.0 when the
// vectors differ in length or either magnitude is zero: mismatched or
// degenerate vectors never rank, and never cause an error.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)

	if magA == 0 || magB == 0 {
		return 0.0
	}

	return float32(dot / (magA * magB))
}
