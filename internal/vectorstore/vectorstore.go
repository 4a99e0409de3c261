// Package vectorstore holds helpers shared by the vector store backends.
// Every backend reports relevance as cosine similarity in [-1, 1].
package vectorstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"rag-web-qa/internal/domain"
)

var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrLengthMismatch    = errors.New("chunks and vectors length mismatch")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// TopK sorts results by descending score and keeps at most k of them.
// Ties keep insertion order.
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// ValidateBatch checks that chunks and vectors pair up and match dimension.
// A dimension of 0 skips the size check.
func ValidateBatch(chunks []domain.Chunk, vectors [][]float64, dimension int) error {
	if len(chunks) != len(vectors) {
		return ErrLengthMismatch
	}
	if dimension == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != dimension {
			return ErrDimensionMismatch
		}
	}
	return nil
}

func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// EncodeVector packs v as little-endian float32 values.
func EncodeVector(v []float64) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, ToFloat32(v))
	return buf.Bytes()
}

// DecodeVector reverses EncodeVector.
func DecodeVector(b []byte) []float64 {
	out := make([]float32, len(b)/4)
	_ = binary.Read(bytes.NewReader(b), binary.LittleEndian, &out)
	return ToFloat64(out)
}
