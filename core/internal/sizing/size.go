// Package sizing provides checked conversions between the signed widths
// used by container offsets, region sizes and in-memory buffers.
package sizing

import (
	"io"
	"math"
)

// ToInt converts an int64 to int, returning overflowErr if it is negative
// or does not fit.
func ToInt(size int64, overflowErr error) (int, error) {
	if size < 0 || size > math.MaxInt {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt32 converts an int64 to int32, returning overflowErr if it does not fit.
func ToInt32(v int64, overflowErr error) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, overflowErr
	}
	return int32(v), nil
}

// AddInt64 adds two non-negative int64 values, returning (result, false)
// on overflow.
func AddInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// InRange reports whether [off, off+length) lies within [0, size).
func InRange(off, length, size int64) bool {
	end, ok := AddInt64(off, length)
	return ok && end <= size
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize int64, overflowErr error) ([]byte, error) {
	if maxSize < 0 || maxSize > math.MaxInt-1 {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: maxSize + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, overflowErr
	}
	return data, nil
}
