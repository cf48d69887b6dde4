// Package word implements the signed fixed-width cell arithmetic shared by
// the assembler and the interpreter. Every value is kept in an int64 that has
// already been wrapped (two's complement) to the configured width.
package word

import "fmt"

// Width is the size of one memory cell in bits.
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Default is the machine word.
const Default = W64

// Valid reports whether w is one of the supported cell widths.
func (w Width) Valid() bool {
	switch w {
	case W8, W16, W32, W64:
		return true
	}
	return false
}

// Parse converts a bit count into a Width.
func Parse(bits int) (Width, error) {
	w := Width(bits)
	if bits < 0 || bits > 64 || !w.Valid() {
		return 0, fmt.Errorf("unsupported cell width %d (want 8, 16, 32 or 64)", bits)
	}
	return w, nil
}

// Bytes is the number of bytes a cell occupies when serialized.
func (w Width) Bytes() int {
	return int(w) / 8
}

// Wrap truncates v to w bits and sign-extends the result.
func (w Width) Wrap(v int64) int64 {
	if w >= W64 || w == 0 {
		return v
	}
	shift := 64 - uint(w)
	return (v << shift) >> shift
}

// Max is the largest value a cell of width w can hold.
func (w Width) Max() int64 {
	if w >= W64 || w == 0 {
		return 1<<63 - 1
	}
	return 1<<(uint(w)-1) - 1
}

// Min is the smallest value a cell of width w can hold.
func (w Width) Min() int64 {
	if w >= W64 || w == 0 {
		return -1 << 63
	}
	return -1 << (uint(w) - 1)
}

// Sub returns a - b wrapped to w.
func (w Width) Sub(a, b int64) int64 {
	return w.Wrap(a - b)
}

// Narrow returns the smaller of two widths.
func Narrow(a, b Width) Width {
	if a < b {
		return a
	}
	return b
}

func (w Width) String() string {
	return fmt.Sprintf("%d-bit", uint8(w))
}
