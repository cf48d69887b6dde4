// Package image holds an assembled SUBLEQ program and serializes it.
//
// An Image is a flat array of cells. The region marks only describe where
// the assembler put things; the machine itself makes no distinction between
// code and data.
package image

import (
	"fmt"

	"gosubleq/pkg/word"
)

// Image is the output of the assembler and the input of the interpreter.
//
//	[0, CodeEnd)           triples
//	[CodeEnd, DataEnd)     db/dw/dd/dq and resX cells
//	[PoolStart, TempStart) virtual literals
//	[TempStart, len)       $t, $e, $r
type Image struct {
	Cells []int64
	Width word.Width

	CodeEnd   int64
	DataEnd   int64
	PoolStart int64
	TempStart int64

	// Lines maps a cell address to the source line that produced it.
	Lines map[int64]int
	// Text holds the source text of the item that starts at an address.
	Text map[int64]string
}

// New returns a zeroed image of n cells with no region marks.
func New(n int, width word.Width) *Image {
	return &Image{
		Cells:     make([]int64, n),
		Width:     width,
		CodeEnd:   int64(n),
		DataEnd:   int64(n),
		PoolStart: int64(n),
		TempStart: int64(n),
		Lines:     make(map[int64]int),
		Text:      make(map[int64]string),
	}
}

// Len is the number of cells.
func (img *Image) Len() int {
	return len(img.Cells)
}

// Region names the part of the image addr belongs to.
func (img *Image) Region(addr int64) string {
	switch {
	case addr < 0 || addr >= int64(len(img.Cells)):
		return "-"
	case addr < img.CodeEnd:
		return "code"
	case addr < img.DataEnd:
		return "data"
	case addr < img.TempStart:
		return "pool"
	}
	return "temp"
}

// Temp returns the value of the i-th temp field ($t, $e, $r).
func (img *Image) Temp(i int) (int64, bool) {
	addr := img.TempStart + int64(i)
	if i < 0 || addr >= int64(len(img.Cells)) {
		return 0, false
	}
	return img.Cells[addr], true
}

// Equal reports whether two images hold the same cells at the same width.
func (img *Image) Equal(other *Image) bool {
	if img.Width != other.Width || len(img.Cells) != len(other.Cells) {
		return false
	}
	for i := range img.Cells {
		if img.Cells[i] != other.Cells[i] {
			return false
		}
	}
	return true
}

func (img *Image) String() string {
	return fmt.Sprintf("image: %d cells (%s), code [0,%d) data [%d,%d) pool [%d,%d) temps [%d,%d)",
		len(img.Cells), img.Width, img.CodeEnd, img.CodeEnd, img.DataEnd,
		img.PoolStart, img.TempStart, img.TempStart, len(img.Cells))
}
