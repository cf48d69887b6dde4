// Package grid maps memory addresses to screen cells for the memory viewer.
package grid

// GetGridCoords returns the column and row of index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Viewport is a window of Cols x Rows cells onto memory, starting at First.
type Viewport struct {
	Cols, Rows int
	First      int
}

// Len is the number of cells visible at once.
func (v Viewport) Len() int {
	return v.Cols * v.Rows
}

// Coords places addr in the viewport. ok is false when it is not visible.
func (v Viewport) Coords(addr int) (x, y int, ok bool) {
	i := addr - v.First
	if i < 0 || i >= v.Len() {
		return 0, 0, false
	}
	x, y = GetGridCoords(i, v.Cols)
	return x, y, true
}

// AddrAt is the address shown at column x, row y, or -1 outside the grid.
func (v Viewport) AddrAt(x, y int) int {
	if x < 0 || y < 0 || x >= v.Cols || y >= v.Rows {
		return -1
	}
	return v.First + y*v.Cols + x
}

// Scroll moves the viewport by whole rows and keeps it inside [0, size).
func (v Viewport) Scroll(rows, size int) Viewport {
	v.First += rows * v.Cols
	last := size - v.Len()
	if last < 0 {
		last = 0
	}
	// Keep row alignment so addresses stay in the same column.
	last = (last + v.Cols - 1) / v.Cols * v.Cols
	if v.First > last {
		v.First = last
	}
	if v.First < 0 {
		v.First = 0
	}
	return v
}

// Follow scrolls the least amount needed to make addr visible.
func (v Viewport) Follow(addr, size int) Viewport {
	if _, _, ok := v.Coords(addr); ok || addr < 0 || addr >= size {
		return v
	}
	row := addr / v.Cols
	if addr < v.First {
		v.First = row * v.Cols
	} else {
		v.First = (row - v.Rows + 1) * v.Cols
	}
	return v
}
