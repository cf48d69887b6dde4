package image

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"gosubleq/pkg/word"
)

// Format selects an output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatBinary  Format = "bin"
	FormatListing Format = "listing"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatBinary, FormatListing:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, bin or listing)", s)
}

// Ext is the conventional file extension for f.
func (f Format) Ext() string {
	switch f {
	case FormatBinary:
		return ".bin"
	case FormatListing:
		return ".lst"
	}
	return ".txt"
}

// Write serializes img to w.
func Write(w io.Writer, img *Image, f Format) error {
	switch f {
	case FormatText:
		return WriteText(w, img)
	case FormatBinary:
		return WriteBinary(w, img)
	case FormatListing:
		return WriteListing(w, img)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// EncodeCells packs cells little-endian, width/8 bytes each.
func EncodeCells(cells []int64, width word.Width) []byte {
	n := width.Bytes()
	out := make([]byte, len(cells)*n)
	for i, v := range cells {
		b := out[i*n : (i+1)*n]
		switch width {
		case word.W8:
			b[0] = byte(v)
		case word.W16:
			binary.LittleEndian.PutUint16(b, uint16(v))
		case word.W32:
			binary.LittleEndian.PutUint32(b, uint32(v))
		default:
			binary.LittleEndian.PutUint64(b, uint64(v))
		}
	}
	return out
}

// DecodeCells is the inverse of EncodeCells. Values are sign-extended.
func DecodeCells(data []byte, width word.Width) ([]int64, error) {
	n := width.Bytes()
	if n == 0 || len(data)%n != 0 {
		return nil, fmt.Errorf("image of %d bytes is not a whole number of %s cells", len(data), width)
	}
	cells := make([]int64, len(data)/n)
	for i := range cells {
		b := data[i*n : (i+1)*n]
		switch width {
		case word.W8:
			cells[i] = int64(int8(b[0]))
		case word.W16:
			cells[i] = int64(int16(binary.LittleEndian.Uint16(b)))
		case word.W32:
			cells[i] = int64(int32(binary.LittleEndian.Uint32(b)))
		default:
			cells[i] = int64(binary.LittleEndian.Uint64(b))
		}
	}
	return cells, nil
}

func WriteBinary(w io.Writer, img *Image) error {
	_, err := w.Write(EncodeCells(img.Cells, img.Width))
	return err
}

// WriteText writes decimal cells, three per line so each line is a triple
// in the code region.
func WriteText(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	for i, v := range img.Cells {
		switch {
		case i == 0:
		case i%3 == 0:
			bw.WriteByte('\n')
		default:
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.FormatInt(v, 10))
	}
	if len(img.Cells) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteListing renders a table: one row per triple in the code region and
// one row per cell elsewhere.
func WriteListing(w io.Writer, img *Image) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Addr", "A", "B", "C / Value", "Region", "Line", "Source"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	addr := int64(0)
	for addr < int64(len(img.Cells)) {
		line := ""
		if l, ok := img.Lines[addr]; ok {
			line = strconv.Itoa(l)
		}
		if addr+2 < img.CodeEnd {
			t.AppendRow(table.Row{addr, img.Cells[addr], img.Cells[addr+1], img.Cells[addr+2], "code", line, img.Text[addr]})
			addr += 3
			continue
		}
		t.AppendRow(table.Row{addr, "", "", img.Cells[addr], img.Region(addr), line, img.Text[addr]})
		addr++
	}
	t.Render()
	return nil
}

// ReadBinary loads an image written by WriteBinary. Region marks are lost;
// the whole image is treated as code.
func ReadBinary(r io.Reader, width word.Width) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cells, err := DecodeCells(data, width)
	if err != nil {
		return nil, err
	}
	return fromCells(cells, width), nil
}

// ReadText loads whitespace-separated decimal cells. Values are wrapped to
// width.
func ReadText(r io.Reader, width word.Width) (*Image, error) {
	var cells []int64
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", len(cells), err)
		}
		cells = append(cells, width.Wrap(v))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return fromCells(cells, width), nil
}

func fromCells(cells []int64, width word.Width) *Image {
	img := New(0, width)
	img.Cells = cells
	n := int64(len(cells))
	img.CodeEnd, img.DataEnd, img.PoolStart, img.TempStart = n, n, n, n
	return img
}
