package vm

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"gosubleq/pkg/image"
)

var tempNames = [...]string{"$t", "$e", "$r"}

// WriteState prints the one-line run summary followed by the temp fields
// of img as they are in the machine's memory.
func (m *Machine) WriteState(w io.Writer, img *image.Image) {
	fmt.Fprintf(w, "pc=%d steps=%d halted=%t\n", m.PC, m.Steps, m.Halted)
	for i, name := range tempNames {
		addr := img.TempStart + int64(i)
		if v, ok := m.Read(addr); ok && addr < int64(img.Len()) {
			fmt.Fprintf(w, "%s@%d=%d\n", name, addr, v)
		}
	}
}

// WriteMemoryTable prints every non-zero cell with its region and source
// line. hits, when non-nil, adds an execution count column.
func (m *Machine) WriteMemoryTable(w io.Writer, img *image.Image, hits map[int64]int64) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Memory")
	header := table.Row{"Addr", "Value", "Initial", "Region", "Line"}
	if hits != nil {
		header = append(header, "Hits")
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	var addrs []int64
	for addr, v := range m.Memory {
		var initial int64
		if addr < img.Len() {
			initial = img.Cells[addr]
		}
		if v != 0 || initial != 0 {
			addrs = append(addrs, int64(addr))
		}
	}

	for _, addr := range addrs {
		var initial int64
		if addr < int64(img.Len()) {
			initial = img.Cells[addr]
		}
		line := ""
		if l, ok := img.Lines[addr]; ok {
			line = fmt.Sprint(l)
		}
		row := table.Row{addr, m.Memory[addr], initial, img.Region(addr), line}
		if hits != nil {
			row = append(row, hits[addr])
		}
		tw.AppendRow(row)
	}
	tw.Render()
}
