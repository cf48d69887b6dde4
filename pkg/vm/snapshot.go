package vm

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gosubleq/pkg/image"
	"gosubleq/pkg/word"
)

// snapshotState is the JSON part of a snapshot; memory.bin holds the cells.
type snapshotState struct {
	Width  int   `json:"width"`
	Cells  int   `json:"cells"`
	PC     int64 `json:"pc"`
	Steps  int64 `json:"steps"`
	Halted bool  `json:"halted"`
}

// Snapshot serializes the machine into a zip archive with state.json and
// memory.bin.
func (m *Machine) Snapshot() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := snapshotState{
		Width:  int(m.Width),
		Cells:  len(m.Memory),
		PC:     m.PC,
		Steps:  m.Steps,
		Halted: m.Halted,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := writeZipEntry(zw, "state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", image.EncodeCells(m.Memory, m.Width)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore builds a machine from an archive produced by Snapshot.
func Restore(data []byte) (*Machine, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "state.json")
	if err != nil {
		return nil, err
	}
	var state snapshotState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	width, err := word.Parse(state.Width)
	if err != nil {
		return nil, err
	}

	memData, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return nil, err
	}
	cells, err := image.DecodeCells(memData, width)
	if err != nil {
		return nil, err
	}
	if len(cells) != state.Cells {
		return nil, fmt.Errorf("memory.bin holds %d cells, state.json says %d", len(cells), state.Cells)
	}

	return &Machine{
		Memory: cells,
		Width:  width,
		PC:     state.PC,
		Steps:  state.Steps,
		Halted: state.Halted,
	}, nil
}

func (m *Machine) SnapshotToFile(path string) error {
	data, err := m.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func RestoreFromFile(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Restore(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
