package image

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gosubleq/pkg/word"
)

func sample(width word.Width) *Image {
	img := New(8, width)
	copy(img.Cells, []int64{5, 6, -1, width.Min(), width.Max(), 0, 7, -3})
	img.CodeEnd = 3
	img.DataEnd = 5
	img.PoolStart = 5
	img.TempStart = 7
	img.Lines[0], img.Lines[1], img.Lines[2] = 4, 4, 4
	img.Text[0] = "hlt"
	return img
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, w := range []word.Width{word.W8, word.W16, word.W32, word.W64} {
		img := sample(w)
		var buf bytes.Buffer
		if err := WriteBinary(&buf, img); err != nil {
			t.Fatalf("%s: WriteBinary: %v", w, err)
		}
		if got, want := buf.Len(), img.Len()*w.Bytes(); got != want {
			t.Errorf("%s: wrote %d bytes; want %d", w, got, want)
		}
		back, err := ReadBinary(&buf, w)
		if err != nil {
			t.Fatalf("%s: ReadBinary: %v", w, err)
		}
		if diff := cmp.Diff(img.Cells, back.Cells); diff != "" {
			t.Errorf("%s: cells differ (-want +got):\n%s", w, diff)
		}
	}
}

func TestBinaryIsLittleEndian(t *testing.T) {
	img := New(1, word.W16)
	img.Cells[0] = 0x0102
	var buf bytes.Buffer
	if err := WriteBinary(&buf, img); err != nil {
		t.Fatal(err)
	}
	if got := buf.Bytes(); !bytes.Equal(got, []byte{0x02, 0x01}) {
		t.Errorf("bytes = % x; want 02 01", got)
	}
}

func TestDecodeRejectsPartialCell(t *testing.T) {
	if _, err := DecodeCells([]byte{1, 2, 3}, word.W16); err == nil {
		t.Error("expected an error for 3 bytes at 16 bits")
	}
}

func TestTextRoundTrip(t *testing.T) {
	img := sample(word.W16)
	var buf bytes.Buffer
	if err := WriteText(&buf, img); err != nil {
		t.Fatal(err)
	}
	want := "5 6 -1\n-32768 32767 0\n7 -3\n"
	if got := buf.String(); got != want {
		t.Errorf("text =\n%q\nwant\n%q", got, want)
	}
	back, err := ReadText(strings.NewReader(buf.String()), word.W16)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(img.Cells, back.Cells); diff != "" {
		t.Errorf("cells differ (-want +got):\n%s", diff)
	}
}

func TestReadTextWrapsAndRejectsGarbage(t *testing.T) {
	img, err := ReadText(strings.NewReader("255 256\n-129"), word.W8)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{-1, 0, 127}, img.Cells); diff != "" {
		t.Errorf("cells differ (-want +got):\n%s", diff)
	}
	if _, err := ReadText(strings.NewReader("1 two 3"), word.W8); err == nil {
		t.Error("expected an error for a non-numeric cell")
	}
}

func TestListing(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteListing(&buf, sample(word.W64)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ADDR", "code", "data", "pool", "temp", "hlt"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing is missing %q:\n%s", want, out)
		}
	}
}

func TestRegion(t *testing.T) {
	img := sample(word.W64)
	tests := []struct {
		addr int64
		want string
	}{
		{0, "code"}, {2, "code"}, {3, "data"}, {5, "pool"}, {6, "pool"}, {7, "temp"}, {8, "-"}, {-1, "-"},
	}
	for _, tc := range tests {
		if got := img.Region(tc.addr); got != tc.want {
			t.Errorf("Region(%d) = %q; want %q", tc.addr, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "BIN", "listing"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("hex"); err == nil {
		t.Error("ParseFormat(hex) should fail")
	}
}
