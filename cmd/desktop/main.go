package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"gosubleq/pkg/asm"
	"gosubleq/pkg/config"
	"gosubleq/pkg/grid"
	"gosubleq/pkg/image"
	"gosubleq/pkg/utils"
	"gosubleq/pkg/vm"
)

const (
	cols       = 16
	rows       = 32
	cellWidth  = 64
	cellHeight = 16
	statusRows = 2
	valueChars = 8
)

var face = text.NewGoXFace(basicfont.Face7x13)

var regionColors = map[string]color.RGBA{
	"code": {0x20, 0x30, 0x50, 0xff},
	"data": {0x20, 0x48, 0x28, 0xff},
	"pool": {0x50, 0x40, 0x18, 0xff},
	"temp": {0x50, 0x20, 0x40, 0xff},
	"-":    {0x18, 0x18, 0x18, 0xff},
}

var pcColor = color.RGBA{0xc0, 0x90, 0x10, 0xff}

type Game struct {
	img     *image.Image
	vm      *vm.Machine
	view    grid.Viewport
	running bool
	follow  bool
	speed   int // steps per frame while running
	budget  int64
}

func NewGame(img *image.Image, cfg config.Config) *Game {
	return &Game{
		img:    img,
		vm:     vm.New(img, cfg.MemoryCells),
		view:   grid.Viewport{Cols: cols, Rows: rows},
		follow: true,
		speed:  1,
		budget: cfg.MaxSteps,
	}
}

// advance runs up to n steps, stopping at the halt or the step budget.
func (g *Game) advance(n int) {
	for i := 0; i < n; i++ {
		if g.vm.Halted || (g.budget > 0 && g.vm.Steps >= g.budget) {
			g.running = false
			break
		}
		g.vm.Step()
	}
	if g.follow && !g.vm.Halted {
		g.view = g.view.Follow(int(g.vm.PC), len(g.vm.Memory))
	}
}

func (g *Game) reset() {
	g.vm = vm.New(g.img, len(g.vm.Memory))
	g.running = false
	g.view.First = 0
}

func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.running = !g.running
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.advance(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.reset()
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		g.follow = !g.follow
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		g.speed = min(g.speed*2, 1<<16)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		g.speed = max(g.speed/2, 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		g.view = g.view.Scroll(1, len(g.vm.Memory))
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		g.view = g.view.Scroll(-1, len(g.vm.Memory))
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		g.view = g.view.Scroll(rows, len(g.vm.Memory))
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		g.view = g.view.Scroll(-rows, len(g.vm.Memory))
	}

	if g.running {
		g.advance(g.speed)
	}
	return nil
}

// cellColor is the background of addr: the current triple stands out, the
// rest is tinted by image region.
func (g *Game) cellColor(addr int) color.RGBA {
	pc := int(g.vm.PC)
	if !g.vm.Halted && addr >= pc && addr < pc+3 {
		return pcColor
	}
	return regionColors[g.img.Region(int64(addr))]
}

// formatCell fits v into valueChars columns.
func formatCell(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) > valueChars {
		s = "~" + s[len(s)-valueChars+1:]
	}
	return s
}

func (g *Game) Draw(screen *ebiten.Image) {
	for i := 0; i < g.view.Len(); i++ {
		addr := g.view.First + i
		if addr >= len(g.vm.Memory) {
			break
		}
		x, y := grid.GetGridCoords(i, cols)
		px, py := float32(x*cellWidth), float32(y*cellHeight)
		vector.DrawFilledRect(screen, px, py, cellWidth-1, cellHeight-1, g.cellColor(addr), false)

		op := &text.DrawOptions{}
		op.GeoM.Translate(float64(px)+2, float64(py)+1)
		text.Draw(screen, formatCell(g.vm.Memory[addr]), face, op)
	}

	state := "paused"
	switch {
	case g.vm.Halted:
		state = "halted"
	case g.running:
		state = "running"
	}
	status := fmt.Sprintf("pc=%d steps=%d %s  speed=%d/frame  view=%d..%d",
		g.vm.PC, g.vm.Steps, state, g.speed, g.view.First, g.view.First+g.view.Len()-1)
	if line, ok := g.img.Lines[g.vm.PC]; ok {
		status += fmt.Sprintf("  line %d", line)
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(4, float64(rows*cellHeight)+2)
	text.Draw(screen, status, face, op)

	op = &text.DrawOptions{}
	op.GeoM.Translate(4, float64((rows+1)*cellHeight)+2)
	text.Draw(screen, "space run/pause  s step  r reset  f follow pc  +/- speed  arrows/pgup/pgdn scroll", face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cols * cellWidth, (rows + statusRows) * cellHeight
}

func loadImage(path string, cfg config.Config) (*image.Image, error) {
	src, err := utils.ReadSource(path)
	if err != nil {
		return nil, err
	}
	res, err := asm.Assemble(src, cfg.AsmOptions())
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [-config file] program.sq")
		os.Exit(2)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	img, err := loadImage(flag.Arg(0), cfg)
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cols*cellWidth, (rows+statusRows)*cellHeight)
	ebiten.SetWindowTitle("gosubleq memory")

	if err := ebiten.RunGame(NewGame(img, cfg)); err != nil {
		log.Fatal(err)
	}
}
