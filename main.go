//go:build !js

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"github.com/tebeka/atexit"
	"gosubleq/pkg/asm"
	"gosubleq/pkg/config"
	"gosubleq/pkg/image"
	"gosubleq/pkg/utils"
	"gosubleq/pkg/vm"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	inPath       string
	outPath      string
	format       string
	configPath   string
	logPath      string
	wordBits     int
	runProgram   bool
	runBinPath   string
	maxSteps     int64
	report       bool
	snapshotPath string
}

// run is the whole CLI; it returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("gosubleq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.inPath, "in", "", "input assembly file path")
	fs.StringVar(&o.outPath, "out", "", "output image path (default: input with the format's extension)")
	fs.StringVar(&o.format, "format", "", "output format: text, bin or listing (default from config)")
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.logPath, "log", "", "write logs to this file instead of stderr")
	fs.IntVar(&o.wordBits, "bits", 0, "cell width in bits: 8, 16, 32 or 64 (default from config)")
	fs.BoolVar(&o.runProgram, "run", false, "run the assembled image on the interpreter")
	fs.StringVar(&o.runBinPath, "run-bin", "", "run an existing image file (.bin or text)")
	fs.Int64Var(&o.maxSteps, "max-steps", -1, "step budget for -run, 0 for unlimited (default from config)")
	fs.BoolVar(&o.report, "report", false, "print the non-zero memory cells after a run")
	fs.StringVar(&o.snapshotPath, "snapshot", "", "save the machine to this zip after a run")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if o.runProgram && o.runBinPath != "" {
		fmt.Fprintln(stderr, "use either -run or -run-bin, not both")
		return 2
	}
	if o.inPath == "" && o.runBinPath == "" {
		fmt.Fprintln(stderr, "nothing to do: provide -in to assemble, -run to run assembled output, or -run-bin <file> to run an existing image")
		fs.Usage()
		return 2
	}
	if o.runProgram && o.inPath == "" {
		fmt.Fprintln(stderr, "-run requires -in, or use -run-bin <file>")
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	logOut := stderr
	if o.logPath != "" {
		f, err := os.Create(o.logPath)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open log file %q: %v\n", o.logPath, err)
			return 1
		}
		atexit.Register(func() { f.Close() })
		logOut = f
	}
	slog.SetDefault(cfg.Logger(logOut))

	var img *image.Image
	if o.inPath != "" {
		img, err = assembleFile(o, cfg, stdout)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	switch {
	case o.runBinPath != "":
		img, err = readImage(o.runBinPath, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load image %q: %v\n", o.runBinPath, err)
			return 1
		}
	case !o.runProgram:
		return 0
	}

	if err := runImage(img, cfg, o, stdout); err != nil {
		fmt.Fprintf(stderr, "run failed: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file, then applies the flags that were set.
func loadConfig(o options) (config.Config, error) {
	cfg := config.Defaults()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if o.wordBits != 0 {
		cfg.WordBits = o.wordBits
	}
	if o.maxSteps >= 0 {
		cfg.MaxSteps = o.maxSteps
	}
	return cfg, cfg.Validate()
}

func assembleFile(o options, cfg config.Config, stdout io.Writer) (*image.Image, error) {
	source, err := utils.ReadSource(o.inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %q: %w", o.inPath, err)
	}

	res, err := asm.Assemble(source, cfg.AsmOptions())
	if err != nil {
		return nil, fmt.Errorf("assembly failed: %w", err)
	}

	format := cfg.OutputFormat()
	output := o.outPath
	if output == "" {
		output = utils.DefaultOutputPath(o.inPath, format.Ext())
	}

	var buf bytes.Buffer
	if err := image.Write(&buf, res.Image, format); err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(output, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write image file %q: %w", output, err)
	}

	fmt.Fprintf(stdout, "assembled %d cells (%s, %d triples) -> %s\n",
		res.Image.Len(), res.Image.Width, len(res.Triples), output)
	return res.Image, nil
}

// readImage loads a binary image by extension and anything else as text.
func readImage(path string, cfg config.Config) (*image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case image.FormatBinary.Ext():
		return image.ReadBinary(f, cfg.Width())
	case image.FormatListing.Ext():
		return nil, errors.New("listings cannot be loaded, assemble to text or bin")
	}
	return image.ReadText(f, cfg.Width())
}

func runImage(img *image.Image, cfg config.Config, o options, stdout io.Writer) error {
	m := vm.New(img, cfg.MemoryCells)
	var hits *vm.Counter
	if o.report {
		hits = vm.NewCounter()
		m.Tracer = hits
	}

	runErr := m.Run(cfg.MaxSteps)
	if runErr != nil && !errors.Is(runErr, vm.ErrStepBudget) {
		return runErr
	}

	m.WriteState(stdout, img)
	if o.report {
		m.WriteMemoryTable(stdout, img, hits.Hits)
	}
	if o.snapshotPath != "" {
		if err := m.SnapshotToFile(o.snapshotPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "snapshot -> %s\n", o.snapshotPath)
	}
	return runErr
}
