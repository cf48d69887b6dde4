package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/tebeka/atexit"

	"gosubleq/pkg/asm"
	"gosubleq/pkg/config"
	"gosubleq/pkg/image"
	"gosubleq/pkg/utils"
	"gosubleq/pkg/vm"
)

// load assembles a source file, or reads an image when the name ends in
// .bin or .txt.
func load(path string, cfg config.Config) (*image.Image, error) {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(fullPath, image.FormatBinary.Ext()), strings.HasSuffix(fullPath, image.FormatText.Ext()):
		f, err := os.Open(fullPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if strings.HasSuffix(fullPath, image.FormatBinary.Ext()) {
			return image.ReadBinary(f, cfg.Width())
		}
		return image.ReadText(f, cfg.Width())
	}

	src, err := utils.ReadSource(fullPath)
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
	traceSteps := flag.Bool("trace", false, "log every executed instruction")
	showAsm := flag.Bool("show-listing", false, "print the listing before running")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [-config file] [-trace] [-show-listing] program.sq|image.bin|image.txt")
		os.Exit(2)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *traceSteps {
		cfg.LogLevel = "trace"
	}
	slog.SetDefault(cfg.Logger(os.Stderr))

	img, err := load(flag.Arg(0), cfg)
	if err != nil {
		log.Fatalf("Failed to load program: %v", err)
	}
	if *showAsm {
		if err := image.WriteListing(os.Stdout, img); err != nil {
			log.Fatalf("Failed to print listing: %v", err)
		}
	}

	m := vm.New(img, cfg.MemoryCells)
	hits := vm.NewCounter()
	m.Tracer = hits

	// Ctrl-C stops the run and still prints the report.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := 0
	err = m.RunContext(ctx, cfg.MaxSteps)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, vm.ErrStepBudget), errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "stopped: %v\n", err)
		code = 1
	default:
		log.Fatalf("Run failed: %v", err)
	}

	m.WriteState(os.Stdout, img)
	m.WriteMemoryTable(os.Stdout, img, hits.Hits)
	atexit.Exit(code)
}
