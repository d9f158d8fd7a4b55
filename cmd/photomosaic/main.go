package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ivlev/photomosaic/internal/cache"
	"github.com/ivlev/photomosaic/internal/config"
	"github.com/ivlev/photomosaic/internal/engine"
	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/logger"
	"github.com/ivlev/photomosaic/internal/report"
	"github.com/ivlev/photomosaic/internal/server"
	"github.com/ivlev/photomosaic/internal/system"
)

var version = "dev"

func main() {
	configPtr := flag.String("config", "", "YAML config file; flags given explicitly override it")
	targetPtr := flag.String("target", "", "Target image, URL or pdf#page=N (default: newest image in input/target/)")
	materialsPtr := flag.String("materials", "", "Comma-separated material files, directories, PDFs or URLs (default: input/materials)")
	colsPtr := flag.Int("cols", 32, "Grid columns")
	rowsPtr := flag.Int("rows", 32, "Grid rows")
	blockPtr := flag.Int("block-size", engine.DefaultBlockSize, "Sampled pixels per block side")
	sampleWPtr := flag.Int("sample-width", 20, "Material sampling width")
	sampleHPtr := flag.Int("sample-height", 20, "Material sampling height")
	alphaPtr := flag.Bool("include-alpha", false, "Include alpha in color distance")
	interpPtr := flag.String("interpolation", "bilinear", "Resampling kernel: nearest, approx-bilinear, bilinear, catmull-rom")
	workersPtr := flag.Int("workers", system.DefaultWorkers(), "Concurrent material decodes")
	dpiPtr := flag.Int("dpi", 72, "Rasterization DPI for PDF materials")
	cachePtr := flag.String("cache", "", "SQLite color cache path (empty disables caching)")
	outputPtr := flag.String("output", "", "Report path, .yaml or .yaml.zst (default: generated in output/)")
	statsPtr := flag.Bool("stats", false, "Log timings and append them to benchmark.log")
	verbosePtr := flag.Bool("v", false, "Development logging")
	servePtr := flag.String("serve", "", "Serve the HTTP API on this address instead of running once")
	allowLocalPtr := flag.Bool("allow-local", false, "Let HTTP requests name local files")
	verifyPtr := flag.String("verify", "", "Check a saved report for full grid coverage (\"latest\" picks the newest in output/)")

	flag.Parse()

	l, err := logger.New(*verbosePtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()
	zap.ReplaceGlobals(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.NewContext(ctx, l)

	if *verifyPtr != "" {
		if err := verify(*verifyPtr); err != nil {
			l.Fatal("verify failed", zap.Error(err))
		}
		return
	}

	system.InitResourceLimits(l)

	cfg := config.Default()
	if *configPtr != "" {
		if cfg, err = config.Load(*configPtr); err != nil {
			l.Fatal("load config", zap.Error(err))
		}
	}
	applyFlags(map[string]func(){
		"target":        func() { cfg.Target = *targetPtr },
		"materials":     func() { cfg.Materials = splitList(*materialsPtr) },
		"cols":          func() { cfg.Cols = *colsPtr },
		"rows":          func() { cfg.Rows = *rowsPtr },
		"block-size":    func() { cfg.BlockSize = *blockPtr },
		"sample-width":  func() { cfg.SampleWidth = *sampleWPtr },
		"sample-height": func() { cfg.SampleHeight = *sampleHPtr },
		"include-alpha": func() { cfg.IncludeAlpha = *alphaPtr },
		"interpolation": func() { cfg.Interpolation = *interpPtr },
		"workers":       func() { cfg.Workers = *workersPtr },
		"dpi":           func() { cfg.DPI = *dpiPtr },
		"cache":         func() { cfg.CachePath = *cachePtr },
		"output":        func() { cfg.Output = *outputPtr },
		"stats":         func() { cfg.ShowStats = *statsPtr },
	})
	cfg.BuildVersion = version

	var store index.ColorCache
	if cfg.CachePath != "" {
		s, err := cache.Open(cfg.CachePath)
		if err != nil {
			l.Fatal("open color cache", zap.String("path", cfg.CachePath), zap.Error(err))
		}
		defer s.Close()
		store = s
	}

	if *servePtr != "" {
		if err := cfg.ValidateGrid(); err != nil {
			l.Fatal("invalid config", zap.Error(err))
		}
		srv := server.New(l, cfg, store)
		srv.AllowLocal = *allowLocalPtr
		if err := srv.ListenAndServe(ctx, *servePtr); err != nil {
			l.Fatal("server stopped", zap.Error(err))
		}
		return
	}

	for _, d := range []string{"input/target", "input/materials", "output"} {
		os.MkdirAll(d, 0755)
	}
	if cfg.Target == "" {
		latest, err := system.FindLatestImage("input/target")
		if err != nil {
			l.Fatal("no target given; put an image in input/target/", zap.Error(err))
		}
		cfg.Target = latest
		l.Info("selected target", zap.String("path", latest))
	}
	if len(cfg.Materials) == 0 {
		cfg.Materials = []string{"input/materials"}
	}
	if cfg.Output == "" {
		cfg.Output = report.GeneratePath("output", cfg.Target)
	}

	res, err := engine.NewMosaicProject(cfg, store).Run(ctx)
	if err != nil {
		l.Fatal("mosaic failed", zap.Error(err))
	}

	l.Info("done",
		zap.String("report", cfg.Output),
		zap.Int("blocks", len(res.Records)),
		zap.Int("excluded", len(res.Report.Excluded)))
}

// applyFlags runs the setter of every flag given on the command line, so a
// config file is only overridden where the user asked for it.
func applyFlags(setters map[string]func()) {
	flag.Visit(func(f *flag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func verify(path string) error {
	if path == "latest" {
		latest, err := report.FindLatest("output")
		if err != nil {
			return err
		}
		path = latest
	}
	r, err := report.Read(path)
	if err != nil {
		return err
	}
	if err := r.Verify(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	zap.L().Info("report ok",
		zap.String("path", path),
		zap.Int("cols", r.Cols),
		zap.Int("rows", r.Rows),
		zap.Int("excluded", len(r.Excluded)))
	return nil
}
