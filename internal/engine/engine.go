package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/photomosaic/internal/config"
	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/logger"
	"github.com/ivlev/photomosaic/internal/matcher"
	"github.com/ivlev/photomosaic/internal/mosaic"
	"github.com/ivlev/photomosaic/internal/report"
	"github.com/ivlev/photomosaic/internal/sampler"
	"github.com/ivlev/photomosaic/internal/source"
)

// MosaicProject runs the whole pipeline for one configuration.
type MosaicProject struct {
	Config *config.Config
	// Cache is optional.
	Cache index.ColorCache
	// StatsLog receives one line per run when Config.ShowStats is set.
	StatsLog string
}

func NewMosaicProject(cfg *config.Config, cache index.ColorCache) *MosaicProject {
	return &MosaicProject{
		Config:   cfg,
		Cache:    cache,
		StatsLog: "benchmark.log",
	}
}

// Result is the outcome of a run.
type Result struct {
	Records []mosaic.MatchRecord
	Index   *index.Index
	Report  *report.Report
}

func (p *MosaicProject) Run(ctx context.Context) (*Result, error) {
	l := logger.FromContext(ctx)
	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	interp, err := sampler.NewInterpolator(cfg.Interpolation)
	if err != nil {
		return nil, err
	}
	s, err := sampler.New(cfg.SampleWidth, cfg.SampleHeight, interp)
	if err != nil {
		return nil, err
	}

	materials := source.Expand(cfg.Materials, cfg.DPI)
	l.Info("starting mosaic",
		zap.String("target", cfg.Target),
		zap.Int("materials", len(materials)),
		zap.Int("cols", cfg.Cols),
		zap.Int("rows", cfg.Rows),
		zap.Int("workers", cfg.Workers))

	opts := []index.Option{index.WithWorkers(cfg.Workers)}
	if p.Cache != nil {
		opts = append(opts, index.WithCache(p.Cache))
	}
	indexStart := time.Now()
	idx, err := index.Build(ctx, s, materials, opts...)
	if err != nil {
		return nil, fmt.Errorf("build color index: %w", err)
	}
	indexTime := time.Since(indexStart)

	asm := &Assembler{
		Matcher:      matcher.Matcher{IncludeAlpha: cfg.IncludeAlpha},
		BlockSize:    cfg.BlockSize,
		Interpolator: interp,
	}
	assembleStart := time.Now()
	records, err := asm.Assemble(ctx, source.Resolve(cfg.Target), cfg.Cols, cfg.Rows, idx)
	if err != nil {
		return nil, err
	}
	assembleTime := time.Since(assembleStart)

	rep := &report.Report{
		Version:      report.Version,
		Target:       cfg.Target,
		Cols:         cfg.Cols,
		Rows:         cfg.Rows,
		BlockSize:    cfg.BlockSize,
		SampleWidth:  cfg.SampleWidth,
		SampleHeight: cfg.SampleHeight,
		IncludeAlpha: cfg.IncludeAlpha,
		Records:      records,
		Excluded:     report.Exclusions(idx.Excluded()),
	}

	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
		if err := report.Write(rep, cfg.Output); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		l.Info("report written", zap.String("path", cfg.Output))
	}

	totalTime := time.Since(startTime)
	if cfg.ShowStats {
		p.logStats(l, len(materials), idx, indexTime, assembleTime, totalTime)
	}

	return &Result{Records: records, Index: idx, Report: rep}, nil
}

func (p *MosaicProject) logStats(l *zap.Logger, materials int, idx *index.Index, indexTime, assembleTime, totalTime time.Duration) {
	cfg := p.Config
	blocks := cfg.Cols * cfg.Rows
	comparisons := blocks * idx.Len()

	l.Info("performance report",
		zap.String("build", cfg.BuildVersion),
		zap.Duration("total", totalTime),
		zap.Duration("index", indexTime),
		zap.Duration("assemble", assembleTime),
		zap.Int("blocks", blocks),
		zap.Int("comparisons", comparisons))

	if p.StatsLog == "" {
		return
	}
	logEntry := fmt.Sprintf("[%s] Build: %s | Target: %s | Materials: %d/%d | Blocks: %d | Total: %.2fs | Index: %.2fs | Assemble: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		cfg.BuildVersion,
		filepath.Base(cfg.Target),
		idx.Len(),
		materials,
		blocks,
		totalTime.Seconds(),
		indexTime.Seconds(),
		assembleTime.Seconds(),
	)

	f, err := os.OpenFile(p.StatsLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.Warn("write stats log", zap.String("path", p.StatsLog), zap.Error(err))
		return
	}
	if _, err := f.WriteString(logEntry); err != nil {
		l.Warn("write stats log", zap.String("path", p.StatsLog), zap.Error(err))
	}
	if err := f.Close(); err != nil {
		l.Warn("close stats log", zap.String("path", p.StatsLog), zap.Error(err))
	}
}
