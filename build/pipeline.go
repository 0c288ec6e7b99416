// Package build compiles plugin projects and deploys their shared libraries.
//
// A plugin project is an immediate subdirectory of the plugin root holding a build
// manifest. Each project builds in its own child process; a failing project never
// aborts or delays its siblings. All builds, batch and watch-triggered, share one
// bounded pool so a burst of changes queues instead of spawning a compiler per project.
package build

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// Pipeline builds projects and deploys their artifacts
type Pipeline struct {
	cfg    Config
	runner Runner
	logger *zap.SugaredLogger
	pool   *semaphore.Weighted
}

// NewPipeline creates a pipeline. Concurrency below 1 is treated as 1.
func NewPipeline(cfg Config, runner Runner, logger *zap.SugaredLogger) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		pool:   semaphore.NewWeighted(int64(cfg.Concurrency)),
	}
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Discover lists the projects under root
func (p *Pipeline) Discover(root string) ([]Target, error) {
	return Discover(root, p.cfg.Manifest, p.logger)
}

// BuildAll builds every project under root concurrently and reports each outcome.
// The error is non-nil only when the root cannot be scanned or the deploy directory
// cannot be created; project failures are reported as outcomes.
func (p *Pipeline) BuildAll(ctx context.Context, root string) (Report, error) {
	start := time.Now()

	targets, err := p.Discover(root)
	if err != nil {
		return Report{}, err
	}
	if err := ensureDeployDir(p.cfg.DeployDir); err != nil {
		return Report{}, err
	}

	p.logger.Infow("Building plugins",
		logger.FieldCount, len(targets),
		logger.FieldDeployDir, p.cfg.DeployDir,
		"concurrency", p.cfg.Concurrency)

	report := Report{
		Root:      root,
		DeployDir: p.cfg.DeployDir,
		Outcomes:  make([]Outcome, len(targets)),
	}

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			report.Outcomes[i] = p.Build(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	p.logger.Infow("Plugin build finished",
		"built", len(report.Built()),
		"failed", len(report.Failed()),
		logger.FieldDurationMS, report.Duration.Milliseconds())
	return report, nil
}

// Build compiles one project and deploys its libraries. It waits for a free slot in
// the pool first.
func (p *Pipeline) Build(ctx context.Context, target Target) (outcome Outcome) {
	log := p.logger.With(logger.FieldProject, target.Name)
	outcome.Target = target

	if err := p.pool.Acquire(ctx, 1); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.BuildFailure(err, target.Name)
		return outcome
	}
	defer p.pool.Release(1)

	start := time.Now()
	defer func() { outcome.Duration = time.Since(start) }()

	if target.Manifest != nil && !target.Manifest.ProducesLibrary() {
		warning := "manifest does not declare crate-type cdylib"
		outcome.Warnings = append(outcome.Warnings, warning)
		log.Warnw("Project may not produce a loadable library", "reason", warning)
	}

	log.Infow("Building plugin", logger.FieldDir, target.Dir)
	if err := p.runner.Run(ctx, target.Dir, p.cfg.Command); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.BuildFailure(err, target.Name)
		log.Errorw("Plugin build failed", logger.FieldError, err)
		return outcome
	}

	if err := ensureDeployDir(p.cfg.DeployDir); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.BuildFailure(err, target.Name)
		log.Errorw("Failed to deploy plugin", logger.FieldError, err)
		return outcome
	}

	outputDir := filepath.Join(target.Dir, filepath.FromSlash(p.cfg.OutputSubpath))
	artifacts, err := harvest(outputDir, p.cfg.DeployDir, LibraryExtensions(p.cfg.GOOS))
	outcome.Artifacts = artifacts
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.BuildFailure(err, target.Name)
		log.Errorw("Failed to deploy plugin", logger.FieldError, err)
		return outcome
	}

	if len(artifacts) == 0 {
		outcome.Status = StatusNoArtifact
		outcome.Err = errors.Mark(
			errors.Newf("no %v library in %s", LibraryExtensions(p.cfg.GOOS), outputDir),
			errors.ErrNoArtifact)
		log.Warnw("Build produced no library", logger.FieldDir, outputDir)
		return outcome
	}

	outcome.Status = StatusBuilt
	for _, a := range artifacts {
		log.Infow("Deployed plugin", logger.FieldArtifact, a)
	}
	return outcome
}
