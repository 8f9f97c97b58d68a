package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/marque-journal/marque/builder/metrics"
	"github.com/marque-journal/marque/builder/services"
	"github.com/marque-journal/marque/builder/utils"
)

type writeTask struct {
	artifact services.Artifact
	file     string
}

// Build executes a single build pass: reload content, generate every
// artifact, write the ones that changed and remove the ones that are gone.
func (b *Builder) Build(ctx context.Context) (*metrics.BuildMetrics, error) {
	m := metrics.NewBuildMetrics()
	m.CacheRebuilt = b.cacheRebuilt
	b.cacheRebuilt = false

	// 1. Content
	start := time.Now()
	if err := b.feeds.Reload(); err != nil {
		return m, fmt.Errorf("load content: %w", err)
	}
	for _, n := range b.feeds.Counts() {
		m.RecordsLoaded += n
	}
	m.LoadTime = time.Since(start)

	// 2. Generate
	start = time.Now()
	artifacts, err := b.feeds.Artifacts(ctx)
	if err != nil {
		return m, fmt.Errorf("generate artifacts: %w", err)
	}
	if b.minifier != nil {
		if artifacts, err = b.minify(artifacts); err != nil {
			return m, err
		}
	}
	m.GenerateTime = time.Since(start)

	keep := make(map[string]bool, len(artifacts))
	tasks := make([]writeTask, 0, len(artifacts))
	for _, a := range artifacts {
		file, err := utils.OutputPath(b.cfg.OutputDir, a.Path)
		if err != nil {
			return m, err
		}
		keep[a.Path] = true
		tasks = append(tasks, writeTask{artifact: a, file: file})
	}

	// 3. Write
	start = time.Now()
	pool := utils.NewWorkerPool(ctx, b.workers(), func(_ context.Context, t writeTask) error {
		return b.write(t, m)
	})
	pool.Start()
	for _, t := range tasks {
		pool.Submit(t)
	}
	if err := pool.Stop(); err != nil {
		return m, fmt.Errorf("write artifacts: %w", err)
	}
	m.WriteTime = time.Since(start)

	// 4. Prune artifacts that are no longer generated
	removed, err := b.cache.Prune(keep)
	if err != nil {
		b.logger.Warn("failed to prune build cache", "error", err)
	}
	for _, p := range removed {
		file, err := utils.OutputPath(b.cfg.OutputDir, p)
		if err != nil {
			continue
		}
		if err := b.DestFs.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("failed to remove stale artifact", "path", file, "error", err)
		}
	}
	m.RecordPrune(len(removed))

	if err := b.cache.IncrementBuildCount(); err != nil {
		b.logger.Warn("failed to update build count", "error", err)
	}
	m.RecordEnd()
	return m, nil
}

func (b *Builder) write(t writeTask, m *metrics.BuildMetrics) error {
	a := t.artifact
	unchanged, err := b.cache.Unchanged(a.Path, a.Body)
	if err != nil {
		return fmt.Errorf("check %s: %w", a.Path, err)
	}
	if unchanged {
		if ok, _ := afero.Exists(b.DestFs, t.file); ok {
			m.RecordSkip()
			return nil
		}
	}

	if err := utils.WriteFileVFS(b.DestFs, t.file, a.Body); err != nil {
		return err
	}
	if _, err := b.cache.PutArtifact(a.Path, a.ContentType, a.Body); err != nil {
		return fmt.Errorf("record %s: %w", a.Path, err)
	}
	m.RecordWrite(len(a.Body))
	b.logger.Debug("artifact written", "path", a.Path, "bytes", len(a.Body))
	return nil
}

// minify returns a copy of artifacts with XML bodies minified.
func (b *Builder) minify(artifacts []services.Artifact) ([]services.Artifact, error) {
	out := make([]services.Artifact, len(artifacts))
	for i, a := range artifacts {
		out[i] = a
		var mime string
		switch {
		case strings.HasPrefix(a.ContentType, utils.MimeRSS):
			mime = utils.MimeRSS
		case strings.HasPrefix(a.ContentType, utils.MimeXML):
			mime = utils.MimeXML
		default:
			continue
		}
		body, err := utils.MinifyXML(b.minifier, mime, a.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Path, err)
		}
		out[i].Body = body
	}
	return out, nil
}

func (b *Builder) workers() int {
	if b.cfg.Build != nil && b.cfg.Build.DefaultWorkers > 0 {
		return b.cfg.Build.DefaultWorkers
	}
	return utils.GetDefaultWorkerCount()
}
