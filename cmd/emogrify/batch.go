package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"emogrify/pkg/inliner"
)

// batch describes a directory conversion.
type batch struct {
	inputDir   string
	outputDir  string
	jobs       int
	newInliner func() *inliner.Inliner
}

// runBatch inlines every HTML file under inputDir into the same relative path
// under outputDir. Files are processed concurrently, each with its own
// Inliner. A failing file does not stop the others; all failures are
// returned together. Cancelling ctx stops scheduling new files.
func runBatch(ctx context.Context, log *zap.Logger, b batch) (inliner.Stats, error) {
	var total inliner.Stats

	files, err := findHTMLFiles(b.inputDir)
	if err != nil {
		return total, fmt.Errorf("failed to find HTML files: %w", err)
	}
	if len(files) == 0 {
		return total, fmt.Errorf("no HTML files found in directory: %s", b.inputDir)
	}
	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return total, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		mu     sync.Mutex
		failed error
	)
	g, gctx := errgroup.WithContext(ctx)
	if b.jobs > 0 {
		g.SetLimit(b.jobs)
	}

	for n, inputPath := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Debug("Processing", zap.Int("file", n+1), zap.Int("of", len(files)), zap.String("path", inputPath))

			result, err := b.processFile(inputPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("Unable to process file", zap.String("path", inputPath), zap.Error(err))
				failed = multierr.Append(failed, err)
				return nil
			}
			reportResult(log, inputPath, result)
			total.Add(result.Stats)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return total, err
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	return total, failed
}

func (b batch) processFile(inputPath string) (*inliner.Result, error) {
	input, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	result, err := b.newInliner().Inline(string(input))
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", inputPath, err)
	}

	relPath, err := filepath.Rel(b.inputDir, inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate %s: %w", inputPath, err)
	}
	outputPath := filepath.Join(b.outputDir, relPath)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", filepath.Dir(outputPath), err)
	}
	if err := writeOutput(result.HTML, outputPath); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return result, nil
}

// findHTMLFiles finds all HTML files in a directory
func findHTMLFiles(dir string) ([]string, error) {
	var htmlFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".html" || ext == ".htm" {
				htmlFiles = append(htmlFiles, path)
			}
		}
		return nil
	})

	return htmlFiles, err
}
