// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package analyze implements the Analyze Orchestrator of spec §4.7: a
// whole-package cold build that discovers every source file, parses them
// in parallel, resolves the aggregated index once, and writes the seed
// tables atomically. Grounded on the teacher's parallel ingestion shape
// in pkg/ingestion/batcher.go (bounded worker pool over file lists),
// retargeted from Go-only ingestion onto the multi-language parser
// registry and this module's resolve/seed pipeline.
package analyze

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/metrics"
	"github.com/kraklabs/devac/internal/model"
	"github.com/kraklabs/devac/internal/parser"
	"github.com/kraklabs/devac/internal/resolver"
	"github.com/kraklabs/devac/internal/seed"
)

// defaultIgnoredDirs are never descended into during file discovery
// (§4.7 "ignore rules").
var defaultIgnoredDirs = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true,
	".devac": true, "__pycache__": true, ".venv": true, "venv": true,
}

// Options configures one Analyze run (§4.7).
type Options struct {
	RepoName    string
	PackageRoot string
	Branch      string
	IfChanged   bool // skip entirely when the aggregated content hash matches the prior run
	Force       bool // ignore IfChanged and any per-file hash cache
	Strict      bool
	Workers     int // 0 selects runtime.NumCPU()
}

// Report summarizes one Analyze run for CLI/JSON display (§4.7, §6).
type Report struct {
	FilesDiscovered int
	FilesParsed     int
	Skipped         bool
	Warnings        []string
	Duration        time.Duration
	Stats           seed.Stats
}

// Run performs a cold build of PackageRoot: discover, parse (parallel),
// resolve, and atomically write the seed tables (§4.7).
func Run(ctx context.Context, opts Options, registry *parser.Registry) (Report, error) {
	start := time.Now()

	files, err := discover(opts.PackageRoot, registry)
	if err != nil {
		return Report{}, fmt.Errorf("discover files: %w", err)
	}

	fingerprint, err := aggregateHash(files)
	if err != nil {
		return Report{}, fmt.Errorf("fingerprint source tree: %w", err)
	}

	if opts.IfChanged && !opts.Force {
		if meta, ok := seed.ReadMeta(opts.PackageRoot, opts.Branch); ok && meta.SourceFingerprint == fingerprint {
			return Report{FilesDiscovered: len(files), Skipped: true, Duration: time.Since(start)}, nil
		}
	}

	results, warnings := parseAll(ctx, files, opts, registry)

	index := resolver.NewExportIndex()
	var set seed.TableSet
	for _, r := range results {
		set.Nodes = append(set.Nodes, r.Nodes...)
		set.Edges = append(set.Edges, r.Edges...)
		set.ExternalRefs = append(set.ExternalRefs, r.ExternalRefs...)
		set.Effects = append(set.Effects, r.Effects...)
		for _, n := range r.Nodes {
			index.Add(opts.PackageRoot, n)
		}
	}

	var edgePtrs []*model.Edge
	for i := range set.Edges {
		edgePtrs = append(edgePtrs, &set.Edges[i])
	}
	job := resolver.PackageJob{Package: opts.PackageRoot, Edges: edgePtrs}
	if _, resolveErrs := resolver.Resolve(ctx, index, job, opts.Strict); len(resolveErrs) > 0 {
		for _, e := range resolveErrs {
			warnings = append(warnings, e.Error())
		}
	}

	now := time.Now()
	writeStart := time.Now()
	if err := seed.WriteWithFingerprint(opts.PackageRoot, opts.RepoName, opts.PackageRoot, opts.Branch, set, now, fingerprint); err != nil {
		return Report{}, fmt.Errorf("write seed: %w", err)
	}
	metrics.M.WriteDuration.Observe(time.Since(writeStart).Seconds())
	for _, e := range set.Edges {
		if e.IsUnresolved() {
			metrics.M.EdgesStub.Inc()
		} else {
			metrics.M.EdgesResolved.Inc()
		}
	}

	stats, _ := seed.ReadStats(opts.PackageRoot, opts.Branch)
	return Report{
		FilesDiscovered: len(files), FilesParsed: len(results),
		Warnings: warnings, Duration: time.Since(start), Stats: stats,
	}, nil
}

// discover walks PackageRoot, returning every file a registered parser
// can claim, skipping the conventional ignored directories (§4.7).
func discover(root string, registry *parser.Registry) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if defaultIgnoredDirs[d.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if registry.For(path) != nil {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// aggregateHash hashes every discovered file's content together into a
// single fingerprint for the --if-changed short-circuit (§4.7).
func aggregateHash(files []string) (string, error) {
	h := ""
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		h = idgen.ContentHash([]byte(h + idgen.ContentHash(data)))
	}
	return h, nil
}

// parseAll parses every file across a bounded worker pool (§4.7
// "parallel parsing"). A single file's parse failure is recorded as a
// warning and otherwise ignored, matching the Update Manager's per-file
// isolation policy (§4.5) at cold-build scale.
func parseAll(ctx context.Context, files []string, opts Options, registry *parser.Registry) ([]*parser.ParseResult, []string) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string, len(files))
	type outcome struct {
		result *parser.ParseResult
		warn   string
	}
	out := make(chan outcome, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				cfg := parser.Config{RepoName: opts.RepoName, PackagePath: opts.PackageRoot, Branch: opts.Branch, Strict: opts.Strict}
				p := registry.For(path)
				start := time.Now()
				result, err := p.Parse(path, cfg)
				metrics.M.ParseDuration.Observe(time.Since(start).Seconds())
				if err != nil {
					metrics.M.FilesFailed.Inc()
					out <- outcome{warn: fmt.Sprintf("%s: %v", path, err)}
					continue
				}
				metrics.M.FilesParsed.Inc()
				out <- outcome{result: result}
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	go func() { wg.Wait(); close(out) }()

	var results []*parser.ParseResult
	var warnings []string
	for o := range out {
		if o.warn != "" {
			slog.Warn("analyze.parse_failed", "detail", o.warn)
			warnings = append(warnings, o.warn)
			continue
		}
		results = append(results, o.result)
		warnings = append(warnings, o.result.Warnings...)
	}
	return results, warnings
}
