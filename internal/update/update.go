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

// Package update implements the Update Manager of spec §4.5: the
// incremental per-file pipeline a file-watch event drives (hash-check,
// parse, resolve deltas, seed merge), as opposed to the whole-package
// cold build internal/analyze performs. Grounded on the teacher's
// checkpoint/delta machinery (pkg/ingestion/checkpoint.go, delta.go):
// same "only touch what actually changed" shape, retargeted from a
// single Go module's function/type diff onto this module's
// Node/Edge/ExternalRef/Effect tables.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/devac/internal/model"
	"github.com/kraklabs/devac/internal/parser"
	"github.com/kraklabs/devac/internal/resolver"
	"github.com/kraklabs/devac/internal/seed"
)

// Manager owns one package's incremental state: the last-seen content
// hash per file (§4.5 step 1 "hash-check short-circuit", P5 invariant)
// and the accumulated TableSet being kept in sync with disk.
type Manager struct {
	mu          sync.Mutex
	cfg         parser.Config
	packageRoot string
	registry    *parser.Registry
	index       *resolver.ExportIndex
	fileHashes  map[string]string
	byFile      map[string]fileRecord
	// tombstones accumulates every Node/Effect retracted from a file's
	// prior snapshot — by edit or removal — marked IsDeleted=true so they
	// stay visible in the written seed until an explicit seed.Compact
	// drops them (§3 Node lifecycle, §4.4 tombstone retention). Edges and
	// ExternalRefs carry no IsDeleted column (model.Edge/ExternalRef), so
	// a retracted file's stale edges/refs are simply not re-emitted.
	tombstones []model.Node
	tombstonedEffects []model.Effect
	disposed          bool
}

// fileRecord is the set of table rows currently attributed to one file,
// so a reparse or removal can precisely retract the old rows before
// adding the new ones.
type fileRecord struct {
	nodes   []model.Node
	edges   []model.Edge
	refs    []model.ExternalRef
	effects []model.Effect
}

// New constructs a Manager for one package root.
func New(packageRoot string, cfg parser.Config, registry *parser.Registry) *Manager {
	return &Manager{
		cfg: cfg, packageRoot: packageRoot, registry: registry,
		index: resolver.NewExportIndex(),
		fileHashes: make(map[string]string), byFile: make(map[string]fileRecord),
	}
}

// Result summarizes the effect of processing one change (§4.5).
type Result struct {
	Skipped  bool // hash unchanged, P5 short-circuit
	Warnings []string
}

// ProcessFileChange parses path and, unless its content hash equals the
// one recorded for path by the previous call (then the Result is
// Skipped), merges the resulting rows into the package's in-memory
// table set. A
// per-file parse/resolve failure never aborts the caller's batch; it is
// recorded in the Result and the file's prior rows are left untouched
// (§4.5 "per-file isolation of parse/resolve failures").
func (m *Manager) ProcessFileChange(ctx context.Context, path string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return Result{}, fmt.Errorf("update manager disposed")
	}

	p := m.registry.For(path)
	if p == nil {
		return Result{Warnings: []string{"no parser for " + path}}, nil
	}

	result, err := p.Parse(path, m.cfg)
	if err != nil {
		slog.Warn("update.parse_failed", "path", path, "error", err)
		return Result{Warnings: []string{err.Error()}}, nil
	}

	if prev, ok := m.fileHashes[path]; ok && prev == result.SourceFileHash {
		return Result{Skipped: true}, nil
	}
	m.fileHashes[path] = result.SourceFileHash

	m.retractLocked(path, time.Now())
	m.mergeLocked(path, result)
	m.resolveLocked(ctx, path)

	return Result{Warnings: result.Warnings}, nil
}

// ProcessRename reuses oldPath's absence and newPath's freshly parsed
// content: it is unlink(oldPath) followed by add(newPath), exactly the
// semantics spec §4.5 assigns a detected rename, except the entity_id
// changes (idgen salts on file path) so downstream consumers see a
// delete-then-create, never an in-place mutation (§4.1 P2).
func (m *Manager) ProcessRename(ctx context.Context, oldPath, newPath string) (Result, error) {
	m.mu.Lock()
	m.retractLocked(oldPath, time.Now())
	delete(m.fileHashes, oldPath)
	m.mu.Unlock()

	return m.ProcessFileChange(ctx, newPath)
}

// ProcessRemoval tombstones every row attributed to path without
// reparsing (the file no longer exists to parse).
func (m *Manager) ProcessRemoval(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retractLocked(path, time.Now())
	delete(m.fileHashes, path)
}

// ProcessBatch applies every change in order, returning one Result per
// change; a failure on one change never prevents the rest from running
// (§4.5).
func (m *Manager) ProcessBatch(ctx context.Context, paths []string) []Result {
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		r, err := m.ProcessFileChange(ctx, p)
		if err != nil {
			r.Warnings = append(r.Warnings, err.Error())
		}
		results = append(results, r)
	}
	return results
}

// retractLocked removes path's previously recorded rows from the live
// package snapshot, but not from the seed: its Nodes/Effects are marked
// IsDeleted=true and carried forward in m.tombstones/m.tombstonedEffects,
// so a removed or edited-away symbol is written as a tombstone row
// (§3 "Node lifecycle") rather than disappearing from the table outright.
// Edges/ExternalRefs have no IsDeleted column, so path's stale edges/refs
// are simply not re-emitted on the next Snapshot. Caller must hold m.mu.
func (m *Manager) retractLocked(path string, now time.Time) {
	rec, ok := m.byFile[path]
	if !ok {
		return
	}
	for _, n := range rec.nodes {
		n.IsDeleted = true
		n.Touch(now)
		m.tombstones = append(m.tombstones, n)
	}
	for _, e := range rec.effects {
		e.IsDeleted = true
		m.tombstonedEffects = append(m.tombstonedEffects, e)
	}
	delete(m.byFile, path)
}

// mergeLocked records path's freshly parsed rows and adds its exports to
// the resolution index. Caller must hold m.mu.
func (m *Manager) mergeLocked(path string, result *parser.ParseResult) {
	m.byFile[path] = fileRecord{
		nodes: result.Nodes, edges: result.Edges,
		refs: result.ExternalRefs, effects: result.Effects,
	}
	for _, n := range result.Nodes {
		m.index.Add(m.cfg.PackagePath, n)
	}
}

// resolveLocked re-resolves every unresolved edge across the whole
// package snapshot, since a rename anywhere can change what a stale
// unresolved:<name> stub now binds to. Caller must hold m.mu.
func (m *Manager) resolveLocked(ctx context.Context, changedPath string) {
	var edges []*model.Edge
	for _, rec := range m.byFile {
		for i := range rec.edges {
			edges = append(edges, &rec.edges[i])
		}
	}
	job := resolver.PackageJob{Package: m.cfg.PackagePath, Edges: edges}
	if _, errs := resolver.Resolve(ctx, m.index, job, m.cfg.Strict); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("update.resolve_error", "package", m.cfg.PackagePath, "changed", changedPath, "code", e.Code, "subject", e.Subject)
		}
	}
}

// Snapshot flattens the manager's current in-memory state into a
// seed.TableSet, ready for seed.Write.
func (m *Manager) Snapshot() seed.TableSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	var set seed.TableSet
	for _, rec := range m.byFile {
		set.Nodes = append(set.Nodes, rec.nodes...)
		set.Edges = append(set.Edges, rec.edges...)
		set.ExternalRefs = append(set.ExternalRefs, rec.refs...)
		set.Effects = append(set.Effects, rec.effects...)
	}
	set.Nodes = append(set.Nodes, m.tombstones...)
	set.Effects = append(set.Effects, m.tombstonedEffects...)
	return set
}

// Flush snapshots the manager's state and writes it to the package's
// seed directory.
func (m *Manager) Flush(now time.Time) error {
	return seed.Write(m.packageRoot, m.cfg.RepoName, m.cfg.PackagePath, m.cfg.Branch, m.Snapshot(), now)
}

// Dispose releases the manager's in-memory state. After Dispose,
// ProcessFileChange (and so ProcessRename and ProcessBatch) reports an
// error, ProcessRemoval does nothing and Snapshot returns an empty set.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.byFile = nil
	m.fileHashes = nil
	m.tombstones = nil
	m.tombstonedEffects = nil
}
