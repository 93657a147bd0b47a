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

// Package resolver implements the Semantic Resolver of spec §4.3: it
// binds the unresolved:<name> stubs a parser leaves behind (CALLS,
// EXTENDS/IMPLEMENTS edges, ExternalRefs) to concrete entity IDs, using a
// two-level index (exports across packages, local symbols within a file)
// and a confidence score per binding.
//
// Grounded on the teacher's CallResolver (pkg/ingestion/resolver.go):
// same two-phase shape (BuildIndex then ResolveCalls, sequential below a
// size threshold and worker-pool parallel above it), generalized from
// Go's package/import model to this module's repo/package/file model and
// extended with confidence scoring and a typed failure taxonomy.
package resolver

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/devac/internal/apperr"
	"github.com/kraklabs/devac/internal/metrics"
	"github.com/kraklabs/devac/internal/model"
)

// Confidence levels assigned to a resolved binding (§4.3).
const (
	ConfidenceExact     = 1.0  // same-file local symbol
	ConfidencePackage   = 0.9  // resolved via the package's export index
	ConfidenceHeuristic = 0.85 // resolved by bare-name fallback across packages
)

// DefaultBatchSize is how many PackageJobs ResolveBatched resolves per
// batch (§4.3 "batched resolution").
const DefaultBatchSize = 50

// DefaultTimeout bounds how long a single package's resolution pass may
// run before it is abandoned with a TIMEOUT ResolutionError (§4.3, §7).
const DefaultTimeout = 30 * time.Second

// exportEntry is one exported symbol surfaced by a package.
type exportEntry struct {
	entityID string
	kind     model.NodeKind
}

// ExportIndex maps repo/package -> exported symbol name -> entry. It is
// built once per resolution pass from the Nodes every parser produced.
type ExportIndex struct {
	mu      sync.RWMutex
	byPkg   map[string]map[string]exportEntry
	byFile  map[string]map[string]exportEntry // file_path -> name -> entry, for same-file resolution
}

// NewExportIndex builds an empty index.
func NewExportIndex() *ExportIndex {
	return &ExportIndex{
		byPkg:  make(map[string]map[string]exportEntry),
		byFile: make(map[string]map[string]exportEntry),
	}
}

// Add registers a declared symbol (§4.3 "BuildIndex").
func (idx *ExportIndex) Add(pkg string, node model.Node) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := exportEntry{entityID: node.EntityID, kind: node.Kind}

	if node.IsExported {
		if _, ok := idx.byPkg[pkg]; !ok {
			idx.byPkg[pkg] = make(map[string]exportEntry)
		}
		idx.byPkg[pkg][node.Name] = entry
	}

	if _, ok := idx.byFile[node.FilePath]; !ok {
		idx.byFile[node.FilePath] = make(map[string]exportEntry)
	}
	idx.byFile[node.FilePath][node.Name] = entry
}

// local resolves a bare name first against the declaring
// file's own symbols (exact match, confidence 1.0), matching §4.3's
// "prefer the nearest enclosing scope before falling back to package
// exports" rule.
func (idx *ExportIndex) local(filePath, name string) (exportEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.byFile[filePath][name]
	return entry, ok
}

// pkgLookup resolves a bare name against a specific package's exports.
func (idx *ExportIndex) pkgLookup(pkg, name string) (exportEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.byPkg[pkg][name]
	return entry, ok
}

// anyPkgLookup falls back to scanning every package's exports for name,
// the teacher's "heuristic" tier (resolver.go's bare-name fallback).
func (idx *ExportIndex) anyPkgLookup(name string) (exportEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, exports := range idx.byPkg {
		if entry, ok := exports[name]; ok {
			return entry, true
		}
	}
	return exportEntry{}, false
}

// Resolution is one outcome of resolving a single Edge or ExternalRef.
type Resolution struct {
	TargetEntityID string
	Confidence     float64
	Resolved       bool
}

// typeEdgeKinds restricts EXTENDS/IMPLEMENTS resolution to symbols
// actually declared as a class or interface (§4.3 "type-aware
// resolution"), so a superclass name that happens to collide with a
// function or variable of the same name never binds to the wrong kind.
var typeEdgeKinds = map[model.NodeKind]bool{
	model.KindClass:     true,
	model.KindInterface: true,
}

// callSkipNames lists call names common enough across collection/builtin
// APIs (§4.3 "skip-list") that resolving them against this package's own
// export index would bind a bare `.log(...)`/`.map(...)` call to an
// unrelated symbol of the same name rather than correctly leaving it
// unresolved. Only applies to CALLS edges.
var callSkipNames = map[string]bool{
	"log": true, "map": true, "filter": true, "reduce": true,
	"foreach": true, "push": true, "pop": true, "shift": true,
	"unshift": true, "slice": true, "splice": true, "concat": true,
	"join": true, "includes": true, "indexof": true, "tostring": true,
	"valueof": true, "keys": true, "values": true, "entries": true,
	"then": true, "catch": true, "finally": true, "bind": true,
	"call": true, "apply": true, "hasownproperty": true, "get": true,
	"set": true, "has": true, "delete": true, "close": true,
}

// kindAllowed reports whether entry's kind satisfies allowed; a nil set
// means every kind is acceptable (the untyped CALLS case).
func kindAllowed(kind model.NodeKind, allowed map[model.NodeKind]bool) bool {
	return allowed == nil || allowed[kind]
}

// resolveName implements the three-tier lookup §4.3 describes: same-file
// local symbol, then declaring package's exports, then a cross-package
// heuristic fallback used only when Strict is not requested by the caller.
// allowedKinds, when non-nil, restricts matches to those node kinds
// (§4.3 "type-aware resolution" for EXTENDS/IMPLEMENTS edges).
func resolveName(idx *ExportIndex, filePath, pkg, name string, allowHeuristic bool, allowedKinds map[model.NodeKind]bool) Resolution {
	simple := simpleName(name)
	if entry, ok := idx.local(filePath, simple); ok && kindAllowed(entry.kind, allowedKinds) {
		return Resolution{TargetEntityID: entry.entityID, Confidence: ConfidenceExact, Resolved: true}
	}
	if entry, ok := idx.pkgLookup(pkg, simple); ok && kindAllowed(entry.kind, allowedKinds) {
		return Resolution{TargetEntityID: entry.entityID, Confidence: ConfidencePackage, Resolved: true}
	}
	if allowHeuristic {
		if entry, ok := idx.anyPkgLookup(simple); ok && kindAllowed(entry.kind, allowedKinds) {
			return Resolution{TargetEntityID: entry.entityID, Confidence: ConfidenceHeuristic, Resolved: true}
		}
	}
	return Resolution{}
}

// simpleName strips a receiver/member-access prefix ("obj.Method" -> "Method"),
// mirroring the teacher's extractSimpleName handling of qualified calls.
func simpleName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// PackageJob is one package's worth of edges/refs awaiting resolution.
type PackageJob struct {
	Package string
	Edges   []*model.Edge
}

// Resolve resolves every unresolved Edge in job.Edges in place, returning
// the resolutions actually applied plus any ResolutionErrors encountered.
// Below 1000 edges it runs sequentially; above that, fans out across a
// worker pool capped at 8 workers, exactly as the teacher's
// resolveCallsSequential/resolveCallsParallel split does.
func Resolve(ctx context.Context, idx *ExportIndex, job PackageJob, strict bool) ([]Resolution, []*apperr.ResolutionError) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.M.ResolveDuration.Observe(time.Since(start).Seconds()) }()

	if len(job.Edges) < 1000 {
		return resolveSequential(ctx, idx, job, strict)
	}
	return resolveParallel(ctx, idx, job, strict)
}

func resolveSequential(ctx context.Context, idx *ExportIndex, job PackageJob, strict bool) ([]Resolution, []*apperr.ResolutionError) {
	var resolutions []Resolution
	var errs []*apperr.ResolutionError
	for _, edge := range job.Edges {
		select {
		case <-ctx.Done():
			errs = append(errs, &apperr.ResolutionError{
				Code: apperr.CodeTimeout, Subject: job.Package, Detail: "resolution timed out mid-package",
			})
			return resolutions, errs
		default:
		}
		r, err := resolveEdge(idx, job.Package, edge, strict)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if r.Resolved {
			resolutions = append(resolutions, r)
		}
	}
	return resolutions, errs
}

func resolveParallel(ctx context.Context, idx *ExportIndex, job PackageJob, strict bool) ([]Resolution, []*apperr.ResolutionError) {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	jobs := make(chan *model.Edge, len(job.Edges))
	type outcome struct {
		res Resolution
		err *apperr.ResolutionError
	}
	out := make(chan outcome, len(job.Edges))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for edge := range jobs {
				select {
				case <-ctx.Done():
					out <- outcome{err: &apperr.ResolutionError{Code: apperr.CodeTimeout, Subject: job.Package, Detail: "resolution timed out mid-package"}}
					continue
				default:
				}
				r, err := resolveEdge(idx, job.Package, edge, strict)
				out <- outcome{res: r, err: err}
			}
		}()
	}
	for _, e := range job.Edges {
		jobs <- e
	}
	close(jobs)
	go func() { wg.Wait(); close(out) }()

	var resolutions []Resolution
	var errs []*apperr.ResolutionError
	for o := range out {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		if o.res.Resolved {
			resolutions = append(resolutions, o.res)
		}
	}
	return resolutions, errs
}

// resolveEdge resolves one Edge's unresolved target in place (§4.3).
func resolveEdge(idx *ExportIndex, pkg string, edge *model.Edge, strict bool) (Resolution, *apperr.ResolutionError) {
	if !edge.IsUnresolved() {
		return Resolution{}, nil
	}
	name := strings.TrimPrefix(edge.TargetEntityID, model.UnresolvedPrefix)

	if edge.EdgeType == model.EdgeCalls && callSkipNames[strings.ToLower(simpleName(name))] {
		return Resolution{}, nil
	}

	var allowedKinds map[model.NodeKind]bool
	if edge.EdgeType == model.EdgeExtends || edge.EdgeType == model.EdgeImplements {
		allowedKinds = typeEdgeKinds
	}

	res := resolveName(idx, edge.SourceFilePath, pkg, name, !strict, allowedKinds)
	if !res.Resolved {
		if strict {
			return Resolution{}, &apperr.ResolutionError{
				Code: apperr.CodeModuleNotFound, Subject: name, Detail: "no export matched in strict mode",
			}
		}
		return Resolution{}, nil
	}
	edge.TargetEntityID = res.TargetEntityID
	return res, nil
}

// ResolveBatched splits jobs into DefaultBatchSize-sized groups and
// resolves each batch in turn, surfacing partial results if a later
// batch fails (§4.3 "batched resolution... partial success").
func ResolveBatched(ctx context.Context, idx *ExportIndex, jobs []PackageJob, strict bool) ([]Resolution, []*apperr.ResolutionError) {
	var allResolutions []Resolution
	var allErrs []*apperr.ResolutionError
	for start := 0; start < len(jobs); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		for _, job := range jobs[start:end] {
			res, errs := Resolve(ctx, idx, job, strict)
			allResolutions = append(allResolutions, res...)
			allErrs = append(allErrs, errs...)
		}
	}
	return allResolutions, allErrs
}
