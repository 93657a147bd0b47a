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

// Package seed implements the Seed Store of spec §4.4: a columnar
// parquet table per record type (nodes, edges, external_refs, effects),
// written with an atomic .tmp-then-rename protocol and queried through
// an embedded SQL engine. Grounded on the teacher's storage.Backend
// (pkg/storage/backend.go, embedded.go): the RWMutex-guarded, context-
// aware Query/Execute shape survives unchanged; only the engine beneath
// it changes, from CozoDB/Datalog to DuckDB/SQL over parquet files,
// since this module's seeds are file-based artifacts meant to be
// committed and diffed, not a standalone database.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/kraklabs/devac/internal/model"
)

// Table names, one parquet file per table per branch directory (§4.4).
const (
	TableNodes        = "nodes"
	TableEdges        = "edges"
	TableExternalRefs = "external_refs"
	TableEffects      = "effects"
)

// SchemaVersion is bumped whenever a Node/Edge/Effect/ExternalRef struct
// gains or loses a parquet column (§4.4 "meta.json records schema_version").
const SchemaVersion = 1

// Meta is the package-level seed manifest (§4.4 meta.json).
type Meta struct {
	SchemaVersion     int       `json:"schema_version"`
	RepoName          string    `json:"repo_name"`
	PackagePath       string    `json:"package_path"`
	Branch            string    `json:"branch"`
	GeneratedAt       time.Time `json:"generated_at"`
	SourceFingerprint string    `json:"source_fingerprint,omitempty"`
}

// Stats is the package-level seed statistics sidecar (§4.4 stats.json).
type Stats struct {
	NodeCount        int       `json:"node_count"`
	EdgeCount        int       `json:"edge_count"`
	ExternalRefCount int       `json:"external_ref_count"`
	EffectCount      int       `json:"effect_count"`
	UnresolvedEdges  int       `json:"unresolved_edges"`
	LastWrite        time.Time `json:"last_write"`
}

// TableSet is everything one parse/resolve pass produces for a package,
// ready to be written as a batch (§4.2 ParseResult aggregated across a
// package's files, after §4.3 resolution has mutated the Edges in place).
type TableSet struct {
	Nodes        []model.Node
	Edges        []model.Edge
	ExternalRefs []model.ExternalRef
	Effects      []model.Effect
}

// branchDir returns <packageRoot>/.devac/seed/<branch>, the layout §4.4
// specifies for branch-scoped seed directories.
func branchDir(packageRoot, branch string) string {
	return filepath.Join(packageRoot, ".devac", "seed", branch)
}

// Write persists a TableSet atomically: every table is written to a
// ".tmp" file in the branch directory, fsynced, then renamed into place,
// and only once every table has landed are meta.json/stats.json updated
// (§4.4 "atomic .tmp-then-rename write protocol"). A process crash
// between table writes therefore never leaves a half-updated table, only
// a stale-but-consistent directory.
func Write(packageRoot, repoName, packagePath, branch string, set TableSet, now time.Time) error {
	return WriteWithFingerprint(packageRoot, repoName, packagePath, branch, set, now, "")
}

// WriteWithFingerprint is Write plus a caller-computed source fingerprint
// (e.g. an aggregate content hash over every discovered file), persisted
// in meta.json so a later run's --if-changed check (§4.7) can compare
// against it without re-reading every file's individual hash cache.
func WriteWithFingerprint(packageRoot, repoName, packagePath, branch string, set TableSet, now time.Time, fingerprint string) error {
	dir := branchDir(packageRoot, branch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create seed dir: %w", err)
	}

	unlock, err := acquireLock(dir)
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeTable(dir, TableNodes, set.Nodes, new(model.Node)); err != nil {
		return err
	}
	if err := writeTable(dir, TableEdges, set.Edges, new(model.Edge)); err != nil {
		return err
	}
	if err := writeTable(dir, TableExternalRefs, set.ExternalRefs, new(model.ExternalRef)); err != nil {
		return err
	}
	if err := writeTable(dir, TableEffects, set.Effects, new(model.Effect)); err != nil {
		return err
	}

	meta := Meta{
		SchemaVersion: SchemaVersion, RepoName: repoName, PackagePath: packagePath,
		Branch: branch, GeneratedAt: now, SourceFingerprint: fingerprint,
	}
	if err := writeJSON(filepath.Join(dir, "meta.json"), meta); err != nil {
		return err
	}

	unresolved := 0
	for _, e := range set.Edges {
		if e.IsUnresolved() {
			unresolved++
		}
	}
	stats := Stats{
		NodeCount: len(set.Nodes), EdgeCount: len(set.Edges),
		ExternalRefCount: len(set.ExternalRefs), EffectCount: len(set.Effects),
		UnresolvedEdges: unresolved, LastWrite: now,
	}
	return writeJSON(filepath.Join(dir, "stats.json"), stats)
}

// writeTable writes rows as a parquet file named "<table>.parquet",
// staged through "<table>.parquet.tmp", fsynced and renamed on success.
func writeTable[T any](dir, table string, rows []T, schema *T) error {
	final := filepath.Join(dir, table+".parquet")
	tmp := final + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}

	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("new parquet writer for %s: %w", table, err)
	}
	pw.RowGroupSize = 64 * 1024 * 1024
	pw.CompressionType = parquetCompression()

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("write row to %s: %w", table, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finalize %s: %w", table, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", table, err)
	}
	f, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("reopen %s for fsync: %w", table, err)
	}
	syncErr := f.Sync()
	f.Close()
	if syncErr != nil {
		return fmt.Errorf("fsync %s: %w", table, syncErr)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s into place: %w", table, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// ReadMeta loads meta.json for a package/branch, or (Meta{}, false) if
// no seed has ever been written (§4.4, §4.7 --if-changed short-circuit).
func ReadMeta(packageRoot, branch string) (Meta, bool) {
	var meta Meta
	data, err := os.ReadFile(filepath.Join(branchDir(packageRoot, branch), "meta.json"))
	if err != nil {
		return meta, false
	}
	if json.Unmarshal(data, &meta) != nil {
		return meta, false
	}
	return meta, true
}

// ReadStats loads stats.json for a package/branch.
func ReadStats(packageRoot, branch string) (Stats, bool) {
	var stats Stats
	data, err := os.ReadFile(filepath.Join(branchDir(packageRoot, branch), "stats.json"))
	if err != nil {
		return stats, false
	}
	if json.Unmarshal(data, &stats) != nil {
		return stats, false
	}
	return stats, true
}
