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

package seed

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/xitongsys/parquet-go-source/local"
	preader "github.com/xitongsys/parquet-go/reader"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/metrics"
	"github.com/kraklabs/devac/internal/model"
)

// QueryResult mirrors the teacher's storage.QueryResult shape
// (pkg/storage/backend.go): a header row plus []any rows, engine-agnostic
// so callers never see a *sql.Rows.
type QueryResult struct {
	Headers []string
	Rows    [][]any
}

// Reader is the read-side of the Seed Store: a DuckDB connection with
// each table exposed as a SQL view over every branch/package's parquet
// files (§4.4 "union_by_name=true"), and an LRU cache keyed by the query
// text's hash (§4.4, §4.8 "cached by string_hash(sql)"). Grounded on the
// teacher's EmbeddedBackend (pkg/storage/embedded.go): same RWMutex-
// guarded, context-aware Query contract, DuckDB/SQL substituted for
// CozoDB/Datalog since the data at rest is parquet, not a Datalog store.
type Reader struct {
	mu    sync.RWMutex
	db    *sql.DB
	cache *lru.Cache[string, *QueryResult]
}

// DefaultCacheSize bounds the reader's query result cache (§4.4).
const DefaultCacheSize = 256

// OpenReader opens an in-memory DuckDB connection and registers a view
// per table, unioning every package root's parquet files by name so a
// query can span the whole workspace (§4.4, §4.8).
func OpenReader(packageRoots []string, branch string) (*Reader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	cache, _ := lru.New[string, *QueryResult](DefaultCacheSize)
	r := &Reader{db: db, cache: cache}

	for _, table := range []string{TableNodes, TableEdges, TableExternalRefs, TableEffects} {
		if err := r.createView(table, packageRoots, branch); err != nil {
			db.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) createView(table string, packageRoots []string, branch string) error {
	var globs []string
	for _, root := range packageRoots {
		globs = append(globs, fmt.Sprintf("'%s'", filepath.Join(branchDir(root, branch), table+".parquet")))
	}
	if len(globs) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet([%s], union_by_name=true)",
		table, joinComma(globs),
	)
	_, err := r.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("create view %s: %w", table, err)
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Query runs sql and caches the result keyed by its content hash,
// invalidated whenever Invalidate is called (on any Write, §4.4 §4.8).
func (r *Reader) Query(ctx context.Context, sql string) (*QueryResult, error) {
	key := idgen.StringHash(sql)

	r.mu.RLock()
	if cached, ok := r.cache.Get(key); ok {
		r.mu.RUnlock()
		metrics.M.QueryCacheHits.Inc()
		return cached, nil
	}
	r.mu.RUnlock()
	metrics.M.QueryCacheMisses.Inc()

	rows, err := r.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Headers: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache.Add(key, result)
	r.mu.Unlock()
	return result, nil
}

// Invalidate drops every cached query result. Called after any Write to
// the seed directories this reader spans (§4.4, §4.8).
func (r *Reader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

// Close releases the underlying DuckDB connection.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// Compact rewrites a package/branch's tables into freshly defragmented
// parquet files, dropping rows tombstoned with is_deleted=true. SPEC_FULL
// decides this always runs on explicit caller request, never
// automatically on a timer or write threshold, since compaction rewrites
// history a diff-reviewer may still want to see uncollapsed.
func Compact(packageRoot, branch string) error {
	dir := branchDir(packageRoot, branch)
	unlock, err := acquireLock(dir)
	if err != nil {
		return err
	}
	defer unlock()

	nodes, err := compactTable(dir, TableNodes, new(model.Node))
	if err != nil {
		return err
	}
	edges, err := compactTable(dir, TableEdges, new(model.Edge))
	if err != nil {
		return err
	}
	refs, err := compactTable(dir, TableExternalRefs, new(model.ExternalRef))
	if err != nil {
		return err
	}
	effects, err := compactTable(dir, TableEffects, new(model.Effect))
	if err != nil {
		return err
	}

	if err := writeTable(dir, TableNodes, dropDeleted(nodes, func(n model.Node) bool { return n.IsDeleted }), new(model.Node)); err != nil {
		return err
	}
	return writeCompacted(dir, edges, refs, effects)
}

// writeCompacted finishes Compact's rewrite for the tables without a
// shared IsDeleted accessor convenient to a single generic helper.
func writeCompacted(dir string, edges []model.Edge, refs []model.ExternalRef, effects []model.Effect) error {
	if err := writeTable(dir, TableEdges, edges, new(model.Edge)); err != nil {
		return err
	}
	if err := writeTable(dir, TableExternalRefs, refs, new(model.ExternalRef)); err != nil {
		return err
	}
	kept := make([]model.Effect, 0, len(effects))
	for _, e := range effects {
		if !e.IsDeleted {
			kept = append(kept, e)
		}
	}
	return writeTable(dir, TableEffects, kept, new(model.Effect))
}

func dropDeleted[T any](rows []T, isDeleted func(T) bool) []T {
	kept := make([]T, 0, len(rows))
	for _, r := range rows {
		if !isDeleted(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

// compactTable reads every row currently on disk for table, so Compact
// can rewrite a fresh file with tombstones dropped.
func compactTable[T any](dir, table string, schema *T) ([]T, error) {
	path := filepath.Join(dir, table+".parquet")
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil // no file yet for this table; nothing to compact
	}
	defer fr.Close()

	pr, err := preader.NewParquetReader(fr, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader for %s: %w", table, err)
	}
	defer pr.ReadStop()

	total := int(pr.GetNumRows())
	rows := make([]T, total)
	if total > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("read rows from %s: %w", table, err)
		}
	}
	return rows, nil
}
