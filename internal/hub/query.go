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

package hub

import (
	"context"
	"fmt"

	"github.com/kraklabs/devac/internal/seed"
)

// QueryFacade spans every registered repo's seed directory with a single
// DuckDB connection, so a caller can run one SQL statement over the whole
// workspace instead of per-repo (§4.8 "query facade"). Grounded on the
// teacher's pkg/tools query surface (search.go, grep.go, code.go), which
// issued CozoDB queries against one repo; this generalizes the "query
// everything" shape to the read_parquet union_by_name views seed.Reader
// already builds per package.
type QueryFacade struct {
	registry *Registry
	branch   string
	reader   *seed.Reader
}

// NewQueryFacade opens a reader unioning every currently-registered repo's
// seed tables for branch. Call Refresh after a Register/Unregister so the
// reader's views reflect the new repo set.
func NewQueryFacade(registry *Registry, branch string) (*QueryFacade, error) {
	f := &QueryFacade{registry: registry, branch: branch}
	if err := f.Refresh(); err != nil {
		return nil, err
	}
	return f, nil
}

// Refresh reopens the underlying reader against the registry's current
// repo list (§4.8: a newly registered repo must become queryable without
// restarting the Hub process).
func (f *QueryFacade) Refresh() error {
	roots := make([]string, 0, len(f.registry.ListRepos()))
	for _, reg := range f.registry.ListRepos() {
		roots = append(roots, reg.LocalPath)
	}
	reader, err := seed.OpenReader(roots, f.branch)
	if err != nil {
		return fmt.Errorf("open workspace reader: %w", err)
	}
	if f.reader != nil {
		f.reader.Close()
	}
	f.reader = reader
	return nil
}

// Query runs sql across every registered repo's tables (§4.8).
func (f *QueryFacade) Query(ctx context.Context, sql string) (*seed.QueryResult, error) {
	if f.reader == nil {
		return nil, fmt.Errorf("query facade has no open reader")
	}
	return f.reader.Query(ctx, sql)
}

// Invalidate drops the facade's cached query results, called after any
// repo's seed tables are rewritten (§4.4, §4.8).
func (f *QueryFacade) Invalidate() {
	if f.reader != nil {
		f.reader.Invalidate()
	}
}

// Close releases the underlying DuckDB connection.
func (f *QueryFacade) Close() error {
	if f.reader == nil {
		return nil
	}
	return f.reader.Close()
}

// FindEntity resolves entity_id to its defining repo by scanning the
// registry's repos, in no defined order, until one's local path prefixes
// the node's file_path (§4.8
// "get_affected_repos" and cross-repo trace support rely on locating the
// defining repo of any entity_id a query returns).
func (f *QueryFacade) FindEntity(ctx context.Context, entityID string) (repoID string, found bool, err error) {
	if f.reader == nil {
		return "", false, fmt.Errorf("query facade has no open reader")
	}
	result, err := f.reader.Query(ctx, fmt.Sprintf(
		"SELECT file_path FROM nodes WHERE entity_id = '%s' AND is_deleted = false LIMIT 1", escapeSQL(entityID)))
	if err != nil {
		return "", false, err
	}
	if len(result.Rows) == 0 {
		return "", false, nil
	}
	filePath, _ := result.Rows[0][0].(string)
	for _, reg := range f.registry.ListRepos() {
		if hasPrefixPath(filePath, reg.LocalPath) {
			return reg.RepoID, true, nil
		}
	}
	return "", false, nil
}

func escapeSQL(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func hasPrefixPath(filePath, root string) bool {
	if len(filePath) < len(root) {
		return false
	}
	return filePath[:len(root)] == root
}
