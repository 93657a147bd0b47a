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

// Package hub implements the federation layer of spec §4.8/§4.9: a
// registry of local repos, a query facade spanning all of their seed
// tables, cross-repo diagnostics, M2M endpoint matching, and manifest
// generation. Grounded on the teacher's MCP query surface (pkg/tools:
// status.go, endpoints.go, trace.go, services.go) generalized from
// "tools an LLM agent calls against one CozoDB" to "operations the Hub
// runs across N repos' parquet seed trees".
package hub

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kraklabs/devac/internal/model"
	"github.com/kraklabs/devac/internal/seed"
)

// Registry tracks every repo the Hub knows about (§4.8).
type Registry struct {
	mu    sync.RWMutex
	repos map[string]model.RepoRegistration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{repos: make(map[string]model.RepoRegistration)}
}

// Register adds or updates a repo (§4.8 "register").
func (r *Registry) Register(repoID, localPath string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos[repoID] = model.RepoRegistration{
		RepoID: repoID, LocalPath: localPath, LastSynced: now, Status: model.RepoActive,
	}
}

// Unregister removes a repo (§4.8 "unregister").
func (r *Registry) Unregister(repoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.repos, repoID)
}

// ListRepos returns every registration (§4.8 "list_repos").
func (r *Registry) ListRepos() []model.RepoRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.RepoRegistration, 0, len(r.repos))
	for _, reg := range r.repos {
		out = append(out, reg)
	}
	return out
}

// Get returns one repo's registration.
func (r *Registry) Get(repoID string) (model.RepoRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.repos[repoID]
	return reg, ok
}

// Refresh recomputes a repo's manifest hash and LastSynced stamp. When the
// repo's local path no longer exists on disk it marks the repo missing and
// leaves the manifest hash and LastSynced stamp unchanged (§4.8 "refresh").
func (r *Registry) Refresh(repoID string, manifest model.RepoManifest, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.repos[repoID]
	if !ok {
		return fmt.Errorf("repo %s is not registered", repoID)
	}
	if _, err := os.Stat(reg.LocalPath); err != nil {
		reg.Status = model.RepoMissing
		r.repos[repoID] = reg
		return nil
	}
	reg.ManifestHash = manifest.Hash
	reg.LastSynced = now
	reg.Status = model.RepoActive
	r.repos[repoID] = reg
	return nil
}

// RefreshAll refreshes every repo whose manifest is supplied in
// manifests, keyed by repo ID (§4.8 "refresh_all").
func (r *Registry) RefreshAll(manifests map[string]model.RepoManifest, now time.Time) []error {
	var errs []error
	for repoID, manifest := range manifests {
		if err := r.Refresh(repoID, manifest, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// MarkMissing flags a repo whose local path is no longer reachable
// (§4.8 repo lifecycle).
func (r *Registry) MarkMissing(repoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.repos[repoID]
	if !ok {
		return
	}
	reg.Status = model.RepoMissing
	r.repos[repoID] = reg
}

// CanWrite reports whether repoID's seed directory is free to write to
// right now, or whether the caller must fall back to read-only mode
// because another writer already holds the lock (§4.8 P7, automatic
// fallback on lock conflict).
func (r *Registry) CanWrite(repoID, branch string) bool {
	reg, ok := r.Get(repoID)
	if !ok {
		return false
	}
	return !seed.IsLocked(reg.LocalPath, branch)
}
