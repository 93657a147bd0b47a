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
	"encoding/json"
	"strings"
	"time"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
	"github.com/kraklabs/devac/internal/resolver"
	"github.com/kraklabs/devac/internal/seed"
)

// PackageSource is one parsed package's seed output, the raw material
// the Manifest Generator summarizes (§4.9).
type PackageSource struct {
	Name        string
	Language    string
	PackageRoot string
	Branch      string
	Refs        []model.ExternalRef
}

// GenerateManifest builds a RepoManifest from the repo's packages and
// resolves each package's external imports to either a real registered
// repo or an "unresolved-repo:" placeholder (§4.9, SPEC_FULL's decision
// on cross-repo edge fidelity, shared with internal/resolver.refs.go).
// Grounded on the teacher's project_meta.go (pkg/ingestion), which
// summarized one repo's own package layout; this adds the cross-repo
// lookup step project_meta.go never needed because the teacher indexed
// a single monorepo, not a federation of independently-synced repos.
func GenerateManifest(repoID string, packages []PackageSource, lookup resolver.RepoLookup, now time.Time) (model.RepoManifest, error) {
	m := model.RepoManifest{RepoID: repoID, GeneratedAt: now}

	seenDeps := make(map[string]model.ExternalDependency)
	for _, pkg := range packages {
		meta, ok := seed.ReadMeta(pkg.PackageRoot, pkg.Branch)
		hash := ""
		if ok {
			hash = meta.SourceFingerprint
		}
		m.Packages = append(m.Packages, model.PackageSummary{
			Name: pkg.Name, SeedPath: pkg.PackageRoot, Language: pkg.Language, Hash: hash,
		})

		edges := resolver.ResolveExternalRefs(repoID, pkg.Refs, lookup)
		for _, e := range edges {
			key := e.TargetRepo + "|" + e.Metadata["module_specifier"]
			if _, exists := seenDeps[key]; exists {
				continue
			}
			dep := model.ExternalDependency{Package: e.Metadata["module_specifier"]}
			if e.TargetRepo != "" && !isPlaceholderRepo(e.TargetRepo) {
				dep.RepoID = e.TargetRepo
			}
			seenDeps[key] = dep
		}
	}
	for _, dep := range seenDeps {
		m.ExternalDependencies = append(m.ExternalDependencies, dep)
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		return model.RepoManifest{}, err
	}
	m.Hash = idgen.ContentHash(encoded)
	return m, nil
}

func isPlaceholderRepo(repoID string) bool {
	return strings.HasPrefix(repoID, "unresolved-repo:")
}

// AffectedRepos returns every repo with a direct (non-transitive)
// dependency on any entity in changedEntityIDs, per SPEC_FULL's decision
// to scope get_affected_repos to direct impact only — no closure walk
// across the whole cross-repo edge graph (§4.8 "get_affected_repos").
func AffectedRepos(edges []model.CrossRepoEdge, changedEntityIDs []string) []string {
	changed := make(map[string]bool, len(changedEntityIDs))
	for _, id := range changedEntityIDs {
		changed[id] = true
	}

	seenRepo := make(map[string]bool)
	var affected []string
	for _, e := range edges {
		if !changed[e.TargetEntityID] {
			continue
		}
		if seenRepo[e.SourceRepo] {
			continue
		}
		seenRepo[e.SourceRepo] = true
		affected = append(affected, e.SourceRepo)
	}
	return affected
}
