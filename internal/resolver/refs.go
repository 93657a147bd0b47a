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

package resolver

import (
	"strings"

	"github.com/kraklabs/devac/internal/model"
)

// RepoLookup answers whether moduleSpecifier names a repo already
// registered with the Hub, and if so, which repo ID and exported entity
// ID the symbol resolves to. The Hub supplies the real implementation;
// tests and single-repo callers can pass a func that always misses.
type RepoLookup func(moduleSpecifier, importedSymbol string) (repoID, entityID string, ok bool)

// ResolveExternalRefs turns each ExternalRef into a CrossRepoEdge. When
// lookup resolves the dependency to an already-registered repo, the edge
// targets the real exported entity_id; otherwise it targets the
// "unresolved-repo:<specifier>" placeholder, per SPEC_FULL's decision on
// cross-repo edge fidelity (never block on a repo that hasn't synced yet).
func ResolveExternalRefs(sourceRepo string, refs []model.ExternalRef, lookup RepoLookup) []model.CrossRepoEdge {
	edges := make([]model.CrossRepoEdge, 0, len(refs))
	for _, ref := range refs {
		if !looksExternal(ref.ModuleSpecifier) {
			continue // local/relative imports are resolved within-package, not cross-repo
		}
		repoID, entityID, ok := lookup(ref.ModuleSpecifier, ref.ImportedSymbol)
		if !ok {
			repoID = "unresolved-repo:" + ref.ModuleSpecifier
			entityID = "unresolved:" + ref.ImportedSymbol
		}
		edges = append(edges, model.CrossRepoEdge{
			SourceRepo:     sourceRepo,
			SourceEntityID: ref.SourceEntityID,
			TargetRepo:     repoID,
			TargetEntityID: entityID,
			EdgeType:       model.EdgeImports,
			Metadata:       map[string]string{"module_specifier": ref.ModuleSpecifier},
		})
	}
	return edges
}

// looksExternal reports whether a module specifier names a package
// dependency rather than a same-repo relative import ("./x", "../x").
func looksExternal(specifier string) bool {
	return !strings.HasPrefix(specifier, ".")
}
