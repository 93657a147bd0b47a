// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/model"
)

func TestResolveEdge_LocalBeatsPackage(t *testing.T) {
	idx := NewExportIndex()
	idx.Add("pkg/a", model.Node{EntityID: "repo:pkg/a:function:pkgexport", Name: "helper", FilePath: "a.ts", IsExported: true})
	idx.Add("pkg/a", model.Node{EntityID: "repo:pkg/a:function:local", Name: "helper", FilePath: "b.ts", IsExported: false})

	idx.mu.RLock()
	_, ok := idx.byFile["b.ts"]["helper"]
	idx.mu.RUnlock()
	require.True(t, ok)

	res := resolveName(idx, "b.ts", "pkg/a", "helper", true, nil)
	assert.True(t, res.Resolved)
	assert.Equal(t, ConfidenceExact, res.Confidence)
	assert.Equal(t, "repo:pkg/a:function:local", res.TargetEntityID)
}

func TestResolveEdge_FallsBackToPackageExport(t *testing.T) {
	idx := NewExportIndex()
	idx.Add("pkg/a", model.Node{EntityID: "repo:pkg/a:function:pkgexport", Name: "helper", FilePath: "a.ts", IsExported: true})

	res := resolveName(idx, "other.ts", "pkg/a", "helper", true, nil)
	assert.True(t, res.Resolved)
	assert.Equal(t, ConfidencePackage, res.Confidence)
}

func TestResolveEdge_StrictFailsWhenUnresolved(t *testing.T) {
	idx := NewExportIndex()
	edge := &model.Edge{SourceEntityID: "s", TargetEntityID: model.UnresolvedPrefix + "missingFn", EdgeType: model.EdgeCalls}

	_, err := resolveEdge(idx, "pkg/a", edge, true)
	require.NotNil(t, err)
	assert.Equal(t, "MODULE_NOT_FOUND", string(err.Code))
}

func TestResolve_MutatesEdgeInPlace(t *testing.T) {
	idx := NewExportIndex()
	idx.Add("pkg/a", model.Node{EntityID: "repo:pkg/a:function:target", Name: "callee", FilePath: "a.ts", IsExported: true})

	edge := &model.Edge{SourceEntityID: "caller", TargetEntityID: model.UnresolvedPrefix + "callee", EdgeType: model.EdgeCalls}
	job := PackageJob{Package: "pkg/a", Edges: []*model.Edge{edge}}

	resolutions, errs := Resolve(context.Background(), idx, job, false)
	require.Empty(t, errs)
	require.Len(t, resolutions, 1)
	assert.Equal(t, "repo:pkg/a:function:target", edge.TargetEntityID)
	assert.False(t, edge.IsUnresolved())
}

func TestResolveExternalRefs_PlaceholderWhenUnregistered(t *testing.T) {
	refs := []model.ExternalRef{
		{SourceEntityID: "s1", ModuleSpecifier: "@acme/billing-client", ImportedSymbol: "chargeCard"},
		{SourceEntityID: "s2", ModuleSpecifier: "./local-util", ImportedSymbol: "helper"},
	}
	edges := ResolveExternalRefs("repoA", refs, func(spec, sym string) (string, string, bool) { return "", "", false })
	require.Len(t, edges, 1)
	assert.Equal(t, "unresolved-repo:@acme/billing-client", edges[0].TargetRepo)
}

func TestResolveExternalRefs_RealRepoWhenRegistered(t *testing.T) {
	refs := []model.ExternalRef{{SourceEntityID: "s1", ModuleSpecifier: "billing-service", ImportedSymbol: "chargeCard"}}
	edges := ResolveExternalRefs("repoA", refs, func(spec, sym string) (string, string, bool) {
		return "billing-repo", "billing-repo:pkg:function:xyz", true
	})
	require.Len(t, edges, 1)
	assert.Equal(t, "billing-repo", edges[0].TargetRepo)
	assert.Equal(t, "billing-repo:pkg:function:xyz", edges[0].TargetEntityID)
}
