// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/model"
	"github.com/kraklabs/devac/internal/resolver"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	now := time.Unix(1700000000, 0)
	r.Register("repo-a", "/repos/a", now)
	r.Register("repo-b", "/repos/b", now)

	repos := r.ListRepos()
	assert.Len(t, repos, 2)

	reg, ok := r.Get("repo-a")
	require.True(t, ok)
	assert.Equal(t, model.RepoActive, reg.Status)
}

func TestRegistry_RefreshUnknownRepoErrors(t *testing.T) {
	r := NewRegistry()
	err := r.Refresh("missing", model.RepoManifest{}, time.Unix(0, 0))
	assert.Error(t, err)
}

func TestRegistry_MarkMissing(t *testing.T) {
	r := NewRegistry()
	now := time.Unix(1700000000, 0)
	r.Register("repo-a", "/repos/a", now)
	r.MarkMissing("repo-a")

	reg, ok := r.Get("repo-a")
	require.True(t, ok)
	assert.Equal(t, model.RepoMissing, reg.Status)
}

func TestMatchConnections_ExactRouteMatch(t *testing.T) {
	repos := []RepoEffects{
		{RepoID: "frontend", Effects: []model.Effect{
			{EffectType: model.EffectSend, SendType: model.SendM2M, Method: "GET", Target: "https://billing/api/invoices"},
		}},
		{RepoID: "billing", Effects: []model.Effect{
			{EffectType: model.EffectRequest, Method: "GET", RoutePattern: "/api/invoices"},
		}},
	}

	conns := MatchConnections(repos)
	require.Len(t, conns, 1)
	assert.Equal(t, "frontend", conns[0].SourceRepo)
	assert.Equal(t, "billing", conns[0].TargetRepo)
	assert.Equal(t, 1.0, conns[0].Confidence)
}

func TestMatchConnections_MethodMismatchNeverMatches(t *testing.T) {
	repos := []RepoEffects{
		{RepoID: "frontend", Effects: []model.Effect{
			{EffectType: model.EffectSend, SendType: model.SendM2M, Method: "POST", Target: "/api/invoices"},
		}},
		{RepoID: "billing", Effects: []model.Effect{
			{EffectType: model.EffectRequest, Method: "GET", RoutePattern: "/api/invoices"},
		}},
	}
	assert.Empty(t, MatchConnections(repos))
}

func TestMatchConnections_SameRepoNeverCounted(t *testing.T) {
	repos := []RepoEffects{
		{RepoID: "monolith", Effects: []model.Effect{
			{EffectType: model.EffectSend, SendType: model.SendM2M, Method: "GET", Target: "/api/invoices"},
			{EffectType: model.EffectRequest, Method: "GET", RoutePattern: "/api/invoices"},
		}},
	}
	assert.Empty(t, MatchConnections(repos))
}

func TestDiagnosticsStore_PushGetSummary(t *testing.T) {
	s := NewDiagnosticsStore()
	now := time.Unix(1700000000, 0)

	s.Push(model.UnifiedDiagnostic{RepoID: "a", Source: model.SourceTSC, Severity: model.SeverityError, Category: model.CategoryCompilation}, now)
	s.Push(model.UnifiedDiagnostic{RepoID: "a", Source: model.SourceESLint, Severity: model.SeverityWarning, Category: model.CategoryLinting}, now)
	s.Push(model.UnifiedDiagnostic{RepoID: "b", Source: model.SourceTSC, Severity: model.SeverityError, Category: model.CategoryCompilation}, now)

	sum := s.GetSummary(Filter{RepoID: "a"})
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 2, sum.Unresolved)
	assert.Equal(t, 1, sum.BySeverity[model.SeverityError])
}

func TestDiagnosticsStore_ResolveAndClear(t *testing.T) {
	s := NewDiagnosticsStore()
	now := time.Unix(1700000000, 0)
	d := s.Push(model.UnifiedDiagnostic{RepoID: "a", Severity: model.SeverityError}, now)

	ok := s.Resolve(d.DiagnosticID, now.Add(time.Minute))
	require.True(t, ok)

	got := s.Get(Filter{RepoID: "a"})
	require.Len(t, got, 1)
	assert.True(t, got[0].Resolved)

	s.Clear("a")
	assert.Empty(t, s.Get(Filter{}))
}

func TestGenerateManifest_PlaceholderForUnregisteredDependency(t *testing.T) {
	pkgs := []PackageSource{
		{Name: "api", Language: "typescript", PackageRoot: t.TempDir(), Branch: "main", Refs: []model.ExternalRef{
			{SourceEntityID: "e1", ModuleSpecifier: "left-pad", ImportedSymbol: "leftPad"},
		}},
	}
	lookup := resolver.RepoLookup(func(specifier, symbol string) (string, string, bool) { return "", "", false })

	m, err := GenerateManifest("myrepo", pkgs, lookup, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Len(t, m.ExternalDependencies, 1)
	assert.Empty(t, m.ExternalDependencies[0].RepoID)
	assert.NotEmpty(t, m.Hash)
}

func TestGenerateManifest_ResolvesRegisteredDependency(t *testing.T) {
	pkgs := []PackageSource{
		{Name: "api", Language: "typescript", PackageRoot: t.TempDir(), Branch: "main", Refs: []model.ExternalRef{
			{SourceEntityID: "e1", ModuleSpecifier: "@acme/shared", ImportedSymbol: "widget"},
		}},
	}
	lookup := resolver.RepoLookup(func(specifier, symbol string) (string, string, bool) {
		if specifier == "@acme/shared" {
			return "shared-repo", "entity-123", true
		}
		return "", "", false
	})

	m, err := GenerateManifest("myrepo", pkgs, lookup, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Len(t, m.ExternalDependencies, 1)
	assert.Equal(t, "shared-repo", m.ExternalDependencies[0].RepoID)
}

func TestAffectedRepos_DirectImpactOnly(t *testing.T) {
	edges := []model.CrossRepoEdge{
		{SourceRepo: "frontend", TargetEntityID: "shared:util", EdgeType: model.EdgeImports},
		{SourceRepo: "mobile", TargetEntityID: "shared:util", EdgeType: model.EdgeImports},
		{SourceRepo: "backend", TargetEntityID: "shared:other", EdgeType: model.EdgeImports},
	}
	affected := AffectedRepos(edges, []string{"shared:util"})
	assert.ElementsMatch(t, []string{"frontend", "mobile"}, affected)
}
