// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Repos["api"] = "/repos/api"

	require.NoError(t, Save(dir, cfg))
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.DefaultBranch)
	assert.Equal(t, "/repos/api", loaded.Repos["api"])
}

func TestDiscoverWorkspace_FindsAncestorWithVCSChild(t *testing.T) {
	root := t.TempDir()
	repoA := filepath.Join(root, "repo-a")
	require.NoError(t, os.MkdirAll(filepath.Join(repoA, ".git"), 0o755))
	nested := filepath.Join(repoA, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	ws, ok := DiscoverWorkspace(nested)
	require.True(t, ok)
	assert.Equal(t, root, ws)
}

func TestDiscoverWorkspace_StartingAtRepoRootUsesParent(t *testing.T) {
	root := t.TempDir()
	repoA := filepath.Join(root, "repo-a")
	require.NoError(t, os.MkdirAll(filepath.Join(repoA, ".git"), 0o755))

	ws, ok := DiscoverWorkspace(repoA)
	require.True(t, ok)
	assert.Equal(t, root, ws)
}

func TestDiscoverWorkspace_NoVCSAnywhereFails(t *testing.T) {
	dir := t.TempDir()
	_, ok := DiscoverWorkspace(dir)
	assert.False(t, ok)
}
