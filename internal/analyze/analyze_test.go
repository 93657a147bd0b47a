// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/parser"
)

func TestRun_ParsesDiscoveredFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export function a() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("def b():\n    pass\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "skip.js"), []byte("export function skip() {}"), 0o644))

	report, err := Run(context.Background(), Options{RepoName: "r", PackageRoot: dir, Branch: "main"}, parser.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesDiscovered)
	assert.Equal(t, 2, report.FilesParsed)
	assert.False(t, report.Skipped)
}

func TestRun_IfChangedSkipsSecondRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export function a() {}"), 0o644))

	opts := Options{RepoName: "r", PackageRoot: dir, Branch: "main", IfChanged: true}
	_, err := Run(context.Background(), opts, parser.DefaultRegistry())
	require.NoError(t, err)

	report, err := Run(context.Background(), opts, parser.DefaultRegistry())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestRun_ForceOverridesIfChanged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export function a() {}"), 0o644))

	opts := Options{RepoName: "r", PackageRoot: dir, Branch: "main", IfChanged: true}
	_, err := Run(context.Background(), opts, parser.DefaultRegistry())
	require.NoError(t, err)

	opts.Force = true
	report, err := Run(context.Background(), opts, parser.DefaultRegistry())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
}
