// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/parser"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFileChange_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ts", "export function foo() { return 1; }")

	m := New(dir, parser.Config{RepoName: "r", PackagePath: dir, Branch: "main"}, parser.DefaultRegistry())

	r1, err := m.ProcessFileChange(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, r1.Skipped)

	r2, err := m.ProcessFileChange(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, r2.Skipped, "second pass over unchanged content should short-circuit")
}

func TestProcessFileChange_ReparsesOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ts", "export function foo() {}")
	m := New(dir, parser.Config{RepoName: "r", PackagePath: dir, Branch: "main"}, parser.DefaultRegistry())

	_, err := m.ProcessFileChange(context.Background(), path)
	require.NoError(t, err)

	writeFile(t, dir, "a.ts", "export function foo() {}\nexport function bar() {}")
	r2, err := m.ProcessFileChange(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, r2.Skipped)

	set := m.Snapshot()
	assert.GreaterOrEqual(t, len(set.Nodes), 3) // module + foo + bar
}

func TestProcessRemoval_RetractsRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ts", "export function foo() {}")
	m := New(dir, parser.Config{RepoName: "r", PackagePath: dir, Branch: "main"}, parser.DefaultRegistry())

	_, err := m.ProcessFileChange(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, m.Snapshot().Nodes)

	m.ProcessRemoval(path)
	nodes := m.Snapshot().Nodes
	require.NotEmpty(t, nodes) // retracted rows stay as tombstones
	for _, n := range nodes {
		assert.True(t, n.IsDeleted, "node %s not tombstoned", n.Name)
	}
}

func TestDispose_RejectsFurtherWork(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ts", "export function foo() {}")
	m := New(dir, parser.Config{RepoName: "r", PackagePath: dir, Branch: "main"}, parser.DefaultRegistry())
	m.Dispose()

	_, err := m.ProcessFileChange(context.Background(), path)
	assert.Error(t, err)
}
