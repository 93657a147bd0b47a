// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/model"
)

func TestWrite_CreatesTablesMetaAndStats(t *testing.T) {
	dir := t.TempDir()
	set := TableSet{
		Nodes: []model.Node{{EntityID: "repo:pkg:function:abc", Name: "foo", Kind: model.KindFunction}},
		Edges: []model.Edge{{SourceEntityID: "a", TargetEntityID: model.UnresolvedPrefix + "b", EdgeType: model.EdgeCalls}},
	}
	err := Write(dir, "repo", "pkg", "main", set, time.Now())
	require.NoError(t, err)

	meta, ok := ReadMeta(dir, "main")
	require.True(t, ok)
	assert.Equal(t, "repo", meta.RepoName)
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)

	stats, ok := ReadStats(dir, "main")
	require.True(t, ok)
	assert.Equal(t, 1, stats.NodeCount)
	assert.Equal(t, 1, stats.UnresolvedEdges)
}

func TestAcquireLock_RefusesConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	unlock, err := acquireLock(dir)
	require.NoError(t, err)
	defer unlock()

	_, err = acquireLock(dir)
	assert.Error(t, err)
}

func TestIsLocked_FalseWhenNoLockHeld(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsLocked(dir, "main"))
}
