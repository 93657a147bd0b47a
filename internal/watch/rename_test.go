// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedHash(hashes map[string]string) func(string) (string, bool) {
	return func(path string) (string, bool) {
		h, ok := hashes[path]
		return h, ok
	}
}

func TestRenameDetector_MatchesWithinWindow(t *testing.T) {
	hashes := map[string]string{"old.ts": "h1", "new.ts": "h1"}
	d := NewRenameDetector(500*time.Millisecond, fixedHash(hashes))

	base := time.Now()
	_, matched := d.Observe(Change{Path: "old.ts", Kind: ChangeRemoved, At: base})
	assert.False(t, matched)

	event, matched := d.Observe(Change{Path: "new.ts", Kind: ChangeCreated, At: base.Add(100 * time.Millisecond)})
	require.True(t, matched)
	assert.Equal(t, "old.ts", event.OldPath)
	assert.Equal(t, "new.ts", event.NewPath)
}

func TestRenameDetector_NoMatchOutsideWindow(t *testing.T) {
	hashes := map[string]string{"old.ts": "h1", "new.ts": "h1"}
	d := NewRenameDetector(100*time.Millisecond, fixedHash(hashes))

	base := time.Now()
	d.Observe(Change{Path: "old.ts", Kind: ChangeRemoved, At: base})
	_, matched := d.Observe(Change{Path: "new.ts", Kind: ChangeCreated, At: base.Add(time.Second)})
	assert.False(t, matched)
}

func TestRenameDetector_DifferentContentNeverMatches(t *testing.T) {
	hashes := map[string]string{"old.ts": "h1", "new.ts": "h2"}
	d := NewRenameDetector(time.Second, fixedHash(hashes))

	base := time.Now()
	d.Observe(Change{Path: "old.ts", Kind: ChangeRemoved, At: base})
	_, matched := d.Observe(Change{Path: "new.ts", Kind: ChangeCreated, At: base.Add(10 * time.Millisecond)})
	assert.False(t, matched)
}
