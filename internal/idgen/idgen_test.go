// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package idgen

import "testing"

func TestGenerateIsDeterministic(t *testing.T) {
	id1 := Generate("r", "pkg/a", "function", "src/util.ts", "helper")
	id2 := Generate("r", "pkg/a", "function", "src/util.ts", "helper")
	if id1 != id2 {
		t.Fatalf("expected identical IDs, got %q vs %q", id1, id2)
	}
}

func TestGenerateChangesWithRename(t *testing.T) {
	before := Generate("r", "pkg/a", "function", "src/utils.ts", "helper")
	after := Generate("r", "pkg/a", "function", "src/util2.ts", "helper")
	if before == after {
		t.Fatalf("expected rename to change entity_id, both were %q", before)
	}
}

func TestGenerateNormalizesPath(t *testing.T) {
	a := Generate("r", "pkg", "function", "./src/utils.ts", "helper")
	b := Generate("r", "pkg", "function", "src/utils.ts", "helper")
	if a != b {
		t.Fatalf("expected normalized paths to collapse, got %q vs %q", a, b)
	}
}

func TestContentHashStable(t *testing.T) {
	h1 := ContentHash([]byte("package main"))
	h2 := ContentHash([]byte("package main"))
	if h1 != h2 {
		t.Fatalf("expected stable content hash, got %q vs %q", h1, h2)
	}
	if ContentHash([]byte("x")) == h1 {
		t.Fatalf("expected different content to hash differently")
	}
}

func TestStringHashLength(t *testing.T) {
	h := StringHash("SELECT COUNT(*) FROM edges")
	if len(h) != 16 {
		t.Fatalf("expected 16-char hash, got %d chars", len(h))
	}
}
