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

// Package idgen generates the deterministic entity IDs and content
// fingerprints described in spec §4.1. Generate is a pure function: it
// performs no I/O and depends only on its listed inputs, so the same
// symbol parsed twice (even across processes) yields the same entity_id.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// Generate computes the entity_id for a declared symbol: a deterministic
// string scoped by repo, package, kind, file-relative path and name
// (§4.1). The scope hash is salted with the path so that renaming the
// file changes the ID even if every other input is identical.
func Generate(repo, pkg, kind, relativePath, name string) string {
	normalized := normalizePath(relativePath)
	scope := fmt.Sprintf("%s|%s|%s|%s", pkg, kind, normalized, name)
	return fmt.Sprintf("%s:%s:%s:%s", repo, pkg, kind, stringHash(scope))
}

// ContentHash returns the hex SHA-256 digest of bytes. Used to
// short-circuit re-parsing of unchanged files (§4.5 step 1) and to
// fingerprint a package's aggregated source for --if-changed (§4.7).
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StringHash returns the first 16 hex characters of the SHA-256 digest
// of s. Used to key the query
// cache (§4.4, §4.8: "cached by string_hash(sql)").
func StringHash(s string) string {
	return stringHash(s)
}

func stringHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// normalizePath makes a relative path stable across platforms: forward
// slashes, no leading "./", no leading "/".
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
