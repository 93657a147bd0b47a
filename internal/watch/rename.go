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

package watch

import (
	"os"
	"sync"
	"time"

	"github.com/kraklabs/devac/internal/idgen"
)

// DefaultRenameWindow is how long a Removed path's content hash is
// remembered, waiting for a matching Created path to arrive (§4.6 "rename
// as unlink+add correlation").
const DefaultRenameWindow = 1000 * time.Millisecond

// RenameEvent is the logical event the Update Manager consumes in place
// of a separate unlink+add pair, when the detector finds a match (§4.5).
type RenameEvent struct {
	OldPath string
	NewPath string
	At      time.Time
}

type pendingRemoval struct {
	path        string
	contentHash string
	at          time.Time
}

// RenameDetector correlates a Removed Change with a later Created Change
// whose file content hashes identically, within DefaultRenameWindow. It
// is fed every Change via Observe; matches are returned immediately by
// Observe itself, and unmatched removals simply expire.
type RenameDetector struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]pendingRemoval // keyed by content hash
	hashOf  func(path string) (string, bool)
}

// NewRenameDetector builds a detector over the given window (zero
// selects DefaultRenameWindow). hashOf is overridable for tests; nil
// selects reading the file from disk and hashing its content.
func NewRenameDetector(window time.Duration, hashOf func(path string) (string, bool)) *RenameDetector {
	if window <= 0 {
		window = DefaultRenameWindow
	}
	if hashOf == nil {
		hashOf = hashFile
	}
	return &RenameDetector{window: window, pending: make(map[string]pendingRemoval), hashOf: hashOf}
}

func hashFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return idgen.ContentHash(data), true
}

// Observe feeds one Change through the detector. It returns a RenameEvent
// when c completes a pending unlink+add pair; the caller should suppress
// the raw Removed/Created changes it just correlated and process the
// RenameEvent instead (§4.5 "rename as unlink+add with a logical rename
// event").
func (d *RenameDetector) Observe(c Change) (RenameEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked(c.At)

	switch c.Kind {
	case ChangeRemoved:
		hash, ok := d.hashOf(c.Path)
		if !ok {
			return RenameEvent{}, false
		}
		d.pending[hash] = pendingRemoval{path: c.Path, contentHash: hash, at: c.At}
		return RenameEvent{}, false

	case ChangeCreated:
		hash, ok := d.hashOf(c.Path)
		if !ok {
			return RenameEvent{}, false
		}
		removal, found := d.pending[hash]
		if !found || c.At.Sub(removal.at) > d.window {
			return RenameEvent{}, false
		}
		delete(d.pending, hash)
		return RenameEvent{OldPath: removal.path, NewPath: c.Path, At: c.At}, true
	}
	return RenameEvent{}, false
}

// expireLocked drops pending removals older than the window, relative to
// now, so unmatched unlinks don't accumulate forever.
func (d *RenameDetector) expireLocked(now time.Time) {
	for hash, removal := range d.pending {
		if now.Sub(removal.at) > d.window {
			delete(d.pending, hash)
		}
	}
}
