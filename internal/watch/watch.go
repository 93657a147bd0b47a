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

// Package watch implements the File Watcher of spec §4.6: a debounced,
// coalesced fsnotify loop that collapses a burst of filesystem events on
// one path into a single Change, delivered as a Batch once that path's
// events settle. Grounded on the teacher's MangleWatcher
// (_examples/theRebelliousNerd-codenerd/internal/core/mangle_watcher.go):
// same debounce-map-plus-stop/done-channel shape, generalized from a
// single fixed directory to an arbitrary set of watched package roots
// and from "trigger validation" to "emit a coalesced change batch".
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/devac/internal/idgen"
)

// ChangeKind enumerates what happened to a path (§4.6).
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
	// ChangeRenamed is delivered instead of a Removed+Created pair once the
	// RenameDetector correlates them (§4.6, §4.5 "rename as unlink+add").
	ChangeRenamed ChangeKind = "renamed"
)

// Change is one coalesced file event. OldPath is set only when Kind is
// ChangeRenamed, naming the path the content moved from.
type Change struct {
	Path    string
	OldPath string
	Kind    ChangeKind
	At      time.Time
}

// Batch carries the settled Change of a single path, delivered once that
// path has seen no event for one debounce window. Changes to different
// paths are delivered in separate Batches; a Batch never groups paths.
type Batch struct {
	Changes []Change
}

// DefaultDebounce matches the window spec §4.6 names as the default.
const DefaultDebounce = 100 * time.Millisecond

// Watcher debounces fsnotify events per path and flushes a Batch once no
// further events for that path arrive within the debounce window.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]Change
	timers   map[string]*time.Timer
	batches  chan Batch
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	// fileHashes remembers the last content hash seen for a path while it
	// still existed, so a later Removed event (whose path can no longer be
	// read) can still be correlated by the RenameDetector (§4.6).
	fileHashes    map[string]string
	renamer       *RenameDetector
	removalTimers map[string]*time.Timer
}

// New constructs a Watcher over the given roots with the given debounce
// window (zero selects DefaultDebounce). Every regular file already
// present under roots is hashed up front so a rename of a pre-existing
// file (not merely one created during this watch session) can still be
// correlated.
func New(roots []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if err := fsw.Add(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	w := &Watcher{
		fsw: fsw, debounce: debounce,
		pending: make(map[string]Change), timers: make(map[string]*time.Timer),
		batches:       make(chan Batch, 16),
		stopCh:        make(chan struct{}), doneCh: make(chan struct{}),
		fileHashes:    make(map[string]string),
		removalTimers: make(map[string]*time.Timer),
	}
	w.renamer = NewRenameDetector(0, w.resolveHash)
	for _, root := range roots {
		primeHashes(root, w.fileHashes)
	}
	return w, nil
}

// primeHashes hashes every regular file under root up front, best-effort
// (a read error for one file never aborts the walk).
func primeHashes(root string, hashes map[string]string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if data, rerr := os.ReadFile(path); rerr == nil {
			hashes[filepath.Clean(path)] = idgen.ContentHash(data)
		}
		return nil
	})
}

// resolveHash is the RenameDetector's hashOf function: it reads path from
// disk when possible (refreshing the cache for later use), and falls back
// to the last cached hash when path no longer exists, e.g. because it was
// just removed (§4.6 "rename as unlink+add correlation").
func (w *Watcher) resolveHash(path string) (string, bool) {
	if data, err := os.ReadFile(path); err == nil {
		hash := idgen.ContentHash(data)
		w.mu.Lock()
		w.fileHashes[path] = hash
		w.mu.Unlock()
		return hash, true
	}
	w.mu.Lock()
	hash, ok := w.fileHashes[path]
	w.mu.Unlock()
	return hash, ok
}

// Batches returns the channel Batches are delivered on.
func (w *Watcher) Batches() <-chan Batch { return w.batches }

// Start begins the event loop in a goroutine; non-blocking (§4.6).
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.loop()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watch.fsnotify_error", "error", err)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	kind, ok := classify(event.Op)
	if !ok {
		return
	}
	path := filepath.Clean(event.Name)
	now := time.Now()

	switch kind {
	case ChangeRemoved:
		w.handleRemoved(path, now)
		return
	case ChangeCreated:
		if w.handleCreated(path, now) {
			return
		}
	case ChangeModified:
		w.resolveHash(path) // refresh cache opportunistically
	}

	w.scheduleLocked(path, Change{Path: path, Kind: kind, At: now})
}

// handleRemoved feeds a Removed event to the RenameDetector but defers the
// raw delivery by the detector's correlation window instead of the normal
// debounce window, so a same-content Created arriving shortly after (a
// filesystem rename) can cancel it and be delivered as one ChangeRenamed
// instead of a spurious Removed+Created pair (§4.6, §4.5).
func (w *Watcher) handleRemoved(path string, now time.Time) {
	w.renamer.Observe(Change{Path: path, Kind: ChangeRemoved, At: now})

	w.mu.Lock()
	if t, exists := w.removalTimers[path]; exists {
		t.Stop()
	}
	w.removalTimers[path] = time.AfterFunc(DefaultRenameWindow, func() {
		w.mu.Lock()
		delete(w.removalTimers, path)
		w.mu.Unlock()
		w.scheduleLocked(path, Change{Path: path, Kind: ChangeRemoved, At: time.Now()})
	})
	w.mu.Unlock()
}

// handleCreated feeds a Created event to the RenameDetector. When it
// completes a pending rename, the correlated Removed delivery is cancelled
// and a ChangeRenamed is scheduled in its place; handleCreated reports true
// in that case so the caller skips its own normal Created scheduling.
func (w *Watcher) handleCreated(path string, now time.Time) bool {
	renameEvent, matched := w.renamer.Observe(Change{Path: path, Kind: ChangeCreated, At: now})
	if !matched {
		return false
	}

	w.mu.Lock()
	if t, exists := w.removalTimers[renameEvent.OldPath]; exists {
		t.Stop()
		delete(w.removalTimers, renameEvent.OldPath)
	}
	w.mu.Unlock()

	w.scheduleLocked(path, Change{
		Path: renameEvent.NewPath, OldPath: renameEvent.OldPath,
		Kind: ChangeRenamed, At: renameEvent.At,
	})
	return true
}

// scheduleLocked debounces one change for path, same coalescing behavior
// regardless of the change's kind.
func (w *Watcher) scheduleLocked(path string, change Change) {
	w.mu.Lock()
	w.pending[path] = change
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.flush(path) })
	w.mu.Unlock()
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	change, ok := w.pending[path]
	delete(w.pending, path)
	delete(w.timers, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	select {
	case w.batches <- Batch{Changes: []Change{change}}:
	case <-w.stopCh:
	}
}

func classify(op fsnotify.Op) (ChangeKind, bool) {
	switch {
	case op&fsnotify.Remove != 0:
		return ChangeRemoved, true
	case op&fsnotify.Create != 0:
		return ChangeCreated, true
	case op&fsnotify.Write != 0:
		return ChangeModified, true
	case op&fsnotify.Rename != 0:
		return ChangeRemoved, true // the paired Create for the new name arrives separately (§4.6 rename detection)
	default:
		return "", false
	}
}

// Stop cancels the pending debounce and removal timers and closes the
// underlying fsnotify watcher; changes still waiting on those timers are
// discarded, not delivered. Blocks until the event loop goroutine has
// exited, then closes the Batches channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	for _, t := range w.timers {
		t.Stop()
	}
	for _, t := range w.removalTimers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	w.fsw.Close()
	<-w.doneCh
	close(w.batches)
}
