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

package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/devac/internal/model"
)

// DiagnosticsStore unifies compiler errors, lint findings, CI failures,
// a11y violations and related GitHub activity into one in-memory table
// per repo (§3, §4.8 "push/clear/get/get_summary/get_counts/resolve").
// Grounded on the teacher's IndexStatus (pkg/tools/status.go): that
// function aggregated counts across CozoDB relations for display; this
// keeps the same "aggregate, don't re-derive" shape but over
// UnifiedDiagnostic rows the caller pushes rather than query results.
type DiagnosticsStore struct {
	mu    sync.RWMutex
	byID  map[string]model.UnifiedDiagnostic
}

// NewDiagnosticsStore builds an empty store.
func NewDiagnosticsStore() *DiagnosticsStore {
	return &DiagnosticsStore{byID: make(map[string]model.UnifiedDiagnostic)}
}

// Push records a diagnostic, assigning a DiagnosticID if the caller left
// one unset (§4.8 "push").
func (s *DiagnosticsStore) Push(d model.UnifiedDiagnostic, now time.Time) model.UnifiedDiagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.DiagnosticID == "" {
		d.DiagnosticID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.byID[d.DiagnosticID] = d
	return d
}

// Clear removes every diagnostic for repoID, or every diagnostic in the
// store when repoID is empty (§4.8 "clear").
func (s *DiagnosticsStore) Clear(repoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repoID == "" {
		s.byID = make(map[string]model.UnifiedDiagnostic)
		return
	}
	for id, d := range s.byID {
		if d.RepoID == repoID {
			delete(s.byID, id)
		}
	}
}

// Filter narrows a Get query (§4.8 "get").
type Filter struct {
	RepoID   string
	Source   model.DiagnosticSource
	Severity model.DiagnosticSeverity
	Category model.DiagnosticCategory
	Resolved *bool
}

// Get returns every diagnostic matching f (§4.8 "get").
func (s *DiagnosticsStore) Get(f Filter) []model.UnifiedDiagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.UnifiedDiagnostic
	for _, d := range s.byID {
		if matches(d, f) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d model.UnifiedDiagnostic, f Filter) bool {
	if f.RepoID != "" && d.RepoID != f.RepoID {
		return false
	}
	if f.Source != "" && d.Source != f.Source {
		return false
	}
	if f.Severity != "" && d.Severity != f.Severity {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.Resolved != nil && d.Resolved != *f.Resolved {
		return false
	}
	return true
}

// Summary is the aggregate view the teacher's IndexStatus rendered as a
// markdown table (§4.8 "get_summary").
type Summary struct {
	Total      int
	BySeverity map[model.DiagnosticSeverity]int
	ByCategory map[model.DiagnosticCategory]int
	ByRepo     map[string]int
	Unresolved int
}

// GetSummary aggregates every diagnostic matching f (§4.8 "get_summary").
func (s *DiagnosticsStore) GetSummary(f Filter) Summary {
	sum := Summary{
		BySeverity: make(map[model.DiagnosticSeverity]int),
		ByCategory: make(map[model.DiagnosticCategory]int),
		ByRepo:     make(map[string]int),
	}
	for _, d := range s.Get(f) {
		sum.Total++
		sum.BySeverity[d.Severity]++
		sum.ByCategory[d.Category]++
		sum.ByRepo[d.RepoID]++
		if !d.Resolved {
			sum.Unresolved++
		}
	}
	return sum
}

// GetCounts returns just the per-severity counts matching f, the cheap
// counterpart to GetSummary for dashboards that only need numbers
// (§4.8 "get_counts").
func (s *DiagnosticsStore) GetCounts(f Filter) map[model.DiagnosticSeverity]int {
	counts := make(map[model.DiagnosticSeverity]int)
	for _, d := range s.Get(f) {
		counts[d.Severity]++
	}
	return counts
}

// Resolve marks a diagnostic resolved (§4.8 "resolve").
func (s *DiagnosticsStore) Resolve(diagnosticID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[diagnosticID]
	if !ok {
		return false
	}
	d.Resolved = true
	d.UpdatedAt = now
	s.byID[diagnosticID] = d
	return true
}
