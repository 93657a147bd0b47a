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

// Package metrics exposes Prometheus counters/histograms shared by the
// Update Manager, Analyze Orchestrator and Hub query facade. Grounded on
// the teacher's pkg/ingestion/metrics.go: same sync.Once-guarded
// package-level singleton and Counter/Histogram shape, renamed from the
// "cie_ing_*" ingestion metric family to this module's parse/resolve/
// query metric family.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// M is the process-wide metrics singleton, matching the teacher's
// package-level metrics var (pkg/ingestion/metrics.go's ingMetrics).
var M metricsSet

type metricsSet struct {
	once sync.Once

	FilesParsed   prometheus.Counter
	FilesFailed   prometheus.Counter
	FilesSkipped  prometheus.Counter
	EdgesResolved prometheus.Counter
	EdgesStub     prometheus.Counter

	ParseDuration   prometheus.Histogram
	ResolveDuration prometheus.Histogram
	WriteDuration   prometheus.Histogram

	QueryCacheHits   prometheus.Counter
	QueryCacheMisses prometheus.Counter
}

func (m *metricsSet) init() {
	m.once.Do(func() {
		m.FilesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_files_parsed_total", Help: "Files successfully parsed"})
		m.FilesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_files_failed_total", Help: "Files that failed to parse"})
		m.FilesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_files_skipped_total", Help: "Files skipped due to unchanged content hash"})
		m.EdgesResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_edges_resolved_total", Help: "Edges bound to a concrete entity_id"})
		m.EdgesStub = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_edges_unresolved_total", Help: "Edges left as unresolved stubs"})

		m.ParseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "devac_parse_duration_seconds", Help: "Per-file parse duration"})
		m.ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "devac_resolve_duration_seconds", Help: "Per-package resolve pass duration"})
		m.WriteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "devac_seed_write_duration_seconds", Help: "Seed table write duration"})

		m.QueryCacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_query_cache_hits_total", Help: "Hub/seed query cache hits"})
		m.QueryCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "devac_query_cache_misses_total", Help: "Hub/seed query cache misses"})
	})
}

// Registry returns a fresh prometheus.Registry with every metric
// registered, for callers (typically cmd/devac) that want to expose
// /metrics without relying on the default global registry.
func Registry() *prometheus.Registry {
	M.init()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		M.FilesParsed, M.FilesFailed, M.FilesSkipped,
		M.EdgesResolved, M.EdgesStub,
		M.ParseDuration, M.ResolveDuration, M.WriteDuration,
		M.QueryCacheHits, M.QueryCacheMisses,
	)
	return reg
}

func init() {
	M.init()
}
