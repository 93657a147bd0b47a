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

package model

import "time"

// PackageSummary is one entry of a RepoManifest's Packages list (§3).
type PackageSummary struct {
	Name     string `json:"name" yaml:"name"`
	SeedPath string `json:"seedPath" yaml:"seedPath"`
	Language string `json:"language" yaml:"language"`
	Hash     string `json:"hash" yaml:"hash"`
}

// ExternalDependency is one entry of a RepoManifest's ExternalDependencies
// list. RepoID is populated only once the Manifest Generator (§4.9) can
// textually associate the dependency with a registered repo.
type ExternalDependency struct {
	Package string `json:"package" yaml:"package"`
	Version string `json:"version" yaml:"version"`
	RepoID  string `json:"repoId,omitempty" yaml:"repoId,omitempty"`
}

// RepoManifest summarises a repo's packages and external dependencies
// (§3, §4.9). Hash is the digest of the manifest's own JSON encoding.
type RepoManifest struct {
	RepoID               string               `json:"repoId" yaml:"repoId"`
	Packages             []PackageSummary     `json:"packages" yaml:"packages"`
	ExternalDependencies []ExternalDependency `json:"externalDependencies" yaml:"externalDependencies"`
	GeneratedAt          time.Time            `json:"generatedAt" yaml:"generatedAt"`
	Hash                 string               `json:"hash" yaml:"hash"`
}

// RepoStatus enumerates a RepoRegistration's lifecycle state.
type RepoStatus string

const (
	RepoActive  RepoStatus = "active"
	RepoStale   RepoStatus = "stale"
	RepoMissing RepoStatus = "missing"
)

// RepoRegistration is a hub registry row (§3, §4.8).
type RepoRegistration struct {
	RepoID       string     `json:"repoId"`
	LocalPath    string     `json:"localPath"`
	ManifestHash string     `json:"manifestHash"`
	LastSynced   time.Time  `json:"lastSynced"`
	Status       RepoStatus `json:"status"`
}

// CrossRepoEdge is a hub row recording a cross-repository dependency (§3).
type CrossRepoEdge struct {
	SourceRepo     string            `json:"sourceRepo"`
	SourceEntityID string            `json:"sourceEntityId"`
	TargetRepo     string            `json:"targetRepo"`
	TargetEntityID string            `json:"targetEntityId"`
	EdgeType       EdgeType          `json:"edgeType"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// DiagnosticSource enumerates where a UnifiedDiagnostic originated (§3).
type DiagnosticSource string

const (
	SourceTSC         DiagnosticSource = "tsc"
	SourceESLint      DiagnosticSource = "eslint"
	SourceBiome       DiagnosticSource = "biome"
	SourceTest        DiagnosticSource = "test"
	SourceCoverage    DiagnosticSource = "coverage"
	SourceAxe         DiagnosticSource = "axe"
	SourceCICheck     DiagnosticSource = "ci-check"
	SourceGithubIssue DiagnosticSource = "github-issue"
	SourceGithubReview DiagnosticSource = "github-review"
)

// DiagnosticSeverity enumerates a UnifiedDiagnostic's severity (§3).
type DiagnosticSeverity string

const (
	SeverityCritical   DiagnosticSeverity = "critical"
	SeverityError      DiagnosticSeverity = "error"
	SeverityWarning    DiagnosticSeverity = "warning"
	SeveritySuggestion DiagnosticSeverity = "suggestion"
	SeverityNote       DiagnosticSeverity = "note"
)

// DiagnosticCategory enumerates a UnifiedDiagnostic's category (§3).
type DiagnosticCategory string

const (
	CategoryCompilation    DiagnosticCategory = "compilation"
	CategoryLinting        DiagnosticCategory = "linting"
	CategoryTesting        DiagnosticCategory = "testing"
	CategoryAccessibility  DiagnosticCategory = "accessibility"
	CategoryCICheck        DiagnosticCategory = "ci-check"
	CategoryTask           DiagnosticCategory = "task"
)

// UnifiedDiagnostic is a hub row unifying compile errors, lint findings,
// CI failures, a11y violations, and related GitHub activity (§3).
type UnifiedDiagnostic struct {
	DiagnosticID      string             `json:"diagnosticId"`
	RepoID            string             `json:"repoId"`
	Source            DiagnosticSource   `json:"source"`
	FilePath          string             `json:"filePath,omitempty"`
	Line              int                `json:"line,omitempty"`
	Col               int                `json:"col,omitempty"`
	Severity          DiagnosticSeverity `json:"severity"`
	Category          DiagnosticCategory `json:"category"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	Code              string             `json:"code,omitempty"`
	Suggestion        string             `json:"suggestion,omitempty"`
	Resolved          bool               `json:"resolved"`
	Actionable        bool               `json:"actionable"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	GithubIssueNumber int                `json:"githubIssueNumber,omitempty"`
	GithubPRNumber    int                `json:"githubPrNumber,omitempty"`
	WorkflowName      string             `json:"workflowName,omitempty"`
	CIURL             string             `json:"ciUrl,omitempty"`
}
