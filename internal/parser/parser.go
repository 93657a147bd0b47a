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

// Package parser implements the per-language structural extractors of
// spec §4.2. Every language backend implements the Parser interface;
// callers never switch on language directly, they go through a Registry.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
)

// Config is the configuration a caller supplies to Parse/ParseContent (§4.2).
type Config struct {
	RepoName             string
	PackagePath          string
	Branch               string
	IncludeDocumentation bool
	MaxNodeDepth         *int
	Strict               bool
}

// ParseResult is the outcome of parsing a single file (§4.2).
type ParseResult struct {
	Nodes          []model.Node
	Edges          []model.Edge
	ExternalRefs   []model.ExternalRef
	Effects        []model.Effect
	SourceFileHash string
	FilePath       string
	ParseTimeMs    int64
	Warnings       []string
}

// addWarning appends a warning without ever failing the parse (§4.2
// "syntax errors never throw; they are recorded in warnings").
func (r *ParseResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Parser is the uniform contract every language backend satisfies (§4.2).
type Parser interface {
	Language() string
	Extensions() []string
	Version() string
	CanParse(path string) bool
	Parse(path string, config Config) (*ParseResult, error)
	ParseContent(content []byte, path string, config Config) (*ParseResult, error)
}

// Registry dispatches a file path to the Parser that can handle it.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds a registry over the given parsers, in priority order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// DefaultRegistry wires the three bundled language backends (§2 "Parsers").
func DefaultRegistry() *Registry {
	return NewRegistry(NewJavaScriptParser(), NewTypeScriptParser(), NewPythonParser())
}

// For returns the parser that claims path, or nil if none does.
func (r *Registry) For(path string) Parser {
	for _, p := range r.parsers {
		if p.CanParse(path) {
			return p
		}
	}
	return nil
}

// Parse reads path from disk and dispatches to the matching parser.
// A missing file fails the operation outright (§4.2 "Missing files fail
// the parse operation"); an unsupported extension also fails, since
// there is no parser to even attempt a best-effort AST.
func (r *Registry) Parse(path string, config Config) (*ParseResult, error) {
	p := r.For(path)
	if p == nil {
		return nil, fmt.Errorf("no parser registered for %s", path)
	}
	return p.Parse(path, config)
}

// readAndHash reads a file and returns its bytes plus content hash,
// failing the operation if the file cannot be read (§4.2).
func readAndHash(path string) ([]byte, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return content, idgen.ContentHash(content), nil
}

// moduleNode builds the one mandatory "module" Node every parse produces
// (§4.2 "Always produces at least one Node of kind module").
func moduleNode(cfg Config, relPath, hash string, now time.Time) model.Node {
	id := idgen.Generate(cfg.RepoName, cfg.PackagePath, string(model.KindModule), relPath, filepath.Base(relPath))
	n := model.Node{
		EntityID:       id,
		Name:           filepath.Base(relPath),
		QualifiedName:  relPath,
		Kind:           model.KindModule,
		FilePath:       relPath,
		IsExported:     true,
		Visibility:     model.VisibilityPublic,
		SourceFileHash: hash,
		Branch:         cfg.Branch,
		Properties:     map[string]string{},
	}
	n.Touch(now)
	return n
}

// relativePath returns path relative to cfg.PackagePath when possible,
// falling back to path itself (e.g. when content was parsed in-memory
// via ParseContent with a path outside PackagePath).
func relativePath(cfg Config, path string) string {
	if cfg.PackagePath == "" {
		return path
	}
	rel, err := filepath.Rel(cfg.PackagePath, path)
	if err != nil || len(rel) >= 2 && rel[:2] == ".." {
		return path
	}
	return rel
}
