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

// Package model defines the language-agnostic code graph that every
// parser, resolver and seed table in devac shares.
package model

import "time"

// NodeKind enumerates the structural entities a parser can produce.
type NodeKind string

const (
	KindModule       NodeKind = "module"
	KindClass        NodeKind = "class"
	KindInterface    NodeKind = "interface"
	KindFunction     NodeKind = "function"
	KindMethod       NodeKind = "method"
	KindProperty     NodeKind = "property"
	KindConstant     NodeKind = "constant"
	KindVariable     NodeKind = "variable"
	KindType         NodeKind = "type"
	KindEnum         NodeKind = "enum"
	KindEnumMember   NodeKind = "enum_member"
	KindNamespace    NodeKind = "namespace"
	KindHTMLElement  NodeKind = "html_element"
	KindJSXComponent NodeKind = "jsx_component"
	KindUnknown      NodeKind = "unknown"
)

// Visibility mirrors the access modifiers a class member may declare.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityInternal  Visibility = "internal"
)

// Node is the structural table row: one per declared symbol, plus one
// synthetic "module" node per parsed file (§3, §4.2).
type Node struct {
	EntityID          string            `parquet:"name=entity_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Name              string            `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	QualifiedName     string            `parquet:"name=qualified_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind              NodeKind          `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FilePath          string            `parquet:"name=file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartLine         int32             `parquet:"name=start_line, type=INT32"`
	StartCol          int32             `parquet:"name=start_col, type=INT32"`
	EndLine           int32             `parquet:"name=end_line, type=INT32"`
	EndCol            int32             `parquet:"name=end_col, type=INT32"`
	IsExported        bool              `parquet:"name=is_exported, type=BOOLEAN"`
	IsDefaultExport   bool              `parquet:"name=is_default_export, type=BOOLEAN"`
	Visibility        Visibility        `parquet:"name=visibility, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsAsync           bool              `parquet:"name=is_async, type=BOOLEAN"`
	IsGenerator       bool              `parquet:"name=is_generator, type=BOOLEAN"`
	IsStatic          bool              `parquet:"name=is_static, type=BOOLEAN"`
	IsAbstract        bool              `parquet:"name=is_abstract, type=BOOLEAN"`
	TypeSignature     string            `parquet:"name=type_signature, type=BYTE_ARRAY, convertedtype=UTF8"`
	Documentation     string            `parquet:"name=documentation, type=BYTE_ARRAY, convertedtype=UTF8"`
	Decorators        []string          `parquet:"name=decorators, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	TypeParameters    []string          `parquet:"name=type_parameters, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	Properties        map[string]string `parquet:"name=properties, type=MAP, keytype=BYTE_ARRAY, keyconvertedtype=UTF8, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	SourceFileHash    string            `parquet:"name=source_file_hash, type=BYTE_ARRAY, convertedtype=UTF8"`
	Branch            string            `parquet:"name=branch, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsDeleted         bool              `parquet:"name=is_deleted, type=BOOLEAN"`
	UpdatedAt         time.Time         `parquet:"-"`
	UpdatedAtUnixNano int64             `parquet:"name=updated_at, type=INT64"`
}

// Touch stamps UpdatedAt/UpdatedAtUnixNano from a caller-supplied instant,
// keeping Node free of Now()/time-source calls so callers stay testable.
func (n *Node) Touch(at time.Time) {
	n.UpdatedAt = at
	n.UpdatedAtUnixNano = at.UnixNano()
}

// EdgeType enumerates the typed relationships between nodes.
type EdgeType string

const (
	EdgeContains   EdgeType = "CONTAINS"
	EdgeExtends    EdgeType = "EXTENDS"
	EdgeImplements EdgeType = "IMPLEMENTS"
	EdgeCalls      EdgeType = "CALLS"
	EdgeImports    EdgeType = "IMPORTS"
	EdgeReferences EdgeType = "REFERENCES"
	EdgeOverrides  EdgeType = "OVERRIDES"
)

// UnresolvedPrefix marks an Edge target awaiting semantic resolution (§3).
const UnresolvedPrefix = "unresolved:"

// Edge connects two nodes. A target beginning with UnresolvedPrefix is a
// stub the resolver has not yet bound to a concrete entity_id.
type Edge struct {
	SourceEntityID string            `parquet:"name=source_entity_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TargetEntityID string            `parquet:"name=target_entity_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	EdgeType       EdgeType          `parquet:"name=edge_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SourceFilePath string            `parquet:"name=source_file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceLine     int32             `parquet:"name=source_line, type=INT32"`
	SourceCol      int32             `parquet:"name=source_col, type=INT32"`
	Properties     map[string]string `parquet:"name=properties, type=MAP, keytype=BYTE_ARRAY, keyconvertedtype=UTF8, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
}

// IsUnresolved reports whether the edge's target is still a stub.
func (e *Edge) IsUnresolved() bool {
	return len(e.TargetEntityID) >= len(UnresolvedPrefix) && e.TargetEntityID[:len(UnresolvedPrefix)] == UnresolvedPrefix
}

// ImportStyle enumerates how an ExternalRef was spelled at the call site.
type ImportStyle string

const (
	ImportNamed       ImportStyle = "named"
	ImportDefault     ImportStyle = "default"
	ImportNamespace   ImportStyle = "namespace"
	ImportSideEffect  ImportStyle = "side_effect"
	ImportDynamic     ImportStyle = "dynamic"
	ImportReexport    ImportStyle = "reexport"
)

// ExternalRef is an unresolved import stub, emitted by the parser and
// consumed by the Semantic Resolver (§3, §4.3).
type ExternalRef struct {
	SourceEntityID   string      `parquet:"name=source_entity_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SourceFilePath   string      `parquet:"name=source_file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	ModuleSpecifier  string      `parquet:"name=module_specifier, type=BYTE_ARRAY, convertedtype=UTF8"`
	ImportedSymbol   string      `parquet:"name=imported_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	LocalAlias       string      `parquet:"name=local_alias, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsTypeOnly       bool        `parquet:"name=is_type_only, type=BOOLEAN"`
	IsDefault        bool        `parquet:"name=is_default, type=BOOLEAN"`
	IsNamespace      bool        `parquet:"name=is_namespace, type=BOOLEAN"`
	ImportStyle      ImportStyle `parquet:"name=import_style, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsReexport       bool        `parquet:"name=is_reexport, type=BOOLEAN"`
}
