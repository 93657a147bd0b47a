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

package parser

import (
	"context"
	"log/slog"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
)

// TypeScriptParser extends the JavaScript backend with interface, type
// alias and enum extraction (§4.2). Grounded on the teacher's
// parseTypeScriptAST/walkTSFunctions (pkg/ingestion/parser_typescript.go),
// which itself layers TS-only node types on top of the JS walker.
type TypeScriptParser struct {
	lang *sitter.Language
}

// NewTypeScriptParser constructs a ready-to-use TypeScript backend.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{lang: typescript.GetLanguage()}
}

func (p *TypeScriptParser) Language() string { return "typescript" }
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts"}
}
func (p *TypeScriptParser) Version() string { return "tree-sitter-typescript" }

func (p *TypeScriptParser) CanParse(path string) bool {
	return hasExt(path, p.Extensions())
}

func (p *TypeScriptParser) Parse(path string, cfg Config) (*ParseResult, error) {
	content, hash, err := readAndHash(path)
	if err != nil {
		return nil, err
	}
	return p.parse(content, path, hash, cfg)
}

func (p *TypeScriptParser) ParseContent(content []byte, path string, cfg Config) (*ParseResult, error) {
	return p.parse(content, path, idgen.ContentHash(content), cfg)
}

func (p *TypeScriptParser) parse(content []byte, path, hash string, cfg Config) (*ParseResult, error) {
	start := time.Now()
	relPath := relativePath(cfg, path)
	result := &ParseResult{FilePath: relPath, SourceFileHash: hash}

	tree, err := parseTree(context.Background(), p.lang, content)
	if err != nil {
		result.addWarning("tree-sitter parse failed: %v", err)
		result.Nodes = append(result.Nodes, moduleNode(cfg, relPath, hash, start))
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countErrors(root); n > 0 {
			result.addWarning("%d syntax error node(s) recovered", n)
			slog.Debug("parser.typescript.syntax_errors", "path", relPath, "count", n)
		}
	}

	mod := moduleNode(cfg, relPath, hash, start)
	result.Nodes = append(result.Nodes, mod)

	w := newWalker(cfg, content, relPath, result)
	w.push(mod.EntityID, string(model.KindModule))
	walkTSNode(w, root, "express/nestjs", start)
	w.pop()

	result.ParseTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// walkTSNode layers TS-only node types (interface_declaration,
// type_alias_declaration, enum_declaration, method_signature,
// function_signature) on top of the shared JS walker.
func walkTSNode(w *walker, node *sitter.Node, framework string, now time.Time) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "interface_declaration":
		walkInterface(w, node, now)
		return
	case "type_alias_declaration":
		walkTypeAlias(w, node, now)
	case "enum_declaration":
		walkEnum(w, node, now)
		return
	case "class_declaration":
		walkClass(w, node, framework, now)
		return
	case "function_declaration", "generator_function_declaration", "function_signature":
		walkFunctionDecl(w, node, now)
	case "variable_declarator":
		walkVariableFunction(w, node, now)
	case "import_statement":
		walkImport(w, node)
	case "call_expression", "new_expression":
		walkCall(w, node, now)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTSNode(w, node.Child(i), framework, now)
	}
}

func walkInterface(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindInterface), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID:      id,
		Name:          name,
		QualifiedName: w.relPath + "#" + name,
		Kind:          model.KindInterface,
		FilePath:      w.relPath,
		StartLine:     sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node),
		Visibility: model.VisibilityPublic,
		Branch:     w.cfg.Branch,
		Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	// extends_type_clause -> EXTENDS edges (possibly multiple, TS allows
	// an interface to extend several others).
	if heritage := childOfType(node, "extends_type_clause"); heritage != nil {
		for i := 0; i < int(heritage.ChildCount()); i++ {
			c := heritage.Child(i)
			if c.Type() != "type_identifier" && c.Type() != "generic_type" {
				continue
			}
			w.result.Edges = append(w.result.Edges, model.Edge{
				SourceEntityID: id,
				TargetEntityID: model.UnresolvedPrefix + text(c, w.content),
				EdgeType:       model.EdgeExtends,
				SourceFilePath: w.relPath,
				SourceLine:     sl, SourceCol: sc,
				Properties: map[string]string{},
			})
		}
	}

	w.push(id, string(model.KindInterface))
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			child := body.Child(i)
			if child.Type() == "method_signature" {
				walkMethodSignature(w, child, now)
			}
		}
	}
	w.pop()
}

func walkMethodSignature(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindMethod), w.top().entityID+"."+name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID: id, Name: name, QualifiedName: w.relPath + "#" + name,
		Kind: model.KindMethod, FilePath: w.relPath,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		TypeSignature: text(node, w.content), Visibility: model.VisibilityPublic,
		Branch: w.cfg.Branch, Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)
}

func walkTypeAlias(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindType), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID: id, Name: name, QualifiedName: w.relPath + "#" + name,
		Kind: model.KindType, FilePath: w.relPath,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node), Visibility: model.VisibilityPublic,
		TypeSignature: text(node, w.content),
		Branch:        w.cfg.Branch, Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)
}

func walkEnum(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindEnum), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID: id, Name: name, QualifiedName: w.relPath + "#" + name,
		Kind: model.KindEnum, FilePath: w.relPath,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node), Visibility: model.VisibilityPublic,
		Branch: w.cfg.Branch, Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.push(id, string(model.KindEnum))
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member.Type() != "property_identifier" && member.Type() != "enum_assignment" {
			continue
		}
		memberName := text(member, w.content)
		if member.Type() == "enum_assignment" {
			memberName = text(member.ChildByFieldName("name"), w.content)
		}
		msl, msc, mel, mec := span(member)
		memberID := w.id(string(model.KindEnumMember), id+"."+memberName)
		mn := model.Node{
			EntityID: memberID, Name: memberName, QualifiedName: w.relPath + "#" + memberName,
			Kind: model.KindEnumMember, FilePath: w.relPath,
			StartLine: msl, StartCol: msc, EndLine: mel, EndCol: mec,
			Visibility: model.VisibilityPublic, Branch: w.cfg.Branch, Properties: map[string]string{},
		}
		mn.Touch(now)
		w.result.Nodes = append(w.result.Nodes, mn)
		w.contains(memberID, msl, msc)
	}
	w.pop()
}

func childOfType(node *sitter.Node, t string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == t {
			return node.Child(i)
		}
	}
	return nil
}
