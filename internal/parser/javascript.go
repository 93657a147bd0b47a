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
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
)

// JavaScriptParser extracts structural entities from .js/.jsx/.mjs/.cjs
// files. It is grounded on the teacher's TreeSitterParser (pkg/ingestion)
// and on coderisk's per-language parser wrapper (_examples/rohankatakam-coderisk
// /internal/treesitter), generalized from "one function list" output into
// the full Node/Edge/ExternalRef/Effect shape spec §4.2 requires.
type JavaScriptParser struct {
	lang *sitter.Language
}

// NewJavaScriptParser constructs a ready-to-use JavaScript backend.
func NewJavaScriptParser() *JavaScriptParser {
	return &JavaScriptParser{lang: javascript.GetLanguage()}
}

func (p *JavaScriptParser) Language() string     { return "javascript" }
func (p *JavaScriptParser) Extensions() []string { return []string{".js", ".jsx", ".mjs", ".cjs"} }
func (p *JavaScriptParser) Version() string       { return "tree-sitter-javascript" }

func (p *JavaScriptParser) CanParse(path string) bool {
	return hasExt(path, p.Extensions())
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (p *JavaScriptParser) Parse(path string, cfg Config) (*ParseResult, error) {
	content, hash, err := readAndHash(path)
	if err != nil {
		return nil, err
	}
	return parseJSLike(p.lang, "express/nestjs", content, path, hash, cfg)
}

func (p *JavaScriptParser) ParseContent(content []byte, path string, cfg Config) (*ParseResult, error) {
	return parseJSLike(p.lang, "express/nestjs", content, path, idgen.ContentHash(content), cfg)
}

// parseJSLike is the JavaScript backend's parse. The TypeScript backend
// has its own parse in typescript.go, whose walkTSNode handles the
// TS-only node types and reuses this file's walkers for the node shapes
// both grammars share (functions, classes, calls, imports).
func parseJSLike(lang *sitter.Language, defaultFramework string, content []byte, path, hash string, cfg Config) (*ParseResult, error) {
	start := time.Now()
	relPath := relativePath(cfg, path)
	result := &ParseResult{FilePath: relPath, SourceFileHash: hash}

	tree, err := parseTree(context.Background(), lang, content)
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
			slog.Debug("parser.javascript.syntax_errors", "path", relPath, "count", n)
		}
	}

	mod := moduleNode(cfg, relPath, hash, start)
	result.Nodes = append(result.Nodes, mod)

	w := newWalker(cfg, content, relPath, result)
	w.push(mod.EntityID, string(model.KindModule))
	walkJSNode(w, root, defaultFramework, start)
	w.pop()

	result.ParseTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// walkJSNode performs the recursive descent shared by JS and TS: classes,
// interfaces (TS only, see typescript.go), functions, imports and calls.
func walkJSNode(w *walker, node *sitter.Node, framework string, now time.Time) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_declaration":
		walkClass(w, node, framework, now)
		return // class body walked internally to manage the scope stack
	case "function_declaration", "generator_function_declaration":
		walkFunctionDecl(w, node, now)
	case "variable_declarator":
		walkVariableFunction(w, node, now)
	case "import_statement":
		walkImport(w, node)
	case "call_expression", "new_expression":
		walkCall(w, node, now)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkJSNode(w, node.Child(i), framework, now)
	}
}

func walkFunctionDecl(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	if name == "" {
		name = w.nextAnon("anonymous")
	}
	id := w.id(string(model.KindFunction), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID:      id,
		Name:          name,
		QualifiedName: w.relPath + "#" + name,
		Kind:          model.KindFunction,
		FilePath:      w.relPath,
		StartLine:     sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node),
		Visibility: model.VisibilityPublic,
		IsAsync:    hasChildOfType(node, "async") || strings.HasPrefix(text(node, w.content), "async"),
		IsGenerator: node.Type() == "generator_function_declaration",
		Branch:     w.cfg.Branch,
		Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)
}

func walkVariableFunction(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	vt := valueNode.Type()
	if vt != "arrow_function" && vt != "function_expression" && vt != "function" {
		return
	}
	name := text(nameNode, w.content)
	id := w.id(string(model.KindFunction), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID:      id,
		Name:          name,
		QualifiedName: w.relPath + "#" + name,
		Kind:          model.KindFunction,
		FilePath:      w.relPath,
		StartLine:     sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node.Parent()),
		Visibility: model.VisibilityPublic,
		IsAsync:    strings.Contains(text(valueNode, w.content)[:min(5, len(text(valueNode, w.content)))], "async"),
		Branch:     w.cfg.Branch,
		Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)
}

func walkClass(w *walker, node *sitter.Node, framework string, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	if name == "" {
		name = w.nextAnon("AnonymousClass")
	}
	id := w.id(string(model.KindClass), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID:      id,
		Name:          name,
		QualifiedName: w.relPath + "#" + name,
		Kind:          model.KindClass,
		FilePath:      w.relPath,
		StartLine:     sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: isExported(node),
		Visibility: model.VisibilityPublic,
		Decorators: collectDecorators(node, w.content),
		Branch:     w.cfg.Branch,
		Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	// EXTENDS edge (superclass, unresolved until the Semantic Resolver runs).
	if heritage := node.ChildByFieldName("superclass"); heritage != nil {
		superName := text(heritage, w.content)
		w.result.Edges = append(w.result.Edges, model.Edge{
			SourceEntityID: id,
			TargetEntityID: model.UnresolvedPrefix + superName,
			EdgeType:       model.EdgeExtends,
			SourceFilePath: w.relPath,
			SourceLine:     sl, SourceCol: sc,
			Properties: map[string]string{},
		})
	}

	// IMPLEMENTS edges (TS `class X implements Y, Z`); absent from plain JS.
	if heritage := findShallow(node, "implements_clause"); heritage != nil {
		for i := 0; i < int(heritage.ChildCount()); i++ {
			c := heritage.Child(i)
			if c.Type() != "type_identifier" && c.Type() != "generic_type" {
				continue
			}
			w.result.Edges = append(w.result.Edges, model.Edge{
				SourceEntityID: id,
				TargetEntityID: model.UnresolvedPrefix + text(c, w.content),
				EdgeType:       model.EdgeImplements,
				SourceFilePath: w.relPath,
				SourceLine:     sl, SourceCol: sc,
				Properties: map[string]string{},
			})
		}
	}

	w.push(id, string(model.KindClass))
	body := node.ChildByFieldName("body")
	if body != nil {
		routePrefix := classRoutePrefix(node, w.content)
		for i := 0; i < int(body.ChildCount()); i++ {
			child := body.Child(i)
			if child.Type() == "method_definition" {
				walkMethod(w, child, framework, routePrefix, now)
				continue
			}
			walkJSNode(w, child, framework, now)
		}
	}
	w.pop()
}

func walkMethod(w *walker, node *sitter.Node, framework, routePrefix string, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindMethod), w.top().entityID+"."+name)
	sl, sc, el, ec := span(node)
	decorators := collectDecorators(node, w.content)
	n := model.Node{
		EntityID:      id,
		Name:          name,
		QualifiedName: w.relPath + "#" + name,
		Kind:          model.KindMethod,
		FilePath:      w.relPath,
		StartLine:     sl, StartCol: sc, EndLine: el, EndCol: ec,
		Visibility: methodVisibility(node, w.content),
		IsStatic:   hasChildOfType(node, "static"),
		IsAsync:    hasChildOfType(node, "async"),
		Decorators: decorators,
		Branch:     w.cfg.Branch,
		Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	if verb, route := routeFromDecorators(decorators, routePrefix); verb != "" {
		w.result.Effects = append(w.result.Effects, requestEffect(id, w.relPath, framework, verb, route, sl, sc))
	}

	w.push(id, string(model.KindMethod))
	walkJSNode(w, node, framework, now)
	w.pop()
}

func walkImport(w *walker, node *sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	spec := strings.Trim(text(sourceNode, w.content), "\"'`")
	if spec == "" {
		return
	}
	sourceID := w.top().entityID
	clause := node.Child(1)
	if clause == nil || clause.Type() != "import_clause" {
		w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
			SourceEntityID: sourceID, SourceFilePath: w.relPath,
			ModuleSpecifier: spec, ImportStyle: model.ImportSideEffect,
		})
		return
	}
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
				SourceEntityID: sourceID, SourceFilePath: w.relPath,
				ModuleSpecifier: spec, ImportedSymbol: "default", LocalAlias: text(child, w.content),
				IsDefault: true, ImportStyle: model.ImportDefault,
			})
		case "namespace_import":
			alias := text(child.Child(child.ChildCount()-1), w.content)
			w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
				SourceEntityID: sourceID, SourceFilePath: w.relPath,
				ModuleSpecifier: spec, LocalAlias: alias,
				IsNamespace: true, ImportStyle: model.ImportNamespace,
			})
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec2 := child.Child(j)
				if spec2.Type() != "import_specifier" {
					continue
				}
				name := spec2.ChildByFieldName("name")
				alias := spec2.ChildByFieldName("alias")
				imported := text(name, w.content)
				localAlias := imported
				if alias != nil {
					localAlias = text(alias, w.content)
				}
				w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
					SourceEntityID: sourceID, SourceFilePath: w.relPath,
					ModuleSpecifier: spec, ImportedSymbol: imported, LocalAlias: localAlias,
					ImportStyle: model.ImportNamed,
				})
			}
		}
	}
}

func walkCall(w *walker, node *sitter.Node, now time.Time) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	sl, sc, _, _ := span(node)
	isNew := node.Type() == "new_expression"
	calleeName, receiver, isMethod := calleeParts(fnNode, w.content)
	args := node.ChildByFieldName("arguments")
	argCount := int32(0)
	if args != nil {
		argCount = countArgs(args)
	}
	sourceID := w.top().entityID
	isAwaited := node.Parent() != nil && node.Parent().Type() == "await_expression"

	effects := classifyCall(callSite{
		CalleeName: calleeName, Receiver: receiver, IsMethodCall: isMethod,
		IsConstructor: isNew, IsAwaited: isAwaited, ArgumentCount: argCount,
		FirstArgLiteral: firstArgLiteral(args, w.content),
		SourceEntityID:  sourceID, FilePath: w.relPath, Line: sl, Col: sc,
	})
	w.result.Effects = append(w.result.Effects, effects...)

	w.result.Edges = append(w.result.Edges, model.Edge{
		SourceEntityID: sourceID,
		TargetEntityID: model.UnresolvedPrefix + calleeName,
		EdgeType:       model.EdgeCalls,
		SourceFilePath: w.relPath,
		SourceLine:     sl, SourceCol: sc,
		Properties: map[string]string{"argument_count": strconv.Itoa(int(argCount))},
	})
}

// calleeParts splits "a.b.c(...)" into callee name "c", receiver "a.b",
// and whether the call is a method call (has a receiver at all).
func calleeParts(fnNode *sitter.Node, content []byte) (calleeName, receiver string, isMethod bool) {
	if fnNode.Type() == "member_expression" {
		obj := fnNode.ChildByFieldName("object")
		prop := fnNode.ChildByFieldName("property")
		return text(prop, content), text(obj, content), true
	}
	return text(fnNode, content), "", false
}

func countArgs(argsNode *sitter.Node) int32 {
	count := int32(0)
	for i := 0; i < int(argsNode.ChildCount()); i++ {
		t := argsNode.Child(i).Type()
		if t != "(" && t != ")" && t != "," {
			count++
		}
	}
	return count
}

func hasChildOfType(node *sitter.Node, t string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == t {
			return true
		}
	}
	return false
}

// isExported handles both `export function foo` (parent wraps the decl in
// an export_statement) and CommonJS default export detection is left to
// the resolver, which has cross-file visibility.
func isExported(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	p := node.Parent()
	return p != nil && (p.Type() == "export_statement")
}

// collectDecorators returns node's own "decorator" children (where the
// grammar nests them, e.g. a class declaration's @Controller) followed by
// preceding sibling "decorator" nodes (e.g. a TS class-body method's
// @Get), the TS/Babel decorator syntax NestJS route handlers use.
func collectDecorators(node *sitter.Node, content []byte) []string {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c != nil && c.Type() == "decorator" {
			decorators = append(decorators, text(c, content))
		}
	}
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	idx := -1
	for i := 0; i < int(parent.ChildCount()); i++ {
		if parent.Child(i) == node {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		sib := parent.Child(i)
		if sib.Type() != "decorator" {
			break
		}
		decorators = append([]string{text(sib, content)}, decorators...)
	}
	return decorators
}

// classRoutePrefix extracts the route prefix from a class-level @Controller
// decorator, the NestJS convention (§4.2 Request recognized frameworks).
func classRoutePrefix(node *sitter.Node, content []byte) string {
	for _, d := range collectDecorators(node, content) {
		if strings.HasPrefix(d, "@Controller") {
			return extractDecoratorArg(d)
		}
	}
	return ""
}

// routeFromDecorators finds an HTTP-verb decorator (@Get/@Post/...) among
// a method's decorators and returns the verb and full route.
func routeFromDecorators(decorators []string, prefix string) (verb, route string) {
	for _, d := range decorators {
		trimmed := strings.TrimPrefix(d, "@")
		lower := strings.ToLower(trimmed)
		for name, m := range httpRouteMethods {
			if strings.HasPrefix(lower, name+"(") || lower == name {
				sub := extractDecoratorArg(d)
				return m, joinRoute(prefix, sub)
			}
		}
	}
	return "", ""
}

func extractDecoratorArg(decorator string) string {
	start := strings.Index(decorator, "(")
	end := strings.LastIndex(decorator, ")")
	if start < 0 || end <= start {
		return ""
	}
	return strings.Trim(decorator[start+1:end], "\"'` ")
}

func joinRoute(prefix, sub string) string {
	prefix = strings.Trim(prefix, "/")
	sub = strings.Trim(sub, "/")
	switch {
	case prefix == "" && sub == "":
		return "/"
	case prefix == "":
		return "/" + sub
	case sub == "":
		return "/" + prefix
	default:
		return "/" + prefix + "/" + sub
	}
}

func methodVisibility(node *sitter.Node, content []byte) model.Visibility {
	t := text(node, content)
	switch {
	case strings.Contains(t, "private "):
		return model.VisibilityPrivate
	case strings.Contains(t, "protected "):
		return model.VisibilityProtected
	default:
		return model.VisibilityPublic
	}
}

