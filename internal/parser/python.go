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
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
)

// PythonParser extracts structural entities from .py/.pyw files. Grounded
// on the named-child walk in _examples/theRebelliousNerd-codenerd
// /internal/world/python_parser.go, generalized to the Node/Edge/
// ExternalRef/Effect shape spec §4.2 requires (Flask/FastAPI route
// decorators recognized as Request effects).
type PythonParser struct {
	lang *sitter.Language
}

// NewPythonParser constructs a ready-to-use Python backend.
func NewPythonParser() *PythonParser {
	return &PythonParser{lang: python.GetLanguage()}
}

func (p *PythonParser) Language() string     { return "python" }
func (p *PythonParser) Extensions() []string { return []string{".py", ".pyw"} }
func (p *PythonParser) Version() string       { return "tree-sitter-python" }

func (p *PythonParser) CanParse(path string) bool { return hasExt(path, p.Extensions()) }

func (p *PythonParser) Parse(path string, cfg Config) (*ParseResult, error) {
	content, hash, err := readAndHash(path)
	if err != nil {
		return nil, err
	}
	return p.parse(content, path, hash, cfg)
}

func (p *PythonParser) ParseContent(content []byte, path string, cfg Config) (*ParseResult, error) {
	return p.parse(content, path, idgen.ContentHash(content), cfg)
}

func (p *PythonParser) parse(content []byte, path, hash string, cfg Config) (*ParseResult, error) {
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
			slog.Debug("parser.python.syntax_errors", "path", relPath, "count", n)
		}
	}

	mod := moduleNode(cfg, relPath, hash, start)
	result.Nodes = append(result.Nodes, mod)

	w := newWalker(cfg, content, relPath, result)
	w.push(mod.EntityID, string(model.KindModule))
	walkPyNode(w, root, start)
	w.pop()

	result.ParseTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func walkPyNode(w *walker, node *sitter.Node, now time.Time) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_definition":
		walkPyClass(w, node, now)
		return
	case "function_definition":
		walkPyFunction(w, node, now)
		return // the function body is walked by walkPyFunction itself
	case "import_statement", "import_from_statement":
		walkPyImport(w, node)
	case "call":
		walkPyCall(w, node, now)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkPyNode(w, node.NamedChild(i), now)
	}
}

func walkPyClass(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	id := w.id(string(model.KindClass), name)
	sl, sc, el, ec := span(node)
	n := model.Node{
		EntityID: id, Name: name, QualifiedName: w.relPath + "#" + name,
		Kind: model.KindClass, FilePath: w.relPath,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: !strings.HasPrefix(name, "_"),
		Visibility: pyVisibility(name), Decorators: collectPyDecorators(node, w.content),
		Branch: w.cfg.Branch, Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		for i := 0; i < int(superclasses.NamedChildCount()); i++ {
			base := superclasses.NamedChild(i)
			baseName := text(base, w.content)
			if baseName == "" || baseName == "object" {
				continue
			}
			w.result.Edges = append(w.result.Edges, model.Edge{
				SourceEntityID: id,
				TargetEntityID: model.UnresolvedPrefix + baseName,
				EdgeType:       model.EdgeExtends,
				SourceFilePath: w.relPath,
				SourceLine:     sl, SourceCol: sc,
				Properties: map[string]string{},
			})
		}
	}

	w.push(id, string(model.KindClass))
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			walkPyNode(w, body.NamedChild(i), now)
		}
	}
	w.pop()
}

func walkPyFunction(w *walker, node *sitter.Node, now time.Time) {
	nameNode := node.ChildByFieldName("name")
	name := text(nameNode, w.content)
	kind := model.KindFunction
	inClass := len(w.scopes) > 0 && w.top().kind == string(model.KindClass)
	if inClass {
		kind = model.KindMethod
	}
	id := w.id(string(kind), w.top().entityID+"."+name)
	sl, sc, el, ec := span(node)
	decorators := collectPyDecorators(node, w.content)
	n := model.Node{
		EntityID: id, Name: name, QualifiedName: w.relPath + "#" + name,
		Kind: kind, FilePath: w.relPath,
		StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec,
		IsExported: !inClass && !strings.HasPrefix(name, "_"),
		Visibility: pyVisibility(name),
		IsAsync:    hasChildOfType(node, "async"),
		Decorators: decorators,
		Branch:     w.cfg.Branch, Properties: map[string]string{},
	}
	n.Touch(now)
	w.result.Nodes = append(w.result.Nodes, n)
	w.contains(id, sl, sc)

	if verb, route := routeFromPyDecorators(decorators); verb != "" {
		w.result.Effects = append(w.result.Effects, requestEffect(id, w.relPath, "flask/fastapi", verb, route, sl, sc))
	}

	w.push(id, string(kind))
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			walkPyNode(w, body.NamedChild(i), now)
		}
	}
	w.pop()
}

func walkPyImport(w *walker, node *sitter.Node) {
	sourceID := w.top().entityID
	if node.Type() == "import_statement" {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			module := text(child, w.content)
			alias := module
			if child.Type() == "aliased_import" {
				module = text(child.ChildByFieldName("name"), w.content)
				alias = text(child.ChildByFieldName("alias"), w.content)
			}
			w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
				SourceEntityID: sourceID, SourceFilePath: w.relPath,
				ModuleSpecifier: module, LocalAlias: alias,
				IsNamespace: true, ImportStyle: model.ImportNamespace,
			})
		}
		return
	}
	// import_from_statement: "from X import a, b as c"
	moduleNode := node.ChildByFieldName("module_name")
	module := text(moduleNode, w.content)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == moduleNode || child.Type() == "wildcard_import" {
			continue
		}
		imported := text(child, w.content)
		alias := imported
		if child.Type() == "aliased_import" {
			imported = text(child.ChildByFieldName("name"), w.content)
			alias = text(child.ChildByFieldName("alias"), w.content)
		}
		w.result.ExternalRefs = append(w.result.ExternalRefs, model.ExternalRef{
			SourceEntityID: sourceID, SourceFilePath: w.relPath,
			ModuleSpecifier: module, ImportedSymbol: imported, LocalAlias: alias,
			ImportStyle: model.ImportNamed,
		})
	}
}

func walkPyCall(w *walker, node *sitter.Node, now time.Time) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	sl, sc, _, _ := span(node)
	calleeName, receiver, isMethod := pyCalleeParts(fnNode, w.content)
	argsNode := node.ChildByFieldName("arguments")
	argCount := int32(0)
	if argsNode != nil {
		argCount = int32(argsNode.NamedChildCount())
	}
	sourceID := w.top().entityID
	isAwaited := node.Parent() != nil && node.Parent().Type() == "await"

	effects := classifyCall(callSite{
		CalleeName: calleeName, Receiver: receiver, IsMethodCall: isMethod,
		IsAwaited: isAwaited, ArgumentCount: argCount,
		FirstArgLiteral: firstArgLiteral(argsNode, w.content),
		SourceEntityID:  sourceID, FilePath: w.relPath, Line: sl, Col: sc,
	})
	w.result.Effects = append(w.result.Effects, effects...)

	w.result.Edges = append(w.result.Edges, model.Edge{
		SourceEntityID: sourceID,
		TargetEntityID: model.UnresolvedPrefix + calleeName,
		EdgeType:       model.EdgeCalls,
		SourceFilePath: w.relPath,
		SourceLine:     sl, SourceCol: sc,
		Properties: map[string]string{},
	})

	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkPyNode(w, node.NamedChild(i), now)
	}
}

func pyCalleeParts(fnNode *sitter.Node, content []byte) (calleeName, receiver string, isMethod bool) {
	if fnNode.Type() == "attribute" {
		obj := fnNode.ChildByFieldName("object")
		attr := fnNode.ChildByFieldName("attribute")
		return text(attr, content), text(obj, content), true
	}
	return text(fnNode, content), "", false
}

func pyVisibility(name string) model.Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return model.VisibilityPublic
	case strings.HasPrefix(name, "__"):
		return model.VisibilityPrivate
	case strings.HasPrefix(name, "_"):
		return model.VisibilityProtected
	default:
		return model.VisibilityPublic
	}
}

// collectPyDecorators walks the "decorator" siblings tree-sitter-python
// attaches directly above a decorated_definition wrapper.
func collectPyDecorators(node *sitter.Node, content []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var decorators []string
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, text(child, content))
		}
	}
	return decorators
}

// routeFromPyDecorators recognizes Flask's @app.route(...) and FastAPI's
// @app.get/@router.post-style decorators (§4.2 recognized frameworks).
func routeFromPyDecorators(decorators []string) (verb, route string) {
	for _, d := range decorators {
		trimmed := strings.TrimPrefix(d, "@")
		lower := strings.ToLower(trimmed)
		if idx := strings.Index(lower, ".route("); idx >= 0 {
			return "GET", extractDecoratorArg(d)
		}
		for name, m := range httpRouteMethods {
			if strings.Contains(lower, "."+name+"(") {
				return m, extractDecoratorArg(d)
			}
		}
	}
	return "", ""
}
