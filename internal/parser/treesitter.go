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
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/devac/internal/idgen"
	"github.com/kraklabs/devac/internal/model"
)

// text slices content between a node's byte offsets.
func text(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// span returns the 1-indexed start/end line+col of a node, matching the
// rest of the module's 1-indexed line/col convention (§4.2).
func span(node *sitter.Node) (startLine, startCol, endLine, endCol int32) {
	sp := node.StartPoint()
	ep := node.EndPoint()
	return int32(sp.Row) + 1, int32(sp.Column) + 1, int32(ep.Row) + 1, int32(ep.Column) + 1
}

// countErrors walks a tree counting ERROR/MISSING nodes, used only to
// decide whether a syntax-error warning is worth recording (§4.2).
func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	n := 0
	if node.IsError() || node.IsMissing() {
		n++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		n += countErrors(node.Child(i))
	}
	return n
}

// parseTree parses content with the given tree-sitter language, returning
// the root node. The caller owns tree.Close().
func parseTree(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return p.ParseCtx(ctx, nil, content)
}

// scope tracks the entity_id of the structural container currently being
// walked (module, class, function...), so each declaration can emit a
// CONTAINS edge back to its parent (§4.2 "containment").
type scope struct {
	entityID string
	kind     string
}

// walker carries the state shared by every language backend's recursive
// descent: the accumulated ParseResult, the repo-relative file path, the
// content bytes, and a stack of enclosing scopes.
type walker struct {
	cfg      Config
	content  []byte
	relPath  string
	result   *ParseResult
	scopes   []scope
	anonSeq  int
	depth    int
	maxDepth int
}

func newWalker(cfg Config, content []byte, relPath string, result *ParseResult) *walker {
	maxDepth := 1 << 30
	if cfg.MaxNodeDepth != nil {
		maxDepth = *cfg.MaxNodeDepth
	}
	return &walker{cfg: cfg, content: content, relPath: relPath, result: result, maxDepth: maxDepth}
}

func (w *walker) push(entityID, kind string) { w.scopes = append(w.scopes, scope{entityID, kind}) }
func (w *walker) pop()                       { w.scopes = w.scopes[:len(w.scopes)-1] }
func (w *walker) top() scope                 { return w.scopes[len(w.scopes)-1] }

// contains records a CONTAINS edge from the current top-of-stack scope to
// childID, unless the stack is empty (never true once moduleNode pushed).
func (w *walker) contains(childID string, line, col int32) {
	if len(w.scopes) == 0 {
		return
	}
	w.result.Edges = append(w.result.Edges, model.Edge{
		SourceEntityID: w.top().entityID,
		TargetEntityID: childID,
		EdgeType:       model.EdgeContains,
		SourceFilePath: w.relPath,
		SourceLine:     line,
		SourceCol:      col,
		Properties:     map[string]string{},
	})
}

// id generates the entity_id for a declared symbol within this file.
func (w *walker) id(kind, name string) string {
	return idgen.Generate(w.cfg.RepoName, w.cfg.PackagePath, kind, w.relPath, name)
}

// nextAnon returns a unique synthetic name for an anonymous function, the
// same convention the teacher's walker uses for unnamed arrows (§4.2).
func (w *walker) nextAnon(prefix string) string {
	w.anonSeq++
	return fmt.Sprintf("%s_%d", prefix, w.anonSeq)
}

// findShallow looks for a direct child or grandchild of type t, enough to
// reach a clause the grammar wraps in an intermediate node (e.g. TS's
// implements_clause nested under class_heritage) without a full-tree walk.
func findShallow(node *sitter.Node, t string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == t {
			return c
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			if gc := c.Child(j); gc.Type() == t {
				return gc
			}
		}
	}
	return nil
}

// firstArgLiteral returns the unquoted text of a call's first argument when
// it is a string/template literal, e.g. the route in
// `userEndpoints.get("/users/:id")` or the URL in `axios.get("/api/users")`. Returns
// "" when the first argument isn't a literal, so callers fall back to the
// receiver/callee name rather than guess (§4.2 "Send/Request effect target").
func firstArgLiteral(argsNode *sitter.Node, content []byte) string {
	if argsNode == nil {
		return ""
	}
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		child := argsNode.NamedChild(i)
		if child == nil {
			continue
		}
		if strings.Contains(child.Type(), "string") {
			return unquoteLiteral(text(child, content))
		}
		return ""
	}
	return ""
}

func unquoteLiteral(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
