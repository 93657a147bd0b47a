// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/devac/internal/model"
)

func cfg() Config {
	return Config{RepoName: "repo", PackagePath: "", Branch: "main"}
}

func TestJavaScriptParser_FunctionsAndCalls(t *testing.T) {
	src := []byte(`
import axios from "axios";

export function loadUser(id) {
  return axios.get("/users/" + id);
}

class UserService {
  async save(user) {
    return db.save(user);
  }
}
`)
	p := NewJavaScriptParser()
	result, err := p.ParseContent(src, "service.js", cfg())
	require.NoError(t, err)

	var sawModule, sawFunction, sawClass, sawMethod bool
	for _, n := range result.Nodes {
		switch n.Kind {
		case model.KindModule:
			sawModule = true
		case model.KindFunction:
			sawFunction = true
			assert.Equal(t, "loadUser", n.Name)
		case model.KindClass:
			sawClass = true
		case model.KindMethod:
			sawMethod = true
		}
	}
	assert.True(t, sawModule, "expected a module node")
	assert.True(t, sawFunction, "expected loadUser function node")
	assert.True(t, sawClass, "expected UserService class node")
	assert.True(t, sawMethod, "expected save method node")

	require.NotEmpty(t, result.ExternalRefs)
	assert.Equal(t, "axios", result.ExternalRefs[0].ModuleSpecifier)

	var sawSend, sawStore bool
	for _, e := range result.Effects {
		if e.EffectType == model.EffectSend {
			sawSend = true
		}
		if e.EffectType == model.EffectStore {
			sawStore = true
		}
	}
	assert.True(t, sawSend, "expected a Send effect from axios.get")
	assert.True(t, sawStore, "expected a Store effect from db.save")
}

func TestJavaScriptParser_CanParse(t *testing.T) {
	p := NewJavaScriptParser()
	assert.True(t, p.CanParse("a/b.js"))
	assert.True(t, p.CanParse("a/b.jsx"))
	assert.False(t, p.CanParse("a/b.py"))
}

func TestTypeScriptParser_InterfacesAndDecoratorRoutes(t *testing.T) {
	src := []byte(`
interface Repository {
  find(id: string): Promise<User>;
}

@Controller("users")
class UserController {
  @Get(":id")
  getUser(id: string) {
    return null;
  }
}
`)
	p := NewTypeScriptParser()
	result, err := p.ParseContent(src, "controller.ts", cfg())
	require.NoError(t, err)

	var sawInterface bool
	for _, n := range result.Nodes {
		if n.Kind == model.KindInterface {
			sawInterface = true
			assert.Equal(t, "Repository", n.Name)
		}
	}
	assert.True(t, sawInterface)

	require.NotEmpty(t, result.Effects)
	var found bool
	for _, e := range result.Effects {
		if e.EffectType == model.EffectRequest {
			found = true
			assert.Equal(t, "GET", e.Method)
			assert.Equal(t, "/users/:id", e.RoutePattern)
		}
	}
	assert.True(t, found, "expected a Request effect from @Get route decorator")
}

func TestPythonParser_ClassesAndFlaskRoute(t *testing.T) {
	src := []byte(`
import json
from app import db

class Account:
    def __init__(self, name):
        self.name = name

    def save(self):
        db.save(self)


@app.route("/accounts", methods=["POST"])
def create_account():
    return json.dumps({})
`)
	p := NewPythonParser()
	result, err := p.ParseContent(src, "accounts.py", cfg())
	require.NoError(t, err)

	var sawClass, sawMethod, sawFunction bool
	for _, n := range result.Nodes {
		switch n.Kind {
		case model.KindClass:
			sawClass = true
		case model.KindMethod:
			sawMethod = true
		case model.KindFunction:
			sawFunction = true
		}
	}
	assert.True(t, sawClass)
	assert.True(t, sawMethod)
	assert.True(t, sawFunction)

	var sawRequest bool
	for _, e := range result.Effects {
		if e.EffectType == model.EffectRequest {
			sawRequest = true
		}
	}
	assert.True(t, sawRequest, "expected a Request effect from @app.route")
}

func TestRegistry_DispatchesByExtension(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "javascript", r.For("a.js").Language())
	assert.Equal(t, "typescript", r.For("a.tsx").Language())
	assert.Equal(t, "python", r.For("a.py").Language())
	assert.Nil(t, r.For("a.rb"))
}
