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
	"strings"

	"github.com/google/uuid"

	"github.com/kraklabs/devac/internal/model"
)

// httpClientReceivers names the modules/receivers recognized as outbound
// HTTP clients (§4.2 "Send effects"). Grounded on the recognized-framework
// shapes the teacher's own service layer calls against (axios, fetch).
var httpClientReceivers = map[string]bool{
	"axios": true, "fetch": true, "got": true, "superagent": true,
	"request": true, "needle": true, "httpx": true, "requests": true,
}

// httpMethodNames are call names treated as HTTP verbs once their
// receiver matches httpClientReceivers, or for the bare fetch() call.
var httpMethodNames = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT", "patch": "PATCH",
	"delete": "DELETE", "head": "HEAD", "options": "OPTIONS",
}

// retrieveMethodNames are persistence-client call names treated as reads.
var retrieveMethodNames = map[string]bool{
	"find": true, "findone": true, "findmany": true, "findbyid": true,
	"findunique": true, "findfirst": true, "query": true, "select": true,
	"get": true, "fetch": true, "count": true, "aggregate": true,
}

// storeMethodNames are persistence-client call names treated as writes.
var storeMethodNames = map[string]bool{
	"save": true, "insert": true, "insertone": true, "insertmany": true,
	"update": true, "updateone": true, "updatemany": true, "upsert": true,
	"create": true, "set": true, "delete": true, "deleteone": true,
	"remove": true, "push": true, "persist": true,
}

// storeReceiverKinds maps a receiver/module name to the StoreKind it
// implies, grounded on the persistence clients named in the pack's
// manifests (prisma, knex, mongoose, redis, pg).
var storeReceiverKinds = map[string]model.StoreKind{
	"prisma": model.StoreDatabase, "knex": model.StoreDatabase,
	"mongoose": model.StoreDatabase, "pg": model.StoreDatabase,
	"mysql": model.StoreDatabase, "sequelize": model.StoreDatabase,
	"db": model.StoreDatabase, "redis": model.StoreCache,
	"cache": model.StoreCache, "memcached": model.StoreCache,
	"fs": model.StoreFile, "queue": model.StoreQueue,
	"sqs": model.StoreQueue, "kafka": model.StoreQueue, "rabbitmq": model.StoreQueue,
}

// m2mSuffix is the internal service-client naming convention the Hub's
// M2M matcher looks for (§4.9, GLOSSARY "M2M endpoint").
const m2mSuffix = "-endpoints"

func newEffectID() string { return uuid.NewString() }

// callSite is everything a language backend extracts about one call
// expression before classification; classifyCall turns it into zero or
// more Effects plus the FunctionCall effect that is always emitted.
type callSite struct {
	CalleeName     string
	Receiver       string
	IsMethodCall   bool
	IsConstructor  bool
	IsAwaited      bool
	ArgumentCount  int32
	// FirstArgLiteral is the unquoted text of the call's first argument when
	// it's a string/template literal — the route/URL/key a Send, Request,
	// Store, or Retrieve effect's Target should carry (§4.2).
	FirstArgLiteral string
	SourceEntityID  string
	FilePath        string
	Line, Col       int32
}

// classifyCall builds the FunctionCall effect that every call expression
// produces, plus at most one additional Request/Send/Store/Retrieve
// effect when the call shape matches a recognized framework or client
// convention (§4.2 "Effect extraction").
func classifyCall(cs callSite) []model.Effect {
	lowerCallee := strings.ToLower(cs.CalleeName)
	lowerReceiver := strings.ToLower(cs.Receiver)

	effects := []model.Effect{{
		EffectID:       newEffectID(),
		EffectType:     model.EffectFunctionCall,
		SourceEntityID: cs.SourceEntityID,
		SourceFilePath: cs.FilePath,
		SourceLine:     cs.Line,
		SourceCol:      cs.Col,
		CalleeName:     cs.CalleeName,
		IsMethodCall:   cs.IsMethodCall,
		IsConstructor:  cs.IsConstructor,
		IsAsync:        cs.IsAwaited,
		ArgumentCount:  cs.ArgumentCount,
		IsExternal:     cs.Receiver != "",
		ExternalModule: cs.Receiver,
	}}

	if extra := classifySecondaryEffect(cs, lowerCallee, lowerReceiver); extra != nil {
		effects = append(effects, *extra)
	}
	return effects
}

func classifySecondaryEffect(cs callSite, lowerCallee, lowerReceiver string) *model.Effect {
	base := model.Effect{
		EffectID:       newEffectID(),
		SourceEntityID: cs.SourceEntityID,
		SourceFilePath: cs.FilePath,
		SourceLine:     cs.Line,
		SourceCol:      cs.Col,
	}

	// M2M send: a receiver or bare callee ending in "-endpoints", the
	// convention the Hub's matcher relies on (GLOSSARY).
	if strings.HasSuffix(lowerReceiver, m2mSuffix) || strings.HasSuffix(lowerCallee, m2mSuffix) {
		base.EffectType = model.EffectSend
		base.SendType = model.SendM2M
		base.ServiceName = strings.TrimSuffix(firstNonEmpty(lowerReceiver, lowerCallee), m2mSuffix)
		base.Target = firstNonEmpty(cs.FirstArgLiteral, cs.CalleeName)
		base.Method, _ = httpMethodNames[lowerCallee]
		return &base
	}

	// Outbound HTTP: known client receiver, or bare fetch()/httpx.get().
	if httpClientReceivers[lowerReceiver] || httpClientReceivers[lowerCallee] {
		base.EffectType = model.EffectSend
		base.SendType = model.SendHTTP
		base.Target = firstNonEmpty(cs.FirstArgLiteral, cs.Receiver)
		base.IsThirdParty = true
		if m, ok := httpMethodNames[lowerCallee]; ok {
			base.Method = m
		} else {
			base.Method = "GET"
		}
		return &base
	}

	kind, isStoreReceiver := storeReceiverKinds[lowerReceiver]
	if !isStoreReceiver {
		return nil
	}
	switch {
	case storeMethodNames[lowerCallee]:
		base.EffectType = model.EffectStore
		base.StoreKind = kind
		base.Target = firstNonEmpty(cs.FirstArgLiteral, cs.Receiver)
		base.IsBulk = strings.Contains(lowerCallee, "many") || strings.Contains(lowerCallee, "bulk")
		return &base
	case retrieveMethodNames[lowerCallee]:
		base.EffectType = model.EffectRetrieve
		base.StoreKind = kind
		base.Target = firstNonEmpty(cs.FirstArgLiteral, cs.Receiver)
		base.IsBulk = strings.Contains(lowerCallee, "many") || lowerCallee == "find"
		return &base
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// httpRouteMethods maps the decorator/attribute names the JS/TS and
// Python backends recognize on route handlers to an HTTP verb (§4.2
// "Request effects", recognized frameworks: Express/NestJS/FastAPI/Flask).
var httpRouteMethods = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT", "patch": "PATCH",
	"delete": "DELETE", "head": "HEAD", "options": "OPTIONS", "all": "ALL",
}

// requestEffect builds a Request effect for a route-handler method or
// decorator match.
func requestEffect(sourceEntityID, filePath, framework, httpMethod, route string, line, col int32) model.Effect {
	return model.Effect{
		EffectID:       newEffectID(),
		EffectType:     model.EffectRequest,
		SourceEntityID: sourceEntityID,
		SourceFilePath: filePath,
		SourceLine:     line,
		SourceCol:      col,
		Method:         httpMethod,
		RoutePattern:   route,
		Framework:      framework,
	}
}
