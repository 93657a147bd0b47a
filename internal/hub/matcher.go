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

package hub

import (
	"strings"

	"github.com/kraklabs/devac/internal/model"
)

// Connection is a matched M2M call: a Send effect in one repo whose
// target/service name correlates with a Request effect (a registered
// route) in another (§4.8 "M2M connection matcher").
type Connection struct {
	SourceRepo   string
	SourceEffect model.Effect
	TargetRepo   string
	TargetEffect model.Effect
	Confidence   float64
}

// RepoEffects pairs a repo ID with the effects the Seed Store already
// extracted for it, so MatchConnections never re-scans source text: the
// parser already classified Send/Request effects per §4.2's heuristics,
// the Hub only has to correlate them across repos.
type RepoEffects struct {
	RepoID  string
	Effects []model.Effect
}

// MatchConnections correlates every m2m Send effect against every Request
// effect across repos (§4.8). Grounded on the teacher's ListEndpoints
// (pkg/tools/endpoints.go): that function regex-scanned Go source for
// route-registration calls to reconstruct endpoints ad hoc; here the
// parser has already produced typed Request/Send effect rows (§4.2), so
// matching degrades to comparing normalized route strings instead of
// re-deriving them from text.
func MatchConnections(repos []RepoEffects) []Connection {
	var requests []struct {
		repoID string
		effect model.Effect
	}
	for _, r := range repos {
		for _, e := range r.Effects {
			if e.EffectType == model.EffectRequest {
				requests = append(requests, struct {
					repoID string
					effect model.Effect
				}{r.RepoID, e})
			}
		}
	}

	var connections []Connection
	for _, r := range repos {
		for _, send := range r.Effects {
			if send.EffectType != model.EffectSend || send.SendType != model.SendM2M {
				continue
			}
			for _, req := range requests {
				if req.repoID == r.RepoID {
					continue // calls within the same repo are CALLS edges, not M2M
				}
				conf := matchScore(send, req.effect)
				if conf == 0 {
					continue
				}
				connections = append(connections, Connection{
					SourceRepo: r.RepoID, SourceEffect: send,
					TargetRepo: req.repoID, TargetEffect: req.effect,
					Confidence: conf,
				})
			}
		}
	}
	return connections
}

// matchScore scores how well a Send effect's target correlates with a
// Request effect's route, 0 meaning no match. Exact route match after
// normalization scores highest; substring/suffix correlation (a Send
// target naming only the path, not the host) scores lower but still
// counts, mirroring ListEndpoints' tolerance for partial path filters.
func matchScore(send, req model.Effect) float64 {
	if send.Method != "" && req.Method != "" && !strings.EqualFold(send.Method, req.Method) {
		return 0
	}

	sendPath := normalizeRoute(send.Target)
	reqPath := normalizeRoute(req.RoutePattern)
	if sendPath == "" || reqPath == "" {
		return serviceNameScore(send, req)
	}

	if sendPath == reqPath {
		return 1.0
	}
	if strings.HasSuffix(sendPath, reqPath) || strings.HasSuffix(reqPath, sendPath) {
		return 0.75
	}
	if score := serviceNameScore(send, req); score > 0 {
		return score
	}
	return 0
}

// serviceNameScore falls back to fuzzy service-name correlation when the
// route paths themselves don't overlap (e.g. a Send naming a logical
// service like "billing-service" rather than a literal path).
func serviceNameScore(send, req model.Effect) float64 {
	if send.ServiceName == "" {
		return 0
	}
	target := strings.ToLower(send.ServiceName)
	if strings.Contains(strings.ToLower(req.SourceFilePath), target) {
		return 0.5
	}
	return 0
}

// normalizeRoute strips host/scheme and path-parameter punctuation so
// "/users/:id" and "/users/{id}" and "https://host/users/:id" all reduce
// to a comparable form.
func normalizeRoute(route string) string {
	r := route
	if i := strings.Index(r, "://"); i >= 0 {
		r = r[i+3:]
		if j := strings.Index(r, "/"); j >= 0 {
			r = r[j:]
		} else {
			r = ""
		}
	}
	r = strings.TrimSuffix(r, "/")
	replacer := strings.NewReplacer(":", "", "{", "", "}", "")
	return replacer.Replace(r)
}
