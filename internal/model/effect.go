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

// EffectType enumerates the tagged variants of a side-effect record (§3).
type EffectType string

const (
	EffectFunctionCall EffectType = "FunctionCall"
	EffectRequest      EffectType = "Request"
	EffectSend         EffectType = "Send"
	EffectStore        EffectType = "Store"
	EffectRetrieve     EffectType = "Retrieve"
)

// SendType distinguishes a plain outbound HTTP call from an M2M one (§3, GLOSSARY).
type SendType string

const (
	SendHTTP SendType = "http"
	SendM2M  SendType = "m2m"
)

// StoreKind classifies the backing resource a Store/Retrieve effect targets.
// SPEC_FULL §"Effect extraction detail" supplements the distilled spec,
// which names Store/Retrieve in §3 but does not detail their fields.
type StoreKind string

const (
	StoreDatabase StoreKind = "database"
	StoreCache    StoreKind = "cache"
	StoreFile     StoreKind = "file"
	StoreQueue    StoreKind = "queue"
)

// Effect is a flattened representation of the spec's tagged-variant Effect:
// a shared header plus the fields of whichever variant EffectType selects.
// Fields unused by a given variant are left at their zero value; the
// parquet table stores every variant's columns as required (non-null)
// columns, so an unused field is written as that zero value.
type Effect struct {
	EffectID       string     `parquet:"name=effect_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	EffectType     EffectType `parquet:"name=effect_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SourceEntityID string     `parquet:"name=source_entity_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SourceFilePath string     `parquet:"name=source_file_path, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceLine     int32      `parquet:"name=source_line, type=INT32"`
	SourceCol      int32      `parquet:"name=source_col, type=INT32"`
	IsDeleted      bool       `parquet:"name=is_deleted, type=BOOLEAN"`

	// FunctionCall fields.
	CalleeName     string `parquet:"name=callee_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsMethodCall   bool   `parquet:"name=is_method_call, type=BOOLEAN"`
	IsConstructor  bool   `parquet:"name=is_constructor, type=BOOLEAN"`
	IsAsync        bool   `parquet:"name=is_async, type=BOOLEAN"`
	ArgumentCount  int32  `parquet:"name=argument_count, type=INT32"`
	IsExternal     bool   `parquet:"name=is_external, type=BOOLEAN"`
	ExternalModule string `parquet:"name=external_module, type=BYTE_ARRAY, convertedtype=UTF8"`

	// Request fields.
	Method        string `parquet:"name=method, type=BYTE_ARRAY, convertedtype=UTF8"`
	RoutePattern  string `parquet:"name=route_pattern, type=BYTE_ARRAY, convertedtype=UTF8"`
	Framework     string `parquet:"name=framework, type=BYTE_ARRAY, convertedtype=UTF8"`

	// Send fields (Method is shared with Request).
	SendType      SendType `parquet:"name=send_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Target        string   `parquet:"name=target, type=BYTE_ARRAY, convertedtype=UTF8"`
	ServiceName   string   `parquet:"name=service_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsThirdParty  bool     `parquet:"name=is_third_party, type=BOOLEAN"`

	// Store/Retrieve fields (SPEC_FULL supplement).
	StoreKind StoreKind `parquet:"name=store_kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsBulk    bool      `parquet:"name=is_bulk, type=BOOLEAN"`
}
