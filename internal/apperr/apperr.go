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

// Package apperr provides the structured error taxonomy described in
// spec §7. Every public core operation returns a plain Go error; UserError
// is reserved for the cmd/ boundary, where it carries the Message/Cause/Fix
// triple and an exit code for terminal display (§6 exit-code contract).
package apperr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Exit codes, mirrored from the teacher's CLI error taxonomy (§6, §7).
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitDatabase   = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitInternal   = 10
)

// UserError carries what went wrong, why, and how to fix it, plus an exit
// code and an optional wrapped error (§7 "Propagation policy").
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// NewConfigError builds a config/user error (§7: "invalid path, missing hub, unknown option").
func NewConfigError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig}
}

// NewDatabaseError builds a storage error (§7: "lock contention, corrupt parquet, schema mismatch").
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDatabase, Err: err}
}

// NewNetworkError builds a network error (e.g. a GitHub/CI collaborator call failing).
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNetwork, Err: err}
}

// NewInputError builds a user-input validation error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewPermissionError builds a filesystem/permission error.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitPermission, Err: err}
}

// NewNotFoundError builds a "resource not found" error (§7: "unregistered repo, dangling path").
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

// NewInternalError builds an unexpected-bug error.
func NewInternalError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display; set noColor to disable
// ANSI escapes (e.g. when stderr is not a TTY).
func (e *UserError) Format(noColor bool) string {
	var b strings.Builder
	if noColor {
		fmt.Fprintf(&b, "Error: %s\n", e.Message)
		if e.Cause != "" {
			fmt.Fprintf(&b, "Cause: %s\n", e.Cause)
		}
		if e.Fix != "" {
			fmt.Fprintf(&b, "Fix:   %s\n", e.Fix)
		}
		return b.String()
	}
	b.WriteString(colorError.Sprintf("Error: %s", e.Message))
	b.WriteByte('\n')
	if e.Cause != "" {
		b.WriteString(colorCause.Sprintf("Cause: %s", e.Cause))
		b.WriteByte('\n')
	}
	if e.Fix != "" {
		b.WriteString(colorFix.Sprintf("Fix:   %s", e.Fix))
		b.WriteByte('\n')
	}
	return b.String()
}

// ToJSON renders the error as a JSON-friendly map (§6 --json flag).
func (e *UserError) ToJSON() map[string]any {
	m := map[string]any{
		"error":     e.Message,
		"exit_code": e.ExitCode,
	}
	if e.Cause != "" {
		m["cause"] = e.Cause
	}
	if e.Fix != "" {
		m["fix"] = e.Fix
	}
	return m
}

// MarshalJSON lets UserError be embedded directly in a JSON response.
func (e *UserError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// ResolutionCode enumerates the Semantic Resolver's failure taxonomy (§4.3, §7).
type ResolutionCode string

const (
	CodeTimeout            ResolutionCode = "TIMEOUT"
	CodeModuleNotFound     ResolutionCode = "MODULE_NOT_FOUND"
	CodeParseError         ResolutionCode = "PARSE_ERROR"
	CodeCircularDependency ResolutionCode = "CIRCULAR_DEPENDENCY"
	CodeInternalError      ResolutionCode = "INTERNAL_ERROR"
)

// ResolutionError attaches a taxonomy code to a single ref/edge resolution
// failure, scoped to the ref that failed so the rest of the package's
// resolution can still report partial success (§4.3, §7).
type ResolutionError struct {
	Code    ResolutionCode
	Subject string // the ref/edge identifier that failed to resolve
	Detail  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Subject, e.Detail)
}
