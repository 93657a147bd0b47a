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

// Package main implements the devac CLI: a thin wrapper over the core
// analyze/watch/hub contracts. Per spec §1/§6 the CLI's argument-parsing,
// help text and exit-code surface are explicitly out of scope for the
// core — this file only wires flags to the core operations and reports
// their results; all actual behavior lives in internal/.
//
// Usage:
//
//	devac analyze --package <path> --repo <name> [--branch <name>] [--force] [--if-changed] [--json]
//	devac watch --package <path> --repo <name> [--branch <name>]
//	devac hub init|register|unregister|list|status
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kraklabs/devac/internal/apperr"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "analyze":
		err = runAnalyze(args)
	case "watch":
		err = runWatch(args)
	case "hub":
		err = runHub(args)
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "devac: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}

	if err == nil {
		os.Exit(apperr.ExitSuccess)
	}

	var uerr *apperr.UserError
	if ue, ok := err.(*apperr.UserError); ok {
		uerr = ue
	} else {
		uerr = apperr.NewInternalError("devac failed", err.Error(), "")
	}
	fmt.Fprint(os.Stderr, uerr.Format(!isColorTTY()))
	os.Exit(uerr.ExitCode)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `devac - code-analysis engine CLI

Commands:
  analyze   cold-build a package's seed tables
  watch     watch a package for changes and update its seed incrementally
  hub       manage the registry of repos (init, register, unregister, list, status)

Common flags:
  --package <path>   package root to operate on
  --repo <name>       repo identifier
  --branch <name>     branch name (default "main")
  --force             ignore cached state
  --if-changed        skip work if nothing changed since the last run
  --json              emit machine-readable JSON
  --verbose           verbose logging`)
}

// commonFlags holds the flags shared by every subcommand (§6).
type commonFlags struct {
	pkg       string
	repo      string
	branch    string
	force     bool
	ifChanged bool
	json      bool
	verbose   bool
}

func parseCommon(fs *pflag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.pkg, "package", ".", "package root to operate on")
	fs.StringVar(&c.repo, "repo", "", "repo identifier")
	fs.StringVar(&c.branch, "branch", "main", "branch name")
	fs.BoolVar(&c.force, "force", false, "ignore cached state")
	fs.BoolVar(&c.ifChanged, "if-changed", false, "skip work if nothing changed since the last run")
	fs.BoolVar(&c.json, "json", false, "emit machine-readable JSON")
	fs.BoolVar(&c.verbose, "verbose", false, "verbose logging")
	return c
}

func backgroundContext() context.Context {
	return context.Background()
}
