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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"

	"github.com/kraklabs/devac/internal/analyze"
	"github.com/kraklabs/devac/internal/apperr"
	"github.com/kraklabs/devac/internal/parser"
)

// newSpinner mirrors the teacher's NewProgressBar (cmd/cie/progress.go):
// an indeterminate spinner shown only when stderr is a TTY and --json
// wasn't requested, since a spinner corrupts piped/JSON output.
func newSpinner(c *commonFlags, description string) *progressbar.ProgressBar {
	if c.json || !isColorTTY() {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func runAnalyze(args []string) error {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	c := parseCommon(fs)
	if err := fs.Parse(args); err != nil {
		return apperr.NewInputError("invalid analyze flags", err.Error(), "see devac analyze --help")
	}
	if c.repo == "" {
		return apperr.NewInputError("--repo is required", "", "pass --repo <name>")
	}

	opts := analyze.Options{
		RepoName: c.repo, PackageRoot: c.pkg, Branch: c.branch,
		IfChanged: c.ifChanged, Force: c.force,
	}

	spinner := newSpinner(c, "analyzing "+c.pkg)
	if spinner != nil {
		done := make(chan struct{})
		defer func() { close(done); spinner.Finish() }()
		go func() {
			for {
				select {
				case <-done:
					return
				case <-time.After(65 * time.Millisecond):
					spinner.Add(1)
				}
			}
		}()
	}

	report, err := analyze.Run(backgroundContext(), opts, parser.DefaultRegistry())
	if err != nil {
		return apperr.NewInternalError("analyze failed", err.Error(), "")
	}

	if c.json {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	if report.Skipped {
		fmt.Println("analyze: nothing changed since the last run (--if-changed)")
		return nil
	}
	green := color.New(color.FgGreen)
	green.Printf("analyzed %d files (%d discovered) in %s\n", report.FilesParsed, report.FilesDiscovered, report.Duration)
	if len(report.Warnings) > 0 {
		color.Yellow("%d warnings:", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Println("  -", w)
		}
	}
	return nil
}
