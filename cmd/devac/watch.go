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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kraklabs/devac/internal/apperr"
	"github.com/kraklabs/devac/internal/parser"
	"github.com/kraklabs/devac/internal/update"
	"github.com/kraklabs/devac/internal/watch"
)

func runWatch(args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	c := parseCommon(fs)
	if err := fs.Parse(args); err != nil {
		return apperr.NewInputError("invalid watch flags", err.Error(), "see devac watch --help")
	}
	if c.repo == "" {
		return apperr.NewInputError("--repo is required", "", "pass --repo <name>")
	}

	w, err := watch.New([]string{c.pkg}, watch.DefaultDebounce)
	if err != nil {
		return apperr.NewConfigError("cannot watch package root", err.Error(), "check the --package path exists")
	}
	defer w.Stop()
	w.Start()

	cfg := parser.Config{RepoName: c.repo, PackagePath: c.pkg, Branch: c.branch}
	mgr := update.New(c.pkg, cfg, parser.DefaultRegistry())
	defer mgr.Dispose()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("watching %s (repo=%s branch=%s), ctrl-C to stop\n", c.pkg, c.repo, c.branch)
	ctx := backgroundContext()

	for {
		select {
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			for _, change := range batch.Changes {
				switch change.Kind {
				case watch.ChangeRemoved:
					mgr.ProcessRemoval(change.Path)
				case watch.ChangeRenamed:
					if _, err := mgr.ProcessRename(ctx, change.OldPath, change.Path); err != nil {
						slog.Warn("devac.watch.process_failed", "path", change.Path, "error", err)
					}
				default:
					if _, err := mgr.ProcessFileChange(ctx, change.Path); err != nil {
						slog.Warn("devac.watch.process_failed", "path", change.Path, "error", err)
					}
				}
			}
			if err := mgr.Flush(time.Now()); err != nil {
				slog.Warn("devac.watch.flush_failed", "error", err)
			}
		case <-sigCh:
			fmt.Println("\nstopping watch")
			return nil
		}
	}
}
