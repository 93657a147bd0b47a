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

	"github.com/spf13/pflag"

	"github.com/kraklabs/devac/internal/apperr"
	"github.com/kraklabs/devac/internal/config"
)

func runHub(args []string) error {
	if len(args) == 0 {
		return apperr.NewInputError("hub requires a subcommand", "", "one of: init, register, unregister, list, status")
	}
	sub, rest := args[0], args[1:]

	ws, ok := config.DiscoverWorkspace(".")
	if !ok && sub != "init" {
		return apperr.NewConfigError("no workspace found", "no ancestor directory contains a VCS repository as a child",
			"run devac hub init from inside a workspace, or create a .git repo under the intended workspace root")
	}

	switch sub {
	case "init":
		return hubInit(ws, ok)
	case "register":
		return hubRegister(ws, rest)
	case "unregister":
		return hubUnregister(ws, rest)
	case "list":
		return hubList(ws, rest)
	case "status":
		return hubStatus(ws, rest)
	default:
		return apperr.NewInputError(fmt.Sprintf("unknown hub subcommand %q", sub), "", "one of: init, register, unregister, list, status")
	}
}

func hubInit(ws string, found bool) error {
	if !found {
		cwd, err := os.Getwd()
		if err != nil {
			return apperr.NewInternalError("cannot get current directory", err.Error(), "")
		}
		ws = cwd
	}
	hubDir := config.HubDir(ws)
	if _, err := os.Stat(config.ConfigPath(hubDir)); err == nil {
		return apperr.NewConfigError("hub already initialized", config.ConfigPath(hubDir), "remove it first to reinitialize")
	}
	if err := config.Save(hubDir, config.Default()); err != nil {
		return apperr.NewInternalError("failed to write hub config", err.Error(), "")
	}
	fmt.Printf("initialized hub at %s\n", hubDir)
	return nil
}

func hubRegister(ws string, args []string) error {
	fs := pflag.NewFlagSet("hub register", pflag.ContinueOnError)
	repoID := fs.String("repo", "", "repo identifier")
	path := fs.String("path", "", "local path to the repo")
	if err := fs.Parse(args); err != nil {
		return apperr.NewInputError("invalid register flags", err.Error(), "")
	}
	if *repoID == "" || *path == "" {
		return apperr.NewInputError("--repo and --path are required", "", "devac hub register --repo <name> --path <dir>")
	}

	hubDir := config.HubDir(ws)
	cfg, err := config.Load(hubDir)
	if err != nil {
		return apperr.NewConfigError("hub not initialized", err.Error(), "run devac hub init first")
	}
	cfg.Repos[*repoID] = *path
	if err := config.Save(hubDir, cfg); err != nil {
		return apperr.NewInternalError("failed to save hub config", err.Error(), "")
	}
	fmt.Printf("registered %s -> %s\n", *repoID, *path)
	return nil
}

func hubUnregister(ws string, args []string) error {
	if len(args) == 0 {
		return apperr.NewInputError("hub unregister requires a repo id", "", "devac hub unregister <repo>")
	}
	hubDir := config.HubDir(ws)
	cfg, err := config.Load(hubDir)
	if err != nil {
		return apperr.NewConfigError("hub not initialized", err.Error(), "run devac hub init first")
	}
	delete(cfg.Repos, args[0])
	if err := config.Save(hubDir, cfg); err != nil {
		return apperr.NewInternalError("failed to save hub config", err.Error(), "")
	}
	fmt.Printf("unregistered %s\n", args[0])
	return nil
}

func hubList(ws string, args []string) error {
	jsonOut := hasFlag(args, "--json")
	hubDir := config.HubDir(ws)
	cfg, err := config.Load(hubDir)
	if err != nil {
		return apperr.NewConfigError("hub not initialized", err.Error(), "run devac hub init first")
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(cfg.Repos)
	}
	for repoID, path := range cfg.Repos {
		fmt.Printf("%s\t%s\n", repoID, path)
	}
	return nil
}

func hubStatus(ws string, args []string) error {
	jsonOut := hasFlag(args, "--json")
	hubDir := config.HubDir(ws)
	cfg, err := config.Load(hubDir)
	if err != nil {
		return apperr.NewConfigError("hub not initialized", err.Error(), "run devac hub init first")
	}

	type repoStatus struct {
		RepoID string `json:"repoId"`
		Path   string `json:"path"`
		Exists bool   `json:"exists"`
	}
	var statuses []repoStatus
	for repoID, path := range cfg.Repos {
		_, statErr := os.Stat(path)
		statuses = append(statuses, repoStatus{RepoID: repoID, Path: path, Exists: statErr == nil})
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"workspace": ws, "defaultBranch": cfg.DefaultBranch, "repos": statuses, "checkedAt": time.Now(),
		})
	}
	fmt.Printf("workspace: %s\n", ws)
	fmt.Printf("default branch: %s\n", cfg.DefaultBranch)
	for _, s := range statuses {
		state := "ok"
		if !s.Exists {
			state = "missing"
		}
		fmt.Printf("  %s\t%s\t%s\n", s.RepoID, s.Path, state)
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
