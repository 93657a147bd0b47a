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

// Package config implements on-disk YAML configuration and the workspace
// discovery rule of spec §6. Grounded on the teacher's bootstrap.ProjectConfig
// (internal/bootstrap/bootstrap.go) and cmd/cie/init.go's ConfigPath/
// project.yaml convention, retargeted from a single CozoDB project onto
// the Hub's directory of registered repos.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HubDirName is the conventional name of the Hub's on-disk directory
// inside a workspace root (§6 "default <workspace>/.devac/").
const HubDirName = ".devac"

// ConfigFileName is the YAML file the Hub persists its own settings to,
// mirroring the teacher's "project.yaml" inside its own ".cie/" directory.
const ConfigFileName = "hub.yaml"

// Config is the Hub's on-disk configuration (§4.8, §6).
type Config struct {
	DefaultBranch string            `yaml:"defaultBranch"`
	Repos         map[string]string `yaml:"repos"` // repo_id -> local_path, seeded at `hub register`
}

// Default returns the configuration a fresh `hub init` writes.
func Default() Config {
	return Config{DefaultBranch: "main", Repos: make(map[string]string)}
}

// ConfigPath returns the path to hub.yaml inside hubDir.
func ConfigPath(hubDir string) string {
	return filepath.Join(hubDir, ConfigFileName)
}

// Load reads hub.yaml from hubDir.
func Load(hubDir string) (Config, error) {
	data, err := os.ReadFile(ConfigPath(hubDir))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", ConfigPath(hubDir), err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", ConfigPath(hubDir), err)
	}
	if cfg.Repos == nil {
		cfg.Repos = make(map[string]string)
	}
	return cfg, nil
}

// Save writes cfg to hub.yaml inside hubDir, creating hubDir if absent.
func Save(hubDir string, cfg Config) error {
	if err := os.MkdirAll(hubDir, 0o755); err != nil {
		return fmt.Errorf("create hub dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(hubDir), data, 0o644)
}

// vcsMarkers are the directory entries that make a directory "a VCS
// repository" for the purposes of workspace discovery (§6).
var vcsMarkers = []string{".git", ".hg", ".jj"}

func isVCSRepo(dir string) bool {
	for _, marker := range vcsMarkers {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// hasVCSChild reports whether any direct child of dir is itself a VCS
// repository (§6 "nearest ancestor that contains at least one VCS
// repository as a child").
func hasVCSChild(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if isVCSRepo(filepath.Join(dir, e.Name())) {
			return true
		}
	}
	return false
}

// DiscoverWorkspace implements §6's workspace discovery rule: starting
// from startDir, the workspace is the nearest ancestor that contains at
// least one VCS repository as a child; if startDir itself is a VCS
// repository, the workspace is its parent when that parent also
// satisfies the rule. Reads only the filesystem — no environment
// variables, per spec §6 "reads no environment variables for behaviour".
func DiscoverWorkspace(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	if isVCSRepo(dir) {
		parent := filepath.Dir(dir)
		if parent != dir && hasVCSChild(parent) {
			return parent, true
		}
	}

	for {
		if hasVCSChild(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// HubDir resolves the .devac directory for a discovered workspace root.
func HubDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, HubDirName)
}
