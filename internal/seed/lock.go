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

package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
)

// lockStaleAfter is how long an orphaned lockfile (left behind by a
// crashed process) is honored before a new writer is allowed to steal it
// (§4.4 "advisory lockfiles", §4.8 read-only/write-mode fallback).
const lockStaleAfter = 2 * time.Minute

// acquireLock creates "<dir>/.write.lock" exclusively. If the file
// already exists and is younger than lockStaleAfter, the write is
// refused (the caller should fall back to read-only mode, §4.8 P7). If
// it is older, it is treated as orphaned and replaced.
func acquireLock(dir string) (func(), error) {
	path := filepath.Join(dir, ".write.lock")

	if info, err := os.Stat(path); err == nil {
		if time.Since(info.ModTime()) < lockStaleAfter {
			return nil, fmt.Errorf("seed directory %s is locked by another writer", dir)
		}
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("acquire lock on %s: %w", dir, err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	f.Close()

	return func() { _ = os.Remove(path) }, nil
}

// IsLocked reports whether dir currently holds a live (non-stale) write
// lock, without attempting to acquire it. Used by the Hub's read-only
// fallback check (§4.8).
func IsLocked(packageRoot, branch string) bool {
	info, err := os.Stat(filepath.Join(branchDir(packageRoot, branch), ".write.lock"))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < lockStaleAfter
}

func parquetCompression() parquet.CompressionCodec {
	return parquet.CompressionCodec_SNAPPY
}
