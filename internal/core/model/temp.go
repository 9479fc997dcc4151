// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// TempNamer produces collision-safe temp file names for one render variant.
// The temp directory is shared across concurrent variants and concurrent jobs
// with no locking, so every name includes job id, variant index, stage name,
// and a monotonic counter.
type TempNamer struct {
	Dir          string // Temp directory; empty means os.TempDir().
	JobID        string
	VariantIndex int
	counter      atomic.Int64
}

// Next returns a fresh path for the given stage. The file is not created.
func (n *TempNamer) Next(stage, ext string) string {
	dir := n.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	seq := n.counter.Add(1)
	return filepath.Join(dir, fmt.Sprintf("clippilot-%s-v%02d-%s-%04d%s", n.JobID, n.VariantIndex, stage, seq, ext))
}
