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

// Shared setup for the workflow test suite. The workflows here run entirely
// against in-memory stores and scriptable fakes, so the only suite-level
// state is the structured logger the tests emit through.
package workflow

import (
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/jaycherian/gcp-go-clip-pilot/tests/workflow"

var logger = otelslog.NewLogger(tName)

func TestMain(m *testing.M) {
	telemetry.SetupLogging()
	logger.Info("completed workflow test setup")
	os.Exit(m.Run())
}
