// Copyright 2021 Google LLC
// Copyright 2024 the OBIS Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package project

import (
	"context"
	"os"
	"testing"

	"github.com/andesobis/obis-export/pkg/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// TestLogLevelEnv raises or lowers test log output, e.g. TEST_LOG_LEVEL=debug.
const TestLogLevelEnv = "TEST_LOG_LEVEL"

// TestContext returns a context carrying a test logger. It is cancelled once
// the test and its subtests are done.
func TestContext(tb testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)
	return logging.WithLogger(ctx, TestLogger(tb))
}

// TestLogger writes through tb.Log, so output only shows for failing tests
// or with -v. Warnings and above by default.
func TestLogger(tb testing.TB) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if s := os.Getenv(TestLogLevelEnv); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			tb.Logf("ignoring %s=%q: %v", TestLogLevelEnv, s, err)
			level = zapcore.WarnLevel
		}
	}
	return zaptest.NewLogger(tb, zaptest.Level(level)).Sugar()
}
