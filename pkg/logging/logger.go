// Copyright 2020 Google LLC
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

// Package logging builds zap loggers and carries them through contexts.
package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type loggerKey struct{}

var (
	defaultLogger     *zap.SugaredLogger
	defaultLoggerOnce sync.Once
)

// NewLogger builds a logger at the given severity. Production loggers write
// JSON with Cloud Logging field names; development loggers write a console
// format. Both write to stderr so stdout stays free for command output.
func NewLogger(level string, development bool) *zap.SugaredLogger {
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      development,
		Encoding:         "json",
		EncoderConfig:    productionEncoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if development {
		cfg.Encoding = "console"
		cfg.EncoderConfig = developmentEncoderConfig
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// NewLoggerFromEnv reads LOG_LEVEL and LOG_MODE ("development" or anything
// else for production).
func NewLoggerFromEnv() *zap.SugaredLogger {
	mode := strings.TrimSpace(os.Getenv("LOG_MODE"))
	return NewLogger(os.Getenv("LOG_LEVEL"), strings.EqualFold(mode, "development"))
}

// DefaultLogger is built from the environment on first use.
func DefaultLogger() *zap.SugaredLogger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLoggerFromEnv()
	})
	return defaultLogger
}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or DefaultLogger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
		return logger
	}
	return DefaultLogger()
}
