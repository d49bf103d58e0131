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

package logging

import (
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// severities maps zap levels onto Cloud Logging severity names.
var severities = []struct {
	level zapcore.Level
	name  string
}{
	{zapcore.DebugLevel, "DEBUG"},
	{zapcore.InfoLevel, "INFO"},
	{zapcore.WarnLevel, "WARNING"},
	{zapcore.ErrorLevel, "ERROR"},
	{zapcore.DPanicLevel, "CRITICAL"},
	{zapcore.PanicLevel, "ALERT"},
	{zapcore.FatalLevel, "EMERGENCY"},
}

var productionEncoderConfig = zapcore.EncoderConfig{
	TimeKey:        "timestamp",
	LevelKey:       "severity",
	NameKey:        "logger",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    encodeSeverity,
	EncodeTime:     encodeTime,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

var developmentEncoderConfig = zapcore.EncoderConfig{
	LevelKey:       "L",
	NameKey:        "N",
	CallerKey:      "C",
	FunctionKey:    zapcore.OmitKey,
	MessageKey:     "M",
	StacktraceKey:  "S",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// parseLevel accepts severity names case-insensitively, plus WARN. Anything
// else is info.
func parseLevel(s string) zapcore.Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARN" {
		return zapcore.WarnLevel
	}
	for _, sev := range severities {
		if sev.name == s {
			return sev.level
		}
	}
	return zapcore.InfoLevel
}

func encodeSeverity(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	for _, sev := range severities {
		if sev.level == l {
			enc.AppendString(sev.name)
			return
		}
	}
	enc.AppendString("DEFAULT")
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339Nano))
}
