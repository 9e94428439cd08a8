/*
 * Copyright (C) 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package config

import (
	"gopkg.in/natefinch/lumberjack.v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from the logger config: JSON to stdout, or
// a rotated file when outputType is "file".
func NewLogger(loggerConfig *LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(loggerConfig.Level)); err != nil {
		return nil, err
	}
	if loggerConfig.OutputType == "file" {
		return setupFileLogger(level, loggerConfig), nil
	}
	return setupConsoleLogger(level)
}

func setupFileLogger(level zap.AtomicLevel, loggerConfig *LoggerConfig) *zap.Logger {
	filename := loggerConfig.Filename
	if filename == "" {
		filename = "/var/log/cql-object-mapper/output.log"
	}
	maxAge := loggerConfig.MaxAge
	if maxAge == 0 {
		maxAge = 3
	}
	maxBackups := loggerConfig.MaxBackups
	if maxBackups == 0 {
		maxBackups = 10
	}
	rotationalLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    loggerConfig.MaxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		Compress:   loggerConfig.Compress,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotationalLogger),
		level,
	)
	return zap.New(core)
}

func setupConsoleLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	config := zap.Config{
		Encoding:         "json",
		Level:            level,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			CallerKey:      "caller",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
	return config.Build()
}
