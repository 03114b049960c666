// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Attrs describes err for a log record: "error" always, plus "error_code"
// and "context" when err is an oops error that carries them.
func Attrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	attrs := []slog.Attr{slog.String("error", err.Error())}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return attrs
	}
	if code := Code(err); code != "" {
		attrs = append(attrs, slog.String("error_code", code))
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, slog.Any("context", errCtx))
	}
	return attrs
}

// LogError logs err at error level. args are extra key-value pairs.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	logAt(ctx, logger, slog.LevelError, msg, err, args)
}

// LogWarning logs err at warn level, for failures the caller recovers from.
func LogWarning(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	logAt(ctx, logger, slog.LevelWarn, msg, err, args)
}

func logAt(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, extra []any) {
	if !logger.Enabled(ctx, level) {
		return
	}
	attrs := Attrs(err)
	args := make([]any, 0, len(attrs)+len(extra))
	for _, a := range attrs {
		args = append(args, a)
	}
	logger.Log(ctx, level, msg, append(args, extra...)...)
}

// Code returns the oops code carried by err, or "" if it has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}
