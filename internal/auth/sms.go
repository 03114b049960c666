// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
)

// SmsSender delivers a verification code. It is supplied by the integrator.
type SmsSender interface {
	Send(ctx context.Context, phone, code string) error
}

// SmsSenderFunc adapts a function to SmsSender.
type SmsSenderFunc func(ctx context.Context, phone, code string) error

// Send calls f.
func (f SmsSenderFunc) Send(ctx context.Context, phone, code string) error {
	return f(ctx, phone, code)
}

// LogSender writes codes to a logger instead of sending them. Development only.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the code at warn level so it is hard to miss in production logs.
func (s *LogSender) Send(ctx context.Context, phone, code string) error {
	s.logger.WarnContext(ctx, "verification code not sent, log sender in use",
		"phone", phone,
		"sms_code", code,
	)
	return nil
}
