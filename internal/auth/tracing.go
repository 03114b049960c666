// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/phoneauth/pkg/errutil"
)

// tracerName is the instrumentation scope of auth spans.
const tracerName = "github.com/holomush/phoneauth/internal/auth"

// endSpan records err on span, if any, and ends it. Phone numbers and codes
// never become span attributes.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(
			attribute.String("error.kind", string(KindOf(err))),
			attribute.String("error.code", errutil.Code(err)),
		)
		span.SetStatus(codes.Error, PublicMessage(err))
	}
	span.End()
}
