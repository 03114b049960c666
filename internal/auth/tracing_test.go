// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/auth/memory"
)

func newTracedService(t *testing.T) (*auth.Service, *smsOutbox, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	opts := auth.DefaultOptions()
	opts.HashCost = bcrypt.MinCost
	phones, err := auth.NewE164Normalizer("", nil)
	require.NoError(t, err)

	sms := &smsOutbox{sent: map[string]string{}}
	svc, err := auth.NewService(opts, auth.Deps{
		Accounts: memory.NewAccountStore(),
		Tokens:   memory.NewLoginTokenStore(),
		Hasher:   auth.NewBcryptHasher(opts.HashCost),
		Phones:   phones,
		SMS:      sms,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracing:  provider,
	})
	require.NoError(t, err)
	return svc, sms, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestService_Spans(t *testing.T) {
	ctx := context.Background()
	svc, sms, recorder := newTracedService(t)

	require.NoError(t, svc.RequestVerification(ctx, auth.Connection{ID: "c1"}, testPhone))
	pw := auth.RawPassword("secret")
	_, err := svc.VerifyPhone(ctx, auth.Connection{ID: "c1"}, testPhone, sms.Last(testPhone), &pw)
	require.NoError(t, err)
	_, err = svc.Login(ctx, auth.Connection{ID: "c2"}, auth.ByPhone(testPhone), auth.RawPassword("wrong"))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "auth.request_verification", spans[0].Name())
	assert.Equal(t, "auth.verify_phone", spans[1].Name())
	assert.Equal(t, "auth.login", spans[2].Name())

	verify := spanAttrs(spans[1])
	assert.Equal(t, "c1", verify["connection.id"].AsString())
	assert.True(t, verify["auth.password_changed"].AsBool())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	login := spanAttrs(spans[2])
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "incorrect password", spans[2].Status().Description)
	assert.Equal(t, string(auth.KindAuth), login["error.kind"].AsString())
	assert.Equal(t, auth.CodeIncorrectPassword, login["error.code"].AsString())

	for _, span := range spans {
		for _, kv := range span.Attributes() {
			assert.False(t, strings.Contains(kv.Value.Emit(), testPhone), "%s leaks the phone number", kv.Key)
		}
	}
}

func TestService_SpanCarriesAccount(t *testing.T) {
	ctx := context.Background()
	svc, _, recorder := newTracedService(t)

	account, err := svc.CreateAccount(ctx, testPhone, nil)
	require.NoError(t, err)

	conn := auth.Connection{ID: "c1", AccountID: account.ID}
	err = svc.ChangePassword(ctx, conn, auth.RawPassword("a"), auth.RawPassword("b"))
	require.Error(t, err)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "auth.change_password", last.Name())
	assert.Equal(t, account.ID.String(), spanAttrs(last)["account.id"].AsString())
}
