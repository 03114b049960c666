// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Accounts AccountStore
	Tokens   LoginTokenStore
	Hasher   PasswordHasher
	Phones   PhoneNormalizer
	SMS      SmsSender
	Logger   *slog.Logger

	// Metrics may be nil.
	Metrics *Metrics
	// Now may be nil to use time.Now.
	Now func() time.Time
	// Tracing may be nil to use the global provider.
	Tracing trace.TracerProvider
}

// LoginResult is returned by operations that log the connection in.
type LoginResult struct {
	AccountID ulid.ULID
	// Token is the plaintext session token. Only its hash is stored.
	Token     string
	ExpiresAt time.Time
}

// Service exposes the phone authentication operations.
type Service struct {
	accounts AccountStore
	phones   PhoneNormalizer
	hasher   PasswordHasher
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
	opts     Options

	tokens        *Coordinator
	sessions      LoginTokenStore
	issuer        *Issuer
	validator     *Validator
	authenticator *Authenticator
}

// NewService validates opts and wires the components together.
func NewService(opts Options, deps Deps) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Accounts == nil:
		return nil, oops.Errorf("account store is required")
	case deps.Tokens == nil:
		return nil, oops.Errorf("login token store is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Phones == nil:
		return nil, oops.Errorf("phone normalizer is required")
	case deps.SMS == nil:
		return nil, oops.Code("SMS_SENDER_REQUIRED").Errorf("sms sender is required")
	case deps.Logger == nil:
		return nil, oops.Errorf("logger is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tracing == nil {
		deps.Tracing = otel.GetTracerProvider()
	}

	tokens, err := NewCoordinator(deps.Tokens, deps.Logger, deps.Metrics)
	if err != nil {
		return nil, err
	}
	issuer, err := NewIssuer(deps.Accounts, deps.SMS, opts, deps.Metrics, deps.Now)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(deps.Accounts, deps.Phones, deps.Hasher, tokens, opts, deps.Metrics, deps.Now)
	if err != nil {
		return nil, err
	}
	authenticator, err := NewAuthenticator(deps.Accounts, deps.Hasher)
	if err != nil {
		return nil, err
	}

	return &Service{
		accounts:      deps.Accounts,
		phones:        deps.Phones,
		hasher:        deps.Hasher,
		logger:        deps.Logger.With("component", "auth"),
		metrics:       deps.Metrics,
		tracer:        deps.Tracing.Tracer(tracerName),
		now:           deps.Now,
		opts:          opts,
		tokens:        tokens,
		sessions:      deps.Tokens,
		issuer:        issuer,
		validator:     validator,
		authenticator: authenticator,
	}, nil
}

// Login checks the password of the selected account and logs conn in.
func (s *Service) Login(ctx context.Context, conn Connection, sel Selector, password Password) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "auth.login", conn)
	res, err := s.login(ctx, conn, sel, password)
	if res != nil {
		span.SetAttributes(attribute.String("account.id", res.AccountID.String()))
	}
	endSpan(span, err)
	s.metrics.Logins.WithLabelValues(result(err)).Inc()
	return res, err
}

func (s *Service) login(ctx context.Context, conn Connection, sel Selector, password Password) (*LoginResult, error) {
	account, err := s.authenticator.Authenticate(ctx, sel, password)
	if err != nil {
		return nil, err
	}
	res, err := s.startSession(ctx, account.ID, conn.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "account logged in",
		"account_id", account.ID.String(),
		"connection_id", conn.ID,
	)
	return res, nil
}

// RequestVerification sends a code to phone. A logged-in caller verifies a
// number for their own account and may omit phone to use the one on file.
// Otherwise the account is looked up by phone, and created if there is none.
func (s *Service) RequestVerification(ctx context.Context, conn Connection, phone string) error {
	ctx, span := s.startSpan(ctx, "auth.request_verification", conn)
	err := s.requestVerification(ctx, conn, phone)
	endSpan(span, err)
	return err
}

func (s *Service) requestVerification(ctx context.Context, conn Connection, phone string) error {
	if phone != "" {
		normalized, err := s.phones.Normalize(phone)
		if err != nil {
			return err
		}
		phone = normalized
	}

	accountID := conn.AccountID
	if !conn.IsAuthenticated() {
		if phone == "" {
			return oops.Code(CodePhoneRequired).Errorf("phone number is required")
		}
		account, err := s.findOrCreate(ctx, phone)
		if err != nil {
			return err
		}
		accountID = account.ID
	}

	err := s.issuer.Issue(ctx, accountID, phone)
	switch KindOf(err) {
	case "", KindValidation, KindRateLimit:
		return err
	case KindInternal:
		return oops.Code("VERIFY_REQUEST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	default:
		// Only rate limiting and bad input are reported as such.
		return oops.Code("VERIFY_REQUEST_FAILED").
			With("account_id", accountID.String()).
			With("cause", err.Error()).
			Errorf("could not issue verification code")
	}
}

// findOrCreate returns the account holding phone, creating a passwordless
// unverified one if none exists.
func (s *Service) findOrCreate(ctx context.Context, phone string) (*Account, error) {
	account, err := s.accounts.GetByPhone(ctx, phone)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "get account by phone").
			Wrap(err)
	}

	account, err = NewAccount(phone, nil)
	if err != nil {
		return nil, err
	}
	err = s.accounts.Create(ctx, account)
	if IsKind(err, KindConflict) {
		// Lost a creation race for the same number.
		account, err = s.accounts.GetByPhone(ctx, phone)
	}
	if err != nil {
		return nil, oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "create account").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "account created for verification", "account_id", account.ID.String())
	return account, nil
}

// VerifyCode reports whether code would verify phone, without consuming it.
func (s *Service) VerifyCode(ctx context.Context, phone, code string) error {
	ctx, span := s.tracer.Start(ctx, "auth.verify_code")
	err := s.validator.Check(ctx, phone, code)
	endSpan(span, err)
	return err
}

// VerifyPhone consumes code, marks phone verified and logs conn in. A non-nil
// newPassword replaces the account password and ends all other sessions.
func (s *Service) VerifyPhone(ctx context.Context, conn Connection, phone, code string, newPassword *Password) (res *LoginResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.verify_phone", conn)
	span.SetAttributes(attribute.Bool("auth.password_changed", newPassword != nil))
	defer func() { endSpan(span, err) }()

	accountID, err := s.validator.Validate(ctx, conn, phone, code, newPassword)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "phone verified",
		"account_id", accountID.String(),
		"password_changed", newPassword != nil,
	)
	return s.startSession(ctx, accountID, conn.ID)
}

// ChangePassword replaces the password of the logged-in account. Every other
// session of the account ends; conn stays logged in.
func (s *Service) ChangePassword(ctx context.Context, conn Connection, oldPassword, newPassword Password) error {
	ctx, span := s.startSpan(ctx, "auth.change_password", conn)
	err := s.changePassword(ctx, conn, oldPassword, newPassword)
	endSpan(span, err)
	s.metrics.PasswordChanges.WithLabelValues(result(err)).Inc()
	return err
}

func (s *Service) changePassword(ctx context.Context, conn Connection, oldPassword, newPassword Password) error {
	if !conn.IsAuthenticated() {
		return oops.Code(CodeNotLoggedIn).Errorf("must be logged in")
	}

	account, err := s.authenticator.Authenticate(ctx, ByID(conn.AccountID), oldPassword)
	if err != nil {
		return err
	}

	newHash, err := s.hasher.DeriveVerifier(newPassword)
	if err != nil {
		return wrapInternal(err, "AUTH_CHANGE_PASSWORD_FAILED", "derive verifier")
	}

	// Guarded on the verifier we checked the old password against.
	n, err := s.accounts.ConditionalUpdate(ctx,
		AccountFilter{ID: account.ID, PasswordHash: account.PasswordHash},
		AccountUpdate{
			PasswordHash:      &newHash,
			ClearVerification: true,
			UpdatedAt:         s.now().UTC(),
		},
	)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "store password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if n == 0 {
		return oops.Code(CodePasswordChangedMeanwhile).
			With("account_id", account.ID.String()).
			Errorf("password was changed by another request")
	}

	s.endOtherSessions(ctx, account.ID, conn)
	s.logger.InfoContext(ctx, "password changed", "account_id", account.ID.String())
	return nil
}

// endOtherSessions removes every session of the account except the one conn
// acts through. When that session cannot be identified all of them go, conn's
// included.
func (s *Service) endOtherSessions(ctx context.Context, accountID ulid.ULID, conn Connection) {
	current, err := s.tokens.CaptureCurrentToken(ctx, accountID, conn)
	if err != nil {
		s.tokens.ReportFailure(ctx, "capture", accountID, err)
		if _, err := s.tokens.InvalidateAll(ctx, accountID); err != nil {
			s.tokens.ReportFailure(ctx, "invalidate_all", accountID, err)
		}
		return
	}

	var keepHash string
	if current != nil {
		keepHash = current.TokenHash
	}
	if _, err := s.tokens.InvalidateExcept(ctx, accountID, keepHash); err != nil {
		s.tokens.ReportFailure(ctx, "invalidate_except", accountID, err)
	}
}

// CreateAccount registers phone with an optional password. The phone starts
// unverified.
func (s *Service) CreateAccount(ctx context.Context, phone string, password *Password) (*Account, error) {
	normalized, err := s.phones.Normalize(phone)
	if err != nil {
		return nil, err
	}

	var hash *string
	if password != nil {
		h, err := s.hasher.DeriveVerifier(*password)
		if err != nil {
			return nil, wrapInternal(err, "ACCOUNT_CREATE_FAILED", "derive verifier")
		}
		hash = &h
	}

	account, err := NewAccount(normalized, hash)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, wrapInternal(err, "ACCOUNT_CREATE_FAILED", "create account")
	}
	s.logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	return account, nil
}

// Account returns the account the selector names.
func (s *Service) Account(ctx context.Context, sel Selector) (*Account, error) {
	account, err := s.authenticator.resolve(ctx, sel)
	if IsKind(err, KindAuth) {
		return nil, oops.Code(CodeAccountNotFound).Errorf("account not found")
	}
	return account, err
}

// IsPhoneVerified reports whether the account has proven its phone number.
func (s *Service) IsPhoneVerified(ctx context.Context, accountID ulid.ULID) (bool, error) {
	account, err := s.Account(ctx, ByID(accountID))
	if err != nil {
		return false, err
	}
	return account.Phone.Verified, nil
}

// ValidateSession resolves a plaintext session token. Expired tokens are
// removed. The returned token's Connection is the caller to pass to
// ChangePassword and Logout.
func (s *Service) ValidateSession(ctx context.Context, token string) (*LoginToken, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
	}
	if err != nil {
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			s.tokens.ReportFailure(ctx, "delete_expired", session.AccountID, err)
		}
		return nil, oops.Code(CodeSessionExpired).Errorf("session has expired")
	}
	return session, nil
}

// Logout removes the session token conn acts through.
func (s *Service) Logout(ctx context.Context, conn Connection) error {
	if !conn.IsAuthenticated() {
		return oops.Code(CodeNotLoggedIn).Errorf("must be logged in")
	}
	current, err := s.tokens.CaptureCurrentToken(ctx, conn.AccountID, conn)
	if err != nil {
		return err
	}
	return s.tokens.Detach(ctx, current)
}

// PruneExpiredSessions removes every expired session token.
func (s *Service) PruneExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").Wrap(err)
	}
	return n, nil
}

// startSpan opens a span for an operation on behalf of conn.
func (s *Service) startSpan(ctx context.Context, name string, conn Connection) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("connection.id", conn.ID)}
	if conn.IsAuthenticated() {
		attrs = append(attrs, attribute.String("account.id", conn.AccountID.String()))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// startSession mints a session token for the account bound to connectionID.
func (s *Service) startSession(ctx context.Context, accountID ulid.ULID, connectionID string) (*LoginResult, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.opts.SessionTTL)
	session, err := NewLoginToken(accountID, connectionID, tokenHash, expiresAt)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "create login token").
			Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist login token").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	return &LoginResult{AccountID: accountID, Token: token, ExpiresAt: expiresAt}, nil
}
