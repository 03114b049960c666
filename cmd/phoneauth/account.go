// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/phoneauth/internal/auth"
)

const defaultConnectionID = "cli"

// accountFlags are shared by the account subcommands.
type accountFlags struct {
	connectionID string
	password     string
	digest       bool
	token        string
}

// NewAccountCmd creates the account subcommand and its children.
func NewAccountCmd(deps *Deps) *cobra.Command {
	flags := &accountFlags{}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Verify phones, log in, and inspect accounts",
		Long: `Drive the authentication operations from the command line. Codes are
delivered through the configured SMS sender, which by default writes them to
the log.`,
	}
	cmd.PersistentFlags().StringVar(&flags.connectionID, "connection", defaultConnectionID, "connection ID sessions are bound to")

	requestCode := &cobra.Command{
		Use:   "request-code [PHONE]",
		Short: "Send a verification code to PHONE",
		Long: `Send a verification code. With --token the code is issued for the
logged-in account, and PHONE may be omitted to use the number on file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				conn, err := flags.connection(ctx, svc)
				if err != nil {
					return err
				}
				phone := ""
				if len(args) == 1 {
					phone = args[0]
				}
				if err := svc.RequestVerification(ctx, conn, phone); err != nil {
					return err
				}
				cmd.Println("Verification code sent")
				return nil
			})
		},
	}
	requestCode.Flags().StringVar(&flags.token, "token", "", "session token of a logged-in account")

	verify := &cobra.Command{
		Use:   "verify PHONE CODE",
		Short: "Verify PHONE with CODE and log in",
		Long: `Consume CODE, mark PHONE verified, and print a new session token.
With --password the account password is replaced and every other session ends.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				conn, err := flags.connection(ctx, svc)
				if err != nil {
					return err
				}
				res, err := svc.VerifyPhone(ctx, conn, args[0], args[1], flags.optionalPassword())
				if err != nil {
					return err
				}
				printLogin(cmd, res)
				return nil
			})
		},
	}
	verify.Flags().StringVar(&flags.password, "password", "", "new password to set")
	verify.Flags().BoolVar(&flags.digest, "digest", false, "treat --password as a hex SHA-256 digest")
	verify.Flags().StringVar(&flags.token, "token", "", "session token of a logged-in account")

	check := &cobra.Command{
		Use:   "check-code PHONE CODE",
		Short: "Report whether CODE would verify PHONE without consuming it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.VerifyCode(ctx, args[0], args[1]); err != nil {
					return err
				}
				cmd.Println("Code is valid")
				return nil
			})
		},
	}

	login := &cobra.Command{
		Use:   "login PHONE",
		Short: "Log in with a phone number and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.password == "" {
				return oops.Code("PASSWORD_REQUIRED").Errorf("--password is required")
			}
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				res, err := svc.Login(ctx, auth.Connection{ID: flags.connectionID}, auth.ByPhone(args[0]), flags.passwordValue())
				if err != nil {
					return err
				}
				printLogin(cmd, res)
				return nil
			})
		},
	}
	login.Flags().StringVar(&flags.password, "password", "", "account password")
	login.Flags().BoolVar(&flags.digest, "digest", false, "treat --password as a hex SHA-256 digest")

	create := &cobra.Command{
		Use:   "create PHONE",
		Short: "Register PHONE with an optional password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				account, err := svc.CreateAccount(ctx, args[0], flags.optionalPassword())
				if err != nil {
					return err
				}
				cmd.Printf("Created account %s for %s\n", account.ID, account.Phone.Number)
				return nil
			})
		},
	}
	create.Flags().StringVar(&flags.password, "password", "", "initial password")
	create.Flags().BoolVar(&flags.digest, "digest", false, "treat --password as a hex SHA-256 digest")

	var newPassword string
	changePassword := &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the logged-in account",
		Long: `Change the password of the account --token belongs to. Every other
session of the account ends; this one stays valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.token == "" || flags.password == "" || newPassword == "" {
				return oops.Code("FLAGS_REQUIRED").Errorf("--token, --password and --new-password are required")
			}
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				conn, err := flags.connection(ctx, svc)
				if err != nil {
					return err
				}
				next := auth.RawPassword(newPassword)
				if flags.digest {
					next = auth.DigestPassword(newPassword, auth.TransportAlgorithm)
				}
				if err := svc.ChangePassword(ctx, conn, flags.passwordValue(), next); err != nil {
					return err
				}
				cmd.Println("Password changed")
				return nil
			})
		},
	}
	changePassword.Flags().StringVar(&flags.token, "token", "", "session token of the account")
	changePassword.Flags().StringVar(&flags.password, "password", "", "current password")
	changePassword.Flags().StringVar(&newPassword, "new-password", "", "new password")
	changePassword.Flags().BoolVar(&flags.digest, "digest", false, "treat passwords as hex SHA-256 digests")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "End the session --token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.token == "" {
				return oops.Code("FLAGS_REQUIRED").Errorf("--token is required")
			}
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				conn, err := flags.connection(ctx, svc)
				if err != nil {
					return err
				}
				if err := svc.Logout(ctx, conn); err != nil {
					return err
				}
				cmd.Println("Logged out")
				return nil
			})
		},
	}
	logout.Flags().StringVar(&flags.token, "token", "", "session token to end")

	show := &cobra.Command{
		Use:   "show PHONE|ID",
		Short: "Show an account by phone number or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				account, err := svc.Account(ctx, selectorFor(args[0]))
				if err != nil {
					return err
				}
				printAccount(cmd, account)
				return nil
			})
		},
	}

	cmd.AddCommand(requestCode, verify, check, login, create, changePassword, logout, show)
	return cmd
}

// withService opens the backend, builds the service, and runs fn.
func withService(cmd *cobra.Command, deps *Deps, fn func(context.Context, *auth.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	backend, err := deps.BackendFactory(ctx, cfg, logger, deps)
	if err != nil {
		return oops.Code("BACKEND_OPEN_FAILED").With("store", cfg.Store).Wrap(err)
	}
	defer backend.close()

	svc, err := newService(cfg, backend, logger, nil, deps.SMSSenderFactory(logger))
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	return fn(ctx, svc)
}

// connection returns the caller's connection, logged in when --token is set.
// The token names the session exactly and its own connection ID wins over
// --connection.
func (f *accountFlags) connection(ctx context.Context, svc *auth.Service) (auth.Connection, error) {
	if f.token == "" {
		return auth.Connection{ID: f.connectionID}, nil
	}
	session, err := svc.ValidateSession(ctx, f.token)
	if err != nil {
		return auth.Connection{}, err
	}
	return session.Connection(), nil
}

func (f *accountFlags) passwordValue() auth.Password {
	if f.digest {
		return auth.DigestPassword(f.password, auth.TransportAlgorithm)
	}
	return auth.RawPassword(f.password)
}

func (f *accountFlags) optionalPassword() *auth.Password {
	if f.password == "" {
		return nil
	}
	pw := f.passwordValue()
	return &pw
}

// selectorFor treats arguments that parse as a ULID as account IDs.
func selectorFor(arg string) auth.Selector {
	if id, err := ulid.ParseStrict(arg); err == nil {
		return auth.ByID(id)
	}
	return auth.ByPhone(arg)
}

func printLogin(cmd *cobra.Command, res *auth.LoginResult) {
	cmd.Printf("Account: %s\n", res.AccountID)
	cmd.Printf("Token:   %s\n", res.Token)
	cmd.Printf("Expires: %s\n", res.ExpiresAt.UTC().Format(time.RFC3339))
}

func printAccount(cmd *cobra.Command, account *auth.Account) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\t%s\n", account.ID)
	_, _ = fmt.Fprintf(w, "Phone\t%s\n", account.Phone.Number)
	_, _ = fmt.Fprintf(w, "Verified\t%t\n", account.Phone.Verified)
	_, _ = fmt.Fprintf(w, "Password set\t%t\n", account.PasswordHash != nil)
	if v := account.Verification; v != nil {
		_, _ = fmt.Fprintf(w, "Pending code\tsent to %s at %s (%d issued)\n",
			v.TargetPhone, v.LastIssuedAt.UTC().Format(time.RFC3339), v.RetryCount)
	} else {
		_, _ = fmt.Fprintln(w, "Pending code\tnone")
	}
	_, _ = fmt.Fprintf(w, "Created\t%s\n", account.CreatedAt.UTC().Format(time.RFC3339))
	_ = w.Flush()
}
