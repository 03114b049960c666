// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/phoneauth/internal/config"
	"github.com/holomush/phoneauth/internal/logging"
)

const serviceName = "phoneauth"

// NewRootCmd creates the root command for the phoneauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "phoneauth - phone number and SMS code authentication",
		Long: `phoneauth authenticates accounts by phone number and password,
verifies phones with rate-limited SMS codes, and manages login sessions.`,
		SilenceUsage: true,
	}

	// Global flags: config file path plus overrides for individual keys
	cmd.PersistentFlags().String("config", "", "config file path (default $XDG_CONFIG_HOME/phoneauth/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewAccountCmd(deps))
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig loads configuration using the --config path and any override
// flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

// newLogger builds the command logger. Logs go to the command's stderr so
// stdout carries only command output.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	opts, err := cfg.LogOptions()
	if err != nil {
		return nil, err
	}
	return logging.Setup(serviceName, version, opts, cmd.ErrOrStderr()), nil
}

// setup loads configuration and the logger for commands that need both.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
