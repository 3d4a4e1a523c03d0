// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/secrets"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// annotationCreatesConfig marks commands that write the config file, so a
// --config path that does not exist yet is not read.
const annotationCreatesConfig = "solrock/creates-config"

// app carries the state shared by every subcommand of one root command.
type app struct {
	v     *viper.Viper
	level *slog.LevelVar
}

// NewRootCmd creates the root solrock command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "solrock",
		Short:         "Solrock, a conversational code assistant",
		Long:          "Solrock answers programming questions, explains code and suggests improvements, remembering the conversation per session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newChatCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newSecretCmd(),
		newInitCmd(),
		newDoctorCmd(a),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the command's viper with defaults, .env, env bindings,
// flag bindings and the optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func (a *app) initViper(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return solerr.Errorf(solerr.CodeCLISetupFailure, "loading .env: %w", err)
	}

	v := a.v
	config.SetDefaults(v)
	config.BindEnv(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	switch {
	case cmd.Annotations[annotationCreatesConfig] == "true":
		// The file is about to be written.
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return solerr.Errorf(solerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	default:
		v.SetConfigName("solrock")
		v.SetConfigType("yaml")
		for _, p := range config.SearchPaths() {
			v.AddConfigPath(p)
		}
		// No config file is fine; defaults and env vars still apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return solerr.Errorf(solerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return solerr.Errorf(solerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	a.setupLogging(cmd.ErrOrStderr(), v.GetString("log.format"))
	config.WarnInsecurePermissions(v.ConfigFileUsed())
	return nil
}

// setupLogging installs the default slog logger at the configured level.
// --verbose forces debug. An unknown level is left for config validation
// to report.
func (a *app) setupLogging(w io.Writer, format string) {
	level, err := config.ParseLevel(a.v.GetString("log.level"))
	if err != nil {
		level = slog.LevelInfo
	}
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.level.Set(level)

	opts := &slog.HandlerOptions{Level: a.level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// loadConfig resolves keyring references and decodes the effective config.
func (a *app) loadConfig() (*config.Config, error) {
	if err := secrets.ResolveViper(a.v, secretStoreFactory()); err != nil {
		return nil, err
	}
	return config.FromViper(a.v)
}
