// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the config file",
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the commented default config",
		Long:        "Write the commented default config to --config, or to ~/.config/solrock/solrock.yaml.",
		Annotations: map[string]string{annotationCreatesConfig: "true"},
		RunE:        runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file and environment
overrides are merged. Literal API keys are masked and keyring references
are shown unresolved.`,
		RunE: a.runConfigShow,
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := configPathForWrite(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	if force {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return solerr.Errorf(solerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
		}
		if err := os.WriteFile(path, config.DefaultConfigYAML, 0o600); err != nil {
			return solerr.Errorf(solerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(out, "Wrote default config to %s\n", path)
		return nil
	}

	written, err := config.Bootstrap(path)
	if err != nil {
		return err
	}
	if !written {
		return solerr.Errorf(solerr.CodeConfigAlreadyExists,
			"config file already exists at %s; use --force to overwrite", path)
	}
	_, _ = fmt.Fprintf(out, "Wrote default config to %s\n", path)
	return nil
}

func (a *app) runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	body, err := cfg.RenderYAML()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.File != "" {
		_, _ = fmt.Fprintf(out, "# source: %s\n", cfg.File)
	} else {
		_, _ = fmt.Fprintln(out, "# source: defaults and environment")
	}
	_, err = out.Write(body)
	return err
}
