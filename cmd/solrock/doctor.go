// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/config"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/server"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func newDoctorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, config file, provider credentials and whether a server is answering.",
		RunE:  a.runDoctor,
	}

	cmd.Flags().String("address", "", "server address to check (defaults to server.listen)")

	return cmd
}

type check struct {
	name string
	fn   func() string
}

func (a *app) runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	addr, _ := cmd.Flags().GetString("address")
	if addr == "" {
		addr = a.v.GetString("server.listen")
	}

	cfg, cfgErr := a.loadConfig()

	checks := []check{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(a.v.ConfigFileUsed(), cfgErr) }},
	}
	if cfg != nil {
		checks = append(checks, check{"Model", func() string { return cfg.Model }})
		for _, name := range referencedProviders(cfg) {
			checks = append(checks, check{"Provider " + name, func() string { return checkCredentials(cfg, name) }})
		}
		checks = append(checks, check{"Secret scanner", func() string { return cfg.Scanner.Mode }})
	}
	checks = append(checks, check{"Server", func() string { return checkServer(addr) }})

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("solrock %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(file string, loadErr error) string {
	var status string
	if file != "" {
		status = fmt.Sprintf("loaded from %s", file)
		if config.WarnInsecurePermissions(file) {
			status += " (readable by other users, chmod 600 recommended)"
		}
	} else {
		status = "using defaults (no config file found)"
	}
	if loadErr != nil {
		status += fmt.Sprintf("; invalid: %s", loadErr)
	}
	return status
}

func checkCredentials(cfg *config.Config, name string) string {
	if cfg.Provider(name).APIKey != "" {
		return "API key configured"
	}
	hint := "providers." + name + ".api_key"
	if env := config.CredentialEnv(name); env != "" {
		hint = env + " or " + hint
	}
	return "missing API key (set " + hint + ")"
}

func checkServer(addr string) string {
	var body server.HealthBody
	if err := newServerClient(addr).getJSON("/health", &body); err != nil {
		if solerr.HasCode(err, solerr.CodeCLINotRunning) {
			return fmt.Sprintf("not running at %s (run 'solrock serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}

	status := fmt.Sprintf("%s at %s", body.Status, addr)
	var down []string
	for name, p := range body.Providers {
		if !p.Available {
			down = append(down, name)
		}
	}
	if len(down) > 0 {
		slices.Sort(down)
		status += " (cooling down: " + strings.Join(down, ", ") + ")"
	}
	return status
}
