// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/secrets"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: `Store, list and delete API keys under the solrock service in the
operating system keyring. Reference a stored key from the config file as
keyring://solrock/<name>.`,
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a secret",
		Long:  "Store a secret. The value is read from stdin when it is not given as an argument.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSecretSet,
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored secret names",
		RunE:  runSecretList,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Value for %s: ", name)
		sc := bufio.NewScanner(cmd.InOrStdin())
		if sc.Scan() {
			value = sc.Text()
		}
		if err := sc.Err(); err != nil {
			return solerr.Errorf(solerr.CodeCLIInputInvalid, "reading secret value: %w", err)
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return solerr.Errorf(solerr.CodeSecretInvalidInput, "secret %q: value must not be empty", name)
	}

	if err := secretStoreFactory().Set(secrets.DefaultService, name, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret: %s (use keyring://%s/%s in config)\n", name, secrets.DefaultService, name)
	return nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.DefaultService)
	if err != nil {
		return solerr.Wrapf(err, solerr.CodeSecretStoreFailure, "listing secrets")
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := secretStoreFactory().Delete(secrets.DefaultService, name); err != nil {
		if solerr.HasCode(err, solerr.CodeSecretNotFound) {
			return solerr.Errorf(solerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return solerr.Wrapf(err, solerr.CodeSecretStoreFailure, "deleting secret %q", name)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
