// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// groupOrOtherRead covers the group and world read bits.
const groupOrOtherRead fs.FileMode = 0o044

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or others, since it may hold API keys. It never fails.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}
	if info.Mode().Perm()&groupOrOtherRead == 0 {
		return false
	}
	slog.Warn("config file has insecure permissions, API keys may be readable by other users",
		"path", path,
		"mode", info.Mode().Perm(),
		"recommended", "0600")
	return true
}
