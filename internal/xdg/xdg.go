// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg provides helpers to resolve XDG Base Directory paths for smarteco.
// Configuration lives under the config dir; the encrypted-file token keyring
// lives under the state dir when no OS keyring is available.
//
// The package falls back to traditional locations when XDG environment
// variables are not set and creates directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "smarteco"

// ConfigDir returns the XDG config directory for smarteco.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/smarteco when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for smarteco.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/smarteco when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeFallback string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeFallback)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
