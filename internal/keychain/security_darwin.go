// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// securityBackend stores items with the macOS `security` command.
// Items use ServiceName as the account and the key as the service.
type securityBackend struct {
	log *slog.Logger
}

func newSecurityBackend(log *slog.Logger) (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{log: log}, nil
}

func (s *securityBackend) Set(key, value string) error {
	s.log.Debug("keychain set", slog.String("key", key), slog.Int("len", len(value)))

	// -U updates in place, but a stale item with different attributes still blocks the add.
	_ = s.Delete(key)

	cmd := exec.Command("security", "add-generic-password",
		"-a", ServiceName,
		"-s", key,
		"-w", value,
		"-U",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("store %q in keychain: %s: %w", key, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", ServiceName,
		"-s", key,
		"-w",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "could not be found") {
			s.log.Debug("keychain item not found", slog.String("key", key))
			return "", errNotFound
		}
		return "", fmt.Errorf("read keychain: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	result := strings.TrimSpace(stdout.String())
	if result == "" {
		return "", errNotFound
	}
	return result, nil
}

func (s *securityBackend) Delete(key string) error {
	cmd := exec.Command("security", "delete-generic-password",
		"-a", ServiceName,
		"-s", key,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "could not be found") {
			return nil
		}
		return fmt.Errorf("delete from keychain: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
