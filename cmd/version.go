// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"smarteco/cli/internal/guard"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Annotations: map[string]string{
			annotationArea:      string(guard.Public),
			annotationNoSession: "",
		},
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smarteco %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
