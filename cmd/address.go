// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"smarteco/cli/internal/geocode"
	"smarteco/cli/internal/guard"
)

func newAddressCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "address <query>",
		Short: "Suggest addresses matching a query",
		Long: `The address command looks up places on OpenStreetMap Nominatim, the same
service "smarteco trips create" uses for address suggestions.`,
		Annotations: map[string]string{
			annotationArea:      string(guard.Public),
			annotationNoSession: "",
		},
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			found, err := withSpinner(a.errOut, "Searching...", func() ([]geocode.Suggestion, error) {
				return a.geo.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			})
			if err != nil {
				return during("looking up addresses", err)
			}
			a.render.Suggestions(suggestionNames(found))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", geocode.DefaultLimit, "maximum number of suggestions")
	return cmd
}

func suggestionNames(found []geocode.Suggestion) []string {
	names := make([]string, 0, len(found))
	for _, s := range found {
		names = append(names, s.DisplayName)
	}
	return names
}
