package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Fetch and print the administrator's dataset catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.fetchCatalog(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch catalog: %w", err)
			}
			return opts.write(cmd.OutOrStdout(), catalog)
		},
	}
}
