package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/dashgenie/internal/builder"
)

func newLayoutCmd(opts *options) *cobra.Command {
	var charts int
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the dashboard position document for N charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if charts < 1 {
				return errors.New("--charts must be at least 1")
			}
			ids := make([]int, charts)
			titles := make([]string, charts)
			for i := range ids {
				ids[i] = i + 1
				titles[i] = fmt.Sprintf("Chart %d", i+1)
			}
			return opts.write(cmd.OutOrStdout(), builder.Layout(ids, titles))
		},
	}
	cmd.Flags().IntVarP(&charts, "charts", "n", 1, "number of charts")
	return cmd
}
