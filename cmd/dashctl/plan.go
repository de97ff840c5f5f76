package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/dashgenie/internal/plan"
)

func newPlanCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work with build plans",
	}
	cmd.AddCommand(newPlanCheckCmd(opts))
	return cmd
}

func newPlanCheckCmd(opts *options) *cobra.Command {
	var (
		file       string
		datasetIDs []int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Extract, normalize and validate a saved model response",
		Long: "Runs a model response through the same plan pipeline the service uses and prints the\n" +
			"normalized plan. Without --dataset-ids the live catalog decides which datasets are allowed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			authorized := make(map[int]struct{}, len(datasetIDs))
			for _, id := range datasetIDs {
				authorized[id] = struct{}{}
			}
			if len(datasetIDs) == 0 {
				catalog, err := opts.fetchCatalog(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetch catalog: %w", err)
				}
				authorized = catalog.IDs()
			}

			p, err := plan.Parse(text, authorized)
			if err != nil {
				return fmt.Errorf("invalid plan: %w", err)
			}
			return opts.write(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file holding the model response (- for stdin)")
	cmd.Flags().IntSliceVar(&datasetIDs, "dataset-ids", nil, "authorized dataset ids (default: live catalog)")
	return cmd
}

func readInput(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read plan: %w", err)
	}
	return string(data), nil
}
