package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashureev/dashgenie/internal/config"
	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/superset"
)

type catalogFetcher func(ctx context.Context) (domain.Catalog, error)

type options struct {
	envFile      string
	format       string
	verbose      bool
	fetchCatalog catalogFetcher
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(liveCatalog)
}

func buildRootCmd(fetch catalogFetcher) *cobra.Command {
	opts := &options{fetchCatalog: fetch}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Inspect the dataset catalog and check dashboard build plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			switch opts.format {
			case "yaml", "json":
				return nil
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", opts.format)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with service configuration")
	root.PersistentFlags().StringVarP(&opts.format, "format", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCatalogCmd(opts), newPlanCmd(opts), newLayoutCmd(opts))
	return root
}

// liveCatalog fetches the admin catalog using the service configuration.
func liveCatalog(ctx context.Context) (domain.Catalog, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	client, err := superset.New(superset.Config{
		BaseURL:  cfg.Superset.URL,
		Username: cfg.Superset.Username,
		Password: cfg.Superset.Password,
		Timeout:  cfg.Superset.Timeout,
	}, slog.Default())
	if err != nil {
		return nil, err
	}
	return client.FetchCatalog(ctx)
}

func (o *options) write(w io.Writer, v any) error {
	if o.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
