// Package main provides the specmatch command line tool for parsing, ranking,
// training and predicting against a catalog file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/infrastructure/catalog"
	"github.com/techcompare/specmatch/internal/observability"
	"github.com/techcompare/specmatch/internal/usecase"
)

// options are the global flags shared by every subcommand
type options struct {
	catalogFile string
	outputJSON  bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "specctl",
		Short: "Parse phone specifications, rank a catalog and train price models",
		Long: `specctl works directly on a YAML product catalog.

Use this tool to:
- Parse free-text specifications into structured attributes
- Rank catalog products against a specification
- Train the price model roster and inspect its metrics
- Predict the price of a described phone

All commands support --json for automation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.catalogFile, "catalog", "data/catalog.yaml", "product catalog file")
	cmd.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(newParseCmd(opts))
	cmd.AddCommand(newRankCmd(opts))
	cmd.AddCommand(newTrainCmd(opts))
	cmd.AddCommand(newPredictCmd(opts))
	return cmd
}

// logger writes console logs to stderr, warnings only unless --verbose
func (o *options) logger(cmd *cobra.Command) zerolog.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      cmd.ErrOrStderr(),
		ServiceName: "specctl",
	})
}

// engine wires an engine over the catalog file without cache or prediction sink.
// store may be nil.
func (o *options) engine(cmd *cobra.Command, selector usecase.ModelSelectorConfig, store domain.ModelStore) *usecase.Engine {
	logger := o.logger(cmd)
	catalogService := usecase.NewCatalogService(catalog.NewFileRepository(o.catalogFile), nil, usecase.CatalogServiceConfig{}, logger)
	return usecase.NewEngine(usecase.NewModelSelector(selector, logger), catalogService, nil, store, usecase.EngineConfig{}, logger)
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
