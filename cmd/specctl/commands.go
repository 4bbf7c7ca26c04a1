package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/infrastructure/catalog"
	"github.com/techcompare/specmatch/internal/infrastructure/sqlite"
	"github.com/techcompare/specmatch/internal/usecase"
)

// newParseCmd creates the parse subcommand.
func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <specification>",
		Short: "Extract structured attributes from a free-text specification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := usecase.NewSpecParser().Parse(strings.Join(args, " "))
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), spec)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, key := range spec.Keys() {
				if key == string(domain.AttrBrand) {
					fmt.Fprintf(w, "%s\t%s\n", key, spec.Brand)
					continue
				}
				v, _ := spec.Get(domain.Attribute(key))
				fmt.Fprintf(w, "%s\t%g\n", key, v)
			}
			return w.Flush()
		},
	}
}

// newRankCmd creates the rank subcommand.
func newRankCmd(opts *options) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "rank <specification>",
		Short: "Rank catalog products against a specification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := catalog.NewFileRepository(opts.catalogFile).ListProducts(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			matches := usecase.NewSimilarityRanker().Rank(query, products, topK)
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), matches)
			}

			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching products")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tBRAND\tMODEL\tPRICE\tSCORE\tMATCHED")
			for i, m := range matches {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.3f\t%s\n",
					i+1, m.Product.ID, m.Product.Brand, m.Product.Name, m.Product.Price,
					m.SimilarityScore, strings.Join(m.MatchedFeatures, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "maximum number of results, 0 for all")
	return cmd
}

// trainFlags are the model selection settings exposed on train and predict
type trainFlags struct {
	samples    int
	minValid   int
	estimators int
	seed       uint64
	timeout    time.Duration
	store      string
}

func (f *trainFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.samples, "samples", 25000, "augment the catalog up to this many training rows")
	cmd.Flags().IntVar(&f.minValid, "min-valid", 1000, "minimum valid training rows")
	cmd.Flags().IntVar(&f.estimators, "estimators", 100, "trees per forest and stages per boosting model")
	cmd.Flags().Uint64Var(&f.seed, "seed", 42, "random seed")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Minute, "training timeout")
	cmd.Flags().StringVar(&f.store, "store", "", "sqlite model store path; empty disables snapshots")
}

func (f *trainFlags) selectorConfig() usecase.ModelSelectorConfig {
	return usecase.ModelSelectorConfig{
		MinTrainingSamples: f.samples,
		MinValidSamples:    f.minValid,
		Seed:               f.seed,
		Estimators:         f.estimators,
	}
}

// withEngine opens the optional model store, builds an engine and runs fn under the training timeout
func (f *trainFlags) withEngine(cmd *cobra.Command, opts *options, fn func(context.Context, *usecase.Engine) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	var store domain.ModelStore
	if f.store != "" {
		ms, err := sqlite.NewModelStore(f.store, 0, opts.logger(cmd))
		if err != nil {
			return fmt.Errorf("open model store: %w", err)
		}
		defer ms.Close()
		store = ms
	}
	return fn(ctx, opts.engine(cmd, f.selectorConfig(), store))
}

// newTrainCmd creates the train subcommand.
func newTrainCmd(opts *options) *cobra.Command {
	flags := &trainFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model roster on the catalog and report per-model metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withEngine(cmd, opts, func(ctx context.Context, engine *usecase.Engine) error {
				set, err := engine.Train(ctx)
				if err != nil {
					return err
				}
				info := set.Info()
				if opts.outputJSON {
					return writeJSON(cmd.OutOrStdout(), info)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "epoch %s: best model %s (%d rows, %d synthetic)\n\n",
					info.EpochID, info.BestModel, info.TrainingSamples, info.SyntheticSamples)

				names := make([]string, 0, len(info.ModelsPerformance))
				for name := range info.ModelsPerformance {
					names = append(names, name)
				}
				sort.Slice(names, func(i, j int) bool {
					return info.ModelsPerformance[names[i]].CompositeScore > info.ModelsPerformance[names[j]].CompositeScore
				})

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MODEL\tTEST R2\tTEST MAE\tTEST MAPE\tCV MEAN\tCOMPOSITE")
				for _, name := range names {
					m := info.ModelsPerformance[name]
					fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.2f%%\t%.4f\t%.4f\n",
						name, m.TestR2, m.TestMAE, m.TestMAPE, m.CVScoreMean, m.CompositeScore)
				}
				return w.Flush()
			})
		},
	}

	flags.register(cmd)
	return cmd
}

// newPredictCmd creates the predict subcommand.
func newPredictCmd(opts *options) *cobra.Command {
	var (
		flags = &trainFlags{}
		req   domain.PredictionRequest
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the price of a described phone",
		Long: `Predict trains on the catalog, or restores the latest snapshot when --store
points at a model store, and then estimates the price of the described phone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withEngine(cmd, opts, func(ctx context.Context, engine *usecase.Engine) error {
				if err := engine.LoadOrTrain(ctx); err != nil {
					return err
				}
				result, err := engine.PredictPrice(ctx, &req)
				if err != nil {
					return err
				}
				if opts.outputJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "$%.2f (confidence %.1f%%, model %s)\n",
					result.PredictedPrice, result.ConfidenceScore, result.Model)
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&req.Brand, "brand", "", "brand name")
	cmd.Flags().StringVar(&req.DisplaySize, "display", "", "display size, e.g. 6.1 inches")
	cmd.Flags().StringVar(&req.RAM, "ram", "", "memory, e.g. 8GB")
	cmd.Flags().StringVar(&req.Storage, "storage", "", "storage, e.g. 256GB")
	cmd.Flags().StringVar(&req.Processor, "processor", "", "processor name")
	cmd.Flags().StringVar(&req.Camera, "camera", "", "main camera, e.g. 50MP")
	cmd.Flags().StringVar(&req.Battery, "battery", "", "battery, e.g. 4500mAh")
	cmd.Flags().Float64Var(&req.Rating, "rating", 0, "user rating 1-5")
	cmd.Flags().IntVar(&req.Reviews, "reviews", 0, "review count")
	return cmd
}
