package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"survkit/adapters/stats/engine"
	"survkit/app"
	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/internal/config"
	"survkit/internal/testkit"
)

func main() {
	// Optional .env for engine tuning; absence is not an error.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "survkit",
		Short: "survkit CLI for running survival-analysis batch sweeps",
	}

	rootCmd.AddCommand(
		newSweepCmd(),
		newSubsetsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSweepCmd() *cobra.Command {
	var subjects, covariates int
	var seed int64
	var primary string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the covariate batch pipeline over a synthetic cohort",
		Long: `Generate a deterministic synthetic cohort, median-split every candidate
covariate, cross each split with the primary covariate's split, and print
the pairwise comparison table as JSON.

Example: survkit sweep --subjects 400 --covariates 10 --primary GENE_0001 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			genCfg := testkit.DefaultCohortConfig()
			genCfg.SubjectCount = subjects
			genCfg.CovariateCount = covariates
			genCfg.Seed = seed

			c, err := testkit.NewCohortGenerator(genCfg).LoadCohort(cmd.Context())
			if err != nil {
				return err
			}

			primaryKey := core.CovariateKey(primary)
			candidates := make([]core.CovariateKey, 0, covariates)
			for i := 0; i < covariates; i++ {
				if key := testkit.CovariateName(i); key != primaryKey {
					candidates = append(candidates, key)
				}
			}

			result, err := newService(cfg).RunBatch(cmd.Context(), app.BatchRequest{
				Cohort:     c,
				Primary:    primaryKey,
				Candidates: candidates,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVar(&subjects, "subjects", 400, "number of synthetic subjects")
	cmd.Flags().IntVar(&covariates, "covariates", 10, "number of synthetic covariates")
	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().StringVar(&primary, "primary", string(testkit.CovariateName(0)), "primary covariate key")
	return cmd
}

func newSubsetsCmd() *cobra.Command {
	var subjects int
	var seed int64
	var covariate string

	cmd := &cobra.Command{
		Use:   "subsets",
		Short: "Run the two-group pipeline across clinical subsets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			genCfg := testkit.DefaultCohortConfig()
			genCfg.SubjectCount = subjects
			genCfg.Seed = seed

			c, err := testkit.NewCohortGenerator(genCfg).LoadCohort(cmd.Context())
			if err != nil {
				return err
			}

			result, err := newService(cfg).RunSubsetBatch(cmd.Context(), app.SubsetBatchRequest{
				Cohort:    c,
				Covariate: core.CovariateKey(covariate),
				Subsets: []app.SubsetSpec{
					{Name: "all", Filter: func(r cohort.SubjectRecord) bool { return true }},
					{Name: "sex=M", Filter: categoricalIs("sex", "M")},
					{Name: "sex=F", Filter: categoricalIs("sex", "F")},
					{Name: "stage=II", Filter: categoricalIs("stage", "II")},
					{Name: "stage=III", Filter: categoricalIs("stage", "III")},
				},
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().IntVar(&subjects, "subjects", 400, "number of synthetic subjects")
	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().StringVar(&covariate, "covariate", string(testkit.CovariateName(0)), "covariate to median-split")
	return cmd
}

func newService(cfg *config.Config) *app.BatchService {
	engineCfg := engine.Config{
		CoxTolerance:     cfg.Cox.Tolerance,
		CoxMaxIterations: cfg.Cox.MaxIterations,
		MinEvents:        cfg.Batch.MinEvents,
	}
	return app.NewBatchService(engineCfg, testkit.NewInMemoryResultSink(), cfg.Batch.MaxParallel)
}

func categoricalIs(key core.CovariateKey, want string) func(cohort.SubjectRecord) bool {
	return func(r cohort.SubjectRecord) bool {
		v, ok := r.Covariate(key)
		if !ok {
			return false
		}
		got, ok := v.Category()
		return ok && got == want
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
