package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricing-engine/internal/evaluation"
)

var (
	evalDataPath string
	evalCutoff   string
	evalOutPath  string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the model against a labelled history",
	Long: `Loads a historical CSV, builds features with incomplete-history rows
dropped, splits on the cutoff date and reports train/test R², MAE and RMSE.

Example:
  go run ./cmd/pricing evaluate --data data/dynamic_pricing_dataset.csv --cutoff 2024-10-01`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalDataPath, "data", "", "Labelled history CSV (required)")
	evaluateCmd.Flags().StringVar(&evalCutoff, "cutoff", evaluation.DefaultCutoff.Format("2006-01-02"), "First day of the test split")
	evaluateCmd.Flags().StringVar(&evalOutPath, "out", "", "Write the markdown report here instead of stdout")
	_ = evaluateCmd.MarkFlagRequired("data")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cutoff, err := time.Parse("2006-01-02", evalCutoff)
	if err != nil {
		return fmt.Errorf("invalid --cutoff: %w", err)
	}

	f, err := os.Open(evalDataPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := evaluation.LoadCSV(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", evalDataPath, err)
	}
	model, cb, err := loadModel()
	if err != nil {
		return err
	}

	report, err := evaluation.Evaluate(context.Background(), ds, model, evaluation.Options{Cutoff: cutoff, Codebook: cb})
	if err != nil {
		return err
	}
	logger.Info("Evaluation complete",
		zap.Float64("train_r2", report.TrainR2),
		zap.Float64("test_r2", report.TestR2),
		zap.Bool("overfitting", report.Overfitting))

	md := evaluation.RenderMarkdown(report)
	if evalOutPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	return os.WriteFile(evalOutPath, []byte(md), 0o644)
}
