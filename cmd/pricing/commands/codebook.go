package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricing-engine/internal/evaluation"
	"pricing-engine/internal/features"
)

var (
	codebookDataPath string
	codebookOutPath  string
)

var codebookCmd = &cobra.Command{
	Use:   "codebook",
	Short: "Derive the categorical codebook from training data",
	Long: `Derives the sorted-label codes for product_id, brand, storage_variant
and category from the training CSV and saves them as YAML. Point
MODEL_CODEBOOK_PATH at the file so daily runs encode categories the way
the model was trained.`,
	RunE: runCodebook,
}

func init() {
	rootCmd.AddCommand(codebookCmd)

	codebookCmd.Flags().StringVar(&codebookDataPath, "data", "", "Training CSV (required)")
	codebookCmd.Flags().StringVar(&codebookOutPath, "out", "codebook.yaml", "Output file")
	_ = codebookCmd.MarkFlagRequired("data")
}

func runCodebook(cmd *cobra.Command, args []string) error {
	f, err := os.Open(codebookDataPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := evaluation.LoadCSV(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", codebookDataPath, err)
	}

	cb := features.DeriveCodebook(ds.Observations)
	if err := cb.Save(codebookOutPath); err != nil {
		return err
	}
	logger.Info("Codebook saved",
		zap.String("path", codebookOutPath),
		zap.Int("observations", len(ds.Observations)))
	return nil
}
