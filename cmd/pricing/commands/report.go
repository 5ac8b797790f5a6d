package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricing-engine/internal/reporting"
)

var (
	reportOutPath string
	reportCSVPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the sales and recommendation report",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOutPath, "out", "", "Write markdown here instead of stdout")
	reportCmd.Flags().StringVar(&reportCSVPath, "csv", "", "Also write recommendations as CSV")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := reporting.NewGenerator(s.reader).Generate(ctx)
	if err != nil {
		return err
	}

	if reportCSVPath != "" {
		if err := os.WriteFile(reportCSVPath, []byte(reporting.RenderCSV(report.Recommendations)), 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	md := reporting.RenderMarkdown(report)
	if reportOutPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	return os.WriteFile(reportOutPath, []byte(md), 0o644)
}
