package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/internal/export"
	"github.com/pharmaguard-client/internal/logging"
	"github.com/pharmaguard-client/internal/service"
)

type reportOptions struct {
	input     string
	historyID string
	outDir    string
}

func newReportCommand(rt *runtime) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the clinical PDF report for saved results",
		Long: `report sends previously obtained results to the report service and writes
clinical_report.pdf. Results come from an exported JSON file (a single
result or an array) or from a recorded submission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, rt, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON file holding one result or an array of results")
	cmd.Flags().StringVar(&opts.historyID, "history-id", "", "recorded submission to report on")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default export.dir)")
	cmd.MarkFlagsMutuallyExclusive("input", "history-id")
	cmd.MarkFlagsOneRequired("input", "history-id")
	return cmd
}

func runReport(cmd *cobra.Command, rt *runtime, opts *reportOptions) error {
	ctx := cmd.Context()
	outDir := opts.outDir
	if outDir == "" {
		outDir = rt.manager.GetConfig().Export.Dir
	}

	var results []domain.AnalysisResult
	if opts.input != "" {
		data, err := os.ReadFile(opts.input)
		if err != nil {
			return fmt.Errorf("failed to read results: %w", err)
		}
		results, err = domain.NormalizeResults(data)
		if err != nil {
			return fmt.Errorf("failed to decode results: %w", err)
		}
	} else {
		store, err := rt.openHistory(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("history is disabled")
		}
		defer closeHistory(rt, store)
		record, err := store.Get(ctx, opts.historyID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("no recorded submission with id %s", opts.historyID)
		}
		results = record.Results
	}

	set := service.NewResultSet()
	set.Publish(results)
	if _, err := set.DownloadReport(ctx, rt.reportService(), outDir); err != nil {
		return err
	}
	logging.NewLogNotifier(rt.logger, rt.errOut).Show(export.DownloadedMessage(service.ReportFileName))
	return nil
}
