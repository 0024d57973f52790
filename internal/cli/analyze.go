package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-client/internal/export"
	"github.com/pharmaguard-client/internal/logging"
	"github.com/pharmaguard-client/internal/service"
)

type analyzeOptions struct {
	file      string
	drugs     []string
	outDir    string
	report    bool
	asJSON    bool
	export    bool
	copy      bool
	noHistory bool
}

func newAnalyzeCommand(rt *runtime) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Submit a VCF file and drug list for analysis",
		Example: `  pharmaguard analyze --file patient.vcf --drugs codeine,warfarin
  pharmaguard analyze -f patient.vcf -d clopidogrel -d simvastatin --report --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, rt, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "variant file to analyze (.vcf, at most 5 MB)")
	flags.StringArrayVarP(&opts.drugs, "drugs", "d", nil, "comma-separated drug names; may be repeated")
	flags.StringVarP(&opts.outDir, "out", "o", "", "directory for exports and reports (default export.dir)")
	flags.BoolVar(&opts.report, "report", false, "also download the clinical PDF report")
	flags.BoolVar(&opts.asJSON, "json", false, "print the results as indented JSON instead of a table")
	flags.BoolVar(&opts.export, "export", false, "write each result and the full set as JSON files")
	flags.BoolVar(&opts.copy, "copy", false, "print the full result set as JSON for pasting elsewhere")
	flags.BoolVar(&opts.noHistory, "no-history", false, "do not record this submission in the history store")
	return cmd
}

func runAnalyze(cmd *cobra.Command, rt *runtime, opts *analyzeOptions) error {
	ctx := cmd.Context()
	outDir := opts.outDir
	if outDir == "" {
		outDir = rt.manager.GetConfig().Export.Dir
	}

	analysis, release, err := rt.analysisService(ctx)
	if err != nil {
		return err
	}
	defer release()

	var workflowOpts []service.WorkflowOption
	if !opts.noHistory {
		store, err := rt.openHistory(ctx)
		if err != nil {
			rt.logger.WithError(err).Warn("History unavailable, submission will not be recorded")
		} else if store != nil {
			defer closeHistory(rt, store)
			workflowOpts = append(workflowOpts, service.WithRecorder(store))
		}
	}

	workflow := service.NewSubmissionWorkflow(analysis, rt.logger, workflowOpts...)
	for _, raw := range opts.drugs {
		workflow.AddDrugs(raw)
	}
	if opts.file != "" {
		file, err := service.LoadFile(opts.file, nil)
		if err != nil {
			return err
		}
		if err := workflow.StageFile(file); err != nil {
			return err
		}
	}

	if err := workflow.Submit(ctx); err != nil {
		return err
	}

	results := workflow.Results()
	if opts.asJSON {
		data, err := export.Marshal(results.Results())
		if err != nil {
			return err
		}
		fmt.Fprintln(rt.out, string(data))
	} else {
		renderSummary(rt.out, results.Items(), results.Stats())
	}

	notifier := logging.NewLogNotifier(rt.logger, rt.errOut)
	if opts.export {
		exporter := export.NewExporter(outDir, notifier, nil)
		if _, err := exporter.DownloadEach(results.Results()); err != nil {
			return err
		}
		if _, err := exporter.DownloadAll(results.Results()); err != nil {
			return err
		}
	}

	if opts.copy {
		exporter := export.NewExporter(outDir, notifier, export.WriterClipboard{W: rt.out})
		if err := exporter.CopyAll(results.Results()); err != nil {
			return err
		}
	}

	if opts.report {
		if _, err := results.DownloadReport(ctx, rt.reportService(), outDir); err != nil {
			return err
		}
		notifier.Show(export.DownloadedMessage(service.ReportFileName))
	}
	return nil
}
