package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/common"
	"snapscreen/internal/dashboard"
	"snapscreen/internal/observability"
	"snapscreen/internal/types"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

var scanCmd = &cobra.Command{
	Use:   "scan [resume-file] [job-description-file]",
	Short: "Scan a resume against a job description",
	Long: `Scan a plain-text resume against a job description, store the result and
print it. The scan covers searchability, formatting and recruiter tips and
counts the hard and soft skills the job asks for.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return applyFormatDefault(cmd, &scanFlags.CommandConfig)
	},
	RunE: runScan,
}

var scanFlags struct {
	common.CommandConfig
	title, company string
	noSave         bool
}

func init() {
	addOutputFlags(scanCmd, &scanFlags.CommandConfig)
	scanCmd.Flags().StringVar(&scanFlags.title, "title", "", "Scan title (default: derived from the resume file name)")
	scanCmd.Flags().StringVar(&scanFlags.company, "company", "", "Company the application is for")
	scanCmd.Flags().BoolVar(&scanFlags.noSave, "no-save", false, "Print the result without storing it")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	svc := &services{logger: logger}
	defer svc.Close()
	if err := svc.openAnalyzer(cfg); err != nil {
		return err
	}
	if !scanFlags.noSave {
		if err := svc.openStore(ctx, cfg); err != nil {
			return err
		}
	}

	om, flush := newObservability(ctx, cfg, logger)
	defer flush()
	metrics := om.GetMetrics()

	createInput := func(files, contents []string) (types.ScanInput, error) {
		if len(contents) != 2 {
			return types.ScanInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return types.ScanInput{
			Title:          scanFlags.title,
			Company:        scanFlags.company,
			FileName:       filepath.Base(files[0]),
			ResumeText:     contents[0],
			JobDescription: contents[1],
		}, nil
	}

	logDetails := func(input types.ScanInput, cc common.CommandConfig) {
		logger.Info("Starting resume scan",
			"analyzer", svc.Analyzer.Name(),
			"resume_chars", len(input.ResumeText),
			"job_chars", len(input.JobDescription),
			"output_format", cc.OutputFormat)
	}

	scanOperation := func(ctx context.Context, input types.ScanInput) (*dashboard.DetailView, *analyzer.TokenUsage, error) {
		var detail *types.ScanDetail
		var usage *analyzer.TokenUsage
		err := metrics.TrackAnalysis(ctx, svc.Analyzer.Name(), func(ctx context.Context) *observability.AnalysisResult {
			d, u, err := svc.Analyzer.Analyze(ctx, input)
			detail, usage = d, u
			result := &observability.AnalysisResult{Error: err, TokenUsage: u}
			if d != nil {
				result.Score = d.Score
			}
			return result
		})
		if err != nil {
			return nil, nil, err
		}
		if svc.Scans != nil {
			err := svc.Scans.Save(ctx, detail)
			metrics.RecordBusinessMetric(ctx, observability.MetricScanCreated, err == nil,
				attribute.String("source", "cli"))
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Scan stored", "scan_id", detail.ID, "score", detail.Score)
		}
		return dashboard.NewDetailView(detail), usage, nil
	}

	scanFlags.Out = cmd.OutOrStdout()
	if err := common.RunFileCommand(ctx, logger, scanFlags.CommandConfig, args, createInput, scanOperation, logDetails); err != nil {
		return fmt.Errorf("failed to scan resume: %w", err)
	}
	return nil
}
