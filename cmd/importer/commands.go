package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"poetry-search/internal/application/ingest"
	"poetry-search/internal/wire"
	apperrors "poetry-search/pkg/errors"
	"poetry-search/pkg/tracer"
)

var duplicateLimit int

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import all unprocessed corpus files",
	Long: `Discovers every .json file under the corpus root, skips files recorded in the
checkpoint log, and loads the rest in transactional batches with sentence embeddings.
Interrupting the run is safe: completed files are never imported twice.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many corpus files remain to be imported",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Summarize imported data and report duplicate poems",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&duplicateLimit, "duplicates", 20, "maximum number of duplicate groups to list")
	rootCmd.AddCommand(importCmd, statusCmd, verifyCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIngest(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "invalid ingest configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-importer",
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	app, cleanup, err := wire.InitializeImporter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize importer: %w", err)
	}
	defer cleanup()

	report, err := app.Importer.Run(ctx)
	if err != nil {
		return err
	}
	if err := printReport(cmd.OutOrStdout(), report, app.Checkpoint.Len()); err != nil {
		return err
	}
	if report.FilesFailed > 0 {
		return fmt.Errorf("%d files failed, rerun to retry them", report.FilesFailed)
	}
	if report.Interrupted {
		return errors.New("import interrupted, rerun to resume")
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Ingest.DataPath == "" {
		return errors.New("ingest.data_path is required")
	}

	cp, err := ingest.OpenCheckpoint(cfg.Ingest.CheckpointFile)
	if err != nil {
		return err
	}
	im := ingest.NewImporter(ingest.Options{DataPath: cfg.Ingest.DataPath}, nil, nil, cp)

	status, err := im.Status(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "files: %d total, %d processed, %d remaining\n",
		status.FilesTotal, status.FilesProcessed, status.FilesRemaining)
	if len(status.RemainingByDir) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIRECTORY\tREMAINING")
	for _, d := range status.RemainingByDir {
		fmt.Fprintf(w, "%s\t%d\n", d.Dir, d.Files)
	}
	return w.Flush()
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stats, cleanup, err := wire.InitializeStats(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer cleanup()

	s, err := stats.Collect(cmd.Context(), duplicateLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), s)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dynasties: %d\nauthors: %d\npoems: %d\nlines: %d (embedded %d)\n",
		s.Dynasties, s.Authors, s.Poems, s.Lines, s.LinesEmbedded)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nDYNASTY\tPOEMS")
	for _, d := range s.PoemsByDynasty {
		fmt.Fprintf(w, "%s\t%d\n", d.Dynasty, d.Poems)
	}
	if len(s.DuplicateGroups) > 0 {
		fmt.Fprintln(w, "\nDUPLICATE TITLE\tAUTHOR ID\tCOPIES")
		for _, g := range s.DuplicateGroups {
			fmt.Fprintf(w, "%s\t%d\t%d\n", g.Title, g.AuthorID, g.Copies)
		}
	}
	return w.Flush()
}

// printReport 输出本次导入报告，recorded 为检查点中已完成的文件总数
func printReport(out io.Writer, r *ingest.RunReport, recorded int) error {
	if jsonOutput {
		return writeJSON(out, struct {
			*ingest.RunReport
			CheckpointFiles int `json:"checkpoint_files"`
		}{r, recorded})
	}
	fmt.Fprintf(out, "files: %d total, %d skipped, %d processed, %d empty, %d failed\n",
		r.FilesTotal, r.FilesSkipped, r.FilesProcessed, r.FilesEmpty, r.FilesFailed)
	fmt.Fprintf(out, "poems: %d, lines: %d, dropped sentences: %d\n", r.Poems, r.Lines, r.DroppedSentences)
	fmt.Fprintf(out, "duration: %s\n", r.Duration)
	fmt.Fprintf(out, "checkpoint: %d files recorded\n", recorded)
	for _, f := range r.FailedFiles {
		fmt.Fprintf(out, "failed: %s\n", f)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
