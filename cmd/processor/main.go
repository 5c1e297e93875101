// Command processor runs the watch-data filtering and aggregation pipeline:
// it reads per-user CSV tables, cleans and filters them, attaches the
// hierarchical statistics and quality scores, writes per-user outputs and
// merges the cross-user master tables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"polarcli/internal/config"
	"polarcli/internal/dataprocessing"
	"polarcli/internal/errors"
	"polarcli/internal/exporter"
	"polarcli/internal/infrastructure"
	"polarcli/internal/ingest"
	"polarcli/pkg/contracts"
	"polarcli/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", "input", "input directory with one subdirectory per user id")
	outDir := flag.String("out", "output", "output directory for filtered tables")
	format := flag.String("format", "", "output format: csv, excel, both or none (overrides config)")
	startDate := flag.String("start", "", "start date YYYY-MM-DD (overrides config)")
	endDate := flag.String("end", "", "end date YYYY-MM-DD, defaults to today (overrides config)")
	training := flag.String("training", "", "training mode: training_only, non_training_only or all (overrides config)")
	master := flag.Bool("master", true, "create cross-user master tables")
	workers := flag.Int("workers", 0, "number of users processed in parallel (overrides config)")
	version := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		os.Stdout.WriteString(contracts.GetVersionInfo().String() + "\n")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	// Flags win over environment and file configuration.
	if *startDate != "" {
		cfg.Filter.StartDate = *startDate
	}
	if *endDate != "" {
		cfg.Filter.EndDate = *endDate
	}
	if *training != "" {
		cfg.Filter.TrainingMode = *training
	}
	if *format != "" {
		cfg.Export.Format = *format
	}
	if *workers > 0 {
		cfg.Export.Workers = *workers
	}

	if err := run(context.Background(), logger, cfg, *inDir, *outDir, *master); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, inDir, outDir string, master bool) error {
	filterCfg, err := cfg.Filter.Resolve(time.Now())
	if err != nil {
		return err
	}
	outFormat, err := exporter.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	users, err := ingest.ListUserDirs(inDir)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return errors.NewNotFoundError("user directories in " + inDir)
	}

	logger.InfoContext(ctx, "starting pipeline run",
		slog.String("version", contracts.Version),
		slog.Int("users", len(users)),
		slog.String("training_mode", string(filterCfg.TrainingMode)),
		slog.String("format", string(outFormat)),
		slog.Int("workers", cfg.Export.Workers))

	summary := dataprocessing.NewRunSummary()
	logger = logger.With(slog.String("run_id", summary.RunID))

	reader := ingest.NewReader(logger)
	processor := dataprocessing.NewProcessor(logger)
	writer := exporter.NewTableWriter(logger, outDir, outFormat)

	// Per-user pipelines are independent; masters are merged afterwards at
	// the join point, so completion order never affects the result.
	var mu sync.Mutex
	perUser := make(map[domain.TableType]map[string]*domain.Table)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Export.Workers)
	for _, user := range users {
		user := user
		g.Go(func() error {
			processUser(gctx, logger, reader, processor, writer, summary,
				inDir, user, filterCfg, func(tt domain.TableType, table *domain.Table) {
					mu.Lock()
					defer mu.Unlock()
					if perUser[tt] == nil {
						perUser[tt] = make(map[string]*domain.Table)
					}
					perUser[tt][user] = table
				})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if master {
		merger := dataprocessing.NewMasterMerger(logger)
		for _, tt := range domain.AllTableTypes() {
			tables, ok := perUser[tt]
			if !ok {
				continue
			}
			merged, err := merger.Merge(ctx, tt, tables)
			if err != nil {
				logger.WarnContext(ctx, "master merge failed",
					slog.String("table", string(tt)),
					slog.String("error", err.Error()))
				continue
			}
			if err := writer.WriteMaster(ctx, merged); err != nil {
				return err
			}
		}
	}

	reportSummary(ctx, logger, summary)
	return nil
}

// processUser runs one user's pipeline end to end. Failures are recorded on
// the summary and never abort other users.
func processUser(ctx context.Context, logger *slog.Logger, reader *ingest.Reader,
	processor *dataprocessing.Processor, writer *exporter.TableWriter,
	summary *dataprocessing.RunSummary, inDir, user string,
	filterCfg config.FilterConfig, collect func(domain.TableType, *domain.Table)) {

	tables, failures := reader.ReadUserDir(ctx, filepath.Join(inDir, user), user)
	for tt, err := range failures {
		logger.WarnContext(ctx, "failed to read table",
			slog.String("user_id", user),
			slog.String("table", string(tt)),
			slog.String("error", err.Error()))
		summary.AddSkipped(dataprocessing.UnitIssue{UserID: user, Table: tt, Message: err.Error()})
	}

	assembled, err := processor.ProcessUser(ctx, user, tables, filterCfg, summary)
	if err != nil {
		logger.WarnContext(ctx, "user run failed",
			slog.String("user_id", user),
			slog.String("error", err.Error()))
		return
	}

	for tt, table := range assembled {
		if err := writer.WriteUserTable(ctx, user, table); err != nil {
			logger.WarnContext(ctx, "failed to write user table",
				slog.String("user_id", user),
				slog.String("table", string(tt)),
				slog.String("error", err.Error()))
			continue
		}
		collect(tt, table)
	}
}

// reportSummary logs the per-unit outcome of the run.
func reportSummary(ctx context.Context, logger *slog.Logger, summary *dataprocessing.RunSummary) {
	logger.InfoContext(ctx, "run complete",
		slog.Int("processed", summary.Processed()),
		slog.Int("skipped", len(summary.Skipped())),
		slog.Int("warnings", len(summary.Warnings())))
	for _, issue := range summary.Skipped() {
		logger.WarnContext(ctx, "skipped unit",
			slog.String("user_id", issue.UserID),
			slog.String("table", string(issue.Table)),
			slog.String("reason", issue.Message))
	}
	for _, issue := range summary.Warnings() {
		logger.InfoContext(ctx, "unit warning",
			slog.String("user_id", issue.UserID),
			slog.String("table", string(issue.Table)),
			slog.String("reason", issue.Message))
	}
}
