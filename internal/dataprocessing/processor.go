package dataprocessing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"polarcli/internal/config"
	"polarcli/internal/errors"
	"polarcli/pkg/contracts/domain"
)

// UserTables maps table types to one user's tables.
type UserTables map[domain.TableType]*domain.Table

// UnitIssue attributes an error or warning to one (user, table) unit.
type UnitIssue struct {
	UserID  string
	Table   domain.TableType
	Message string
}

// RunSummary collects the per-unit issues of a run. It is safe for
// concurrent use so per-user pipelines can run in parallel.
type RunSummary struct {
	RunID string

	mu        sync.Mutex
	processed int
	skipped   []UnitIssue
	warnings  []UnitIssue
}

// NewRunSummary creates a summary with a fresh run identifier.
func NewRunSummary() *RunSummary {
	return &RunSummary{RunID: uuid.NewString()}
}

func (s *RunSummary) addProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
}

// AddSkipped records a skipped (user, table) unit. Exported so that the
// ingest layer can attribute read failures to the same summary.
func (s *RunSummary) AddSkipped(issue UnitIssue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = append(s.skipped, issue)
}

func (s *RunSummary) addWarning(issue UnitIssue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, issue)
}

// Processed returns the number of successfully assembled (user, table) units.
func (s *RunSummary) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// Skipped returns the units skipped due to errors.
func (s *RunSummary) Skipped() []UnitIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UnitIssue(nil), s.skipped...)
}

// Warnings returns the non-fatal per-unit warnings.
func (s *RunSummary) Warnings() []UnitIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UnitIssue(nil), s.warnings...)
}

// Processor runs the full per-user pipeline: clean, date/training filter,
// hierarchical aggregation, quality scoring and assembly for every table
// type the user has. Each user's run is independent; callers may process
// users in parallel.
type Processor struct {
	logger     *slog.Logger
	cleaner    *Cleaner
	filter     *TemporalFilter
	aggregator *Aggregator
	quality    *QualityScorer
	assembler  *Assembler
}

// NewProcessor creates a processor wired with all pipeline stages.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		cleaner:    NewCleaner(logger),
		filter:     NewTemporalFilter(logger),
		aggregator: NewAggregator(logger),
		quality:    NewQualityScorer(logger),
		assembler:  NewAssembler(logger),
	}
}

// ProcessUser transforms one user's ingested tables into assembled output
// tables. Schema errors skip the affected table and continue; a missing
// training_summary under a training filter mode is a configuration error
// fatal for this user only. All issues are recorded on the summary.
func (p *Processor) ProcessUser(ctx context.Context, userID string, tables UserTables,
	cfg config.FilterConfig, summary *RunSummary) (UserTables, error) {

	log := p.logger.With(slog.String("user_id", userID))
	log.InfoContext(ctx, "processing user",
		slog.Int("tables", len(tables)),
		slog.String("training_mode", string(cfg.TrainingMode)))

	var sessions []domain.TrainingSession
	out := make(UserTables, len(tables))

	// training_summary goes first: its date-filtered intervals drive the
	// training partition of every other table.
	training, hasTraining := tables[domain.TableTrainingSummary]
	if cfg.TrainingMode != config.TrainingAll && !hasTraining {
		err := errors.NewConfigError(
			"training filtering requested but no training_summary table is present", nil).
			WithContext("user_id", userID)
		summary.AddSkipped(UnitIssue{UserID: userID, Table: domain.TableTrainingSummary, Message: err.Error()})
		return nil, err
	}
	if hasTraining {
		assembled, extracted, err := p.processTrainingSummary(ctx, userID, training, cfg, summary)
		switch {
		case err == nil:
			out[domain.TableTrainingSummary] = assembled
			sessions = extracted
		case cfg.TrainingMode != config.TrainingAll:
			// An unusable partition source must not silently default to an
			// empty session list; that would misclassify every other table.
			return nil, err
		}
	}

	for _, tt := range domain.AllTableTypes() {
		if tt == domain.TableTrainingSummary {
			continue
		}
		table, ok := tables[tt]
		if !ok {
			continue
		}
		assembled, err := p.processTable(ctx, userID, table, cfg, sessions, summary)
		if err != nil {
			continue
		}
		out[tt] = assembled
	}

	return out, nil
}

// processTrainingSummary runs the training_summary pipeline and extracts the
// session intervals from the date-filtered rows.
func (p *Processor) processTrainingSummary(ctx context.Context, userID string, table *domain.Table,
	cfg config.FilterConfig, summary *RunSummary) (*domain.Table, []domain.TrainingSession, error) {

	// Under a training filter mode every session row must carry parseable
	// start/stop bounds. The generic filter would just drop an unparseable
	// row, silently removing its interval from the partition.
	if cfg.TrainingMode != config.TrainingAll {
		if _, err := TrainingSessions(table); err != nil {
			wrapped := errors.NewConfigError(
				"training_summary contains an unusable session interval", err).
				WithContext("user_id", userID)
			summary.AddSkipped(UnitIssue{UserID: userID, Table: domain.TableTrainingSummary, Message: wrapped.Error()})
			return nil, nil, wrapped
		}
	}

	assembled, err := p.processTable(ctx, userID, table, cfg, nil, summary)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := TrainingSessions(assembled)
	if err != nil {
		wrapped := errors.NewParsingError("extract training sessions", err).
			WithContext("user_id", userID)
		summary.AddSkipped(UnitIssue{UserID: userID, Table: domain.TableTrainingSummary, Message: wrapped.Error()})
		return nil, nil, wrapped
	}
	return assembled, sessions, nil
}

// processTable runs one table through all pipeline stages.
func (p *Processor) processTable(ctx context.Context, userID string, table *domain.Table,
	cfg config.FilterConfig, sessions []domain.TrainingSession, summary *RunSummary) (*domain.Table, error) {

	tt := table.Type
	fail := func(err error) (*domain.Table, error) {
		p.logger.WarnContext(ctx, "skipping table",
			slog.String("user_id", userID),
			slog.String("table", string(tt)),
			slog.String("error", err.Error()))
		summary.AddSkipped(UnitIssue{UserID: userID, Table: tt, Message: err.Error()})
		return nil, err
	}

	desc, err := ForType(tt)
	if err != nil {
		return fail(err)
	}

	cleaned, err := p.cleaner.Clean(ctx, desc, table)
	if err != nil {
		return fail(err)
	}

	filtered, err := p.filter.Apply(ctx, desc, cleaned, cfg, sessions)
	if err != nil {
		return fail(err)
	}
	if filtered.Empty() && !table.Empty() {
		// Non-fatal: an empty, schema-complete table still propagates.
		summary.addWarning(UnitIssue{
			UserID:  userID,
			Table:   tt,
			Message: "table is empty after cleaning and filtering",
		})
	}

	aggregated, err := p.aggregator.Apply(ctx, desc, filtered)
	if err != nil {
		return fail(err)
	}

	scored, err := p.quality.Apply(ctx, desc, aggregated)
	if err != nil {
		return fail(err)
	}

	assembled, err := p.assembler.Assemble(ctx, desc, scored)
	if err != nil {
		return fail(err)
	}

	summary.addProcessed()
	return assembled, nil
}
