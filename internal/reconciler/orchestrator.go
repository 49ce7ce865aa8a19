package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"document-reconciliation-service/internal/aggregator"
	"document-reconciliation-service/internal/labels"
	"document-reconciliation-service/internal/matcher"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/internal/parsers"
	"document-reconciliation-service/internal/reviewstore"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// ServiceConfig bundles the configuration of every pipeline stage
type ServiceConfig struct {
	Loader     *parsers.LoaderConfig `json:"loader" mapstructure:"loader"`
	Matcher    *matcher.Config       `json:"matcher" mapstructure:"matcher"`
	Reconciler *Config               `json:"reconciler" mapstructure:"reconciler"`

	// Normalizer classifies loaded records; nil means labels.Default()
	Normalizer *labels.Normalizer `json:"-" mapstructure:"-"`
}

// DefaultServiceConfig returns defaults for every stage
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Loader:     parsers.DefaultLoaderConfig(),
		Matcher:    matcher.DefaultConfig(),
		Reconciler: DefaultConfig(),
	}
}

// Validate validates the configuration of every stage
func (c *ServiceConfig) Validate() error {
	if c.Loader != nil {
		if err := c.Loader.Validate(); err != nil {
			return fmt.Errorf("loader: %w", err)
		}
	}
	if c.Matcher != nil {
		if err := c.Matcher.Validate(); err != nil {
			return fmt.Errorf("matcher: %w", err)
		}
	}
	if c.Reconciler != nil {
		if err := c.Reconciler.Validate(); err != nil {
			return fmt.Errorf("reconciler: %w", err)
		}
	}
	return nil
}

// Request names the input files of one run. Either side may be empty: a
// run with only record files matches and enriches, a run with only
// statement files reconciles.
type Request struct {
	RecordFiles []string `json:"record_files,omitempty"`
	SOAFiles    []string `json:"soa_files,omitempty"`
	LedgerFiles []string `json:"ledger_files,omitempty"`
}

// Validate checks that the request names at least one input
func (r *Request) Validate() error {
	if len(r.RecordFiles) == 0 && len(r.SOAFiles) == 0 && len(r.LedgerFiles) == 0 {
		return fmt.Errorf("no input files given")
	}
	return nil
}

// RunResult is everything one run produced
type RunResult struct {
	RunID       string        `json:"run_id"`
	ProcessedAt time.Time     `json:"processed_at"`
	AsOf        time.Time     `json:"as_of"`
	Duration    time.Duration `json:"duration"`

	Records      []*models.ExtractedRecord `json:"-"`
	Rows         []*models.RecordRow       `json:"rows,omitempty"`
	Matching     *matcher.Result           `json:"-"`
	MatchSummary *aggregator.MatchSummary  `json:"match_summary,omitempty"`

	Items         []*models.ReconciliationItem `json:"items,omitempty"`
	Summary       *aggregator.Summary          `json:"summary,omitempty"`
	Preprocessing []*PreprocessingStats        `json:"preprocessing,omitempty"`

	ParseStats []*parsers.ParseStats `json:"parse_stats,omitempty"`
}

// HasRecords reports whether the run matched extraction records
func (r *RunResult) HasRecords() bool {
	return r.Matching != nil
}

// HasReconciliation reports whether the run reconciled statement entries
func (r *RunResult) HasReconciliation() bool {
	return r.Summary != nil
}

// Service runs the full pipeline: load, match and enrich, reconcile with
// saved review state, summarize
type Service struct {
	config     *ServiceConfig
	loader     *parsers.Loader
	matcher    *matcher.Matcher
	reconciler *Reconciler
	store      reviewstore.Store
	log        logger.Logger
	newRunID   func() string
}

// NewService creates a service. store may be nil, in which case every item
// keeps its default review fields.
func NewService(config *ServiceConfig, store reviewstore.Store) (*Service, error) {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "service", nil, err)
	}

	log := logger.WithComponent("reconciliation_service")

	loader, err := parsers.NewLoaderWithNormalizer(config.Loader, config.Normalizer)
	if err != nil {
		return nil, err
	}
	rec, err := New(config.Reconciler)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}

	return &Service{
		config:     config,
		loader:     loader,
		matcher:    matcher.New(config.Matcher),
		reconciler: rec,
		store:      store,
		log:        log,
		newRunID:   uuid.NewString,
	}, nil
}

// Reconciler returns the reconciler the service runs
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// Process loads the request's files and runs every applicable stage
func (s *Service) Process(ctx context.Context, request *Request) (*RunResult, error) {
	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidValue, "request", request, err).
			WithSuggestion("pass --records, or --soa and --ledger")
	}

	result := s.newResult()
	op := logger.NewOperationLogger("reconciliation", s.log).WithFields(logger.Fields{
		"run_id": result.RunID,
		"as_of":  result.AsOf.Format("2006-01-02"),
	})

	if len(request.RecordFiles) > 0 {
		op.Step("load records")
		records, stats, err := s.loader.LoadRecords(ctx, request.RecordFiles)
		if err != nil {
			op.Error(err, "Loading records failed")
			return nil, err
		}
		result.ParseStats = append(result.ParseStats, stats...)

		op.Step("match records")
		s.matchInto(result, records)
		op.Progress("Utility bills matched", len(result.Matching.Matches), result.Matching.Utilities)
	}

	if len(request.SOAFiles) > 0 || len(request.LedgerFiles) > 0 {
		op.Step("load statements")
		soa, soaStats, err := s.loadSide(ctx, request.SOAFiles)
		if err != nil {
			op.Error(err, "Loading statement of account failed")
			return nil, err
		}
		ledger, ledgerStats, err := s.loadSide(ctx, request.LedgerFiles)
		if err != nil {
			op.Error(err, "Loading ledger failed")
			return nil, err
		}
		result.ParseStats = append(result.ParseStats, soaStats...)
		result.ParseStats = append(result.ParseStats, ledgerStats...)

		op.Step("reconcile")
		if err := s.reconcileInto(ctx, result, soa, ledger); err != nil {
			op.Error(err, "Reconciliation failed")
			return nil, err
		}

		for _, p := range result.Preprocessing {
			if p.Dropped() > 0 {
				op.Warning("Entries dropped before pairing", logger.Fields{
					"side":           p.Side,
					"missing_doc_no": p.MissingDocNo,
					"duplicates":     p.DuplicateDocs,
				})
			}
		}
	}

	result.Duration = time.Since(result.ProcessedAt)
	op.Success("Reconciliation run complete")
	return result, nil
}

// MatchRecords matches and enriches already-loaded records
func (s *Service) MatchRecords(records []*models.ExtractedRecord) *RunResult {
	result := s.newResult()
	s.matchInto(result, records)
	result.Duration = time.Since(result.ProcessedAt)
	return result
}

// ReconcileEntries reconciles already-loaded entries, reading review state
// from the store
func (s *Service) ReconcileEntries(ctx context.Context, soa, ledger []models.StatementEntry) (*RunResult, error) {
	result := s.newResult()
	if err := s.reconcileInto(ctx, result, soa, ledger); err != nil {
		return nil, err
	}
	result.Duration = time.Since(result.ProcessedAt)
	return result, nil
}

func (s *Service) newResult() *RunResult {
	return &RunResult{
		RunID:       s.newRunID(),
		ProcessedAt: time.Now(),
		AsOf:        s.reconciler.Config().AsOf,
	}
}

func (s *Service) loadSide(ctx context.Context, paths []string) ([]models.StatementEntry, []*parsers.ParseStats, error) {
	if len(paths) == 0 {
		return nil, nil, nil
	}
	return s.loader.LoadEntries(ctx, paths)
}

func (s *Service) matchInto(result *RunResult, records []*models.ExtractedRecord) {
	result.Records = records
	result.Matching = s.matcher.Run(records)
	result.Rows = matcher.Enrich(records, result.Matching.Matches)
	summary := aggregator.SummarizeMatches(result.Matching)
	result.MatchSummary = &summary
}

func (s *Service) reconcileInto(ctx context.Context, result *RunResult, soa, ledger []models.StatementEntry) error {
	review, err := s.reviewFor(ctx, soa, ledger)
	if err != nil {
		return err
	}

	run := s.reconciler.Run(soa, ledger, review)
	summary := aggregator.Summarize(run.Items)

	result.Items = run.Items
	result.Summary = &summary
	result.Preprocessing = []*PreprocessingStats{run.SOA, run.Ledger}

	s.log.WithFields(logger.Fields{
		"run_id":     result.RunID,
		"items":      summary.TotalItems,
		"exceptions": summary.Exceptions,
		"reviewed":   len(review),
	}).Info("Reconciled statement against ledger")
	return nil
}

// reviewFor fetches saved state for every doc_no on either side, under both
// the spelling on file and the cleaned up key the entry pairs under
func (s *Service) reviewFor(ctx context.Context, soa, ledger []models.StatementEntry) (ReviewLookup, error) {
	if s.store == nil {
		return nil, nil
	}

	seen := make(map[string]bool, len(soa)+len(ledger))
	docNos := make([]string, 0, len(soa)+len(ledger))
	for _, side := range [][]models.StatementEntry{soa, ledger} {
		for _, e := range side {
			for _, docNo := range []string{e.DocNo, s.reconciler.preprocessor.DocKey(e.DocNo)} {
				if !seen[docNo] {
					seen[docNo] = true
					docNos = append(docNos, docNo)
				}
			}
		}
	}
	if len(docNos) == 0 {
		return nil, nil
	}

	states, err := s.store.GetMany(ctx, docNos)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeStoreRead, "failed to read review state")
	}
	return ReviewLookup(states), nil
}
