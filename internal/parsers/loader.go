package parsers

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"document-reconciliation-service/internal/labels"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// Loader reads several input files concurrently. Results are returned in
// the order the paths were given, so downstream matching sees the same
// record order as a sequential load.
type Loader struct {
	config     *LoaderConfig
	records    *RecordParser
	statements *StatementParser
	log        logger.Logger
}

// NewLoader creates a loader. A nil config means DefaultLoaderConfig.
func NewLoader(config *LoaderConfig) (*Loader, error) {
	return NewLoaderWithNormalizer(config, nil)
}

// NewLoaderWithNormalizer creates a loader that classifies records with n
func NewLoaderWithNormalizer(config *LoaderConfig, n *labels.Normalizer) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", config.MaxConcurrentFiles, err)
	}

	statements, err := NewStatementParser(config.Statement)
	if err != nil {
		return nil, err
	}

	return &Loader{
		config:     config,
		records:    NewRecordParser(n),
		statements: statements,
		log:        logger.WithComponent("loader"),
	}, nil
}

type fileResult[T any] struct {
	index int
	items []T
	stats *ParseStats
}

// loadAll parses every path with parse on a bounded pool. The first error
// cancels the remaining files.
func loadAll[T any](
	ctx context.Context,
	paths []string,
	maxFiles int,
	parse func(ctx context.Context, path string) ([]T, *ParseStats, error),
) ([]T, []*ParseStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p := pool.NewWithResults[fileResult[T]]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxFiles)

	for i, path := range paths {
		i, path := i, path
		p.Go(func(ctx context.Context) (fileResult[T], error) {
			items, stats, err := parse(ctx, path)
			if err != nil {
				return fileResult[T]{}, err
			}
			return fileResult[T]{index: i, items: items, stats: stats}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })

	var all []T
	stats := make([]*ParseStats, 0, len(results))
	for _, r := range results {
		all = append(all, r.items...)
		stats = append(stats, r.stats)
	}
	return all, stats, nil
}

// LoadRecords parses extraction record files
func (l *Loader) LoadRecords(ctx context.Context, paths []string) ([]*models.ExtractedRecord, []*ParseStats, error) {
	records, stats, err := loadAll(ctx, paths, l.config.MaxConcurrentFiles, l.records.ParseFile)
	if err != nil {
		return nil, nil, err
	}
	l.logStats("records", stats)
	return records, stats, nil
}

// LoadEntries parses statement or ledger files
func (l *Loader) LoadEntries(ctx context.Context, paths []string) ([]models.StatementEntry, []*ParseStats, error) {
	entries, stats, err := loadAll(ctx, paths, l.config.MaxConcurrentFiles, l.statements.ParseFile)
	if err != nil {
		return nil, nil, err
	}
	l.logStats("entries", stats)
	return entries, stats, nil
}

func (l *Loader) logStats(kind string, stats []*ParseStats) {
	total := MergeStats(stats)
	entry := l.log.WithFields(logger.Fields{
		"kind":    kind,
		"files":   len(stats),
		"valid":   total.RecordsValid,
		"skipped": total.SkippedCount(),
	})
	if total.SkippedCount() > 0 {
		entry.WithField("samples", total.SampleErrors(3)).Warn("Some input rows were skipped")
		return
	}
	entry.Info("Loaded input files")
}
