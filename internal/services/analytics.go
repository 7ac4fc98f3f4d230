package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/sync/errgroup"

	"seoul-dashboard/internal/config"
	"seoul-dashboard/internal/dataset"
	"seoul-dashboard/internal/models"
	"seoul-dashboard/internal/observability"
)

var (
	ErrNotLoaded       = errors.New("dataset not loaded")
	ErrUnknownDistrict = errors.New("unknown district")
)

// Analytics owns the merged dataset and answers dashboard queries against it.
// Reloads swap the dataset atomically; a failed reload keeps the previous one.
type Analytics struct {
	mu      sync.RWMutex
	ds      *dataset.Dataset
	sources config.DataConfig
	logger  *slog.Logger

	loads     atomic.Int64
	failures  atomic.Int64
	lastError atomic.Value // string
}

func NewAnalytics(sources config.DataConfig, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		sources: sources,
		logger:  logger,
	}
}

// SetDataset installs an already merged dataset.
func (a *Analytics) SetDataset(ds *dataset.Dataset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ds = ds
}

// Load reads both source files concurrently, merges them and installs the
// result.
func (a *Analytics) Load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.End(a.logger)

	start := time.Now()
	a.logger.Info("loading dataset",
		"sales_file", a.sources.SalesFile,
		"rent_file", a.sources.RentFile,
		"year", a.sources.ReferenceYear,
	)

	var (
		sales dataframe.DataFrame
		rent  dataset.RentTable
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		df, err := dataset.ReadSalesFile(a.sources.SalesFile, a.sources.SalesEncoding)
		if err != nil {
			return err
		}
		sales = df
		return ctx.Err()
	})
	g.Go(func() error {
		table, err := dataset.ReadRentFile(a.sources.RentFile, a.sources.RentEncoding)
		if err != nil {
			return err
		}
		rent = table
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return a.fail(span, fmt.Errorf("read sources: %w", err))
	}

	ds, err := dataset.Merge(sales, rent, a.sources.ReferenceYear)
	if err != nil {
		return a.fail(span, fmt.Errorf("merge: %w", err))
	}

	if unmatched := ds.UnmatchedDistricts(); len(unmatched) > 0 {
		a.logger.Warn("districts missing from rent table; their rent is undefined",
			"districts", unmatched,
		)
	}

	a.SetDataset(ds)
	a.loads.Add(1)
	span.SetAttr("rows", ds.Len())

	a.logger.Info("dataset loaded",
		"rows", ds.Len(),
		"districts", len(ds.Districts()),
		"categories", len(ds.Categories()),
		"duration", time.Since(start),
	)
	return nil
}

func (a *Analytics) fail(span *observability.Span, err error) error {
	span.SetError(err)
	a.failures.Add(1)
	a.lastError.Store(err.Error())
	return err
}

func (a *Analytics) dataset() (*dataset.Dataset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ds == nil {
		return nil, ErrNotLoaded
	}
	return a.ds, nil
}

func (a *Analytics) Categories() ([]string, error) {
	ds, err := a.dataset()
	if err != nil {
		return nil, err
	}
	return ds.Categories(), nil
}

func (a *Analytics) CompareDistricts(ctx context.Context, category string, floorArea float64) (models.DistrictComparison, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.DistrictComparison{}, err
	}

	_, span := observability.StartSpan(ctx, "dataset.compare_districts")
	defer span.End(a.logger)
	span.SetAttr("category", category)
	span.SetAttr("floor_area", floorArea)

	result, err := ds.CompareDistricts(category, floorArea)
	span.SetError(err)
	return result, err
}

func (a *Analytics) BreakdownCategory(ctx context.Context, category string) (models.CategorySummary, error) {
	ds, err := a.dataset()
	if err != nil {
		return models.CategorySummary{}, err
	}

	_, span := observability.StartSpan(ctx, "dataset.breakdown_category")
	defer span.End(a.logger)
	span.SetAttr("category", category)

	result, err := ds.BreakdownCategory(category)
	span.SetError(err)
	return result, err
}

// District returns one district's summary for category at floorArea.
func (a *Analytics) District(ctx context.Context, category string, floorArea float64, district string) (models.DistrictSummary, error) {
	comparison, err := a.CompareDistricts(ctx, category, floorArea)
	if err != nil {
		return models.DistrictSummary{}, err
	}
	summary, ok := comparison.Find(district)
	if !ok {
		return models.DistrictSummary{}, fmt.Errorf("%w: %q", ErrUnknownDistrict, district)
	}
	return summary, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	stats := map[string]any{
		"loaded":   false,
		"loads":    a.loads.Load(),
		"failures": a.failures.Load(),
	}
	if msg, ok := a.lastError.Load().(string); ok {
		stats["last_error"] = msg
	}

	ds, err := a.dataset()
	if err != nil {
		return stats
	}

	stats["loaded"] = true
	stats["reference_year"] = ds.Year()
	stats["rows"] = ds.Len()
	stats["districts"] = len(ds.Districts())
	stats["categories"] = len(ds.Categories())
	stats["unmatched_districts"] = ds.UnmatchedDistricts()
	stats["loaded_at"] = ds.LoadedAt()
	return stats
}
