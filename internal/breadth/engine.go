package breadth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"MarketBreadth/internal/calculator"
	"MarketBreadth/internal/collector"
	"MarketBreadth/internal/model"
)

// Request parameterises one engine run.
type Request struct {
	UniverseSize int
	MAPeriod     int
	LookbackDays int
}

// Validate checks the request is computable.
func (r Request) Validate() error {
	if r.UniverseSize <= 0 {
		return errors.New("universe size must be positive")
	}
	if r.MAPeriod <= 0 {
		return errors.New("ma period must be positive")
	}
	if r.LookbackDays <= 0 {
		return errors.New("lookback days must be positive")
	}
	return nil
}

// RequestedDays is how much raw history each asset needs: the lookback
// window plus enough samples to fill the moving average on its first day.
func (r Request) RequestedDays() int { return r.LookbackDays + r.MAPeriod }

// Result is the outcome of one run.
type Result struct {
	Series   model.BreadthSeries
	Start    time.Time
	End      time.Time
	Universe []string
	Included []string
	Excluded map[string]Rejection
}

// Engine computes a breadth series for the current universe.
type Engine struct {
	Universe collector.UniverseProvider
	Fetcher  collector.HistoryFetcher
	Pool     *collector.Pool
	Coverage CoveragePolicy
	Window   calculator.Window
	Now      func() time.Time
}

// NewEngine builds an engine with the strict coverage policy and the
// causal moving-average window.
func NewEngine(universe collector.UniverseProvider, fetcher collector.HistoryFetcher, pool *collector.Pool) *Engine {
	return &Engine{
		Universe: universe,
		Fetcher:  fetcher,
		Pool:     pool,
		Coverage: StrictCoverage,
		Window:   calculator.ExcludeCurrent,
		Now:      time.Now,
	}
}

// Run fetches the universe and its histories and aggregates breadth over
// the lookback window ending today. Only an unavailable universe or a
// cancelled context fails the run; assets without usable data are listed
// in Result.Excluded.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	symbols, err := e.Universe.TopAssets(ctx, req.UniverseSize)
	if err != nil {
		if !errors.Is(err, collector.ErrUniverseUnavailable) {
			err = fmt.Errorf("%w: %w", collector.ErrUniverseUnavailable, err)
		}
		return nil, err
	}
	log.Printf("[INFO] universe %s: %d assets", e.Universe.Name(), len(symbols))

	pool := e.Pool
	if pool == nil {
		pool = &collector.Pool{Workers: 1}
	}
	fetched, err := pool.FetchAll(ctx, e.Fetcher, symbols, req.RequestedDays())
	if err != nil {
		return nil, err
	}

	res := &Result{Universe: symbols, Excluded: make(map[string]Rejection)}
	for sym, ferr := range fetched.Failed {
		log.Printf("[WARN] %v", ferr)
		res.Excluded[sym] = Rejection{Symbol: sym, Reason: DataUnavailable}
	}

	panel := make([]model.AssetSeries, 0, len(fetched.Rows))
	for _, sym := range symbols {
		raw, ok := fetched.Rows[sym]
		if !ok {
			continue
		}
		series, rej := Normalize(sym, raw, req.RequestedDays(), e.Coverage)
		if rej != nil {
			log.Printf("[INFO] excluded %s", rej)
			res.Excluded[sym] = *rej
			continue
		}
		panel = append(panel, series)
		res.Included = append(res.Included, sym)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	res.End = model.Day(now())
	res.Start = res.End.AddDate(0, 0, -(req.LookbackDays - 1))

	res.Series, err = Compute(panel, req.MAPeriod, e.Window, res.Start, res.End)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] breadth computed: %d points, %d included, %d excluded",
		len(res.Series.Points), len(res.Included), len(res.Excluded))
	return res, nil
}

// ExcludedSymbols lists excluded assets in sorted order.
func (r *Result) ExcludedSymbols() []string {
	out := make([]string, 0, len(r.Excluded))
	for sym := range r.Excluded {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Compute classifies every series and aggregates them over [start, end].
// It is pure; panel is not modified.
func Compute(panel []model.AssetSeries, maPeriod int, w calculator.Window, start, end time.Time) (model.BreadthSeries, error) {
	flags := make(map[string][]model.Flag, len(panel))
	for _, s := range panel {
		f, err := Classify(s, maPeriod, w)
		if err != nil {
			return model.BreadthSeries{}, fmt.Errorf("classify %s: %w", s.Symbol, err)
		}
		flags[s.Symbol] = f
	}
	return Aggregate(flags, start, end), nil
}
