package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sync"
	"time"

	"MarketBreadth/internal/breadth"
	"MarketBreadth/internal/metrics"
	"MarketBreadth/internal/model"
	"MarketBreadth/internal/notifier"
	"MarketBreadth/internal/recorder"
	"MarketBreadth/internal/strategy"

	"github.com/robfig/cron/v3"
)

// Run outcomes, used for metrics labels and run records.
const (
	StatusOK     = "OK"
	StatusEmpty  = "EMPTY"
	StatusFailed = "FAILED"
)

// Scheduler runs the breadth job on a cron schedule and on demand.
type Scheduler struct {
	Cron       *cron.Cron
	Engine     *breadth.Engine
	Request    breadth.Request
	Thresholds strategy.ThresholdSet
	Notifier   notifier.Notifier
	Recorder   recorder.Recorder
	Metrics    *metrics.Recorder // optional
	Ctx        context.Context
	// Reference, when set, is correlated against the breadth series.
	Reference string
	// ExportPath, when set, receives the latest series as CSV or JSON.
	ExportPath string

	running sync.Mutex
	mu      sync.Mutex
	status  notifier.Status
	entry   cron.EntryID
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, eng *breadth.Engine, req breadth.Request, ts strategy.ThresholdSet,
	n notifier.Notifier, rec recorder.Recorder, m *metrics.Recorder) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Engine:     eng,
		Request:    req,
		Thresholds: ts,
		Notifier:   n,
		Recorder:   rec,
		Metrics:    m,
		Ctx:        ctx,
		status: notifier.Status{
			Provider: eng.Fetcher.Name(),
			Universe: eng.Universe.Name(),
		},
	}
}

// Register adds the daily breadth job.
func (s *Scheduler) Register(dailyCron string) error {
	id, err := s.Cron.AddFunc(dailyCron, s.dailyTask)
	if err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the daily task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running daily breadth task")
	report, err := s.Run(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] daily breadth: %v", err)
		s.trySend(notifier.FormatFailure(err))
		return
	}
	s.trySend(notifier.FormatBreadthReport(*report))
}

// ErrBusy is returned by Run when another run is still in progress.
var ErrBusy = errors.New("a breadth run is already in progress")

// Run computes breadth once, records it and returns the report. It does
// not notify.
func (s *Scheduler) Run(ctx context.Context) (*notifier.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	started := time.Now()
	res, err := s.Engine.Run(ctx, s.Request)
	if err != nil {
		s.finish(started, nil, StatusFailed, err)
		return nil, err
	}

	report := &notifier.Report{Result: res, MAPeriod: s.Request.MAPeriod}
	report.Stats, report.HasStats = breadth.Summarize(res.Series, s.Thresholds)
	report.Signal, _ = LastSignal(res.Series, s.Thresholds)
	if s.Reference != "" && !res.Series.Empty() {
		report.Reference = s.Reference
		report.Correlation, report.HasCorrelation = s.correlate(ctx, res.Series)
	}

	if err := s.Recorder.RecordPoints(res.Series.Points); err != nil {
		log.Printf("[ERROR] record breadth points: %v", err)
	}

	if s.ExportPath != "" {
		if err := breadth.WriteFile(s.ExportPath, res.Series); err != nil {
			log.Printf("[ERROR] export breadth series: %v", err)
		} else {
			log.Printf("[INFO] breadth series exported to %s", s.ExportPath)
		}
	}

	status := StatusOK
	if res.Series.Empty() {
		status = StatusEmpty
		log.Printf("[WARN] breadth series is empty: %d of %d assets excluded", len(res.Excluded), len(res.Universe))
	}
	s.finish(started, report, status, nil)
	return report, nil
}

// correlate fetches the reference asset and correlates it with series.
// A fetch failure or too little overlap leaves the correlation undefined.
func (s *Scheduler) correlate(ctx context.Context, series model.BreadthSeries) (float64, bool) {
	days := s.Request.RequestedDays()
	raw, err := s.Engine.Fetcher.FetchHistory(ctx, s.Reference, days)
	if err != nil {
		log.Printf("[WARN] fetch reference %s: %v", s.Reference, err)
		return 0, false
	}
	ref, rej := breadth.Normalize(s.Reference, raw, days, breadth.LenientCoverage)
	if rej != nil {
		log.Printf("[WARN] reference %s", rej)
		return 0, false
	}
	corr, ok := breadth.Correlate(ref, breadth.BreadthAsSeries("breadth", series))
	if !ok {
		log.Printf("[INFO] correlation with %s undefined: fewer than %d shared dates or a flat series",
			s.Reference, breadth.MinCorrelationOverlap)
	}
	return corr, ok
}

// finish records the run outcome in the recorder, metrics and status.
func (s *Scheduler) finish(started time.Time, report *notifier.Report, status string, runErr error) {
	run := &recorder.RunRecord{
		RanAt:        started,
		MAPeriod:     s.Request.MAPeriod,
		LookbackDays: s.Request.LookbackDays,
		ThresholdSet: s.Thresholds.Name,
		Status:       status,
	}
	if runErr != nil {
		run.Note = runErr.Error()
	}

	var (
		current  float64
		hasPoint bool
	)
	if report != nil {
		res := report.Result
		run.UniverseSize = len(res.Universe)
		run.IncludedCount = len(res.Included)
		run.ExcludedCount = len(res.Excluded)
		run.Points = len(res.Series.Points)
		run.SignalLabel = report.Signal.Label
		if report.HasStats {
			run.Current = report.Stats.Current
			run.Mean = report.Stats.Mean
			current, hasPoint = report.Stats.Current, true
		}
	}
	if err := s.Recorder.RecordRun(run); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}

	if s.Metrics != nil {
		s.Metrics.RecordRun(status)
		if report != nil {
			for _, rej := range report.Result.Excluded {
				s.Metrics.RecordExcluded(rej.Reason)
			}
			s.Metrics.RecordAssets(run.IncludedCount, run.ExcludedCount)
			if hasPoint {
				s.Metrics.RecordBreadth(current)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRun = started
	s.status.LastError = run.Note
	if report != nil {
		s.status.Included = run.IncludedCount
		s.status.Excluded = run.ExcludedCount
		s.status.Current, s.status.HasPoint = current, hasPoint
	}
}

// Status returns a snapshot of the last run and the next scheduled one.
func (s *Scheduler) Status() notifier.Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	if s.entry != 0 {
		st.NextRun = s.Cron.Entry(s.entry).Next
	}
	return st
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/breadth":
		report, err := s.Run(ctx)
		if err != nil {
			return notifier.FormatFailure(err)
		}
		return notifier.FormatBreadthReport(*report)
	case "/status":
		return notifier.FormatStatus(s.Status())
	case "/history":
		return s.history()
	default:
		return notifier.FormatHelp()
	}
}

// historyDays is how many calendar days /history reads back.
const historyDays = 14

// history formats the stored points of the last historyDays days.
func (s *Scheduler) history() string {
	h, ok := s.Recorder.(recorder.HistoryReader)
	if !ok {
		return "🗂 Breadth history is not stored (no database configured)"
	}
	now := time.Now
	if s.Engine.Now != nil {
		now = s.Engine.Now
	}
	to := model.Day(now())
	series, err := h.LoadPoints(to.AddDate(0, 0, -historyDays+1), to)
	if err != nil {
		log.Printf("[ERROR] load breadth history: %v", err)
		return "❌ Could not load breadth history: " + html.EscapeString(err.Error())
	}
	return notifier.FormatHistory(series)
}

// LastSignal classifies the most recent point of series.
func LastSignal(series model.BreadthSeries, ts strategy.ThresholdSet) (model.Signal, bool) {
	last, ok := series.Last()
	if !ok {
		return model.Signal{}, false
	}
	return ts.Classify(last.Percentage), true
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
