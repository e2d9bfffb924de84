package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketBreadth/internal/breadth"
	"MarketBreadth/internal/model"
)

// recentPoints is how many trailing days the report lists.
const recentPoints = 5

// Report bundles what the daily message shows.
type Report struct {
	Result   *breadth.Result
	MAPeriod int
	Stats    model.SummaryStats
	HasStats bool
	Signal   model.Signal

	Reference      string
	Correlation    float64
	HasCorrelation bool
}

// FormatBreadthReport formats one run into a Telegram message.
func FormatBreadthReport(r Report) string {
	var b strings.Builder
	res := r.Result

	b.WriteString(fmt.Sprintf("📊 <b>Market Breadth</b> | %s\n\n", res.End.Format(model.DateLayout)))

	last, ok := res.Series.Last()
	if !ok {
		b.WriteString(fmt.Sprintf("⚠️ No breadth data: %d of %d assets excluded\n",
			len(res.Excluded), len(res.Universe)))
		writeExcluded(&b, res)
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Above MA%d: <b>%s%%</b> (%d/%d)\n",
		r.MAPeriod, breadth.Percent(last.Percentage), last.CountAbove, last.CountTotal))
	if r.Signal.Label != "" {
		b.WriteString(fmt.Sprintf("Signal: <b>%s</b> (%s)\n", r.Signal.Label, r.Signal.ThresholdSet))
	}

	if r.HasStats {
		s := r.Stats
		b.WriteString(fmt.Sprintf("\n📈 <b>%d-day window</b>\n", s.TotalDays))
		b.WriteString(fmt.Sprintf("Mean: %s%% ± %s\n", breadth.Percent(s.Mean), breadth.Percent(s.StdDev)))
		b.WriteString(fmt.Sprintf("Range: %s%% – %s%%\n", breadth.Percent(s.Min), breadth.Percent(s.Max)))
		b.WriteString(fmt.Sprintf("Overbought days: %d | Oversold days: %d\n", s.OverboughtDayCount, s.OversoldDayCount))
	}
	if r.Reference != "" {
		if r.HasCorrelation {
			b.WriteString(fmt.Sprintf("Correlation vs %s: %+.2f\n", html.EscapeString(r.Reference), r.Correlation))
		} else {
			b.WriteString(fmt.Sprintf("Correlation vs %s: n/a\n", html.EscapeString(r.Reference)))
		}
	}

	pts := res.Series.Points
	if len(pts) > recentPoints {
		pts = pts[len(pts)-recentPoints:]
	}
	b.WriteString("\n<b>Recent:</b>\n")
	for _, p := range pts {
		b.WriteString(fmt.Sprintf("  %s  %s%%\n", p.Date.Format(model.DateLayout), breadth.Percent(p.Percentage)))
	}

	writeExcluded(&b, res)
	return b.String()
}

func writeExcluded(b *strings.Builder, res *breadth.Result) {
	syms := res.ExcludedSymbols()
	if len(syms) == 0 {
		return
	}
	const maxListed = 10
	listed := syms
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	for i, sym := range listed {
		listed[i] = html.EscapeString(sym)
	}
	b.WriteString(fmt.Sprintf("\nExcluded: %d (%s", len(syms), strings.Join(listed, ", ")))
	if len(syms) > maxListed {
		b.WriteString(", …")
	}
	b.WriteString(")\n")
}

// Status describes the bot for the /status command.
type Status struct {
	Provider  string
	Universe  string
	LastRun   time.Time
	LastError string
	Included  int
	Excluded  int
	Current   float64
	HasPoint  bool
	NextRun   time.Time
}

// FormatStatus formats the bot status for display.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString("📦 <b>Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Data source: %s\n", html.EscapeString(s.Provider)))
	b.WriteString(fmt.Sprintf("Universe: %s\n", html.EscapeString(s.Universe)))
	if s.LastRun.IsZero() {
		b.WriteString("Last run: never\n")
	} else {
		b.WriteString(fmt.Sprintf("Last run: %s\n", s.LastRun.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Assets: %d included, %d excluded\n", s.Included, s.Excluded))
	}
	if s.HasPoint {
		b.WriteString(fmt.Sprintf("Current breadth: %s%%\n", breadth.Percent(s.Current)))
	}
	if s.LastError != "" {
		b.WriteString(fmt.Sprintf("Last error: %s\n", html.EscapeString(s.LastError)))
	}
	if !s.NextRun.IsZero() {
		b.WriteString(fmt.Sprintf("Next run: %s\n", s.NextRun.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatHistory lists stored breadth points, newest last.
func FormatHistory(series model.BreadthSeries) string {
	if series.Empty() {
		return "🗂 No stored breadth history yet"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Stored breadth</b> | %d days\n\n", len(series.Points)))
	for _, p := range series.Points {
		b.WriteString(fmt.Sprintf("  %s  %s%% (%d/%d)\n",
			p.Date.Format(model.DateLayout), breadth.Percent(p.Percentage), p.CountAbove, p.CountTotal))
	}
	return b.String()
}

// FormatFailure reports a failed run. err text is escaped for HTML mode.
func FormatFailure(err error) string {
	return fmt.Sprintf("❌ Breadth run failed: %s", html.EscapeString(err.Error()))
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Available commands:\n• /breadth run now and report\n• /status show last run\n• /history show stored breadth"
}
