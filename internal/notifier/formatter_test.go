package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"

	"MarketBreadth/internal/breadth"
	"MarketBreadth/internal/model"
)

func day(i int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestFormatBreadthReport(t *testing.T) {
	var pts []model.BreadthPoint
	for i := 0; i < 7; i++ {
		pts = append(pts, model.BreadthPoint{Date: day(i), Percentage: float64(40 + i), CountAbove: 2, CountTotal: 4})
	}
	pts[6] = model.BreadthPoint{Date: day(6), Percentage: 66.7, CountAbove: 2, CountTotal: 3}
	res := &breadth.Result{
		Series:   model.BreadthSeries{Points: pts},
		End:      day(6),
		Universe: []string{"AAA", "BBB", "CCC", "DDD"},
		Included: []string{"AAA", "BBB", "CCC"},
		Excluded: map[string]breadth.Rejection{"DDD": {Symbol: "DDD", Reason: breadth.DataUnavailable}},
	}
	msg := FormatBreadthReport(Report{
		Result:   res,
		MAPeriod: 200,
		Stats:    model.SummaryStats{Mean: 45.25, StdDev: 3, Min: 40, Max: 66.7, TotalDays: 7},
		HasStats: true,
		Signal:   model.Signal{Label: "Neutral", ThresholdSet: "three_bucket"},
	})

	for _, want := range []string{
		"2024-03-07",
		"Above MA200: <b>66.7%</b> (2/3)",
		"Signal: <b>Neutral</b> (three_bucket)",
		"Mean: 45.3% ± 3.0",
		"Excluded: 1 (DDD)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
	// Only the last five points are listed.
	if strings.Contains(msg, "2024-03-02  ") {
		t.Errorf("report lists too many points:\n%s", msg)
	}
	if !strings.Contains(msg, "2024-03-03  42.0%") {
		t.Errorf("report missing recent point:\n%s", msg)
	}
}

func TestFormatBreadthReport_Empty(t *testing.T) {
	res := &breadth.Result{
		End:      day(0),
		Universe: []string{"AAA", "BBB"},
		Excluded: map[string]breadth.Rejection{
			"AAA": {Symbol: "AAA", Reason: breadth.InsufficientCoverage},
			"BBB": {Symbol: "BBB", Reason: breadth.DataUnavailable},
		},
	}
	msg := FormatBreadthReport(Report{Result: res, MAPeriod: 50})
	if !strings.Contains(msg, "No breadth data: 2 of 2 assets excluded") {
		t.Errorf("unexpected empty report:\n%s", msg)
	}
	if !strings.Contains(msg, "Excluded: 2 (AAA, BBB)") {
		t.Errorf("missing exclusions:\n%s", msg)
	}
}

func TestFormatStatus(t *testing.T) {
	msg := FormatStatus(Status{Provider: "yahoo", Universe: "static"})
	if !strings.Contains(msg, "Last run: never") {
		t.Errorf("unexpected status:\n%s", msg)
	}

	msg = FormatStatus(Status{
		Provider: "binance", Universe: "coingecko",
		LastRun: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
		Included: 45, Excluded: 5, Current: 42.25, HasPoint: true,
	})
	for _, want := range []string{"Assets: 45 included, 5 excluded", "Current breadth: 42.3%"} {
		if !strings.Contains(msg, want) {
			t.Errorf("status missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatStatus_EscapesErrorText(t *testing.T) {
	msg := FormatStatus(Status{
		Provider: "yahoo", Universe: "static",
		LastRun:   time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
		LastError: `yahoo: status 502: <html><body>Bad Gateway</body></html>`,
	})
	if strings.Contains(msg, "<html>") {
		t.Errorf("raw markup leaked into status:\n%s", msg)
	}
	if !strings.Contains(msg, "Last error: yahoo: status 502: &lt;html&gt;&lt;body&gt;Bad Gateway") {
		t.Errorf("expected escaped error text:\n%s", msg)
	}
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure(errors.New(`fetch "A&B": <timeout>`))
	want := "❌ Breadth run failed: fetch &#34;A&amp;B&#34;: &lt;timeout&gt;"
	if msg != want {
		t.Errorf("got %q, want %q", msg, want)
	}
}

func TestFormatHistory(t *testing.T) {
	if msg := FormatHistory(model.BreadthSeries{}); !strings.Contains(msg, "No stored breadth history") {
		t.Errorf("unexpected empty history %q", msg)
	}
	msg := FormatHistory(model.BreadthSeries{Points: []model.BreadthPoint{
		{Date: day(0), Percentage: 50, CountAbove: 1, CountTotal: 2},
		{Date: day(1), Percentage: 75, CountAbove: 3, CountTotal: 4},
	}})
	for _, want := range []string{"2 days", "2024-03-01  50.0% (1/2)", "2024-03-02  75.0% (3/4)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("history missing %q:\n%s", want, msg)
		}
	}
}
