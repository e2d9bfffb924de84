package breadth

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"MarketBreadth/internal/model"
)

func sampleSeries() model.BreadthSeries {
	return model.BreadthSeries{Points: []model.BreadthPoint{
		{Date: day0, Percentage: Percentage(1, 3), CountAbove: 1, CountTotal: 3},
		{Date: day0.AddDate(0, 0, 1), Percentage: Percentage(2, 3), CountAbove: 2, CountTotal: 3},
		{Date: day0.AddDate(0, 0, 4), Percentage: Percentage(5, 5), CountAbove: 5, CountTotal: 5},
		{Date: day0.AddDate(0, 0, 5), Percentage: Percentage(0, 4), CountAbove: 0, CountTotal: 4},
	}}
}

func TestRecords_JSONRoundTrip(t *testing.T) {
	s := sampleSeries()
	b, err := MarshalSeries(s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"percentage":33.3`) || !strings.Contains(string(b), `"percentage":100.0`) {
		t.Errorf("percentages not rendered with one decimal: %s", b)
	}
	if !strings.Contains(string(b), `"date":"2024-03-01"`) {
		t.Errorf("date not in ISO form: %s", b)
	}
	got, err := UnmarshalSeries(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestRecords_CSVRoundTrip(t *testing.T) {
	s := sampleSeries()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "date,percentage,countAbove,countTotal" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "2024-03-01,33.3,1,3" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestFromRecords_Rejects(t *testing.T) {
	bad := [][]Record{
		{{Date: "2024-03-02", Percentage: 50, CountAbove: 1, CountTotal: 2}, {Date: "2024-03-01", Percentage: 50, CountAbove: 1, CountTotal: 2}},
		{{Date: "2024-03-01", Percentage: 0, CountAbove: 0, CountTotal: 0}},
		{{Date: "2024-03-01", Percentage: 0, CountAbove: 3, CountTotal: 2}},
		{{Date: "03/01/2024", Percentage: 0, CountAbove: 0, CountTotal: 2}},
	}
	for i, recs := range bad {
		if _, err := FromRecords(recs); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestWriteFile(t *testing.T) {
	s := sampleSeries()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "breadth.csv")
	if err := WriteFile(csvPath, s); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := ReadCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("csv file mismatch:\n got %+v\nwant %+v", got, s)
	}

	jsonPath := filepath.Join(dir, "breadth.JSON")
	if err := WriteFile(jsonPath, s); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if got, err = UnmarshalSeries(b); err != nil || !reflect.DeepEqual(got, s) {
		t.Errorf("json file mismatch: %v\n got %+v\nwant %+v", err, got, s)
	}
	if _, err := os.Stat(jsonPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
