package breadth

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"MarketBreadth/internal/model"
)

// Percent renders a breadth percentage with exactly one fractional digit.
type Percent float64

func (p Percent) String() string {
	return decimal.NewFromFloat(float64(p)).StringFixed(1)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("parse percentage %s: %w", b, err)
	}
	*p = Percent(d.Round(1).InexactFloat64())
	return nil
}

// Record is the output form of one BreadthPoint.
type Record struct {
	Date       string  `json:"date"`
	Percentage Percent `json:"percentage"`
	CountAbove int     `json:"countAbove"`
	CountTotal int     `json:"countTotal"`
}

// ToRecords converts a series into output records.
func ToRecords(s model.BreadthSeries) []Record {
	out := make([]Record, len(s.Points))
	for i, p := range s.Points {
		out[i] = Record{
			Date:       model.DateKey(p.Date),
			Percentage: Percent(p.Percentage),
			CountAbove: p.CountAbove,
			CountTotal: p.CountTotal,
		}
	}
	return out
}

// FromRecords validates records and rebuilds the series.
func FromRecords(recs []Record) (model.BreadthSeries, error) {
	var s model.BreadthSeries
	var prev time.Time
	for i, r := range recs {
		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return model.BreadthSeries{}, fmt.Errorf("record %d: parse date: %w", i, err)
		}
		if i > 0 && !d.After(prev) {
			return model.BreadthSeries{}, fmt.Errorf("record %d: date %s not after %s", i, r.Date, model.DateKey(prev))
		}
		if r.CountTotal <= 0 || r.CountAbove < 0 || r.CountAbove > r.CountTotal {
			return model.BreadthSeries{}, fmt.Errorf("record %d: invalid counts %d/%d", i, r.CountAbove, r.CountTotal)
		}
		prev = d
		s.Points = append(s.Points, model.BreadthPoint{
			Date:       d,
			Percentage: float64(r.Percentage),
			CountAbove: r.CountAbove,
			CountTotal: r.CountTotal,
		})
	}
	return s, nil
}

// MarshalSeries encodes a series as a JSON array of records.
func MarshalSeries(s model.BreadthSeries) ([]byte, error) {
	return json.Marshal(ToRecords(s))
}

// UnmarshalSeries decodes a JSON array produced by MarshalSeries.
func UnmarshalSeries(b []byte) (model.BreadthSeries, error) {
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return model.BreadthSeries{}, fmt.Errorf("decode records: %w", err)
	}
	return FromRecords(recs)
}

var csvHeader = []string{"date", "percentage", "countAbove", "countTotal"}

// WriteCSV writes the series as CSV with a header row.
func WriteCSV(w io.Writer, s model.BreadthSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range ToRecords(s) {
		row := []string{r.Date, r.Percentage.String(), strconv.Itoa(r.CountAbove), strconv.Itoa(r.CountTotal)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses output written by WriteCSV.
func ReadCSV(r io.Reader) (model.BreadthSeries, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return model.BreadthSeries{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return model.BreadthSeries{}, nil
	}
	recs := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			return model.BreadthSeries{}, fmt.Errorf("csv row %d: expected %d fields, got %d", i+1, len(csvHeader), len(row))
		}
		pct, err := decimal.NewFromString(row[1])
		if err != nil {
			return model.BreadthSeries{}, fmt.Errorf("csv row %d: percentage: %w", i+1, err)
		}
		above, err := strconv.Atoi(row[2])
		if err != nil {
			return model.BreadthSeries{}, fmt.Errorf("csv row %d: countAbove: %w", i+1, err)
		}
		total, err := strconv.Atoi(row[3])
		if err != nil {
			return model.BreadthSeries{}, fmt.Errorf("csv row %d: countTotal: %w", i+1, err)
		}
		recs = append(recs, Record{
			Date:       row[0],
			Percentage: Percent(pct.Round(1).InexactFloat64()),
			CountAbove: above,
			CountTotal: total,
		})
	}
	return FromRecords(recs)
}

// WriteFile saves s to path, as JSON when the extension is .json and as
// CSV otherwise. The previous file is replaced only once the new one is
// fully written.
func WriteFile(path string, s model.BreadthSeries) error {
	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := MarshalSeries(s)
		if err != nil {
			return err
		}
		buf.Write(b)
	} else if err := WriteCSV(&buf, s); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
