package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadBarsCSV reads rows of
//
//	time,symbol,open,high,low,close,volume
//
// into a Memory store. A header row ("time,...") is allowed. Times without a
// zone are read in loc.
func LoadBarsCSV(path string, loc *time.Location, into *Memory) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReadBarsCSV(f, loc, into)
}

func ReadBarsCSV(r io.Reader, loc *time.Location, into *Memory) error {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	bySymbol := map[string][]market.Bar{}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if len(row) < 6 {
			return fmt.Errorf("line %d: need time,symbol,open,high,low,close[,volume]", line)
		}

		t, err := parseTime(row[0], loc)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		sym := strings.TrimSpace(row[1])
		if sym == "" {
			return fmt.Errorf("line %d: empty symbol", line)
		}

		var vals [5]float64
		for i := 0; i < 5; i++ {
			if 2+i >= len(row) {
				break
			}
			s := strings.TrimSpace(row[2+i])
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("line %d: bad number %q: %w", line, s, err)
			}
			vals[i] = v
		}

		bySymbol[sym] = append(bySymbol[sym], market.Bar{
			Time:   t,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	for sym, bars := range bySymbol {
		into.AddBars(sym, bars...)
	}
	return nil
}

// LoadCalendarCSV reads rows of
//
//	date,open,close[,extra...]
//
// where date is YYYY-MM-DD and open/close are HH:MM wall clock times in loc.
// Columns past the third are kept in Session.Extra keyed by header name.
func LoadCalendarCSV(path string, loc *time.Location) ([]market.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCalendarCSV(f, loc)
}

func ReadCalendarCSV(r io.Reader, loc *time.Location) ([]market.Session, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var header []string
	var out []market.Session
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			header = row
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: need date,open,close", line)
		}

		day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(row[0]), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date: %w", line, err)
		}
		oh, om, err := parseClock(row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad open: %w", line, err)
		}
		ch, cm, err := parseClock(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad close: %w", line, err)
		}

		s := market.NewSession(day, oh, om, ch, cm)
		for i := 3; i < len(row); i++ {
			key := fmt.Sprintf("col%d", i)
			if i < len(header) {
				key = strings.TrimSpace(header[i])
			}
			if s.Extra == nil {
				s.Extra = map[string]string{}
			}
			s.Extra[key] = strings.TrimSpace(row[i])
		}
		out = append(out, s)
	}
	return out, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
