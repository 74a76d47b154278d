package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// WeekdayCalendar produces Monday to Friday sessions with fixed wall clock
// hours. Holidays are skipped by date (YYYY-MM-DD).
type WeekdayCalendar struct {
	Location  *time.Location
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
	Holidays  map[string]bool
}

// NYSE returns the regular 09:30-16:00 America/New_York session calendar.
func NYSE() (*WeekdayCalendar, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load exchange location: %w", err)
	}
	return &WeekdayCalendar{
		Location:  loc,
		OpenHour:  9,
		OpenMin:   30,
		CloseHour: 16,
		CloseMin:  0,
		Holidays:  map[string]bool{},
	}, nil
}

func (w *WeekdayCalendar) Sessions(ctx context.Context, from, to time.Time) ([]market.Session, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("weekday calendar: both from and to are required")
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}

	var out []market.Session
	day := dayStart(from, loc)
	last := dayStart(to, loc)
	for !day.After(last) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wd := day.Weekday()
		if wd != time.Saturday && wd != time.Sunday && !w.Holidays[day.Format("2006-01-02")] {
			out = append(out, market.NewSession(day, w.OpenHour, w.OpenMin, w.CloseHour, w.CloseMin))
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}
