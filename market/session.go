package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptyCalendar   = errors.New("calendar has no sessions")
	ErrSessionOrder    = errors.New("sessions must be strictly ascending by date")
	ErrSessionBounds   = errors.New("session open must be before close")
	ErrSessionNotFound = errors.New("session not found")
)

// Session is one trading day. Open and Close are absolute instants in the
// exchange location; Date is midnight of the trading day in that location.
//
// Extra holds optional calendar columns (early close flags, settlement
// dates, ...) that the clock never looks at.
type Session struct {
	Date  time.Time
	Open  time.Time
	Close time.Time
	Extra map[string]string
}

// NewSession builds a session from a date and wall clock open/close times.
func NewSession(date time.Time, openHour, openMin, closeHour, closeMin int) Session {
	y, m, d := date.Date()
	loc := date.Location()
	return Session{
		Date:  time.Date(y, m, d, 0, 0, 0, 0, loc),
		Open:  time.Date(y, m, d, openHour, openMin, 0, 0, loc),
		Close: time.Date(y, m, d, closeHour, closeMin, 0, 0, loc),
	}
}

// Minutes is the session length in whole minutes.
func (s Session) Minutes() int {
	return int(s.Close.Sub(s.Open) / time.Minute)
}

// MinuteOf returns the number of whole minutes between the session open and t.
func (s Session) MinuteOf(t time.Time) float64 {
	return math.Floor(t.Sub(s.Open).Minutes())
}

// Contains reports whether t lies inside [Open, Close].
func (s Session) Contains(t time.Time) bool {
	return !t.Before(s.Open) && !t.After(s.Close)
}

// Key is the calendar date as YYYY-MM-DD.
func (s Session) Key() string {
	return s.Date.Format("2006-01-02")
}

func (s Session) String() string {
	return fmt.Sprintf("%s %s-%s", s.Key(), s.Open.Format("15:04"), s.Close.Format("15:04"))
}

// Calendar is an ordered run of trading sessions. Gaps between dates are
// allowed; duplicates and out-of-order dates are not.
type Calendar struct {
	sessions []Session
}

// NewCalendar validates and wraps sessions.
func NewCalendar(sessions []Session) (*Calendar, error) {
	if len(sessions) == 0 {
		return nil, ErrEmptyCalendar
	}
	for i, s := range sessions {
		if !s.Open.Before(s.Close) {
			return nil, fmt.Errorf("session %s: %w", s.Key(), ErrSessionBounds)
		}
		if i > 0 && !sessions[i-1].Date.Before(s.Date) {
			return nil, fmt.Errorf("session %d (%s) after %s: %w",
				i, s.Key(), sessions[i-1].Key(), ErrSessionOrder)
		}
	}
	out := make([]Session, len(sessions))
	copy(out, sessions)
	return &Calendar{sessions: out}, nil
}

// LoadCalendar asks a provider for the sessions in [from, to].
func LoadCalendar(ctx context.Context, p CalendarProvider, from, to time.Time) (*Calendar, error) {
	sessions, err := p.Sessions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	return NewCalendar(sessions)
}

func (c *Calendar) Len() int { return len(c.sessions) }

// At returns the i-th session.
func (c *Calendar) At(i int) (Session, bool) {
	if i < 0 || i >= len(c.sessions) {
		return Session{}, false
	}
	return c.sessions[i], true
}

func (c *Calendar) First() Session { return c.sessions[0] }
func (c *Calendar) Last() Session  { return c.sessions[len(c.sessions)-1] }

// Sessions returns a copy of the sessions.
func (c *Calendar) Sessions() []Session {
	out := make([]Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// CalendarProvider supplies trading sessions for a date range, ascending.
type CalendarProvider interface {
	Sessions(ctx context.Context, from, to time.Time) ([]Session, error)
}
