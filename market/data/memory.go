// Package data holds the calendar and price collaborators the simulation
// reads from: an in-memory store, CSV loaders, a SQLite store and a
// synthetic weekday calendar.
package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Memory keeps bars per symbol and an optional session list in memory.
type Memory struct {
	mu       sync.RWMutex
	bars     map[string][]market.Bar
	sessions []market.Session
}

func NewMemory() *Memory {
	return &Memory{bars: make(map[string][]market.Bar)}
}

// AddBars appends bars for symbol and keeps them ordered.
func (m *Memory) AddBars(symbol string, bars ...market.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(m.bars[symbol], bars...)
	market.SortBars(all)
	m.bars[symbol] = all
}

// AddSessions appends sessions and keeps them ordered by date.
func (m *Memory) AddSessions(sessions ...market.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessions...)
	sort.SliceStable(m.sessions, func(i, j int) bool {
		return m.sessions[i].Date.Before(m.sessions[j].Date)
	})
}

// Symbols lists the symbols that have bars.
func (m *Memory) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bars))
	for s := range m.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) Bars(ctx context.Context, symbol string, s market.Session) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := market.Within(m.bars[symbol], s)
	out := make([]market.Bar, len(day))
	copy(out, day)
	return out, nil
}

func (m *Memory) Sessions(ctx context.Context, from, to time.Time) ([]market.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterSessions(m.sessions, from, to), nil
}

// filterSessions keeps sessions whose date falls in [from, to]. A zero bound
// is open.
func filterSessions(sessions []market.Session, from, to time.Time) []market.Session {
	var out []market.Session
	for _, s := range sessions {
		if !from.IsZero() && s.Date.Before(dayStart(from, s.Date.Location())) {
			continue
		}
		if !to.IsZero() && s.Date.After(dayStart(to, s.Date.Location())) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
