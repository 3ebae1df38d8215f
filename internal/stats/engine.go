// Package stats reduces stored sessions to totals, rankings and
// listings. Summation is interval-overlap against the query window, not
// a filter over precomputed durations: a session can start before, end
// after, or straddle a window boundary, and only true intersection
// gives correct partial credit. Open sessions are clamped to "now" so
// totals-so-far are accurate without closing the session first.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roe7878/studybot-roe/internal/clock"
	"github.com/roe7878/studybot-roe/internal/models"
	"github.com/roe7878/studybot-roe/internal/period"
)

// SessionStore is the slice of the repository the engine reads from.
type SessionStore interface {
	ClosedByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error)
	OpenByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error)
	ClosedByGroup(ctx context.Context, groupID int64) ([]models.Session, error)
	OpenByGroup(ctx context.Context, groupID int64) ([]models.Session, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
}

// Window is a half-open epoch-second range [Start, End).
type Window struct {
	Start int64
	End   int64
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: start.Unix(), End: end.Unix()}
}

type Engine struct {
	store SessionStore
	clock clock.Clock
}

func NewEngine(store SessionStore, clk clock.Clock) *Engine {
	return &Engine{
		store: store,
		clock: clk,
	}
}

// overlap is the intersection length of [start, end) and the window.
// A corrupt row with end <= start contributes zero.
func overlap(start, end int64, win Window) int64 {
	lo := max(start, win.Start)
	hi := min(end, win.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// UserTotal sums the caller's overlap-seconds against win. Open
// sessions count with their end clamped to min(now, window end) when
// includeOpen is set. Never negative.
func (e *Engine) UserTotal(ctx context.Context, userID, groupID int64, win Window, includeOpen bool) (int64, error) {
	closed, err := e.store.ClosedByUser(ctx, userID, groupID)
	if err != nil {
		return 0, fmt.Errorf("user total: %w", err)
	}

	var total int64
	for _, s := range closed {
		total += overlap(s.StartTS, s.EndTS, win)
	}

	if includeOpen {
		open, err := e.store.OpenByUser(ctx, userID, groupID)
		if err != nil {
			return 0, fmt.Errorf("user total: %w", err)
		}
		now := e.clock.Now().Unix()
		for _, s := range open {
			total += overlap(s.StartTS, min(now, win.End), win)
		}
	}

	if total < 0 {
		total = 0
	}
	return total, nil
}

// Rank returns the group's users ordered by total overlap-seconds
// descending, truncated to limit. Ties keep first-seen order. The
// display name is the newest non-empty one seen for the user.
func (e *Engine) Rank(ctx context.Context, groupID int64, win Window, includeOpen bool, limit int) ([]models.LeaderboardEntry, error) {
	entries, err := e.rankAll(ctx, groupID, win, includeOpen)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (e *Engine) rankAll(ctx context.Context, groupID int64, win Window, includeOpen bool) ([]models.LeaderboardEntry, error) {
	closed, err := e.store.ClosedByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	totals := map[int64]*models.LeaderboardEntry{}
	var order []int64 // first-seen user order, the stable tie-break

	add := func(s models.Session, secs int64) {
		entry, ok := totals[s.UserID]
		if !ok {
			entry = &models.LeaderboardEntry{UserID: s.UserID}
			totals[s.UserID] = entry
			order = append(order, s.UserID)
		}
		entry.TotalSeconds += secs
		if s.UserName != "" { // rows arrive oldest first, newest name wins
			entry.UserName = s.UserName
		}
	}

	for _, s := range closed {
		add(s, overlap(s.StartTS, s.EndTS, win))
	}

	if includeOpen {
		open, err := e.store.OpenByGroup(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("rank: %w", err)
		}
		now := e.clock.Now().Unix()
		for _, s := range open {
			add(s, overlap(s.StartTS, min(now, win.End), win))
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *totals[id])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalSeconds > entries[j].TotalSeconds
	})
	return entries, nil
}

// Overall reports the group's all-time summary: distinct recorders,
// total and average accumulated seconds, and the top entries.
func (e *Engine) Overall(ctx context.Context, groupID int64, limit int) (models.OverallStats, error) {
	start, end, err := period.Range(period.All, e.clock.Now())
	if err != nil {
		return models.OverallStats{}, err
	}

	entries, err := e.rankAll(ctx, groupID, NewWindow(start, end), true)
	if err != nil {
		return models.OverallStats{}, err
	}

	var out models.OverallStats
	out.Recorders = len(entries)
	for _, entry := range entries {
		out.TotalSeconds += entry.TotalSeconds
	}
	if out.Recorders > 0 {
		out.AvgSeconds = out.TotalSeconds / int64(out.Recorders)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out.Top = entries
	return out, nil
}

// SessionSummary is one line of a /sessions listing.
type SessionSummary struct {
	StartTS int64
	EndTS   int64 // 0 while open
	Seconds int64 // full session duration; elapsed-so-far when open
	Open    bool
}

// recentFetch bounds how far back RecentSessions scans for rows that
// might still overlap the window.
const recentFetch = 200

// RecentSessions lists the caller's newest sessions that overlap win,
// newest first, truncated to limit.
func (e *Engine) RecentSessions(ctx context.Context, userID int64, win Window, limit int) ([]SessionSummary, error) {
	rows, err := e.store.RecentByUser(ctx, userID, recentFetch)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}

	now := e.clock.Now().Unix()
	var out []SessionSummary
	for _, s := range rows {
		end := s.EndTS
		secs := s.Duration
		if s.Open() {
			end = min(now, win.End)
			secs = max(0, now-s.StartTS)
		}
		if overlap(s.StartTS, end, win) == 0 {
			continue
		}
		out = append(out, SessionSummary{
			StartTS: s.StartTS,
			EndTS:   s.EndTS,
			Seconds: secs,
			Open:    s.Open(),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
