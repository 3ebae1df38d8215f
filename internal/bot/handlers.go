package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/roe7878/studybot-roe/internal/clock"
	"github.com/roe7878/studybot-roe/internal/logging"
	"github.com/roe7878/studybot-roe/internal/models"
	"github.com/roe7878/studybot-roe/internal/period"
	"github.com/roe7878/studybot-roe/internal/repositories"
	"github.com/roe7878/studybot-roe/internal/stats"
)

// SessionTracker is the write half of the store the handlers drive.
type SessionTracker interface {
	Start(ctx context.Context, userID int64, userName string, groupID int64, now time.Time) (int64, error)
	Finish(ctx context.Context, userID, groupID int64, now time.Time) (*models.Session, error)
}

// Handlers routes commands to the tracker and the aggregation engine.
type Handlers struct {
	Bot       BotInterface
	Tracker   SessionTracker
	Engine    *stats.Engine
	Clock     clock.Clock
	RankLimit int
}

func NewHandlers(bot BotInterface, tracker SessionTracker, engine *stats.Engine, clk clock.Clock, rankLimit int) *Handlers {
	return &Handlers{
		Bot:       bot,
		Tracker:   tracker,
		Engine:    engine,
		Clock:     clk,
		RankLimit: rankLimit,
	}
}

func (h *Handlers) Register() {
	h.Bot.Handle("/start", h.Welcome)
	h.Bot.Handle("/help", h.Help)
	h.Bot.Handle("/study_start", h.StartSession)
	h.Bot.Handle("/study_stop", h.StopSession)
	h.Bot.Handle("/stats", h.Stats)
	h.Bot.Handle("/rank", h.Rank)
	h.Bot.Handle("/overall", h.Overall)
	h.Bot.Handle("/sessions", h.Sessions)
}

func (h *Handlers) Welcome(c telebot.Context) error {
	return c.Send(MsgWelcome)
}

func (h *Handlers) Help(c telebot.Context) error {
	return c.Send(MsgHelp)
}

func (h *Handlers) StartSession(c telebot.Context) error {
	now := h.Clock.Now()

	_, err := h.Tracker.Start(context.Background(), c.Sender().ID, displayName(c.Sender()), groupID(c), now)
	if errors.Is(err, repositories.ErrAlreadyOpen) {
		return c.Send(MsgAlreadyStudying)
	}
	if err != nil {
		return h.fail(c, "start session", err)
	}

	return c.Send(fmt.Sprintf("Study session started at %s. Good luck!", now.Format(startedAtLayout)))
}

func (h *Handlers) StopSession(c telebot.Context) error {
	now := h.Clock.Now()

	session, err := h.Tracker.Finish(context.Background(), c.Sender().ID, groupID(c), now)
	if errors.Is(err, repositories.ErrNoOpen) {
		return c.Send(MsgNothingInProgress)
	}
	if err != nil {
		return h.fail(c, "stop session", err)
	}

	return c.Send(fmt.Sprintf("Session saved! You studied for %s.", stats.FormatDuration(session.Duration)))
}

// Stats reports the caller's totals, open session included, summed
// across every chat they record in. Without an argument it reports all
// four periods at once.
func (h *Handlers) Stats(c telebot.Context) error {
	now := h.Clock.Now()
	userID := c.Sender().ID

	if len(c.Args()) == 0 {
		var b strings.Builder
		b.WriteString("📚 Your study totals:")
		for _, kind := range period.StatsKeywords() {
			total, err := h.userTotal(userID, kind, now)
			if err != nil {
				return h.fail(c, "stats", err)
			}
			b.WriteString(fmt.Sprintf("\n%s: %s", kind, stats.FormatDuration(total)))
		}
		return c.Send(b.String())
	}

	kind := strings.ToLower(c.Args()[0])
	if !contains(period.StatsKeywords(), kind) {
		return c.Send(invalidPeriodReply(period.StatsKeywords()))
	}

	total, err := h.userTotal(userID, kind, now)
	if err != nil {
		return h.fail(c, "stats", err)
	}
	return c.Send(fmt.Sprintf("Your %s total: %s", kind, stats.FormatDuration(total)))
}

func (h *Handlers) userTotal(userID int64, kind string, now time.Time) (int64, error) {
	start, end, err := period.Range(kind, now)
	if err != nil {
		return 0, err
	}
	return h.Engine.UserTotal(context.Background(), userID, repositories.AllGroups, stats.NewWindow(start, end), true)
}

func (h *Handlers) Rank(c telebot.Context) error {
	group := groupID(c)
	if group == 0 {
		return c.Send(MsgGroupOnly)
	}

	kind := period.Today
	if len(c.Args()) > 0 {
		kind = strings.ToLower(c.Args()[0])
	}
	if !contains(period.Keywords(), kind) {
		return c.Send(invalidPeriodReply(period.Keywords()))
	}

	now := h.Clock.Now()
	start, end, err := period.Range(kind, now)
	if err != nil {
		return h.fail(c, "rank", err)
	}

	entries, err := h.Engine.Rank(context.Background(), group, stats.NewWindow(start, end), true, h.RankLimit)
	if err != nil {
		return h.fail(c, "rank", err)
	}
	if len(entries) == 0 {
		return c.Send(MsgNoRecords)
	}

	title := fmt.Sprintf("🏆 Study ranking (%s, top %d):", kind, h.RankLimit)
	return c.Send(RenderLeaderboard(title, entries))
}

func (h *Handlers) Overall(c telebot.Context) error {
	group := groupID(c)
	if group == 0 {
		return c.Send(MsgGroupOnly)
	}

	overall, err := h.Engine.Overall(context.Background(), group, h.RankLimit)
	if err != nil {
		return h.fail(c, "overall", err)
	}
	if overall.Recorders == 0 {
		return c.Send(MsgNoRecords)
	}

	var b strings.Builder
	b.WriteString("📊 Overall stats:")
	b.WriteString(fmt.Sprintf("\nRecorders: %d", overall.Recorders))
	b.WriteString(fmt.Sprintf("\nTotal: %s", stats.FormatDuration(overall.TotalSeconds)))
	b.WriteString(fmt.Sprintf("\nAverage: %s", stats.FormatDuration(overall.AvgSeconds)))
	b.WriteString("\n\n")
	b.WriteString(RenderLeaderboard(fmt.Sprintf("Top %d:", h.RankLimit), overall.Top))
	return c.Send(b.String())
}

func (h *Handlers) Sessions(c telebot.Context) error {
	kind := period.Today
	if len(c.Args()) > 0 {
		kind = strings.ToLower(c.Args()[0])
	}
	if !contains(period.StatsKeywords(), kind) {
		return c.Send(invalidPeriodReply(period.StatsKeywords()))
	}

	now := h.Clock.Now()
	start, end, err := period.Range(kind, now)
	if err != nil {
		return h.fail(c, "sessions", err)
	}

	items, err := h.Engine.RecentSessions(context.Background(), c.Sender().ID, stats.NewWindow(start, end), h.RankLimit)
	if err != nil {
		return h.fail(c, "sessions", err)
	}
	if len(items) == 0 {
		return c.Send(MsgNoRecords)
	}

	title := fmt.Sprintf("🗒 Your %s sessions:", kind)
	return c.Send(RenderSessions(title, items, now.Location()))
}

// fail reports a store failure: generic reply for the caller, details
// for operators.
func (h *Handlers) fail(c telebot.Context, op string, err error) error {
	slog.Error("command failed", "op", op, "user", c.Sender().ID, "error", err)
	logging.Notify(slog.LevelError, "command failed", "op", op, "error", err)
	return c.Send(MsgStoreFailure)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
