package bot

import (
	"fmt"
	"strings"
	"time"

	tb "gopkg.in/telebot.v3"

	"github.com/roe7878/studybot-roe/internal/models"
	"github.com/roe7878/studybot-roe/internal/stats"
)

const startedAtLayout = "2006-01-02 15:04:05"

// RenderLeaderboard formats ranking entries as numbered lines.
func RenderLeaderboard(title string, entries []models.LeaderboardEntry) string {
	var b strings.Builder
	b.WriteString(title)
	for i, e := range entries {
		name := e.UserName
		if name == "" {
			name = "(unknown)"
		}
		b.WriteString(fmt.Sprintf("\n%d. %s - %s", i+1, name, stats.FormatDuration(e.TotalSeconds)))
	}
	return b.String()
}

// RenderSessions formats a /sessions listing, newest first.
func RenderSessions(title string, items []stats.SessionSummary, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(title)
	for i, s := range items {
		started := time.Unix(s.StartTS, 0).In(loc).Format(startedAtLayout)
		if s.Open {
			b.WriteString(fmt.Sprintf("\n%d. %s (ongoing, %s)", i+1, started, stats.FormatDuration(s.Seconds)))
			continue
		}
		b.WriteString(fmt.Sprintf("\n%d. %s (%s)", i+1, started, stats.FormatDuration(s.Seconds)))
	}
	return b.String()
}

func invalidPeriodReply(valid []string) string {
	return "Pick a period from: " + strings.Join(valid, ", ") + ". Example: /stats week"
}

func displayName(u *tb.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// groupID maps a chat to the session's group scope: the chat ID for
// groups, 0 for private chats (sessions recorded outside any group).
func groupID(c tb.Context) int64 {
	chat := c.Chat()
	if chat == nil || chat.Type == tb.ChatPrivate {
		return 0
	}
	return chat.ID
}
