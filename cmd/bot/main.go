package main

import (
	"context"
	"log"
	"log/slog"

	tb "gopkg.in/telebot.v3"

	"github.com/roe7878/studybot-roe/internal/bot"
	"github.com/roe7878/studybot-roe/internal/bot/middleware"
	"github.com/roe7878/studybot-roe/internal/clock"
	"github.com/roe7878/studybot-roe/internal/config"
	"github.com/roe7878/studybot-roe/internal/db"
	"github.com/roe7878/studybot-roe/internal/logging"
	"github.com/roe7878/studybot-roe/internal/repositories"
	"github.com/roe7878/studybot-roe/internal/stats"
)

func main() {

	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logging.Init(conf.Logger)

	database, err := db.NewDB(&conf.Db)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.RunMigrations("migrations"); err != nil {
		log.Fatal(err)
	}

	clk := clock.NewSystem(conf.Bot.Location)
	sessionRepo := repositories.NewSessionRepo(database, conf.Bot.Location)

	// One-time rewrite of string-encoded legacy timestamps; keeps the
	// aggregation path on the integer fast branch.
	fixed, err := sessionRepo.NormalizeLegacyTimestamps(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	if fixed > 0 {
		slog.Info("legacy timestamps normalized", "rows", fixed)
	}

	engine := stats.NewEngine(sessionRepo, clk)

	pref := tb.Settings{
		Token:  conf.TG.Token,
		Poller: middleware.DropOldMessages(conf.Bot.DropOldMessagesAfter),
		OnError: func(err error, c tb.Context) {
			slog.Error("telebot error", "error", err)
		},
	}

	b, err := tb.NewBot(pref)
	if err != nil {
		log.Fatal(err)
	}

	logging.SetNotifier(logging.NewNotifier(b, conf.Admin.AdminsID))

	handlers := bot.NewHandlers(b, sessionRepo, engine, clk, conf.Bot.RankLimit)
	handlers.Register()

	slog.Info("bot starts...", "zone", conf.Bot.Location.String())
	b.Start()
}
