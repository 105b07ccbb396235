package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jhitster/internal/app"
	"jhitster/internal/bot"
	"jhitster/internal/logging"
	"jhitster/internal/ports/ws"

	"github.com/caarlos0/env/v11"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

type botConfig struct {
	Server     string        `env:"JHITSTER_SERVER"      envDefault:"ws://localhost:8080"`
	Room       string        `env:"JHITSTER_ROOM,required"`
	Count      int           `env:"BOT_COUNT"            envDefault:"1"`
	Identities string        `env:"BOT_IDENTITIES"       envDefault:"data/bots.json"`
	Interval   time.Duration `env:"BOT_INTERVAL"         envDefault:"750ms"`
	LogLevel   string        `env:"JHITSTER_LOG_LEVEL"   envDefault:"info"`
}

func main() {
	_ = godotenv.Load()
	var cfg botConfig
	if err := env.Parse(&cfg); err != nil {
		logging.New(os.Stderr, "error", false).Error("Bot: %v", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, true)

	pool, err := bot.LoadIdentities(cfg.Identities)
	if err != nil {
		logger.Warn("Bot: %v, using numbered bots.", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := strings.TrimRight(cfg.Server, "/") + "/rooms/" + cfg.Room + "/ws"
	logger.Info("Bot: starting %d bots against %s.", cfg.Count, url)

	eg, ctx := errgroup.WithContext(ctx)
	for i := range cfg.Count {
		id := bot.IdentityAt(pool, i)
		eg.Go(func() error {
			return play(ctx, url, id, cfg.Interval, logger.WithField("bot", id.Name))
		})
	}
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot: %v", err)
		os.Exit(1)
	}
}

func play(ctx context.Context, url string, id bot.Identity, interval time.Duration, logger runtime.Logger) error {
	level, err := bot.ParseLevel(id.Difficulty)
	if err != nil {
		return err
	}
	brain, err := bot.NewBrain(level, nil)
	if err != nil {
		return err
	}

	client, err := ws.Dial(ctx, url, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	guest := app.NewGuest(client, logger)
	go func() {
		if err := client.Run(ctx, guest); err != nil && ctx.Err() == nil {
			logger.Warn("Bot: connection closed: %v", err)
		}
	}()
	if err := guest.Join(id.Name); err != nil {
		return fmt.Errorf("join as %s: %w", id.Name, err)
	}
	logger.Info("Bot: joined as %s (%s).", id.Name, level)
	return bot.NewAgent(id.Name, brain, guest, logger).Run(ctx, interval)
}
