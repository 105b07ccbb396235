package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jhitster/internal/config"
	"jhitster/internal/logging"
	"jhitster/internal/packs"
	"jhitster/internal/ports"
	"jhitster/internal/ports/ws"
	"jhitster/internal/preview"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = time.Minute

func main() {
	_ = godotenv.Load()

	sc, err := config.LoadServerConfig()
	if err != nil {
		logging.New(os.Stderr, "error", false).Error("Main: %v", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, sc.LogLevel, sc.LogPretty)

	if err := config.LoadGameConfig(sc.GameConfigPath); err != nil {
		logger.Warn("Main: %v, using defaults.", err)
	}
	game := config.GetGameConfig()

	catalog, err := packs.LoadDir(sc.PacksDir)
	if err != nil {
		logger.Error("Main: failed to load packs from %s: %v", sc.PacksDir, err)
		os.Exit(1)
	}

	var resolver ports.PreviewResolver
	if sc.PreviewLookup {
		resolver = preview.NewITunes(sc.PreviewURL, nil, logger.WithField("component", "preview"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rooms := ws.NewManager(ctx, catalog, resolver, logger.WithField("component", "rooms"), ws.RoomOptions{
		Game:           game,
		DefaultPacks:   game.DefaultPacks,
		PreviewTimeout: sc.PreviewTimeout,
		IdleTTL:        sc.RoomIdleTTL,
	})
	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           ws.NewServer(rooms, catalog, logger.WithField("component", "http")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("Main: listening on %s with %d packs.", sc.Addr, len(catalog.Packs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error { return rooms.Run(ctx, sweepInterval) })
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("Main: shutdown initiated.")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		logger.Error("Main: server exited: %v", err)
		os.Exit(1)
	}
}
