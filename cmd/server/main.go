package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/archive"
	"github.com/DoyleJ11/typing-battle-backend/internal/config"
	"github.com/DoyleJ11/typing-battle-backend/internal/crypto"
	"github.com/DoyleJ11/typing-battle-backend/internal/httpapi"
	"github.com/DoyleJ11/typing-battle-backend/internal/hub"
	"github.com/DoyleJ11/typing-battle-backend/internal/logging"
	"github.com/DoyleJ11/typing-battle-backend/internal/registry"
	"github.com/DoyleJ11/typing-battle-backend/internal/room"
	"github.com/DoyleJ11/typing-battle-backend/internal/words"
	"github.com/DoyleJ11/typing-battle-backend/internal/ws"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dict, err := loadWords(cfg.WordsFile)
	if err != nil {
		return err
	}

	var (
		recorder room.Recorder = archive.Nop{}
		history  httpapi.MatchHistory
	)
	if cfg.DatabaseURL != "" {
		store, openErr := archive.Open(cfg.DatabaseURL)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		recorder, history = store, store
		logger.Info("match archive enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg.OutboxSize, logger)
	h := hub.NewHub(ctx, hub.Deps{
		Out:       reg,
		Passwords: crypto.NewArgon2idHasher(1, 64*1024, 32, 16, 2),
		Words:     dict,
		Recorder:  recorder,
		Logger:    logger,
	}, hub.Options{
		MaxPlayers:          cfg.MaxPlayers,
		IdleTimeout:         cfg.IdleRoomTimeout,
		DefaultMatchSeconds: cfg.DefaultMatchSeconds,
	})
	dispatcher := ws.NewDispatcher(h, reg, ws.DispatcherOptions{
		ChatRate:      cfg.ChatRate,
		ChatBurst:     cfg.ChatBurst,
		PasswordRate:  cfg.PasswordRate,
		PasswordBurst: cfg.PasswordBurst,
	}, logger)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Rooms:      h,
			History:    history,
			Dispatcher: dispatcher,
			WS:         ws.HandlerOptions{OriginPatterns: cfg.AllowedOrigins},
			Logger:     logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return h.RunReaper(gctx, cfg.ReaperInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), h.Shutdown(sctx))
	})

	return g.Wait()
}

func loadWords(path string) (*words.Dictionary, error) {
	if path == "" {
		return words.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()
	d, err := words.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load words file %s: %w", path, err)
	}
	return d, nil
}
