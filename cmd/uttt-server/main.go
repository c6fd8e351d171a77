// uttt-server hosts ultimate tic-tac-toe games over HTTP and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/config"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/store"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/web"
)

var (
	flagAddr = flag.String("addr", "", "listen address (overrides config)")
	flagDB   = flag.String("db", "", "game archive path (overrides config)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "uttt-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *flagAddr != "" {
		cfg.Addr = *flagAddr
	}
	if *flagDB != "" {
		cfg.DBPath = *flagDB
	}
	log := cfg.Logger(os.Stderr)

	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := app.NewService(
		app.WithLogger(log),
		app.WithArchiver(st),
		app.WithBotDepth(cfg.BotDepth),
		app.WithBotTimeout(cfg.BotTimeout()),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(svc, log, st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("db", cfg.DBPath).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting-down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
