// uttt plays ultimate tic-tac-toe against the bot in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/config"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/store"
	"github.com/jaminalder/codex-ultimate-tic-tac-toe/internal/tui"
)

var (
	flagDepth      = flag.Int("depth", 0, "bot search depth (1-9, overrides config)")
	flagLog        = flag.String("log", "", "write logs to this file")
	flagNoArchive  = flag.Bool("no-archive", false, "do not record finished games")
	flagSaveConfig = flag.Bool("save-config", false, "write the effective config to the user config file and exit")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "uttt:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *flagDepth != 0 {
		cfg.BotDepth = *flagDepth
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if *flagSaveConfig {
		return cfg.Save()
	}

	// The terminal belongs to tview, so logs go to a file or nowhere.
	log := zerolog.Nop()
	if *flagLog != "" {
		f, err := os.OpenFile(*flagLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		cfg.LogPretty = false
		log = cfg.Logger(f)
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithBotDepth(cfg.BotDepth),
		app.WithBotTimeout(cfg.BotTimeout()),
	}
	if !*flagNoArchive {
		st, err := store.Open(cfg.DBPath, log)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, app.WithArchiver(st))
	}
	svc := app.NewService(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	return tui.New(svc, cfg.BotDepth, log).Run()
}
