// Command ema-avatar is a terminal front end for the talking-head assistant.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-avatar/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.PrintSchema {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := &programScheduler{}
	screen := newScreen()
	app, err := newApp(ctx, cfg, scheduler, screen)
	if err != nil {
		return err
	}
	defer app.Close()

	program := tea.NewProgram(newModel(app, screen), tea.WithAltScreen(), tea.WithContext(ctx))
	scheduler.program = program
	app.Start()

	_, err = program.Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
