package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/gesture"
	"stereoctl.app/stereoctl/interactive"
	"stereoctl.app/stereoctl/player"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control whatever the player has open from the terminal",
	Args:  cobra.NoArgs,
	RunE:  controlRun,
}

func controlRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	quietConsole()

	ctrl, err := connectController(ctx, logScreen{log: &logger})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	return runInteractive(ctx, ctrl, "Stereo Player")
}

// quietConsole stops console logging while the terminal UI owns the screen.
// An explicit --log-file keeps logging.
func quietConsole() {
	if flagLogFile == "" {
		logOutput = nil
	}
}

// runInteractive drives ctrl from the terminal until the user quits or ctx
// is done. The REPEAT indicator starts from the controller belief.
func runInteractive(ctx context.Context, ctrl *player.Controller, title string) error {
	repeat := ctrl.Belief().Repeat

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scr, err := interactive.InitTcellNewScreen(cancel)
	if err != nil {
		return err
	}

	d := gesture.NewDispatcher(ctrl, nil, 0)
	d.LogOutput = logOutput
	scr.Dispatcher = d

	ctrl.Notifier = scr
	ctrl.Exit = func(code int) {
		scr.Fini()
		os.Exit(code)
	}

	runDone := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(runDone)
	}()

	initErr := make(chan error, 1)
	go scr.InterInit(ctx, title, repeat, initErr)

	select {
	case err = <-initErr:
		cancel()
	case <-ctx.Done():
		scr.Fini()
	}

	<-runDone
	ctrl.Notifier = nil
	return err
}
