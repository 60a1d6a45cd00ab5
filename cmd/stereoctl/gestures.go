package main

import (
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/gesture"
	"stereoctl.app/stereoctl/httphandlers"
)

var flagListen string

var gesturesCmd = &cobra.Command{
	Use:   "gestures [FILE]",
	Short: "Accept tracker gesture events over HTTP and drive the player",
	Long: `gestures starts an HTTP server accepting session and gesture events from a
hand tracker (POST /events), direct actions (POST /actions/{name}) and a state
query (GET /state). When FILE is given it is opened first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: gesturesRun,
}

func init() {
	gesturesCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (overrides gestures.listen)")
}

func gesturesRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m, err := gesture.ParseMap(cfg.Gestures.Map)
	if err != nil {
		return err
	}

	listen := cfg.Gestures.Listen
	if flagListen != "" {
		listen = flagListen
	}

	var abs string
	if len(args) == 1 {
		if abs, err = checkVideo(args[0]); err != nil {
			return err
		}
	}

	scr := logScreen{log: &logger}
	ctrl, err := connectController(ctx, scr)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	if abs != "" {
		if err := ctrl.OpenFile(ctx, abs); err != nil {
			return err
		}
	}

	d := gesture.NewDispatcher(ctrl, m, cfg.Gestures.MinInterval)
	d.LogOutput = logOutput

	runDone := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(runDone)
	}()

	s := httphandlers.NewServer(listen, d)
	s.LogOutput = logOutput

	serverStarted := make(chan error)
	go func() {
		s.StartServer(serverStarted, scr)
	}()

	if err := <-serverStarted; err != nil {
		cancel()
		<-runDone
		return errors.Wrap(err, "starting event server")
	}

	logger.Info().Str("Addr", s.Addr().String()).Msg("accepting tracker events")

	<-ctx.Done()
	s.StopServer()
	<-runDone

	return nil
}
