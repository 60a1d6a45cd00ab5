package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/config"
	"stereoctl.app/stereoctl/devices"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/player"
	"stereoctl.app/stereoctl/simplayer"
	"stereoctl.app/stereoctl/soapcalls"
)

// logScreen reports controller messages through the CLI logger when no
// terminal UI is running.
type logScreen struct {
	log *zerolog.Logger
}

func (s logScreen) EmitMsg(msg string) {
	s.log.Info().Msg(msg)
}

func (s logScreen) Fini() {}

// newTransport builds the transport named by kind.
func newTransport(ctx context.Context, c *config.Config, kind string) (dispatch.Transport, error) {
	switch kind {
	case config.TransportCOM:
		return dispatch.NewCOMTransport(c.ClassID), nil
	case config.TransportSim:
		sim := simplayer.New()
		sim.LogOutput = logOutput
		return sim, nil
	case config.TransportSOAP:
		target := c.Target
		if target == "" {
			devs, err := devices.LoadAllDevices(ctx, c.DiscoveryDelay)
			if err != nil {
				return nil, errors.Wrap(err, "discovering automation bridges")
			}
			target, err = devices.DevicePicker(devs, 1)
			if err != nil {
				return nil, err
			}
			logger.Info().Str("Target", target).Msg("using first discovered bridge")
		}

		t := soapcalls.NewBridgeTransport(target)
		t.LogOutput = logOutput
		return t, nil
	}

	return nil, fmt.Errorf("unknown transport %q", kind)
}

// connectController builds and connects a controller over the configured
// transport.
func connectController(ctx context.Context, n player.Notifier) (*player.Controller, error) {
	t, err := newTransport(ctx, cfg, cfg.Transport)
	if err != nil {
		return nil, err
	}

	client, err := dispatch.NewClient(t)
	if err != nil {
		return nil, errors.Wrap(err, "creating client")
	}
	client.LogOutput = logOutput

	ctrl := player.New(client)
	ctrl.LogOutput = logOutput
	ctrl.Notifier = n

	if err := ctrl.Connect(ctx); err != nil {
		_ = client.Shutdown()
		return nil, err
	}

	return ctrl, nil
}
