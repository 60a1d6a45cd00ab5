package main

import (
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/config"
	"stereoctl.app/stereoctl/devices"
	"stereoctl.app/stereoctl/soapcalls"
	"stereoctl.app/stereoctl/utils"
)

const aliveInterval = 5 * time.Minute

var (
	flagBridgeListen  string
	flagBridgeBackend string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve the local player to remote stereoctl clients over SOAP",
	Args:  cobra.NoArgs,
	RunE:  bridgeRun,
}

func init() {
	bridgeCmd.Flags().StringVarP(&flagBridgeListen, "listen", "l", "", "Listen address (overrides bridge.listen)")
	bridgeCmd.Flags().StringVar(&flagBridgeBackend, "backend", "", "Player backend: com | sim (overrides bridge.backend)")
}

func bridgeRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend := cfg.Bridge.Backend
	if flagBridgeBackend != "" {
		backend = flagBridgeBackend
	}

	if backend != config.TransportCOM && backend != config.TransportSim {
		return fmt.Errorf("bridge backend %q: want com or sim", backend)
	}

	listen := cfg.Bridge.Listen
	if flagBridgeListen != "" {
		listen = flagBridgeListen
	}

	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return errors.Wrap(err, "parsing bridge listen address")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrap(err, "parsing bridge listen port")
	}

	t, err := newTransport(ctx, cfg, backend)
	if err != nil {
		return err
	}

	b := soapcalls.NewBridgeServer(cfg.Bridge.FriendlyName, t)
	b.LogOutput = logOutput
	defer b.Close()

	addr, err := utils.PickListenAddr(host, port)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "bridge listen error")
	}

	srv := &http.Server{Handler: b, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	location, err := utils.AdvertiseURL(ln.Addr(), soapcalls.DescriptionPath)
	if err != nil {
		return err
	}

	logger.Info().Str("Location", location).Str("Backend", backend).Msg("bridge ready")

	if !cfg.Bridge.Advertise {
		<-ctx.Done()
		return nil
	}

	adv, err := devices.Advertise(b.FriendlyName, b.UDN, location)
	if err != nil {
		return err
	}
	defer adv.Close()

	ticker := time.NewTicker(aliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := adv.Alive(); err != nil {
				logger.Warn().Err(err).Msg("ssdp alive failed")
			}
		}
	}
}
