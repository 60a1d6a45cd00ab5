package player

import (
	"context"
	"fmt"
	"os"
	"time"

	"stereoctl.app/stereoctl/dispatch"
)

const emergencyCloseTimeout = 5 * time.Second

// EmergencyExit closes the player best-effort, tears the connection down
// and exits the process with status 1. Only the first call has any effect.
func (p *Controller) EmergencyExit() {
	p.emergencyOnce.Do(func() {
		p.Log().Error().Str("Method", "EmergencyExit").Msg("closing player and exiting")
		p.emit("Emergency exit")

		if p.handle.Live() {
			ctx, cancel := context.WithTimeout(context.Background(), emergencyCloseTimeout)
			if err := p.Client.Invoke(ctx, p.handle, dispatch.Call(opClosePlayer)); err != nil {
				p.Log().Error().Str("Method", "EmergencyExit").Err(err).Msg("ClosePlayer failed")
			}
			cancel()
		}

		if err := p.Client.Shutdown(); err != nil {
			p.Log().Error().Str("Method", "EmergencyExit").Err(err).Msg("")
		}

		exit := p.Exit
		if exit == nil {
			exit = os.Exit
		}
		exit(1)
	})
}

// Shutdown releases the remote object and tears the transport down
// without exiting.
func (p *Controller) Shutdown() error {
	if err := p.Client.Shutdown(); err != nil {
		return fmt.Errorf("Shutdown error: %w", err)
	}
	return nil
}
