package player

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/widestr"
)

// Controller drives the remote player. It is not safe for concurrent use;
// concurrent producers go through a single dispatching goroutine.
type Controller struct {
	Client   *dispatch.Client
	Notifier Notifier
	// Exit terminates the process after an emergency teardown. Defaults to
	// os.Exit.
	Exit        func(code int)
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	handle        *dispatch.Handle
	belief        Belief
	emergencyOnce sync.Once
}

// New returns a controller with the default belief. Call Connect before
// any operation.
func New(c *dispatch.Client) *Controller {
	return &Controller{
		Client: c,
		Logger: zerolog.Nop(),
		belief: DefaultBelief(),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (p *Controller) Log() *zerolog.Logger {
	if p.LogOutput != nil {
		p.initLogOnce.Do(func() {
			p.Logger = zerolog.New(p.LogOutput).With().Timestamp().Logger()
		})
	}
	return &p.Logger
}

// Connect acquires the remote object.
func (p *Controller) Connect(ctx context.Context) error {
	h, err := p.Client.Connect(ctx)
	if err != nil {
		p.emit(dispatch.FormatError(dispatch.CodeOf(err)))
		return fmt.Errorf("Connect error: %w", err)
	}

	p.handle = h
	return nil
}

// Belief returns a copy of the current belief.
func (p *Controller) Belief() Belief {
	return p.belief
}

func (p *Controller) emit(msg string) {
	if p.Notifier != nil {
		p.Notifier.EmitMsg(msg)
	}
}

func (p *Controller) invoke(ctx context.Context, call dispatch.CallDescriptor) error {
	if err := p.Client.Invoke(ctx, p.handle, call); err != nil {
		p.emit(dispatch.FormatError(dispatch.CodeOf(err)))
		return err
	}
	return nil
}

// OpenFile opens path in the player. On success the player is believed to
// be playing; the duration query and the repeat request that follow are
// best-effort.
func (p *Controller) OpenFile(ctx context.Context, path string) error {
	buf, err := widestr.Marshal(path)
	if err != nil {
		return fmt.Errorf("OpenFile marshal error: %w", err)
	}

	bank := p.Client.Bank()
	if err := bank.SetString(argbank.IndexPath, buf); err != nil {
		return fmt.Errorf("OpenFile bank error: %w", err)
	}

	err = p.invoke(ctx, dispatch.CallWith(opOpenFile, argbank.IndexPath, 1))
	_, _ = bank.Take(argbank.IndexPath)
	if err != nil {
		return fmt.Errorf("OpenFile error: %w", err)
	}

	p.setPlaying()
	p.Log().Info().Str("Method", "OpenFile").Str("Path", path).Msg("opened")
	p.emit("Playing")

	if _, err := p.Duration(ctx); err != nil {
		p.Log().Warn().Str("Method", "OpenFile").Err(err).Msg("duration unavailable")
	}
	if err := p.SetRepeat(ctx, true); err != nil {
		p.Log().Warn().Str("Method", "OpenFile").Err(err).Msg("repeat not enabled")
	}

	return nil
}

// OpenLeftRightFiles opens a separate-eye file pair. SeparateAudio needs a
// non-empty audioFile; other modes ignore an empty one.
func (p *Controller) OpenLeftRightFiles(ctx context.Context, left, right string, mode AudioMode, audioFile string) error {
	if mode == SeparateAudio && audioFile == "" {
		return fmt.Errorf("OpenLeftRightFiles audio file: %w", ErrBadArgumentCount)
	}
	if _, ok := audioModeNames[mode]; !ok {
		return fmt.Errorf("OpenLeftRightFiles %d: %w", uint32(mode), ErrUnknownAudioMode)
	}

	leftBuf, err := widestr.Marshal(left)
	if err != nil {
		return fmt.Errorf("OpenLeftRightFiles left error: %w", err)
	}
	rightBuf, err := widestr.Marshal(right)
	if err != nil {
		return fmt.Errorf("OpenLeftRightFiles right error: %w", err)
	}
	var audioBuf widestr.Buffer
	if audioFile != "" {
		if audioBuf, err = widestr.Marshal(audioFile); err != nil {
			return fmt.Errorf("OpenLeftRightFiles audio error: %w", err)
		}
	}

	bank := p.Client.Bank()
	defer func() {
		_, _ = bank.Take(argbank.IndexLeftFile)
		_, _ = bank.Take(argbank.IndexRightFile)
		_ = bank.SetOptionalString(argbank.IndexAudioFile, nil)
	}()

	if err := bank.SetString(argbank.IndexLeftFile, leftBuf); err != nil {
		return fmt.Errorf("OpenLeftRightFiles bank error: %w", err)
	}
	if err := bank.SetString(argbank.IndexRightFile, rightBuf); err != nil {
		return fmt.Errorf("OpenLeftRightFiles bank error: %w", err)
	}
	if err := bank.SetOptionalString(argbank.IndexAudioFile, audioBuf); err != nil {
		return fmt.Errorf("OpenLeftRightFiles bank error: %w", err)
	}
	if err := bank.SetAudioMode(uint32(mode)); err != nil {
		return fmt.Errorf("OpenLeftRightFiles bank error: %w", err)
	}

	if err := p.invoke(ctx, dispatch.CallWith(opOpenLeftRightFiles, argbank.IndexLeftFile, 4)); err != nil {
		return fmt.Errorf("OpenLeftRightFiles error: %w", err)
	}

	p.Log().Info().Str("Method", "OpenLeftRightFiles").Str("Left", left).Str("Right", right).Stringer("AudioMode", mode).Msg("opened")
	p.emit("Opened " + left + " | " + right)
	return nil
}

func (p *Controller) setPlaying() {
	p.belief.Playing, p.belief.Paused, p.belief.Stopped = true, false, false
}

func (p *Controller) setPlaybackState(ctx context.Context, index int) error {
	return p.invoke(ctx, dispatch.CallWith(opSetPlaybackState, index, 1))
}

// Play resumes playback.
func (p *Controller) Play(ctx context.Context) error {
	if err := p.setPlaybackState(ctx, argbank.IndexPlay); err != nil {
		return fmt.Errorf("Play error: %w", err)
	}

	p.setPlaying()
	p.emit("Playing")
	return nil
}

// Pause pauses playback.
func (p *Controller) Pause(ctx context.Context) error {
	if err := p.setPlaybackState(ctx, argbank.IndexPause); err != nil {
		return fmt.Errorf("Pause error: %w", err)
	}

	p.belief.Playing, p.belief.Paused, p.belief.Stopped = false, true, false
	p.emit("Paused")
	return nil
}

// Stop stops playback.
func (p *Controller) Stop(ctx context.Context) error {
	if err := p.setPlaybackState(ctx, argbank.IndexStop); err != nil {
		return fmt.Errorf("Stop error: %w", err)
	}

	p.belief.Playing, p.belief.Paused, p.belief.Stopped = false, false, true
	p.emit("Stopped")
	return nil
}

// FastForward starts fast forwarding. The belief is left unchanged.
func (p *Controller) FastForward(ctx context.Context) error {
	if err := p.setPlaybackState(ctx, argbank.IndexFastForward); err != nil {
		return fmt.Errorf("FastForward error: %w", err)
	}

	p.emit("Fast forward")
	return nil
}

// Rewind starts rewinding. The belief is left unchanged.
func (p *Controller) Rewind(ctx context.Context) error {
	if err := p.setPlaybackState(ctx, argbank.IndexRewind); err != nil {
		return fmt.Errorf("Rewind error: %w", err)
	}

	p.emit("Rewind")
	return nil
}

// TogglePlayPause plays unless the player is believed to be playing, in
// which case it pauses.
func (p *Controller) TogglePlayPause(ctx context.Context) error {
	if !p.belief.Playing {
		return p.Play(ctx)
	}
	return p.Pause(ctx)
}

// EnterFullScreen switches the player to full screen.
func (p *Controller) EnterFullScreen(ctx context.Context) error {
	if err := p.invoke(ctx, dispatch.Call(opEnterFullscreen)); err != nil {
		return fmt.Errorf("EnterFullScreen error: %w", err)
	}

	p.belief.FullScreen = true
	p.emit("Full screen")
	return nil
}

// LeaveFullScreen leaves full screen. A failure here leaves the display in
// an unknown mode, so it triggers EmergencyExit.
func (p *Controller) LeaveFullScreen(ctx context.Context) error {
	if err := p.invoke(ctx, dispatch.Call(opLeaveFullscreen)); err != nil {
		p.Log().Error().Str("Method", "LeaveFullScreen").Err(err).Msg("emergency exit")
		p.EmergencyExit()
		return fmt.Errorf("LeaveFullScreen error: %w", err)
	}

	p.belief.FullScreen = false
	p.emit("Windowed")
	return nil
}

// ToggleFullScreen enters or leaves full screen based on the belief.
func (p *Controller) ToggleFullScreen(ctx context.Context) error {
	if p.belief.FullScreen {
		return p.LeaveFullScreen(ctx)
	}
	return p.EnterFullScreen(ctx)
}

// SetRepeat turns looping on or off.
func (p *Controller) SetRepeat(ctx context.Context, on bool) error {
	index := argbank.IndexFalse
	if on {
		index = argbank.IndexTrue
	}

	if err := p.invoke(ctx, dispatch.CallWith(opSetRepeat, index, 1)); err != nil {
		return fmt.Errorf("SetRepeat error: %w", err)
	}
	p.belief.Repeat = on
	return nil
}

// ZoomIn raises the zoom by ZoomStep.
func (p *Controller) ZoomIn(ctx context.Context) error {
	if err := p.zoom(ctx, ZoomStep); err != nil {
		return fmt.Errorf("ZoomIn error: %w", err)
	}
	return nil
}

// ZoomOut lowers the zoom by ZoomStep.
func (p *Controller) ZoomOut(ctx context.Context) error {
	if err := p.zoom(ctx, -ZoomStep); err != nil {
		return fmt.Errorf("ZoomOut error: %w", err)
	}
	return nil
}

func (p *Controller) zoom(ctx context.Context, delta float64) error {
	bank := p.Client.Bank()
	if cached := bank.Zoom(); cached != p.belief.Zoom {
		err := &InconsistentStateError{Cached: cached, Believed: p.belief.Zoom}
		p.Log().Error().Str("Method", "zoom").Float64("Cached", cached).Float64("Believed", p.belief.Zoom).Msg("zoom level mismatch")
		p.emit(err.Error())
		return err
	}

	next := p.belief.Zoom + delta
	bank.SetZoom(next)
	if err := p.invoke(ctx, dispatch.CallWith(opSetZoom, argbank.IndexZoom, 1)); err != nil {
		bank.SetZoom(p.belief.Zoom)
		return err
	}

	p.belief.Zoom = next
	p.emit(fmt.Sprintf("Zoom %g%%", next))
	return nil
}

// Duration asks the player for the media duration in seconds. The result
// is recorded in the belief but nothing depends on it.
func (p *Controller) Duration(ctx context.Context) (float64, error) {
	v, err := p.Client.InvokeWithResult(ctx, p.handle, dispatch.Call(opGetDuration))
	if err != nil {
		return 0, fmt.Errorf("Duration error: %w", err)
	}

	d, err := v.Float64()
	if err != nil {
		return 0, fmt.Errorf("Duration error: %w", err)
	}

	p.belief.Duration = d
	return d, nil
}

// ClosePlayer asks the player process to close.
func (p *Controller) ClosePlayer(ctx context.Context) error {
	if err := p.invoke(ctx, dispatch.Call(opClosePlayer)); err != nil {
		return fmt.Errorf("ClosePlayer error: %w", err)
	}
	return nil
}
