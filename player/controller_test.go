package player_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/player"
	"stereoctl.app/stereoctl/simplayer"
	"stereoctl.app/stereoctl/widestr"
)

type recorder struct {
	msgs []string
}

func (r *recorder) EmitMsg(msg string) { r.msgs = append(r.msgs, msg) }

type exitRecorder struct {
	codes []int
}

func (e *exitRecorder) exit(code int) { e.codes = append(e.codes, code) }

func newController(t *testing.T) (*player.Controller, *simplayer.Player, *exitRecorder) {
	t.Helper()

	sim := simplayer.New()
	c, err := dispatch.NewClient(sim)
	require.NoError(t, err)

	ex := &exitRecorder{}
	p := player.New(c)
	p.Exit = ex.exit
	p.Notifier = &recorder{}
	require.NoError(t, p.Connect(context.Background()))

	return p, sim, ex
}

func TestInitialBelief(t *testing.T) {
	p, _, _ := newController(t)

	b := p.Belief()
	require.False(t, b.Playing || b.Paused || b.Stopped || b.FullScreen)
	require.Equal(t, 100.0, b.Zoom)
	require.Zero(t, b.Duration)
}

func TestTransitions(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name  string
		op    func(*player.Controller) error
		calls []string
		want  func(player.Belief) bool
	}{
		{
			"play",
			func(p *player.Controller) error { return p.Play(ctx) },
			[]string{"SetPlaybackState"},
			func(b player.Belief) bool { return b.Playing && !b.Paused && !b.Stopped },
		},
		{
			"pause",
			func(p *player.Controller) error { return p.Pause(ctx) },
			[]string{"SetPlaybackState"},
			func(b player.Belief) bool { return !b.Playing && b.Paused && !b.Stopped },
		},
		{
			"stop",
			func(p *player.Controller) error { return p.Stop(ctx) },
			[]string{"SetPlaybackState"},
			func(b player.Belief) bool { return !b.Playing && !b.Paused && b.Stopped },
		},
		{
			"fast forward leaves belief",
			func(p *player.Controller) error { return p.FastForward(ctx) },
			[]string{"SetPlaybackState"},
			func(b player.Belief) bool { return b == player.DefaultBelief() },
		},
		{
			"rewind leaves belief",
			func(p *player.Controller) error { return p.Rewind(ctx) },
			[]string{"SetPlaybackState"},
			func(b player.Belief) bool { return b == player.DefaultBelief() },
		},
		{
			"enter full screen",
			func(p *player.Controller) error { return p.EnterFullScreen(ctx) },
			[]string{"EnterFullscreenMode"},
			func(b player.Belief) bool { return b.FullScreen },
		},
		{
			"repeat off",
			func(p *player.Controller) error { return p.SetRepeat(ctx, false) },
			[]string{"SetRepeat"},
			func(b player.Belief) bool { return b == player.DefaultBelief() },
		},
		{
			"repeat on",
			func(p *player.Controller) error { return p.SetRepeat(ctx, true) },
			[]string{"SetRepeat"},
			func(b player.Belief) bool { return b.Repeat && !b.Playing },
		},
		{
			"zoom in",
			func(p *player.Controller) error { return p.ZoomIn(ctx) },
			[]string{"SetZoom"},
			func(b player.Belief) bool { return b.Zoom == 110 },
		},
		{
			"open file",
			func(p *player.Controller) error { return p.OpenFile(ctx, "clip.mp4") },
			[]string{"OpenFile", "GetDuration", "SetRepeat"},
			func(b player.Belief) bool { return b.Playing && !b.Paused && !b.Stopped && b.Repeat && b.Duration == 5400 },
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			p, sim, _ := newController(t)

			require.NoError(t, tc.op(p))
			require.Equal(t, tc.calls, sim.Operations())
			if !tc.want(p.Belief()) {
				t.Fatalf("%s: unexpected belief %s", tc.name, p.Belief())
			}
		})
	}
}

func TestFailureLeavesBelief(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name string
		fail string
		op   func(*player.Controller) error
	}{
		{"play", "SetPlaybackState", func(p *player.Controller) error { return p.Play(ctx) }},
		{"pause", "SetPlaybackState", func(p *player.Controller) error { return p.Pause(ctx) }},
		{"stop", "SetPlaybackState", func(p *player.Controller) error { return p.Stop(ctx) }},
		{"open", "OpenFile", func(p *player.Controller) error { return p.OpenFile(ctx, "clip.mp4") }},
		{"full screen", "EnterFullscreenMode", func(p *player.Controller) error { return p.EnterFullScreen(ctx) }},
		{"zoom out", "SetZoom", func(p *player.Controller) error { return p.ZoomOut(ctx) }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			p, sim, _ := newController(t)
			require.NoError(t, p.Pause(ctx))
			before := p.Belief()

			sim.Fail(tc.fail, dispatch.EAbort)
			err := tc.op(p)

			var ierr *dispatch.InvocationError
			require.ErrorAs(t, err, &ierr)
			require.Equal(t, dispatch.EAbort, ierr.Code())
			require.Equal(t, before, p.Belief())
		})
	}
}

func TestFailedZoomKeepsGuardConsistent(t *testing.T) {
	ctx := context.Background()
	p, sim, _ := newController(t)

	sim.Fail("SetZoom", dispatch.EAbort)
	require.Error(t, p.ZoomIn(ctx))
	require.Equal(t, p.Belief().Zoom, p.Client.Bank().Zoom())

	sim.Fail("SetZoom", 0)
	require.NoError(t, p.ZoomIn(ctx))
	require.Equal(t, 110.0, p.Belief().Zoom)
}

func TestTogglePlayPause(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh", func(t *testing.T) {
		p, _, _ := newController(t)

		require.NoError(t, p.TogglePlayPause(ctx))
		require.True(t, p.Belief().Playing)
		require.NoError(t, p.TogglePlayPause(ctx))
		require.True(t, p.Belief().Paused)
	})

	t.Run("stopped", func(t *testing.T) {
		p, sim, _ := newController(t)
		require.NoError(t, p.Stop(ctx))

		require.NoError(t, p.TogglePlayPause(ctx))
		require.True(t, p.Belief().Playing)
		require.Equal(t, argbank.StatePlay, sim.State().PlaybackState)
		require.NoError(t, p.TogglePlayPause(ctx))
		require.True(t, p.Belief().Paused)
		require.Equal(t, argbank.StatePause, sim.State().PlaybackState)
	})

	t.Run("playing", func(t *testing.T) {
		p, _, _ := newController(t)
		require.NoError(t, p.Play(ctx))

		require.NoError(t, p.TogglePlayPause(ctx))
		require.True(t, p.Belief().Paused)
	})
}

func TestToggleFullScreen(t *testing.T) {
	ctx := context.Background()
	p, sim, _ := newController(t)

	require.NoError(t, p.ToggleFullScreen(ctx))
	require.True(t, p.Belief().FullScreen)
	require.NoError(t, p.ToggleFullScreen(ctx))
	require.False(t, p.Belief().FullScreen)
	require.Equal(t, []string{"EnterFullscreenMode", "LeaveFullscreenMode"}, sim.Operations())
}

func TestZoomRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, steps := range []int{1, 3} {
		p, sim, _ := newController(t)

		for i := 0; i < steps; i++ {
			require.NoError(t, p.ZoomIn(ctx))
		}
		for i := 0; i < steps; i++ {
			require.NoError(t, p.ZoomOut(ctx))
		}

		require.Equal(t, 100.0, p.Belief().Zoom)
		require.Equal(t, 100.0, sim.State().Zoom)
	}
}

// The guard cannot trip in normal use; the desync is injected through the
// bank directly.
func TestZoomGuard(t *testing.T) {
	ctx := context.Background()
	p, sim, _ := newController(t)

	p.Client.Bank().SetZoom(250)
	err := p.ZoomIn(ctx)

	var serr *player.InconsistentStateError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, dispatch.EAbort, serr.Code())
	require.Equal(t, 250.0, serr.Cached)
	require.Equal(t, 100.0, serr.Believed)
	require.Empty(t, sim.Operations())
	require.Equal(t, 100.0, p.Belief().Zoom)
}

func TestOpenFileTooLong(t *testing.T) {
	p, sim, _ := newController(t)

	err := p.OpenFile(context.Background(), strings.Repeat("x", widestr.MaxPath))
	require.ErrorIs(t, err, widestr.ErrTextTooLong)
	require.Empty(t, sim.Operations())
	require.Equal(t, player.DefaultBelief(), p.Belief())
}

func TestOpenFileReleasesPathSlot(t *testing.T) {
	p, _, _ := newController(t)

	require.NoError(t, p.OpenFile(context.Background(), "clip.mp4"))

	s, err := p.Client.Bank().Slot(argbank.IndexPath)
	require.NoError(t, err)
	require.Nil(t, s.Str)
}

func TestOpenFileFollowUpsAreBestEffort(t *testing.T) {
	p, sim, _ := newController(t)
	sim.Fail("GetDuration", dispatch.EFail)
	sim.Fail("SetRepeat", dispatch.EFail)

	require.NoError(t, p.OpenFile(context.Background(), "clip.mp4"))
	require.True(t, p.Belief().Playing)
	require.False(t, p.Belief().Repeat)
	require.Zero(t, p.Belief().Duration)
}

func TestOpenLeftRightFiles(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name      string
		mode      player.AudioMode
		audioFile string
		wantArgs  []interface{}
	}{
		{"no audio", player.NoAudio, "", []interface{}{"l.wmv", "r.wmv", nil, uint32(0)}},
		{"separate", player.SeparateAudio, "a.wav", []interface{}{"l.wmv", "r.wmv", "a.wav", uint32(1)}},
		{"left", player.LeftAudio, "", []interface{}{"l.wmv", "r.wmv", nil, uint32(2)}},
		{"right", player.RightAudio, "", []interface{}{"l.wmv", "r.wmv", nil, uint32(3)}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			p, sim, _ := newController(t)
			before := p.Belief()

			require.NoError(t, p.OpenLeftRightFiles(ctx, "l.wmv", "r.wmv", tc.mode, tc.audioFile))

			calls := sim.Calls()
			require.Len(t, calls, 1)
			require.Equal(t, "OpenLeftRightFiles", calls[0].Operation)
			require.Equal(t, tc.wantArgs, calls[0].Args)
			require.Equal(t, before, p.Belief())

			s, err := p.Client.Bank().Slot(argbank.IndexAudioFile)
			require.NoError(t, err)
			require.Equal(t, argbank.Empty, s.Kind)
		})
	}
}

func TestOpenLeftRightFilesMissingAudio(t *testing.T) {
	p, sim, _ := newController(t)

	err := p.OpenLeftRightFiles(context.Background(), "l.wmv", "r.wmv", player.SeparateAudio, "")
	require.ErrorIs(t, err, player.ErrBadArgumentCount)
	require.Empty(t, sim.Operations())
}

func TestParseAudioMode(t *testing.T) {
	for _, m := range []player.AudioMode{player.NoAudio, player.SeparateAudio, player.LeftAudio, player.RightAudio} {
		got, err := player.ParseAudioMode(strings.ToUpper(m.String()))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}

	_, err := player.ParseAudioMode("surround")
	require.ErrorIs(t, err, player.ErrUnknownAudioMode)
}

func TestDurationNotOpen(t *testing.T) {
	p, _, _ := newController(t)

	d, err := p.Duration(context.Background())
	require.NoError(t, err)
	require.Zero(t, d)
}

func TestNotifierGetsFormattedFailure(t *testing.T) {
	p, sim, _ := newController(t)
	rec := &recorder{}
	p.Notifier = rec

	sim.Fail("SetPlaybackState", dispatch.EAbort)
	require.Error(t, p.Stop(context.Background()))
	require.Equal(t, []string{"Operation Failed. Error code = 0x80004004"}, rec.msgs)
}

func TestConnectFailure(t *testing.T) {
	sim := simplayer.New()
	sim.Fail("Connect", dispatch.RegDBEClassNotReg)

	c, err := dispatch.NewClient(sim)
	require.NoError(t, err)

	p := player.New(c)
	err = p.Connect(context.Background())

	var cerr *dispatch.ConnectError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, dispatch.RegDBEClassNotReg, cerr.Code())

	err = p.Play(context.Background())
	require.True(t, errors.Is(err, dispatch.ErrNotConnected))
}
