package gesture_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/gesture"
	"stereoctl.app/stereoctl/player"
	"stereoctl.app/stereoctl/simplayer"
)

func startDispatcher(t *testing.T, minInterval time.Duration) (*gesture.Dispatcher, *simplayer.Player) {
	t.Helper()

	sim := simplayer.New()
	c, err := dispatch.NewClient(sim)
	require.NoError(t, err)

	p := player.New(c)
	p.Exit = func(int) {}
	require.NoError(t, p.Connect(context.Background()))

	d := gesture.NewDispatcher(p, nil, minInterval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return d, sim
}

func TestGesturesRequireSession(t *testing.T) {
	ctx := context.Background()
	d, sim := startDispatcher(t, 0)

	_, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "Click"})
	require.ErrorIs(t, err, gesture.ErrNotInSession)

	_, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.SessionStart, Position: gesture.Point{X: 10, Y: 20, Z: 900}})
	require.NoError(t, err)

	out, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "Click"})
	require.NoError(t, err)
	require.Equal(t, gesture.TogglePlayPause, out.Action)
	require.False(t, out.SessionChanged)

	out, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.NoHands})
	require.NoError(t, err)
	require.True(t, out.SessionChanged)
	require.Equal(t, gesture.QuickRefocus, out.Session)
	_, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "Click"})
	require.ErrorIs(t, err, gesture.ErrNotInSession)

	s, err := d.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, gesture.QuickRefocus, s.State)
	require.Equal(t, 900.0, s.Position.Z)

	require.Equal(t, []string{"SetPlaybackState"}, sim.Operations())
}

func TestSessionEventsReportChanges(t *testing.T) {
	ctx := context.Background()
	d, sim := startDispatcher(t, 0)

	tt := []struct {
		name    string
		ev      gesture.EventType
		changed bool
		want    gesture.SessionState
	}{
		{"no hands outside session", gesture.NoHands, false, gesture.NotInSession},
		{"end outside session", gesture.SessionEnd, false, gesture.NotInSession},
		{"start", gesture.SessionStart, true, gesture.InSession},
		{"start again", gesture.SessionStart, false, gesture.InSession},
		{"no hands", gesture.NoHands, true, gesture.QuickRefocus},
		{"no hands again", gesture.NoHands, false, gesture.QuickRefocus},
		{"resume", gesture.SessionStart, true, gesture.InSession},
		{"end", gesture.SessionEnd, true, gesture.NotInSession},
	}

	for _, tc := range tt {
		out, err := d.HandleEvent(ctx, gesture.Event{Type: tc.ev})
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.changed, out.SessionChanged, tc.name)
		require.Equal(t, tc.want, out.Session, tc.name)
		require.Equal(t, gesture.None, out.Action, tc.name)
	}
	require.Empty(t, sim.Operations())
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	d, _ := startDispatcher(t, 0)

	_, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.SessionStart, Position: gesture.Point{Z: 700}})
	require.NoError(t, err)
	require.NoError(t, d.Submit(ctx, gesture.ZoomIn))

	s, b, err := d.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, gesture.InSession, s.State)
	require.NotEmpty(t, s.ID)
	require.Equal(t, 700.0, s.Position.Z)
	require.Equal(t, 110.0, b.Zoom)
}

func TestGestureMapping(t *testing.T) {
	ctx := context.Background()
	d, sim := startDispatcher(t, 0)

	_, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.SessionStart})
	require.NoError(t, err)

	for _, name := range []string{"Wave", "SwipeUp", "SwipeRight", "Circle"} {
		_, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: name})
		require.NoError(t, err)
	}

	_, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "Moonwalk"})
	require.ErrorIs(t, err, gesture.ErrUnmappedGesture)

	require.Equal(t, []string{"EnterFullscreenMode", "SetZoom", "SetPlaybackState", "SetPlaybackState"}, sim.Operations())

	b, err := d.Belief(ctx)
	require.NoError(t, err)
	require.True(t, b.FullScreen)
	require.True(t, b.Stopped)
	require.Equal(t, 110.0, b.Zoom)
}

func TestGestureRateLimit(t *testing.T) {
	ctx := context.Background()
	d, sim := startDispatcher(t, time.Hour)

	_, err := d.HandleEvent(ctx, gesture.Event{Type: gesture.SessionStart})
	require.NoError(t, err)

	_, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "SwipeLeft"})
	require.NoError(t, err)
	_, err = d.HandleEvent(ctx, gesture.Event{Type: gesture.Gesture, Name: "SwipeLeft"})
	require.ErrorIs(t, err, gesture.ErrRateLimited)

	// Direct submissions are not gestures and bypass the limit.
	require.NoError(t, d.Submit(ctx, gesture.Pause))
	require.Equal(t, []string{"SetPlaybackState", "SetPlaybackState"}, sim.Operations())
}

func TestSubmitSerializes(t *testing.T) {
	ctx := context.Background()
	d, sim := startDispatcher(t, 0)

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			errs <- d.Submit(ctx, gesture.ZoomIn)
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-errs)
	}

	b, err := d.Belief(ctx)
	require.NoError(t, err)
	require.Equal(t, 300.0, b.Zoom)
	require.Equal(t, 300.0, sim.State().Zoom)
}

func TestDispatcherStopped(t *testing.T) {
	sim := simplayer.New()
	c, err := dispatch.NewClient(sim)
	require.NoError(t, err)

	d := gesture.NewDispatcher(player.New(c), nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Run(ctx), context.Canceled)

	require.ErrorIs(t, d.Submit(context.Background(), gesture.Play), gesture.ErrDispatcherStopped)
}
