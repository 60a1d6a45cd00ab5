package interactive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"stereoctl.app/stereoctl/gesture"
)

var helpLines = []string{
	`"p" (Play/Pause)  "s" (Stop)  "f" (Full screen)  "r" (Repeat)`,
	`"Page Up" "Page Down" (Zoom In/Out)`,
	`"Left" "Right" (Rewind/Fast forward)`,
}

// NewScreen drives the player from the terminal.
type NewScreen struct {
	Current     tcell.Screen
	Dispatcher  *gesture.Dispatcher
	exitCTXfunc context.CancelFunc
	mediaTitle  string
	lastAction  string
	repeat      bool
	mu          sync.RWMutex
}

func (p *NewScreen) emitStr(x, y int, style tcell.Style, str string) {
	s := p.Current
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

// EmitMsg displays status to the interactive terminal.
func (p *NewScreen) EmitMsg(inputtext string) {
	p.updateLastAction(inputtext)
	s := p.Current

	p.mu.RLock()
	mediaTitle := p.mediaTitle
	repeat := p.repeat
	p.mu.RUnlock()

	titleLen := runewidth.StringWidth("Title: " + mediaTitle)
	w, h := s.Size()
	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)
	blinkStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Blink(true)

	s.Clear()

	p.emitStr(w/2-titleLen/2, h/2-2, tcell.StyleDefault, "Title: "+mediaTitle)
	switch inputtext {
	case "Waiting for status...":
		p.emitStr(w/2-runewidth.StringWidth(inputtext)/2, h/2, blinkStyle, inputtext)
	default:
		p.emitStr(w/2-runewidth.StringWidth(inputtext)/2, h/2, boldStyle, inputtext)
	}
	p.emitStr(1, 1, tcell.StyleDefault, "Press ESC / q to stop and exit.")

	if repeat {
		p.emitStr(w/2-len("REPEAT")/2, h/2+2, tcell.StyleDefault, "REPEAT")
	}

	for i, line := range helpLines {
		p.emitStr(w/2-len(line)/2, h/2+4+2*i, tcell.StyleDefault, line)
	}
	s.Show()
}

// InterInit starts the interactive terminal. Initialization errors are sent
// on c; afterwards the loop runs until Fini.
func (p *NewScreen) InterInit(ctx context.Context, mediaPath string, repeat bool, c chan error) {
	p.mu.Lock()
	p.mediaTitle = filepath.Base(mediaPath)
	p.repeat = repeat
	p.mu.Unlock()

	s := p.Current
	if err := s.Init(); err != nil {
		c <- fmt.Errorf("interactive: %w", err)
		return
	}

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)

	p.EmitMsg("Waiting for status...")

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			// Fini was called.
			return
		case *tcell.EventResize:
			s.Sync()
			p.EmitMsg(p.getLastAction())
		case *tcell.EventKey:
			p.HandleKeyEvent(ctx, ev)
		}
	}
}

// HandleKeyEvent maps a key press to a player operation.
func (p *NewScreen) HandleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	p.mu.RLock()
	repeat := p.repeat
	p.mu.RUnlock()

	a, quit := keyAction(ev.Key(), ev.Rune(), repeat)
	if a == gesture.None && !quit {
		return
	}

	if a != gesture.None && p.Dispatcher != nil {
		err := p.Dispatcher.Submit(ctx, a)
		switch {
		case err == nil && (a == gesture.RepeatOn || a == gesture.RepeatOff):
			p.mu.Lock()
			p.repeat = a == gesture.RepeatOn
			p.mu.Unlock()
			p.EmitMsg(p.getLastAction())
		case errors.Is(err, gesture.ErrDispatcherStopped):
			quit = true
		}
	}

	if quit {
		p.Fini()
	}
}

// keyAction returns the action bound to a key and whether the key also
// ends the session.
func keyAction(key tcell.Key, r rune, repeat bool) (gesture.Action, bool) {
	switch key {
	case tcell.KeyEscape:
		return gesture.Stop, true
	case tcell.KeyPgUp:
		return gesture.ZoomIn, false
	case tcell.KeyPgDn:
		return gesture.ZoomOut, false
	case tcell.KeyLeft:
		return gesture.Rewind, false
	case tcell.KeyRight:
		return gesture.FastForward, false
	case tcell.KeyRune:
	default:
		return gesture.None, false
	}

	switch r {
	case 'q', 'Q':
		return gesture.Stop, true
	case 'p', 'P', ' ':
		return gesture.TogglePlayPause, false
	case 's', 'S':
		return gesture.Stop, false
	case 'f', 'F':
		return gesture.ToggleFullScreen, false
	case 'r', 'R':
		if repeat {
			return gesture.RepeatOff, false
		}
		return gesture.RepeatOn, false
	case '+':
		return gesture.ZoomIn, false
	case '-':
		return gesture.ZoomOut, false
	}
	return gesture.None, false
}

// Fini closes the screen and cancels the session context.
func (p *NewScreen) Fini() {
	p.Current.Fini()
	if p.exitCTXfunc != nil {
		p.exitCTXfunc()
	}
}

// InitTcellNewScreen creates a new interactive screen.
func InitTcellNewScreen(ctxCancel context.CancelFunc) (*NewScreen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("interactive: %w", err)
	}

	return &NewScreen{
		Current:     s,
		exitCTXfunc: ctxCancel,
	}, nil
}

func (p *NewScreen) getLastAction() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAction
}

func (p *NewScreen) updateLastAction(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAction = s
}
