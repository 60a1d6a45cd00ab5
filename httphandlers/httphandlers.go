package httphandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/gesture"
	"stereoctl.app/stereoctl/player"
)

const maxEventBody = 64 << 10

// HTTPserver - new http.Server instance.
type HTTPserver struct {
	http        *http.Server
	Mux         *http.ServeMux
	dispatcher  *gesture.Dispatcher
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	mu   sync.Mutex
	addr net.Addr
}

// Screen interface is used to push messages back to the user as tracker
// events arrive.
type Screen interface {
	EmitMsg(string)
	Fini()
}

type eventResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`
}

type stateResponse struct {
	Session struct {
		State string        `json:"state"`
		ID    string        `json:"id,omitempty"`
		Since string        `json:"since,omitempty"`
		Focus gesture.Point `json:"focus"`
	} `json:"session"`
	Belief struct {
		Playing    bool    `json:"playing"`
		Paused     bool    `json:"paused"`
		Stopped    bool    `json:"stopped"`
		FullScreen bool    `json:"fullscreen"`
		Repeat     bool    `json:"repeat"`
		Zoom       float64 `json:"zoom"`
		Duration   float64 `json:"duration"`
	} `json:"belief"`
}

// NewServer constractor generates a new HTTPserver type.
func NewServer(a string, d *gesture.Dispatcher) *HTTPserver {
	mux := http.NewServeMux()
	srv := HTTPserver{
		http:       &http.Server{Addr: a, Handler: mux},
		Mux:        mux,
		dispatcher: d,
		Logger:     zerolog.Nop(),
	}

	return &srv
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (s *HTTPserver) Log() *zerolog.Logger {
	if s.LogOutput != nil {
		s.initLogOnce.Do(func() {
			s.Logger = zerolog.New(s.LogOutput).With().Timestamp().Logger()
		})
	}
	return &s.Logger
}

// StartServer starts accepting tracker events. serverStarted receives nil
// once the listener is up, or the listen error.
func (s *HTTPserver) StartServer(serverStarted chan<- error, screen Screen) {
	s.Mux.HandleFunc("POST /events", s.eventsHandler(screen))
	s.Mux.HandleFunc("POST /actions/{name}", s.actionHandler(screen))
	s.Mux.HandleFunc("GET /state", s.stateHandler())

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		serverStarted <- fmt.Errorf("server listen error: %w", err)
		return
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	serverStarted <- nil
	_ = s.http.Serve(ln)
}

// Addr returns the address the server listens on, nil before StartServer.
func (s *HTTPserver) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// StopServer forcefully closes the HTTP server.
func (s *HTTPserver) StopServer() {
	s.http.Close()
}

func (s *HTTPserver) eventsHandler(screen Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev gesture.Event
		dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBody))
		if err := dec.Decode(&ev); err != nil {
			writeJSON(w, http.StatusBadRequest, eventResponse{Status: "invalid", Reason: err.Error()})
			return
		}

		out, err := s.dispatcher.HandleEvent(r.Context(), ev)
		s.Log().Debug().Str("Method", "eventsHandler").Str("Type", string(ev.Type)).Str("Name", ev.Name).Stringer("Action", out.Action).Bool("SessionChanged", out.SessionChanged).Err(err).Msg("")

		if err == nil && out.SessionChanged && screen != nil {
			switch out.Session {
			case gesture.InSession:
				screen.EmitMsg("Session started")
			case gesture.NotInSession:
				screen.EmitMsg("Session ended")
			case gesture.QuickRefocus:
				screen.EmitMsg("Quick refocus")
			}
		}

		s.respond(w, out.Action, err, screen)
	}
}

func (s *HTTPserver) actionHandler(screen Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := gesture.ParseAction(r.PathValue("name"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, eventResponse{Status: "invalid", Reason: err.Error()})
			return
		}

		err = s.dispatcher.Submit(r.Context(), a)
		s.respond(w, a, err, screen)
	}
}

func (s *HTTPserver) stateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, b, err := s.dispatcher.Snapshot(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, eventResponse{Status: "error", Reason: err.Error()})
			return
		}

		var out stateResponse
		out.Session.State = sess.State.String()
		out.Session.ID = sess.ID
		out.Session.Focus = sess.Position
		if !sess.Since.IsZero() {
			out.Session.Since = sess.Since.UTC().Format(http.TimeFormat)
		}
		out.Belief.Playing = b.Playing
		out.Belief.Paused = b.Paused
		out.Belief.Stopped = b.Stopped
		out.Belief.FullScreen = b.FullScreen
		out.Belief.Repeat = b.Repeat
		out.Belief.Zoom = b.Zoom
		out.Belief.Duration = b.Duration

		writeJSON(w, http.StatusOK, out)
	}
}

func (s *HTTPserver) respond(w http.ResponseWriter, a gesture.Action, err error, screen Screen) {
	var actionName string
	if a != gesture.None {
		actionName = a.String()
	}

	var inconsistent *player.InconsistentStateError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, eventResponse{Status: "ok", Action: actionName})
	case errors.Is(err, gesture.ErrInvalidEvent):
		writeJSON(w, http.StatusBadRequest, eventResponse{Status: "invalid", Reason: err.Error()})
	case errors.Is(err, gesture.ErrNotInSession),
		errors.Is(err, gesture.ErrUnmappedGesture),
		errors.Is(err, gesture.ErrRateLimited):
		writeJSON(w, http.StatusAccepted, eventResponse{Status: "ignored", Reason: err.Error()})
	case errors.Is(err, gesture.ErrDispatcherStopped):
		writeJSON(w, http.StatusServiceUnavailable, eventResponse{Status: "error", Reason: err.Error()})
	case errors.As(err, &inconsistent):
		writeJSON(w, http.StatusConflict, eventResponse{Status: "error", Action: actionName, Reason: err.Error(), Code: fmt.Sprintf("0x%x", inconsistent.Code())})
	default:
		if screen != nil {
			screen.EmitMsg(dispatch.FormatError(dispatch.CodeOf(err)))
		}
		writeJSON(w, http.StatusBadGateway, eventResponse{Status: "error", Action: actionName, Reason: err.Error(), Code: fmt.Sprintf("0x%x", dispatch.CodeOf(err))})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
