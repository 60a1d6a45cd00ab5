package soapcalls

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

// Paths served by BridgeServer.
const (
	DescriptionPath = "/description.xml"
	ControlPath     = "/control/Automation"
)

const maxRequestBody = 1 << 20

type descriptionRoot struct {
	XMLName     xml.Name `xml:"root"`
	Xmlns       string   `xml:"xmlns,attr"`
	SpecVersion struct {
		Major int `xml:"major"`
		Minor int `xml:"minor"`
	} `xml:"specVersion"`
	Device descriptionDevice `xml:"device"`
}

type descriptionDevice struct {
	DeviceType   string               `xml:"deviceType"`
	FriendlyName string               `xml:"friendlyName"`
	UDN          string               `xml:"UDN"`
	Services     []descriptionService `xml:"serviceList>service"`
}

type descriptionService struct {
	Type       string `xml:"serviceType"`
	ID         string `xml:"serviceId"`
	ControlURL string `xml:"controlURL"`
}

// BridgeServer exposes the objects of a dispatch.Transport over the SOAP
// automation protocol, one instance per CreateInstance call.
type BridgeServer struct {
	FriendlyName string
	UDN          string
	Transport    dispatch.Transport
	Logger       zerolog.Logger
	LogOutput    io.Writer
	initLogOnce  sync.Once

	mu        sync.Mutex
	instances map[uint32]dispatch.Object
	next      uint32
}

// NewBridgeServer returns a bridge serving objects created by t.
func NewBridgeServer(friendlyName string, t dispatch.Transport) *BridgeServer {
	return &BridgeServer{
		FriendlyName: friendlyName,
		UDN:          "uuid:" + uuid.NewString(),
		Transport:    t,
		Logger:       zerolog.Nop(),
		instances:    make(map[uint32]dispatch.Object),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (s *BridgeServer) Log() *zerolog.Logger {
	if s.LogOutput != nil {
		s.initLogOnce.Do(func() {
			s.Logger = zerolog.New(s.LogOutput).With().Timestamp().Logger()
		})
	}
	return &s.Logger
}

// ServeHTTP serves the description document and the control endpoint.
func (s *BridgeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", DescriptionPath:
		s.serveDescription(w, r)
	case ControlPath:
		s.serveControl(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Close releases every instance still held and shuts the transport down.
func (s *BridgeServer) Close() error {
	s.mu.Lock()
	for id, obj := range s.instances {
		obj.Release()
		delete(s.instances, id)
	}
	s.mu.Unlock()

	return s.Transport.Shutdown()
}

func (s *BridgeServer) serveDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	d := descriptionRoot{Xmlns: "urn:schemas-upnp-org:device-1-0"}
	d.SpecVersion.Major, d.SpecVersion.Minor = 1, 0
	d.Device = descriptionDevice{
		DeviceType:   DeviceType,
		FriendlyName: s.FriendlyName,
		UDN:          s.UDN,
		Services: []descriptionService{{
			Type:       ServiceType,
			ID:         serviceID,
			ControlURL: ControlPath,
		}},
	}

	b, err := xml.Marshal(d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	_, _ = w.Write(append([]byte(xmlStart), b...))
}

func (s *BridgeServer) serveControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeFault(w, dispatch.EFail, err.Error())
		return
	}

	env, err := parseEnvelope(body)
	if err != nil {
		s.writeFault(w, dispatch.EFail, err.Error())
		return
	}

	resp, err := s.handle(r.Context(), env)
	if err != nil {
		s.Log().Error().Str("Method", "serveControl").Str("SOAPAction", r.Header.Get("SOAPAction")).Err(err).Msg(dispatch.FormatError(dispatch.CodeOf(err)))
		s.writeFault(w, dispatch.CodeOf(err), err.Error())
		return
	}

	out, err := buildEnvelope(resp)
	if err != nil {
		s.writeFault(w, dispatch.EFail, err.Error())
		return
	}

	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	_, _ = w.Write(out)
}

func (s *BridgeServer) handle(ctx context.Context, env *envelopeNode) (interface{}, error) {
	b := env.Body
	switch {
	case b.CreateInstance != nil:
		obj, err := s.Transport.Connect(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.next++
		id := s.next
		s.instances[id] = obj
		s.mu.Unlock()

		s.Log().Debug().Str("Method", "CreateInstance").Str("ClientID", b.CreateInstance.ClientID).Uint32("InstanceID", id).Msg("instance created")
		return CreateInstanceResponse{Service: ServiceType, InstanceID: id}, nil

	case b.ReleaseInstance != nil:
		s.mu.Lock()
		obj, ok := s.instances[b.ReleaseInstance.InstanceID]
		delete(s.instances, b.ReleaseInstance.InstanceID)
		s.mu.Unlock()

		if ok {
			obj.Release()
		}
		return ReleaseInstanceResponse{Service: ServiceType}, nil

	case b.GetIDsOfNames != nil:
		obj, err := s.instance(b.GetIDsOfNames.InstanceID)
		if err != nil {
			return nil, err
		}

		id, err := obj.Resolve(ctx, b.GetIDsOfNames.Name)
		if err != nil {
			return nil, err
		}
		return GetIDsOfNamesResponse{Service: ServiceType, DispID: int32(id)}, nil

	case b.Invoke != nil:
		obj, err := s.instance(b.Invoke.InstanceID)
		if err != nil {
			return nil, err
		}

		var args []argbank.Slot
		for _, a := range b.Invoke.Args {
			slot, err := slotFromArg(a)
			if err != nil {
				return nil, err
			}
			args = append(args, slot)
		}

		v, err := obj.Invoke(ctx, dispatch.DispID(b.Invoke.DispID), dispatch.InvokeKind(b.Invoke.Flags), args)
		if err != nil {
			return nil, err
		}
		return InvokeResponse{Service: ServiceType, Result: argFromValue(v)}, nil
	}

	return nil, dispatch.Status(dispatch.ENotImpl, "unknown action")
}

func (s *BridgeServer) instance(id uint32) (dispatch.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.instances[id]
	if !ok {
		return nil, dispatch.Status(dispatch.EHandle, "unknown instance")
	}
	return obj, nil
}

func (s *BridgeServer) writeFault(w http.ResponseWriter, code uint32, description string) {
	out, err := faultSoapBuild(code, description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(out)
}
