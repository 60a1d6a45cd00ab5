package soapcalls

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

const releaseTimeout = 3 * time.Second

// BridgeTransport reaches the player through an automation bridge that
// carries the resolve and invoke phases as SOAP actions.
type BridgeTransport struct {
	DescriptionURL string
	ClientID       string
	Logger         zerolog.Logger
	LogOutput      io.Writer
	initLogOnce    sync.Once
}

// NewBridgeTransport returns a transport for the bridge whose description
// document lives at descURL.
func NewBridgeTransport(descURL string) *BridgeTransport {
	return &BridgeTransport{
		DescriptionURL: descURL,
		ClientID:       uuid.NewString(),
		Logger:         zerolog.Nop(),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (t *BridgeTransport) Log() *zerolog.Logger {
	if t.LogOutput != nil {
		t.initLogOnce.Do(func() {
			t.Logger = zerolog.New(t.LogOutput).With().Timestamp().Logger()
		})
	}
	return &t.Logger
}

// Connect reads the bridge description and asks the bridge to instantiate
// the remote object.
func (t *BridgeTransport) Connect(ctx context.Context) (dispatch.Object, error) {
	ex, err := BridgeExtractor(ctx, t.DescriptionURL)
	if err != nil {
		return nil, err
	}

	t.Log().Debug().Str("Method", "Connect").Str("ControlURL", ex.ControlURL).Str("FriendlyName", ex.FriendlyName).Msg("bridge found")

	xml, err := createInstanceSoapBuild(t.ClientID)
	if err != nil {
		return nil, err
	}

	env, err := t.soapCall(ctx, ex.ControlURL, "CreateInstance", xml)
	if err != nil {
		return nil, err
	}
	if env.Body.CreateInstanceResponse == nil {
		return nil, dispatch.Status(dispatch.EFail, "CreateInstance: empty response")
	}

	return &bridgeObject{
		transport:  t,
		controlURL: ex.ControlURL,
		instance:   env.Body.CreateInstanceResponse.InstanceID,
	}, nil
}

// Shutdown drops idle bridge connections.
func (t *BridgeTransport) Shutdown() error {
	closeIdleConnections()
	return nil
}

func (t *BridgeTransport) soapCall(ctx context.Context, controlURL, action string, xml []byte) (*envelopeNode, error) {
	client := newHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(xml))
	if err != nil {
		return nil, fmt.Errorf("%s POST error: %w", action, err)
	}

	req.Header = http.Header{
		"SOAPAction":   []string{`"` + ServiceType + `#` + action + `"`},
		"content-type": []string{"text/xml"},
		"charset":      []string{"utf-8"},
	}

	t.Log().Debug().Str("Method", action).Str("Action", "Request").Str("XML", string(xml)).Msg("")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s Do POST error: %w", action, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read error: %w", action, err)
	}

	t.Log().Debug().Str("Method", action).Str("Action", "Response").Int("Status", res.StatusCode).Str("XML", string(body)).Msg("")

	env, err := parseEnvelope(body)
	if err != nil {
		if res.StatusCode != http.StatusOK {
			return nil, dispatch.Status(dispatch.EFail, fmt.Sprintf("%s: http status %d", action, res.StatusCode))
		}
		return nil, err
	}

	if err := env.faultError(); err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, dispatch.Status(dispatch.EFail, fmt.Sprintf("%s: http status %d without fault", action, res.StatusCode))
	}

	return env, nil
}

type bridgeObject struct {
	transport  *BridgeTransport
	controlURL string
	instance   uint32
}

func (o *bridgeObject) Resolve(ctx context.Context, name string) (dispatch.DispID, error) {
	xml, err := getIDsOfNamesSoapBuild(o.instance, name)
	if err != nil {
		return 0, err
	}

	env, err := o.transport.soapCall(ctx, o.controlURL, "GetIDsOfNames", xml)
	if err != nil {
		return 0, err
	}
	if env.Body.GetIDsOfNamesResponse == nil {
		return 0, dispatch.Status(dispatch.DispEUnknownName, name)
	}

	return dispatch.DispID(env.Body.GetIDsOfNamesResponse.DispID), nil
}

func (o *bridgeObject) Invoke(ctx context.Context, id dispatch.DispID, kind dispatch.InvokeKind, args []argbank.Slot) (dispatch.Value, error) {
	xml, err := invokeSoapBuild(o.instance, id, kind, args)
	if err != nil {
		return dispatch.Empty, err
	}

	env, err := o.transport.soapCall(ctx, o.controlURL, "Invoke", xml)
	if err != nil {
		return dispatch.Empty, err
	}
	if env.Body.InvokeResponse == nil {
		return dispatch.Empty, dispatch.Status(dispatch.EFail, "Invoke: empty response")
	}

	return valueFromArg(env.Body.InvokeResponse.Result)
}

func (o *bridgeObject) Release() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	xml, err := releaseInstanceSoapBuild(o.instance)
	if err != nil {
		return
	}

	if _, err := o.transport.soapCall(ctx, o.controlURL, "ReleaseInstance", xml); err != nil {
		o.transport.Log().Error().Str("Method", "Release").Uint32("InstanceID", o.instance).Err(err).Msg("release failed")
	}
}
