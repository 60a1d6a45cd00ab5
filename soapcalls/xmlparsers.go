package soapcalls

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/widestr"
)

type rootNode struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		XMLName      xml.Name `xml:"device"`
		DeviceType   string   `xml:"deviceType"`
		FriendlyName string   `xml:"friendlyName"`
		UDN          string   `xml:"UDN"`
		ServiceList  struct {
			XMLName  xml.Name `xml:"serviceList"`
			Services []struct {
				XMLName    xml.Name `xml:"service"`
				Type       string   `xml:"serviceType"`
				ID         string   `xml:"serviceId"`
				ControlURL string   `xml:"controlURL"`
			} `xml:"service"`
		} `xml:"serviceList"`
	} `xml:"device"`
}

// envelopeNode decodes any envelope the bridge protocol exchanges, in
// either direction.
type envelopeNode struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			FaultCode        string `xml:"faultcode"`
			FaultString      string `xml:"faultstring"`
			ErrorCode        string `xml:"detail>UPnPError>errorCode"`
			ErrorDescription string `xml:"detail>UPnPError>errorDescription"`
		} `xml:"Fault"`
		CreateInstance *struct {
			ClientID string
		} `xml:"CreateInstance"`
		CreateInstanceResponse *struct {
			InstanceID uint32
		} `xml:"CreateInstanceResponse"`
		ReleaseInstance *struct {
			InstanceID uint32
		} `xml:"ReleaseInstance"`
		ReleaseInstanceResponse *struct{} `xml:"ReleaseInstanceResponse"`
		GetIDsOfNames           *struct {
			InstanceID uint32
			Name       string
		} `xml:"GetIDsOfNames"`
		GetIDsOfNamesResponse *struct {
			DispID int32
		} `xml:"GetIDsOfNamesResponse"`
		Invoke *struct {
			InstanceID uint32
			DispID     int32
			Flags      int16
			Args       []Arg `xml:"Args>Arg"`
		} `xml:"Invoke"`
		InvokeResponse *struct {
			Result Arg
		} `xml:"InvokeResponse"`
	} `xml:"Body"`
}

// BridgeExtracted stores what a bridge description advertises.
type BridgeExtracted struct {
	ControlURL   string
	FriendlyName string
	UDN          string
}

// BridgeExtractor extracts the automation control URL from the bridge
// description document.
func BridgeExtractor(ctx context.Context, descURL string) (*BridgeExtracted, error) {
	parsedURL, err := url.Parse(descURL)
	if err != nil {
		return nil, fmt.Errorf("BridgeExtractor parse error: %w", err)
	}

	client := newRetryableHTTPClient(3)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descURL, nil)
	if err != nil {
		return nil, fmt.Errorf("BridgeExtractor GET error: %w", err)
	}

	req.Header.Set("Connection", "close")

	xmlresp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("BridgeExtractor Do GET error: %w", err)
	}
	defer xmlresp.Body.Close()

	xmlbody, err := io.ReadAll(xmlresp.Body)
	if err != nil {
		return nil, fmt.Errorf("BridgeExtractor read error: %w", err)
	}

	return parseDescription(parsedURL, xmlbody)
}

func parseDescription(base *url.URL, xmlbody []byte) (*BridgeExtracted, error) {
	var root rootNode
	if err := xml.Unmarshal(xmlbody, &root); err != nil {
		return nil, fmt.Errorf("BridgeExtractor unmarshal error: %w", err)
	}

	for _, service := range root.Device.ServiceList.Services {
		if service.Type != ServiceType {
			continue
		}
		if !strings.HasPrefix(service.ControlURL, "/") {
			service.ControlURL = "/" + service.ControlURL
		}

		return &BridgeExtracted{
			ControlURL:   base.Scheme + "://" + base.Host + service.ControlURL,
			FriendlyName: root.Device.FriendlyName,
			UDN:          root.Device.UDN,
		}, nil
	}

	return nil, errors.Wrap(dispatch.Status(dispatch.RegDBEClassNotReg, "automation service not advertised"), base.String())
}

func parseEnvelope(b []byte) (*envelopeNode, error) {
	var env envelopeNode
	if err := xml.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parseEnvelope unmarshal error: %w", err)
	}
	return &env, nil
}

// faultError turns a decoded fault into a status error.
func (env *envelopeNode) faultError() error {
	f := env.Body.Fault
	if f == nil {
		return nil
	}

	code, err := strconv.ParseUint(strings.TrimSpace(f.ErrorCode), 0, 32)
	if err != nil {
		return dispatch.Status(dispatch.EFail, f.FaultString)
	}

	msg := f.ErrorDescription
	if msg == "" {
		msg = f.FaultString
	}
	return dispatch.Status(uint32(code), msg)
}

func slotFromArg(a Arg) (argbank.Slot, error) {
	switch a.Type {
	case argbank.String.String():
		buf, err := widestr.Marshal(a.Value)
		if err != nil {
			return argbank.Slot{}, dispatch.Status(dispatch.DispETypeMismatch, err.Error())
		}
		return argbank.Slot{Kind: argbank.String, Str: buf}, nil
	case argbank.UnsignedInt32.String():
		n, err := strconv.ParseUint(strings.TrimSpace(a.Value), 10, 32)
		if err != nil {
			return argbank.Slot{}, dispatch.Status(dispatch.DispETypeMismatch, err.Error())
		}
		return argbank.Slot{Kind: argbank.UnsignedInt32, U32: uint32(n)}, nil
	case argbank.Bool.String():
		v, err := strconv.ParseBool(strings.TrimSpace(a.Value))
		if err != nil {
			return argbank.Slot{}, dispatch.Status(dispatch.DispETypeMismatch, err.Error())
		}
		return argbank.Slot{Kind: argbank.Bool, Bool: v}, nil
	case argbank.Double.String():
		f, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
		if err != nil {
			return argbank.Slot{}, dispatch.Status(dispatch.DispETypeMismatch, err.Error())
		}
		return argbank.Slot{Kind: argbank.Double, F64: f}, nil
	case argbank.Empty.String(), "":
		return argbank.Slot{Kind: argbank.Empty}, nil
	}

	return argbank.Slot{}, dispatch.Status(dispatch.DispETypeMismatch, "unknown argument type "+a.Type)
}

func valueFromArg(a Arg) (dispatch.Value, error) {
	if a.Type == argbank.String.String() {
		return dispatch.ValueOf(a.Value), nil
	}

	s, err := slotFromArg(a)
	if err != nil {
		return dispatch.Empty, err
	}
	return dispatch.ValueOf(s.Value()), nil
}
