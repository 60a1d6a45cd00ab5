package soapcalls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

func TestBridgeExtractor(t *testing.T) {
	raw := `<?xml version="1.0"?>
	<root xmlns="urn:schemas-upnp-org:device-1-0">
	<device>
	<deviceType>urn:schemas-stereoctl:device:StereoPlayer:1</deviceType>
	<friendlyName>Lab Rig</friendlyName>
	<UDN>uuid:3f1c</UDN>
	<serviceList>
	<service>
	<serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
	<serviceId>urn:upnp-org:serviceId:ConnectionManager</serviceId>
	<controlURL>/upnp/control/ConnectionManager1</controlURL>
	</service>
	<service>
	<serviceType>urn:schemas-stereoctl:service:Automation:1</serviceType>
	<serviceId>urn:stereoctl:serviceId:Automation</serviceId>
	<controlURL>control/Automation</controlURL>
	</service>
	</serviceList>
	</device>
	</root>`

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(raw))
	}))
	defer testServer.Close()

	ex, err := BridgeExtractor(context.Background(), testServer.URL+"/description.xml")
	if err != nil {
		t.Fatalf("Failed to call BridgeExtractor due to %s", err.Error())
	}

	if want := testServer.URL + "/control/Automation"; ex.ControlURL != want {
		t.Fatalf("BridgeExtractor: got: %s, want: %s.", ex.ControlURL, want)
	}
	if ex.FriendlyName != "Lab Rig" {
		t.Fatalf("BridgeExtractor: got: %s, want: %s.", ex.FriendlyName, "Lab Rig")
	}
}

func TestBridgeExtractorNoService(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<root><device><serviceList></serviceList></device></root>`))
	}))
	defer testServer.Close()

	_, err := BridgeExtractor(context.Background(), testServer.URL)
	require.Error(t, err)
	require.Equal(t, dispatch.RegDBEClassNotReg, dispatch.CodeOf(err))
}

func TestFaultError(t *testing.T) {
	tt := []struct {
		name string
		body string
		want uint32
	}{
		{
			"hex code",
			`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>0x8002000E</errorCode></UPnPError></detail></s:Fault></s:Body></s:Envelope>`,
			dispatch.DispEBadParamCount,
		},
		{
			"decimal code",
			`<Envelope><Body><Fault><faultstring>UPnPError</faultstring><detail><UPnPError><errorCode>2147500036</errorCode></UPnPError></detail></Fault></Body></Envelope>`,
			dispatch.EAbort,
		},
		{
			"no code",
			`<Envelope><Body><Fault><faultstring>boom</faultstring></Fault></Body></Envelope>`,
			dispatch.EFail,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			env, err := parseEnvelope([]byte(tc.body))
			require.NoError(t, err)

			ferr := env.faultError()
			require.Error(t, ferr)
			if got := dispatch.CodeOf(ferr); got != tc.want {
				t.Fatalf("%s: got: %#x, want: %#x.", tc.name, got, tc.want)
			}
		})
	}
}

func TestSlotFromArg(t *testing.T) {
	tt := []struct {
		name    string
		input   Arg
		want    interface{}
		wantErr bool
	}{
		{"bstr", Arg{Type: "bstr", Value: "movie.wmv"}, "movie.wmv", false},
		{"ui4", Arg{Type: "ui4", Value: " 3 "}, argbank.StateFastForward, false},
		{"bool", Arg{Type: "bool", Value: "1"}, true, false},
		{"r8", Arg{Type: "r8", Value: "90"}, 90.0, false},
		{"empty", Arg{Type: "empty"}, nil, false},
		{"bad ui4", Arg{Type: "ui4", Value: "-1"}, nil, true},
		{"unknown type", Arg{Type: "i8", Value: "1"}, nil, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s, err := slotFromArg(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, dispatch.DispETypeMismatch, dispatch.CodeOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, s.Value())
		})
	}
}
