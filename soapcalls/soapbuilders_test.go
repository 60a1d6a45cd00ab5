package soapcalls

import (
	"testing"

	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/widestr"
)

const envelopeHead = `<?xml version='1.0' encoding='utf-8'?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`
const envelopeTail = `</s:Body></s:Envelope>`

func TestGetIDsOfNamesSoapBuild(t *testing.T) {
	want := envelopeHead + `<u:GetIDsOfNames xmlns:u="urn:schemas-stereoctl:service:Automation:1"><InstanceID>4</InstanceID><Name>SetPlaybackState</Name></u:GetIDsOfNames>` + envelopeTail

	out, err := getIDsOfNamesSoapBuild(4, "SetPlaybackState")
	if err != nil {
		t.Fatalf("getIDsOfNamesSoapBuild: Failed to call getIDsOfNamesSoapBuild due to %s", err.Error())
	}
	if string(out) != want {
		t.Fatalf("getIDsOfNamesSoapBuild: got: %s, want: %s.", out, want)
	}
}

func TestInvokeSoapBuild(t *testing.T) {
	path, err := widestr.Marshal(`C:\Movies\a & b.wmv`)
	if err != nil {
		t.Fatal(err)
	}

	tt := []struct {
		name string
		kind dispatch.InvokeKind
		args []argbank.Slot
		want string
	}{
		{
			`invokeSoapBuild no arguments`,
			dispatch.Method,
			nil,
			`<InstanceID>1</InstanceID><DispID>3</DispID><Flags>1</Flags><Args></Args>`,
		},
		{
			`invokeSoapBuild property get`,
			dispatch.Method | dispatch.PropertyGet,
			nil,
			`<InstanceID>1</InstanceID><DispID>3</DispID><Flags>3</Flags><Args></Args>`,
		},
		{
			`invokeSoapBuild every kind`,
			dispatch.Method,
			[]argbank.Slot{
				{Kind: argbank.String, Str: path},
				{Kind: argbank.UnsignedInt32, U32: argbank.StateRewind},
				{Kind: argbank.Bool, Bool: true},
				{Kind: argbank.Double, F64: 110},
				{Kind: argbank.Empty},
			},
			`<InstanceID>1</InstanceID><DispID>3</DispID><Flags>1</Flags><Args>` +
				`<Arg type="bstr">C:\Movies\a &amp; b.wmv</Arg>` +
				`<Arg type="ui4">4</Arg>` +
				`<Arg type="bool">true</Arg>` +
				`<Arg type="r8">110</Arg>` +
				`<Arg type="empty"></Arg>` +
				`</Args>`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			want := envelopeHead + `<u:Invoke xmlns:u="urn:schemas-stereoctl:service:Automation:1">` + tc.want + `</u:Invoke>` + envelopeTail

			out, err := invokeSoapBuild(1, 3, tc.kind, tc.args)
			if err != nil {
				t.Fatalf("%s: Failed to call invokeSoapBuild due to %s", tc.name, err.Error())
			}
			if string(out) != want {
				t.Fatalf("%s: got: %s, want: %s.", tc.name, out, want)
			}
		})
	}
}

func TestFaultSoapBuild(t *testing.T) {
	want := envelopeHead + `<s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>0x80020006</errorCode><errorDescription>unknown name</errorDescription></UPnPError></detail></s:Fault>` + envelopeTail

	out, err := faultSoapBuild(dispatch.DispEUnknownName, "unknown name")
	if err != nil {
		t.Fatalf("faultSoapBuild: Failed to call faultSoapBuild due to %s", err.Error())
	}
	if string(out) != want {
		t.Fatalf("faultSoapBuild: got: %s, want: %s.", out, want)
	}
}

func TestArgFromValue(t *testing.T) {
	tt := []struct {
		name  string
		input dispatch.Value
		want  Arg
	}{
		{"double", dispatch.ValueOf(5423.5), Arg{Type: "r8", Value: "5423.5"}},
		{"string", dispatch.ValueOf("x"), Arg{Type: "bstr", Value: "x"}},
		{"ui4", dispatch.ValueOf(uint32(2)), Arg{Type: "ui4", Value: "2"}},
		{"bool", dispatch.ValueOf(false), Arg{Type: "bool", Value: "false"}},
		{"empty", dispatch.Empty, Arg{Type: "empty"}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := argFromValue(tc.input); got != tc.want {
				t.Fatalf("%s: got: %+v, want: %+v.", tc.name, got, tc.want)
			}
		})
	}
}
