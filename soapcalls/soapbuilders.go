package soapcalls

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

const (
	// ServiceType is the automation service a bridge advertises.
	ServiceType = "urn:schemas-stereoctl:service:Automation:1"
	// DeviceType is the bridge device type.
	DeviceType = "urn:schemas-stereoctl:device:StereoPlayer:1"
	serviceID  = "urn:stereoctl:serviceId:Automation"

	soapSchema   = "http://schemas.xmlsoap.org/soap/envelope/"
	soapEncoding = "http://schemas.xmlsoap.org/soap/encoding/"
	upnpControl  = "urn:schemas-upnp-org:control-1-0"
)

const xmlStart = "<?xml version='1.0' encoding='utf-8'?>"

// Envelope is the outgoing SOAP envelope.
type Envelope struct {
	XMLName  xml.Name `xml:"s:Envelope"`
	Schema   string   `xml:"xmlns:s,attr"`
	Encoding string   `xml:"s:encodingStyle,attr"`
	Body     Body     `xml:"s:Body"`
}

// Body carries exactly one action, response or fault.
type Body struct {
	XMLName xml.Name `xml:"s:Body"`
	Content interface{}
}

// Arg is a typed argument or result on the wire.
type Arg struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type CreateInstance struct {
	XMLName  xml.Name `xml:"u:CreateInstance"`
	Service  string   `xml:"xmlns:u,attr"`
	ClientID string
}

type CreateInstanceResponse struct {
	XMLName    xml.Name `xml:"u:CreateInstanceResponse"`
	Service    string   `xml:"xmlns:u,attr"`
	InstanceID uint32
}

type ReleaseInstance struct {
	XMLName    xml.Name `xml:"u:ReleaseInstance"`
	Service    string   `xml:"xmlns:u,attr"`
	InstanceID uint32
}

type ReleaseInstanceResponse struct {
	XMLName xml.Name `xml:"u:ReleaseInstanceResponse"`
	Service string   `xml:"xmlns:u,attr"`
}

type GetIDsOfNames struct {
	XMLName    xml.Name `xml:"u:GetIDsOfNames"`
	Service    string   `xml:"xmlns:u,attr"`
	InstanceID uint32
	Name       string
}

type GetIDsOfNamesResponse struct {
	XMLName xml.Name `xml:"u:GetIDsOfNamesResponse"`
	Service string   `xml:"xmlns:u,attr"`
	DispID  int32
}

type Invoke struct {
	XMLName    xml.Name `xml:"u:Invoke"`
	Service    string   `xml:"xmlns:u,attr"`
	InstanceID uint32
	DispID     int32
	Flags      int16
	Args       []Arg `xml:"Args>Arg"`
}

type InvokeResponse struct {
	XMLName xml.Name `xml:"u:InvokeResponse"`
	Service string   `xml:"xmlns:u,attr"`
	Result  Arg
}

type Fault struct {
	XMLName     xml.Name  `xml:"s:Fault"`
	FaultCode   string    `xml:"faultcode"`
	FaultString string    `xml:"faultstring"`
	Detail      UPnPError `xml:"detail>UPnPError"`
}

type UPnPError struct {
	Xmlns            string `xml:"xmlns,attr"`
	ErrorCode        string `xml:"errorCode"`
	ErrorDescription string `xml:"errorDescription"`
}

func buildEnvelope(content interface{}) ([]byte, error) {
	d := Envelope{
		XMLName:  xml.Name{},
		Schema:   soapSchema,
		Encoding: soapEncoding,
		Body: Body{
			XMLName: xml.Name{},
			Content: content,
		},
	}

	b, err := xml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("buildEnvelope marshal error: %w", err)
	}

	return append([]byte(xmlStart), b...), nil
}

func createInstanceSoapBuild(clientID string) ([]byte, error) {
	return buildEnvelope(CreateInstance{Service: ServiceType, ClientID: clientID})
}

func releaseInstanceSoapBuild(instance uint32) ([]byte, error) {
	return buildEnvelope(ReleaseInstance{Service: ServiceType, InstanceID: instance})
}

func getIDsOfNamesSoapBuild(instance uint32, name string) ([]byte, error) {
	return buildEnvelope(GetIDsOfNames{Service: ServiceType, InstanceID: instance, Name: name})
}

func invokeSoapBuild(instance uint32, id dispatch.DispID, kind dispatch.InvokeKind, args []argbank.Slot) ([]byte, error) {
	wire := make([]Arg, len(args))
	for i, a := range args {
		wire[i] = argFromSlot(a)
	}

	return buildEnvelope(Invoke{
		Service:    ServiceType,
		InstanceID: instance,
		DispID:     int32(id),
		Flags:      int16(kind),
		Args:       wire,
	})
}

func faultSoapBuild(code uint32, description string) ([]byte, error) {
	return buildEnvelope(Fault{
		FaultCode:   "s:Client",
		FaultString: "UPnPError",
		Detail: UPnPError{
			Xmlns:            upnpControl,
			ErrorCode:        fmt.Sprintf("0x%08X", code),
			ErrorDescription: description,
		},
	})
}

func argFromSlot(s argbank.Slot) Arg {
	switch s.Kind {
	case argbank.String:
		return Arg{Type: argbank.String.String(), Value: s.Str.String()}
	case argbank.UnsignedInt32:
		return Arg{Type: argbank.UnsignedInt32.String(), Value: strconv.FormatUint(uint64(s.U32), 10)}
	case argbank.Bool:
		return Arg{Type: argbank.Bool.String(), Value: strconv.FormatBool(s.Bool)}
	case argbank.Double:
		return Arg{Type: argbank.Double.String(), Value: strconv.FormatFloat(s.F64, 'g', -1, 64)}
	}
	return Arg{Type: argbank.Empty.String()}
}

func argFromValue(v dispatch.Value) Arg {
	switch r := v.Raw.(type) {
	case string:
		return Arg{Type: argbank.String.String(), Value: r}
	case uint32:
		return Arg{Type: argbank.UnsignedInt32.String(), Value: strconv.FormatUint(uint64(r), 10)}
	case bool:
		return Arg{Type: argbank.Bool.String(), Value: strconv.FormatBool(r)}
	}
	if f, err := v.Float64(); err == nil {
		return Arg{Type: argbank.Double.String(), Value: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	return Arg{Type: argbank.Empty.String()}
}
