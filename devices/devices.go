package devices

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alexballas/go-ssdp"
	"github.com/pkg/errors"
	"stereoctl.app/stereoctl/soapcalls"
)

const (
	DeviceTypeSSDP = "SSDP"
	DeviceTypeMDNS = "mDNS"
)

var (
	ErrNoDeviceAvailable  = errors.New("loadSSDPservices: No available automation bridges")
	ErrDeviceNotAvailable = errors.New("devicePicker: Requested device not available")
)

var (
	ssdpSearch      = ssdp.Search
	getFriendlyName = soapcalls.GetFriendlyName
)

// Device is a discovered automation bridge. Addr is its description URL.
type Device struct {
	Name string
	Addr string
	Type string
}

// LoadSSDPservices returns every bridge answering an SSDP search for the
// automation service within delay seconds.
func LoadSSDPservices(ctx context.Context, delay int) ([]Device, error) {
	list, err := ssdpSearch(soapcalls.ServiceType, delay, "")
	if err != nil {
		return nil, fmt.Errorf("LoadSSDPservices search error: %w", err)
	}

	seen := make(map[string]struct{})
	var out []Device
	for _, srv := range list {
		if srv.Type != soapcalls.ServiceType && srv.Type != ssdp.RootDevice {
			continue
		}
		if _, ok := seen[srv.Location]; ok {
			continue
		}

		friendlyName, err := getFriendlyName(ctx, srv.Location)
		if err != nil {
			continue
		}

		seen[srv.Location] = struct{}{}
		out = append(out, Device{Name: friendlyName, Addr: srv.Location, Type: DeviceTypeSSDP})
	}

	if len(out) == 0 {
		return nil, ErrNoDeviceAvailable
	}

	sortDevices(out)
	return out, nil
}

// LoadAllDevices merges SSDP and mDNS results. A device found by both is
// listed once.
func LoadAllDevices(ctx context.Context, delay int) ([]Device, error) {
	var out []Device
	seen := make(map[string]struct{})

	add := func(devs []Device) {
		for _, d := range devs {
			if _, ok := seen[d.Addr]; ok {
				continue
			}
			seen[d.Addr] = struct{}{}
			out = append(out, d)
		}
	}

	ssdpDevs, ssdpErr := LoadSSDPservices(ctx, delay)
	add(ssdpDevs)

	mdnsDevs, mdnsErr := LoadMDNSservices(time.Duration(delay) * time.Second)
	add(mdnsDevs)

	if len(out) == 0 {
		if ssdpErr != nil && !errors.Is(ssdpErr, ErrNoDeviceAvailable) {
			return nil, ssdpErr
		}
		if mdnsErr != nil && !errors.Is(mdnsErr, ErrNoDeviceAvailable) {
			return nil, mdnsErr
		}
		return nil, ErrNoDeviceAvailable
	}

	sortDevices(out)
	return out, nil
}

// DevicePicker will pick the nth device from the devices input list.
func DevicePicker(devices []Device, n int) (string, error) {
	if n > len(devices) || len(devices) == 0 || n <= 0 {
		return "", ErrDeviceNotAvailable
	}

	return devices[n-1].Addr, nil
}

func sortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].Name == devs[j].Name {
			return devs[i].Addr < devs[j].Addr
		}
		return devs[i].Name < devs[j].Name
	})
}
