package devices

import (
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"stereoctl.app/stereoctl/soapcalls"
)

// MDNSService is the service bridges advertise themselves under.
const MDNSService = "_stereoctl._tcp"

var mdnsQuery = mdns.Query

// LoadMDNSservices browses for bridges for at most timeout.
func LoadMDNSservices(timeout time.Duration) ([]Device, error) {
	if timeout <= 0 {
		timeout = time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 64)
	var (
		out  []Device
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entriesCh {
			d, ok := deviceFromEntry(entry)
			if !ok {
				continue
			}
			if _, dup := seen[d.Addr]; dup {
				continue
			}
			seen[d.Addr] = struct{}{}
			out = append(out, d)
		}
	}()

	params := mdns.DefaultParams(MDNSService)
	params.Entries = entriesCh
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.Logger = log.New(io.Discard, "", 0)
	err := mdnsQuery(params)

	close(entriesCh)
	wg.Wait()

	if err != nil {
		return nil, fmt.Errorf("LoadMDNSservices query error: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoDeviceAvailable
	}

	sortDevices(out)
	return out, nil
}

func deviceFromEntry(entry *mdns.ServiceEntry) (Device, bool) {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return Device{}, false
	}
	if !strings.Contains(entry.Name, MDNSService) {
		return Device{}, false
	}

	friendlyName := entry.Name
	path := soapcalls.DescriptionPath
	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			friendlyName = after
		}
		if after, ok := strings.CutPrefix(txt, "path="); ok && strings.HasPrefix(after, "/") {
			path = after
		}
	}

	if idx := strings.Index(friendlyName, "."+MDNSService); idx > 0 {
		friendlyName = friendlyName[:idx]
	}

	addr := "http://" + net.JoinHostPort(entry.AddrV4.String(), fmt.Sprint(entry.Port)) + path
	return Device{Name: friendlyName, Addr: addr, Type: DeviceTypeMDNS}, true
}
