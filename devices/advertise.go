package devices

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/alexballas/go-ssdp"
	"github.com/hashicorp/mdns"
	"stereoctl.app/stereoctl/soapcalls"
)

const advertiseMaxAge = 1800

// Advertisement announces a local bridge over SSDP and mDNS until Close.
type Advertisement struct {
	ssdp *ssdp.Advertiser
	mdns *mdns.Server
}

// Advertise announces the bridge whose description is served at
// location. udn and friendlyName come from the bridge description.
func Advertise(friendlyName, udn, location string) (*Advertisement, error) {
	host, port, err := hostPort(location)
	if err != nil {
		return nil, fmt.Errorf("Advertise location error: %w", err)
	}

	adv, err := ssdp.Advertise(soapcalls.ServiceType, udn+"::"+soapcalls.ServiceType, location, "stereoctl/1.0 UPnP/1.0", advertiseMaxAge)
	if err != nil {
		return nil, fmt.Errorf("Advertise ssdp error: %w", err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "stereoctl"
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil && !ip.IsUnspecified() {
		ips = []net.IP{ip}
	}

	svc, err := mdns.NewMDNSService(friendlyName, MDNSService, "", hostname+".", port, ips, []string{
		"fn=" + friendlyName,
		"path=" + soapcalls.DescriptionPath,
	})
	if err != nil {
		adv.Close()
		return nil, fmt.Errorf("Advertise mdns service error: %w", err)
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		adv.Close()
		return nil, fmt.Errorf("Advertise mdns server error: %w", err)
	}

	a := &Advertisement{ssdp: adv, mdns: srv}
	if err := adv.Alive(); err != nil {
		a.Close()
		return nil, fmt.Errorf("Advertise ssdp alive error: %w", err)
	}

	return a, nil
}

// Alive re-sends the SSDP alive notification.
func (a *Advertisement) Alive() error {
	return a.ssdp.Alive()
}

// Close sends byebye and stops both announcers.
func (a *Advertisement) Close() error {
	var errs []string
	if err := a.ssdp.Bye(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := a.ssdp.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := a.mdns.Shutdown(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("Advertisement close error: %s", strings.Join(errs, "; "))
	}
	return nil
}

func hostPort(location string) (string, int, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", 0, err
	}
	if u.Scheme != "http" {
		return "", 0, fmt.Errorf("not an http URL: %q", location)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("bad port in %q", location)
	}
	return u.Hostname(), port, nil
}
