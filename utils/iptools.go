package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"syscall"
)

// GetOutboundIP gets the preferred outbound IP of this machine
func GetOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP.String()
}

// PickListenAddr returns host:port for the first free TCP port at or above
// port. A zero port is returned as is so the kernel picks one.
func PickListenAddr(host string, port int) (string, error) {
	if port == 0 {
		return net.JoinHostPort(host, "0"), nil
	}

	p, err := checkAndPickPort(host, port)
	if err != nil {
		return "", fmt.Errorf("PickListenAddr error: %w", err)
	}

	return net.JoinHostPort(host, p), nil
}

// AdvertiseURL builds the URL peers should use to reach path on a server
// bound to addr. Wildcard binds are replaced with the outbound IP.
func AdvertiseURL(addr net.Addr, path string) (string, error) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", fmt.Errorf("AdvertiseURL split error: %w", err)
	}

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = GetOutboundIP()
		if host == "" {
			return "", errors.New("AdvertiseURL: no outbound IP")
		}
	}

	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}

	return u.String(), nil
}

func checkAndPickPort(ip string, port int) (string, error) {
	const maxAttempts = 1000
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := net.Listen("tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
		if err != nil {
			if errors.Is(err, syscall.EADDRINUSE) {
				if attempt == maxAttempts {
					break
				}
				port++
				continue
			}

			return "", fmt.Errorf("port pick error: %w", err)
		}
		conn.Close()
		return strconv.Itoa(port), nil
	}

	return "", fmt.Errorf("port pick error. Exceeded maximum attempts")
}
