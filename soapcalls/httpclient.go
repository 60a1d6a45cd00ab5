package soapcalls

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	bridgeHTTPClientTimeout         = 20 * time.Second
	bridgeHTTPDialTimeout           = 5 * time.Second
	bridgeHTTPKeepAlive             = 30 * time.Second
	bridgeHTTPResponseHeaderTimeout = 10 * time.Second
	bridgeHTTPIdleConnTimeout       = 90 * time.Second
)

// One pool for every bridge call; Shutdown drains it.
var bridgeHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   bridgeHTTPDialTimeout,
		KeepAlive: bridgeHTTPKeepAlive,
	}).DialContext,
	ResponseHeaderTimeout: bridgeHTTPResponseHeaderTimeout,
	IdleConnTimeout:       bridgeHTTPIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   bridgeHTTPClientTimeout,
		Transport: bridgeHTTPTransport,
	}
}

// Only idempotent reads go through the retrying client. Invocations are
// never retried.
func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}

func closeIdleConnections() {
	bridgeHTTPTransport.CloseIdleConnections()
}
