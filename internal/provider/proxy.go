package provider

import (
	"fmt"
	"net/http"
	"net/url"
)

// proxyFunc returns the transport proxy for a configured proxy URL. Empty
// falls back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment.
func proxyFunc(proxy string) (func(*http.Request) (*url.URL, error), error) {
	if proxy == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", proxy)
	}
	return http.ProxyURL(u), nil
}

// newHTTPClient builds a client with its own transport so the proxy setting
// does not leak into http.DefaultTransport
func newHTTPClient(proxy string) (*http.Client, error) {
	pf, err := proxyFunc(proxy)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = pf
	return &http.Client{Transport: transport}, nil
}
