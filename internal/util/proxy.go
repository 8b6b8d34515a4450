// Package util holds outbound-HTTP helpers shared by the language-model
// providers and the online expansion connector.
package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc builds a Transport proxy func. Explicit settings take
// precedence; with none set it falls back to the environment.
// noProxy uses the usual comma-separated host/CIDR syntax.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}
	if cfg.HTTPSProxy == "" {
		cfg.HTTPSProxy = httpProxy
	}
	fn := cfg.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return fn(req.URL)
	}
}

// NewTransport returns a cloned default transport with the given proxy settings
func NewTransport(httpProxy, httpsProxy, noProxy string) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = NewProxyFunc(httpProxy, httpsProxy, noProxy)
	return t
}
