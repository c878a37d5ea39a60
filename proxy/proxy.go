// Package proxy implements a filtering HTTP/HTTPS proxy on top of the
// content blocking engine: blocked requests are answered with a block page
// and cosmetic filters are injected into HTML documents.
package proxy

import (
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/Emdek/otter-browser/contentblocking"
)

const sessionPropKey = "session"
const requestBlockedKey = "blocked"

// Config contains the filtering proxy configuration.
type Config struct {
	// Config of the MITM proxy
	ProxyConfig gomitmproxy.Config

	// Manager owns the active content blocking profiles.
	Manager *contentblocking.Manager

	// InjectCosmeticFilters enables rewriting of HTML documents with a
	// style element hiding the matched selectors.
	InjectCosmeticFilters bool
}

// String - server's configuration description
func (c *Config) String() string {
	str := ""
	str += fmt.Sprintf("Listen addr: %s\n", c.ProxyConfig.ListenAddr.String())
	str += fmt.Sprintf("MITM status: %v\n", c.ProxyConfig.MITMConfig != nil)
	str += fmt.Sprintf("Cosmetic filters: %v\n", c.InjectCosmeticFilters)
	str += fmt.Sprintf("Profiles: %d\n", len(c.Manager.Profiles()))

	return str
}

// Server contains the current server state
type Server struct {
	// the MITM proxy server instance
	proxyServer *gomitmproxy.Proxy

	// time when the server was created
	createdAt time.Time

	Config // Server configuration
}

// NewServer creates a new instance of the filtering proxy server.
func NewServer(config Config) (*Server, error) {
	if config.Manager == nil {
		return nil, fmt.Errorf("proxy: no content blocking manager")
	}

	log.Info("Initializing the proxy server:\n%s", config.String())

	s := &Server{
		createdAt: time.Now(),
		Config:    config,
	}

	s.ProxyConfig.OnRequest = s.onRequest
	s.ProxyConfig.OnResponse = s.onResponse
	s.proxyServer = gomitmproxy.NewProxy(s.ProxyConfig)

	return s, nil
}

// Start starts the proxy server
func (s *Server) Start() error {
	return s.proxyServer.Start()
}

// Close stops the proxy server
func (s *Server) Close() {
	s.proxyServer.Close()
}
