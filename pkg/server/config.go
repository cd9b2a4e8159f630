package server

import (
	"net/http"
	"net/url"
	"time"
)

// Config holds server settings.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string

	// StaticDir is the directory served under StaticPrefix. Empty disables
	// static serving.
	StaticDir string

	// StaticPrefix is the URL prefix of static assets (default "/cesium/").
	StaticPrefix string

	// MetricsPath is where Prometheus metrics are exposed. Empty disables
	// the endpoint.
	MetricsPath string

	// RateLimit bounds live navigation connections per client IP and
	// RateWindow. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration

	// HTTP server timeouts.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the origin of live navigation connections.
	CheckOrigin func(r *http.Request) bool

	// MaxFrameSize bounds client frames.
	MaxFrameSize int64

	// PongWait is how long a live connection may stay silent.
	PongWait time.Duration

	// HeartbeatInterval is the time between pings. Must be below PongWait.
	HeartbeatInterval time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		StaticPrefix:      "/cesium/",
		MetricsPath:       "/metrics",
		RateWindow:        time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		MaxFrameSize:      4096,
		PongWait:          60 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.StaticPrefix == "" {
		out.StaticPrefix = d.StaticPrefix
	}
	if out.RateWindow == 0 {
		out.RateWindow = d.RateWindow
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.MaxFrameSize == 0 {
		out.MaxFrameSize = d.MaxFrameSize
	}
	if out.PongWait == 0 {
		out.PongWait = d.PongWait
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.HeartbeatInterval >= out.PongWait {
		out.HeartbeatInterval = out.PongWait * 9 / 10
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	return &out
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host equals the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && originURL.Host == r.Host
}
