// Package transferserver implements the HTTPTransferServer (C9): a
// single-process local HTTP server that exposes the catalog for
// browser and raw/Kindle download over the LAN (spec.md §4.7).
package transferserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"

	"github.com/foliobooks/folio/pkg/conversioncache"
	"github.com/foliobooks/folio/pkg/converter"
	"github.com/foliobooks/folio/pkg/library"
	"github.com/foliobooks/folio/pkg/metadata"
)

// Config configures a Server's port-range bind loop (spec.md §4.7).
type Config struct {
	PortRangeStart int `default:"8080"`
	PortRangeEnd   int `default:"8180"`
}

// Server is the HTTPTransferServer. It owns no book storage: every
// catalog read goes through library.Provider, every transcode through
// *converter.Converter, every cached artifact through
// *conversioncache.Cache.
type Server struct {
	books      library.Provider
	converter  *converter.Converter
	cache      *conversioncache.Cache
	aggregator *metadata.Aggregator

	cfg Config
	e   *echo.Echo
	srv *http.Server

	mu        sync.RWMutex
	port      int
	serverURL string
	isRunning bool
	listener  net.Listener

	activeDownloads int32
}

// New constructs a Server. aggregator may be nil, in which case the
// metadata endpoint reports it unavailable rather than panicking. The
// port is not bound until Start is called.
func New(books library.Provider, conv *converter.Converter, cache *conversioncache.Cache, aggregator *metadata.Aggregator, cfg Config) (*Server, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	s := &Server{books: books, converter: conv, cache: cache, aggregator: aggregator, cfg: cfg}
	s.e = s.newEcho()
	return s, nil
}

// newEcho builds the Echo instance with the same middleware ordering as
// pkg/server/server.go: logger, recovery, CORS, then routes.
func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	e.GET("/", s.catalogHandler)
	e.GET("/api/books", s.listBooksHandler)
	e.GET("/api/books/:id/download", s.downloadHandler)
	e.GET("/api/books/:id/kindle", s.kindleHandler)
	e.GET("/api/books/:id/cover", s.coverHandler)
	e.GET("/api/books/:id/metadata", s.metadataHandler)

	e.HTTPErrorHandler = s.handleError

	return e
}

// Start tries each port in cfg's range in order, bound to all IPv4
// interfaces, and begins serving on the first one that binds. It
// returns once the listener is up; the accept loop runs in the
// background.
func (s *Server) Start(ctx context.Context) error {
	var ln net.Listener
	var boundPort int
	for port := s.cfg.PortRangeStart; port <= s.cfg.PortRangeEnd; port++ {
		candidate, err := (&net.ListenConfig{}).Listen(ctx, "tcp4", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		ln = candidate
		boundPort = candidate.Addr().(*net.TCPAddr).Port
		break
	}
	if ln == nil {
		return &PortUnavailable{RangeStart: s.cfg.PortRangeStart, RangeEnd: s.cfg.PortRangeEnd}
	}

	url := fmt.Sprintf("http://%s:%d", lanIPv4(), boundPort)

	s.mu.Lock()
	s.listener = ln
	s.port = boundPort
	s.serverURL = url
	s.isRunning = true
	s.srv = &http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 3 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	go func() {
		_ = srv.Serve(ln)
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.srv
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return errors.WithStack(err)
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
	return nil
}

// Port returns the bound port, or 0 if the server hasn't started.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

// URL returns the published serverURL, or "" if the server hasn't
// started.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverURL
}

// IsRunning reports whether the accept loop is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// ActiveDownloads returns the current in-flight download/kindle handler
// count (spec.md §4.7's "Access-counting" paragraph).
func (s *Server) ActiveDownloads() int32 {
	return atomic.LoadInt32(&s.activeDownloads)
}

func (s *Server) beginDownload() {
	atomic.AddInt32(&s.activeDownloads, 1)
}

func (s *Server) endDownload() {
	atomic.AddInt32(&s.activeDownloads, -1)
}

// lanIPv4 enumerates network interfaces for the host's primary LAN
// IPv4 address, preferring en0 then en1 and skipping loopback (spec.md
// §4.7). No third-party library in the corpus wraps interface
// enumeration; this is a direct, small use of net's stdlib surface.
func lanIPv4() string {
	for _, preferred := range []string{"en0", "en1"} {
		if ip, ok := ipv4ForInterface(preferred); ok {
			return ip
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if ip, ok := firstIPv4(iface); ok {
			return ip
		}
	}
	return "localhost"
}

func ipv4ForInterface(name string) (string, bool) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", false
	}
	return firstIPv4(*iface)
}

func firstIPv4(iface net.Interface) (string, bool) {
	addrs, err := iface.Addrs()
	if err != nil {
		return "", false
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), true
		}
	}
	return "", false
}
