package discovery

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"

	"github.com/foliobooks/folio/pkg/version"
)

// Advertiser publishes one "_folio._tcp" instance over mDNS and holds a
// registration listener whose sole purpose is to exist on the
// advertised port; it never serves traffic (the HTTP server does
// that) and rejects every connection it accepts.
type Advertiser struct {
	mu          sync.Mutex
	listener    net.Listener
	zserver     *zeroconf.Server
	serviceName string
	port        int
}

// NewAdvertiser constructs an idle Advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Advertise starts (or idempotently re-confirms) advertisement on
// port. serviceName empty means "use the host's localized name"
// (spec.md §4.6's default). extra carries application-supplied TXT
// keys (e.g. "books"); version and platform are always included.
//
// Calling Advertise again with the same port and serviceName while
// already advertising is a no-op (idempotent with respect to repeated
// starts, per spec.md §4.6); calling it with different values
// restarts the advertisement.
func (a *Advertiser) Advertise(port int, serviceName string, extra map[string]string) error {
	if serviceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return errors.Wrap(err, "resolving default service name")
		}
		serviceName = hostname
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.zserver != nil && a.port == port && a.serviceName == serviceName {
		return nil
	}
	a.shutdownLocked()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return &PortUnavailable{Port: port}
	}
	go rejectConnections(ln)

	zserver, err := zeroconf.Register(serviceName, ServiceType, ServiceDomain, port, buildTXTRecords(extra), nil)
	if err != nil {
		ln.Close()
		return errors.Wrap(err, "registering mDNS service")
	}

	a.listener = ln
	a.zserver = zserver
	a.serviceName = serviceName
	a.port = port
	return nil
}

// Shutdown tears down the registration and closes the listener. Safe
// to call when not advertising.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
}

func (a *Advertiser) shutdownLocked() {
	if a.zserver != nil {
		a.zserver.Shutdown()
		a.zserver = nil
	}
	if a.listener != nil {
		a.listener.Close()
		a.listener = nil
	}
}

// ServiceName returns the name currently advertised, or "" if not
// advertising.
func (a *Advertiser) ServiceName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serviceName
}

// rejectConnections accepts and immediately closes every connection;
// registration via mDNS requires something listening on the
// advertised port, but this process serves no traffic on it.
func rejectConnections(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}

// buildTXTRecords renders the TXT record set as "key=value" strings,
// always including version and platform (spec.md §4.6: "at minimum
// version, platform, and any application-supplied keys").
func buildTXTRecords(extra map[string]string) []string {
	records := []string{
		"version=" + version.Version,
		"platform=" + runtime.GOOS,
	}
	for k, v := range extra {
		records = append(records, k+"="+v)
	}
	return records
}
