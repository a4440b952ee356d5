// Package discovery implements DiscoveryService (C8): mDNS/DNS-SD
// advertise, browse, and resolve under service type "_folio._tcp",
// wrapping github.com/grandcat/zeroconf. See spec.md §4.6.
package discovery

import "fmt"

// ServiceType is the fixed DNS-SD service type this core advertises
// and browses under (spec.md §4.6).
const ServiceType = "_folio._tcp"

// ServiceDomain is the zeroconf domain to search/advertise in.
const ServiceDomain = "local."

// wellKnownTXTKeys are the only TXT keys Browse exposes to callers
// (spec.md §4.6: "only keys {version, platform, books} are read").
var wellKnownTXTKeys = map[string]bool{
	"version":  true,
	"platform": true,
	"books":    true,
}

// Peer is a discovered service instance, projected down to the TXT
// keys the spec recognizes.
type Peer struct {
	ServiceName string
	Host        string
	Port        int
	TXT         map[string]string

	// candidateHosts carries every address the mDNS entry advertised,
	// so Resolve can try each in turn.
	candidateHosts []string
}

func (p Peer) String() string {
	return fmt.Sprintf("%s@%s:%d", p.ServiceName, p.Host, p.Port)
}

// EventKind distinguishes an instance appearing from one disappearing.
type EventKind int

const (
	EventAdd EventKind = iota
	EventRemove
)

// Event is one add/remove observation from Browse.
type Event struct {
	Kind EventKind
	Peer Peer
}
