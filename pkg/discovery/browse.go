package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"
)

// staleSweepInterval is both the period of Browse's stale-instance
// sweep and the grace window added to an instance's own TTL before the
// sweep synthesizes a remove event for it. zeroconf only ever reports
// sightings, not departures, so absence past that TTL plus grace is our
// only removal signal.
const staleSweepInterval = 5 * time.Second

// Browser observes "_folio._tcp" instances and emits add/remove
// events, filtering out the local process's own advertisement.
type Browser struct{}

// NewBrowser constructs a Browser.
func NewBrowser() *Browser { return &Browser{} }

// Browse starts observing and returns a channel of events. The
// channel closes when ctx is cancelled. selfServiceName is the name
// this process advertises under (if any); instances with a matching
// name are filtered out (spec.md §4.6).
func (b *Browser) Browse(ctx context.Context, selfServiceName string) (<-chan Event, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, errors.Wrap(err, "constructing mDNS resolver")
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, errors.Wrap(err, "starting mDNS browse")
	}

	events := make(chan Event)
	go pumpEvents(ctx, selfServiceName, entries, events)
	return events, nil
}

func pumpEvents(ctx context.Context, selfServiceName string, entries <-chan *zeroconf.ServiceEntry, events chan<- Event) {
	defer close(events)

	seen := map[string]time.Time{}
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case entry, ok := <-entries:
			if !ok {
				return
			}
			if entry.Instance == selfServiceName {
				continue
			}

			_, wasSeen := seen[entry.Instance]
			seen[entry.Instance] = time.Now().Add(ttlWithGrace(entry.TTL))
			if !wasSeen {
				events <- Event{Kind: EventAdd, Peer: peerFromEntry(entry)}
			}

		case <-ticker.C:
			now := time.Now()
			for name, expiry := range seen {
				if now.After(expiry) {
					delete(seen, name)
					events <- Event{Kind: EventRemove, Peer: Peer{ServiceName: name}}
				}
			}
		}
	}
}

func ttlWithGrace(ttl uint32) time.Duration {
	if ttl == 0 {
		ttl = 120
	}
	return time.Duration(ttl)*time.Second + staleSweepInterval
}

func peerFromEntry(entry *zeroconf.ServiceEntry) Peer {
	var hosts []string
	for _, ip := range entry.AddrIPv4 {
		hosts = append(hosts, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		hosts = append(hosts, ip.String())
	}

	host := entry.HostName
	if len(hosts) > 0 {
		host = hosts[0]
	}

	return Peer{
		ServiceName:    entry.Instance,
		Host:           host,
		Port:           entry.Port,
		TXT:            parseTXT(entry.Text),
		candidateHosts: hosts,
	}
}

// parseTXT keeps only the well-known keys Browse exposes (spec.md
// §4.6: "only keys {version, platform, books} are read").
func parseTXT(text []string) map[string]string {
	out := map[string]string{}
	for _, kv := range text {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !wellKnownTXTKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}
