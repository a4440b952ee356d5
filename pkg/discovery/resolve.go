package discovery

import (
	"context"
	"fmt"
	"net"
	"time"
)

// resolveTimeout is the fixed Resolve budget (spec.md §4.6: "Timeout:
// 5 s, otherwise ResolutionFailed").
const resolveTimeout = 5 * time.Second

// Resolve attempts a short-lived connection to peer's candidate
// addresses and returns an updated Peer pinned to whichever one
// answered first. Multi-homed hosts advertise several addresses; this
// picks the one that's actually reachable from here.
func Resolve(ctx context.Context, peer Peer) (Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	hosts := peer.candidateHosts
	if len(hosts) == 0 {
		hosts = []string{peer.Host}
	}

	type dialResult struct {
		host string
		ok   bool
	}
	results := make(chan dialResult, len(hosts))

	var dialer net.Dialer
	for _, host := range hosts {
		go func(host string) {
			conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, peer.Port))
			if err != nil {
				results <- dialResult{host: host, ok: false}
				return
			}
			conn.Close()
			results <- dialResult{host: host, ok: true}
		}(host)
	}

	for range hosts {
		select {
		case r := <-results:
			if r.ok {
				resolved := peer
				resolved.Host = r.host
				return resolved, nil
			}
		case <-ctx.Done():
			return Peer{}, &ResolutionFailed{Peer: peer}
		}
	}

	return Peer{}, &ResolutionFailed{Peer: peer}
}
