package discovery

import "context"

// Service is the DiscoveryService singleton (C8): one Advertiser and
// one Browser sharing the advertised service name so Browse can
// filter out this process's own instance.
type Service struct {
	advertiser *Advertiser
	browser    *Browser
}

// New constructs an idle Service.
func New() *Service {
	return &Service{
		advertiser: NewAdvertiser(),
		browser:    NewBrowser(),
	}
}

// Advertise starts (or idempotently reconfirms) this process's mDNS
// advertisement. See Advertiser.Advertise.
func (s *Service) Advertise(port int, serviceName string, extra map[string]string) error {
	return s.advertiser.Advertise(port, serviceName, extra)
}

// StopAdvertising tears down the advertisement.
func (s *Service) StopAdvertising() {
	s.advertiser.Shutdown()
}

// Browse observes other instances, filtering out this process's own
// advertised name.
func (s *Service) Browse(ctx context.Context) (<-chan Event, error) {
	return s.browser.Browse(ctx, s.advertiser.ServiceName())
}

// Resolve attempts to pin a discovered peer to a reachable address.
func (s *Service) Resolve(ctx context.Context, peer Peer) (Peer, error) {
	return Resolve(ctx, peer)
}
