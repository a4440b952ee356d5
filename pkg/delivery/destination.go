package delivery

import "strings"

// kindleIngestDomains are the recognized Kindle ingest address suffixes
// (spec.md §4.5, precondition 1).
var kindleIngestDomains = map[string]bool{
	"kindle.com":      true,
	"free.kindle.com": true,
}

// validateDestination enforces precondition 1: exactly one "@", a
// non-empty local part, and a domain in kindleIngestDomains.
func validateDestination(address string) bool {
	if strings.Count(address, "@") != 1 {
		return false
	}
	local, domain, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return false
	}
	return kindleIngestDomains[strings.ToLower(domain)]
}
