// Package secrets defines the narrow contract the core uses to read and
// write sensitive values (chiefly the SMTP password) without owning a
// secret store itself. The surrounding application supplies the
// implementation (a platform keychain, an encrypted file, a secrets
// manager, ...).
package secrets

import "context"

// Well-known account keys used by this core (spec.md §6).
const (
	AccountSMTPPassword = "smtp.password"
	AccountSMTPUsername = "smtp.username" // reserved
)

// Store is the narrow contract for reading and writing named secrets.
type Store interface {
	// Get returns the value stored under account. ok is false if no
	// value has been set.
	Get(ctx context.Context, account string) (value string, ok bool, err error)

	// Set stores value under account, replacing any prior value.
	Set(ctx context.Context, account, value string) error
}
