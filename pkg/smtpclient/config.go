package smtpclient

// Config is the connection and auth configuration for one Send call.
// The password is deliberately not part of this struct — it's
// retrieved per-call from pkg/secrets.Store (spec.md §3's "password
// is stored separately ... never serialized with the config").
type Config struct {
	Host     string
	Port     int
	Username string
	UseTLS   bool
}

// implicitTLSPort is the well-known port at which the connection mode
// is implicit TLS rather than plaintext-then-STARTTLS (spec.md §4.4).
const implicitTLSPort = 465
