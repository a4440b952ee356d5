package smtpclient

import "fmt"

// ErrStreamSetupFailed indicates the TCP connection to the server could
// not be established.
type ErrStreamSetupFailed struct{ Cause error }

func (e *ErrStreamSetupFailed) Error() string {
	return fmt.Sprintf("smtp: stream setup failed: %v", e.Cause)
}
func (e *ErrStreamSetupFailed) Unwrap() error { return e.Cause }

// ErrTLSHandshakeFailed indicates the implicit or STARTTLS TLS
// handshake failed.
type ErrTLSHandshakeFailed struct{ Cause error }

func (e *ErrTLSHandshakeFailed) Error() string {
	return fmt.Sprintf("smtp: tls handshake failed: %v", e.Cause)
}
func (e *ErrTLSHandshakeFailed) Unwrap() error { return e.Cause }

// ErrAuthenticationFailed indicates AUTH LOGIN was rejected.
type ErrAuthenticationFailed struct{ Response Response }

func (e *ErrAuthenticationFailed) Error() string {
	return fmt.Sprintf("smtp: authentication failed: %s", e.Response.Text())
}

// ErrServerRejected indicates the server returned a 4xx/5xx response to
// a conversation step other than AUTH.
type ErrServerRejected struct {
	Code int
	Text string
}

func (e *ErrServerRejected) Error() string {
	return fmt.Sprintf("smtp: server rejected (%d): %s", e.Code, e.Text)
}

// ErrTimeout indicates a stage exceeded its deadline.
type ErrTimeout struct{ Stage string }

func (e *ErrTimeout) Error() string { return fmt.Sprintf("smtp: timeout during %s", e.Stage) }

// ErrCancelled indicates the caller's context was cancelled mid-send.
type ErrCancelled struct{}

func (e *ErrCancelled) Error() string { return "smtp: send cancelled" }
