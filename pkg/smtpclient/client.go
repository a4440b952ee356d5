// Package smtpclient hand-rolls an SMTP conversation, because
// STARTTLS requires the TLS handshake to happen in place on the
// already-open socket — a primitive most higher-level SMTP client
// packages do not expose (spec.md §4.4). This is, by the spec's own
// description, the hardest subsystem in the system; it is specified
// and implemented at the byte level of the conversation.
package smtpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"time"
)

const stageTimeout = 30 * time.Second

// conn bundles the raw net.Conn with a buffered reader over it, so the
// STARTTLS upgrade can discard the plaintext reader and build a fresh
// one over the same (now-TLS-wrapped) connection.
type conn struct {
	net.Conn
	r *bufio.Reader
}

func newConn(nc net.Conn) *conn {
	return &conn{Conn: nc, r: bufio.NewReader(nc)}
}

// Send delivers attachment as filename to destination over the SMTP
// conversation described by cfg, authenticating with username/password.
// body and subject compose the message (spec.md §4.4/§4.5).
func Send(ctx context.Context, cfg Config, password, destination, subject, body, filename string, attachment []byte) error {
	c, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := converse(ctx, c, cfg, password, destination, subject, body, filename, attachment); err != nil {
		quitBestEffort(c)
		return err
	}

	return quit(c)
}

// dial establishes the transport per spec.md §4.4's connection-mode
// table: implicit TLS on port 465, otherwise plaintext (STARTTLS
// negotiated later in converse, or no TLS at all if cfg.UseTLS is
// false).
func dial(ctx context.Context, cfg Config) (*conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dialer := &net.Dialer{Timeout: stageTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ErrStreamSetupFailed{Cause: err}
	}

	if cfg.Port == implicitTLSPort {
		tlsConn := tls.Client(nc, &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12})
		if err := handshakeWithDeadline(tlsConn); err != nil {
			nc.Close()
			return nil, &ErrTLSHandshakeFailed{Cause: err}
		}
		return newConn(tlsConn), nil
	}

	return newConn(nc), nil
}

func handshakeWithDeadline(tlsConn *tls.Conn) error {
	if err := tlsConn.SetDeadline(time.Now().Add(stageTimeout)); err != nil {
		return err
	}
	defer tlsConn.SetDeadline(time.Time{})
	return tlsConn.HandshakeContext(context.Background())
}

// converse drives the CONNECT → GREETING_WAIT → EHLO_1 →
// STARTTLS_IF_NEEDED → EHLO_2 → AUTH_LOGIN → AUTH_USER → AUTH_PASS →
// MAIL_FROM → RCPT_TO → DATA → BODY state machine (spec.md §4.4).
func converse(ctx context.Context, c *conn, cfg Config, password, destination, subject, body, filename string, attachment []byte) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	if _, err := readGreeting(c); err != nil {
		return err
	}

	if _, err := ehlo(c, cfg.Host); err != nil {
		return err
	}

	if cfg.Port != implicitTLSPort && cfg.UseTLS {
		if err := startTLS(c); err != nil {
			return err
		}
		upgraded, err := upgradeToTLS(c, cfg.Host)
		if err != nil {
			return err
		}
		c.Conn = upgraded
		c.r = bufio.NewReader(upgraded)

		if _, err := ehlo(c, cfg.Host); err != nil {
			return err
		}
	}

	if err := checkCtx(ctx); err != nil {
		return err
	}

	if err := authLogin(c, cfg.Username, password); err != nil {
		return err
	}

	if err := mailFrom(c, cfg.Username); err != nil {
		return err
	}
	if err := rcptTo(c, destination); err != nil {
		return err
	}

	message, err := buildMessage(subject, body, filename, attachment)
	if err != nil {
		return err
	}

	return sendData(c, message)
}

func checkCtx(ctx context.Context) error {
	if ctx.Err() != nil {
		return &ErrCancelled{}
	}
	return nil
}

// writeLine writes line + CRLF with a stage deadline.
func writeLine(c *conn, line string) error {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(stageTimeout)); err != nil {
		return &ErrTimeout{Stage: "write"}
	}
	_, err := c.Conn.Write([]byte(line + "\r\n"))
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return &ErrTimeout{Stage: "write"}
		}
		return &ErrStreamSetupFailed{Cause: err}
	}
	return nil
}

// readReply reads one SMTP response with a stage deadline, raising
// ErrServerRejected if it's a 4xx/5xx.
func readReply(c *conn, stage string) (Response, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(stageTimeout)); err != nil {
		return Response{}, &ErrTimeout{Stage: stage}
	}
	resp, err := readResponse(c.r)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Response{}, &ErrTimeout{Stage: stage}
		}
		return Response{}, &ErrStreamSetupFailed{Cause: err}
	}
	if resp.IsError() {
		return resp, &ErrServerRejected{Code: resp.Code, Text: resp.Text()}
	}
	return resp, nil
}

func readGreeting(c *conn) (Response, error) {
	return readReply(c, "greeting")
}

func ehlo(c *conn, host string) (Response, error) {
	if err := writeLine(c, "EHLO "+host); err != nil {
		return Response{}, err
	}
	return readReply(c, "ehlo")
}

func startTLS(c *conn) error {
	if err := writeLine(c, "STARTTLS"); err != nil {
		return err
	}
	_, err := readReply(c, "starttls")
	return err
}

// upgradeToTLS performs the TLS handshake on the already-open socket
// (spec.md §4.4's core requirement) and returns the wrapped
// connection. The caller must rebuild its buffered reader over the
// result.
func upgradeToTLS(c *conn, host string) (*tls.Conn, error) {
	tlsConn := tls.Client(c.Conn, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err := handshakeWithDeadline(tlsConn); err != nil {
		return nil, &ErrTLSHandshakeFailed{Cause: err}
	}
	return tlsConn, nil
}

func authLogin(c *conn, username, password string) error {
	if err := writeLine(c, "AUTH LOGIN"); err != nil {
		return err
	}
	if _, err := readReply(c, "auth-login"); err != nil {
		return toAuthError(err)
	}

	if err := writeLine(c, base64.StdEncoding.EncodeToString([]byte(username))); err != nil {
		return err
	}
	if _, err := readReply(c, "auth-user"); err != nil {
		return toAuthError(err)
	}

	if err := writeLine(c, base64.StdEncoding.EncodeToString([]byte(password))); err != nil {
		return err
	}
	if _, err := readReply(c, "auth-pass"); err != nil {
		return toAuthError(err)
	}

	return nil
}

func toAuthError(err error) error {
	if rejected, ok := err.(*ErrServerRejected); ok {
		return &ErrAuthenticationFailed{Response: Response{Code: rejected.Code, Lines: []string{rejected.Text}}}
	}
	return err
}

func mailFrom(c *conn, username string) error {
	if err := writeLine(c, fmt.Sprintf("MAIL FROM:<%s>", username)); err != nil {
		return err
	}
	_, err := readReply(c, "mail-from")
	return err
}

func rcptTo(c *conn, destination string) error {
	if err := writeLine(c, fmt.Sprintf("RCPT TO:<%s>", destination)); err != nil {
		return err
	}
	_, err := readReply(c, "rcpt-to")
	return err
}

func sendData(c *conn, message string) error {
	if err := writeLine(c, "DATA"); err != nil {
		return err
	}
	if _, err := readReply(c, "data"); err != nil {
		return err
	}

	stuffed := dotStuff(message)
	if err := writeLine(c, stuffed+"."); err != nil {
		return err
	}
	_, err := readReply(c, "body")
	return err
}

func quit(c *conn) error {
	if err := writeLine(c, "QUIT"); err != nil {
		return err
	}
	_, err := readReply(c, "quit")
	return err
}

// quitBestEffort attempts QUIT after a failure without surfacing its
// own error (spec.md §4.4's cleanup contract).
func quitBestEffort(c *conn) {
	_ = writeLine(c, "QUIT")
}
