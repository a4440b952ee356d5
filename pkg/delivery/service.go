// Package delivery implements DeliveryService (C7): validates a
// send request, composes the MIME message, and hands it to
// pkg/smtpclient. See spec.md §4.5.
package delivery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/foliobooks/folio/pkg/library"
	"github.com/foliobooks/folio/pkg/secrets"
	"github.com/foliobooks/folio/pkg/smtpclient"
)

// sendFunc abstracts smtpclient.Send so tests can substitute a fake
// transport without opening a real socket.
type sendFunc func(ctx context.Context, cfg smtpclient.Config, password, destination, subject, body, filename string, attachment []byte) error

// Service is the DeliveryService singleton. SMTPConfig is owned here
// (spec.md §3's ownership note); the password is borrowed per send
// from the injected secrets.Store.
type Service struct {
	mu       sync.RWMutex
	config   *SMTPConfig
	secrets  secrets.Store
	validate *validator.Validate
	send     sendFunc
}

// New constructs a Service with no configuration set. Call SetConfig
// before the first Send, or every send fails with NotConfigured.
func New(store secrets.Store) *Service {
	return &Service{
		secrets:  store,
		validate: validator.New(),
		send:     smtpclient.Send,
	}
}

// SetConfig replaces the active SMTPConfig, validating its shape
// first. A nil cfg clears configuration (delivery becomes
// NotConfigured until reconfigured).
func (s *Service) SetConfig(cfg *SMTPConfig) error {
	if cfg != nil {
		if err := s.validate.Struct(cfg); err != nil {
			return errors.Wrap(err, "invalid SMTP configuration")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	return nil
}

func (s *Service) currentConfig() *SMTPConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// sendRequest validates the free-form bookTitle before it's used
// verbatim as the MIME subject line, the same way pkg/config/config.go
// runs its own struct through validator.Struct.
type sendRequest struct {
	BookTitle string `validate:"required,max=255"`
}

// Send validates sourcePath and destinationAddress per spec.md §4.5's
// ordered preconditions, composes the message, and sends it. format is
// the source file's format tag; when not in the Kindle-compatible set
// a warning is logged but delivery proceeds regardless (precondition
// 4). A precondition failure (1-5) is returned as an error. Once the
// SMTP exchange reaches a well-formed final state — success or a
// rejection the server itself reported — the outcome is reported as a
// DeliveryResult with Success set accordingly, not as an error;
// transport-level failures that never reached that state (dial
// failure, TLS handshake failure, timeout, cancellation) still raise
// (spec.md §5: "Delivery failures return a DeliveryResult with
// success=false only when the SMTP exchange reached a well-formed
// final state; earlier failures raise.").
func (s *Service) Send(ctx context.Context, sourcePath, destinationAddress, bookTitle string, format library.FormatTag) (*DeliveryResult, error) {
	if !validateDestination(destinationAddress) {
		return nil, &InvalidDestination{Address: destinationAddress}
	}

	req := sendRequest{BookTitle: bookTitle}
	if err := s.validate.Struct(&req); err != nil {
		return nil, errors.Wrap(err, "invalid send request")
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SourceMissing{Path: sourcePath}
		}
		return nil, errors.Wrapf(err, "stat source %s", sourcePath)
	}

	if info.Size() > MaxAttachmentBytes {
		return nil, &FileTooLarge{Bytes: info.Size()}
	}

	if !format.KindleCompatible() {
		log := logger.FromContext(ctx)
		log.Warn("delivering format outside Kindle-compatible set", logger.Data{
			"format":      string(format),
			"destination": destinationAddress,
		})
	}

	cfg := s.currentConfig()
	if cfg == nil {
		return nil, &NotConfigured{Reason: "no SMTP configuration set"}
	}

	password, ok, err := s.secrets.Get(ctx, secrets.AccountSMTPPassword)
	if err != nil {
		return nil, errors.Wrap(err, "reading SMTP password from secret store")
	}
	if !ok || password == "" {
		return nil, &NotConfigured{Reason: "no SMTP password stored"}
	}

	attachment, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading source %s", sourcePath)
	}

	smtpCfg := smtpclient.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		UseTLS:   cfg.UseTLS,
	}
	filename := filepath.Base(sourcePath)

	sendErr := s.send(ctx, smtpCfg, password, destinationAddress, bookTitle, announcementBody, filename, attachment)
	now := time.Now()

	if sendErr == nil {
		return &DeliveryResult{
			Success:     true,
			BookTitle:   bookTitle,
			Destination: destinationAddress,
			Message:     "delivered",
			Timestamp:   now,
		}, nil
	}

	if !reachedWellFormedFinalState(sendErr) {
		return nil, &SendFailed{Reason: sendErr.Error(), Cause: sendErr}
	}

	return &DeliveryResult{
		Success:     false,
		BookTitle:   bookTitle,
		Destination: destinationAddress,
		Message:     sendErr.Error(),
		Timestamp:   now,
	}, nil
}

// reachedWellFormedFinalState reports whether err represents the SMTP
// server itself rejecting the exchange with a formed response
// (authentication failure, a rejected MAIL FROM/RCPT TO/DATA), as
// opposed to a transport-level failure that never got that far.
func reachedWellFormedFinalState(err error) bool {
	switch err.(type) {
	case *smtpclient.ErrAuthenticationFailed, *smtpclient.ErrServerRejected:
		return true
	default:
		return false
	}
}
