package delivery

import "time"

// MaxAttachmentBytes is the delivery size ceiling: 50 MiB (spec.md §4.5,
// precondition 3).
const MaxAttachmentBytes int64 = 50 * 1024 * 1024

// announcementBody is the fixed short message sent with every delivery
// (spec.md §4.5: "body = a fixed short announcement string").
const announcementBody = "Sent from Folio."

// SMTPConfig is the connection and auth configuration DeliveryService
// needs to send mail. The password is never part of this struct — it's
// read per-send from SecretStore (spec.md §3, §4.5 precondition 5).
type SMTPConfig struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Username string `json:"username" validate:"required"`
	UseTLS   bool   `json:"useTLS"`
}

// DeliveryResult is an immutable record of one delivery attempt
// (spec.md §3).
type DeliveryResult struct {
	Success     bool      `json:"success"`
	BookTitle   string    `json:"bookTitle"`
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}
