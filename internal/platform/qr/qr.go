// Package qr parses the payload carried by a donor's registration QR
// code. Decoding the image happens on the client; the server only sees
// the embedded JSON record.
package qr

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hemobank/hemobank/internal/platform/apperr"
)

// Payload is the structured record embedded in a registration QR code.
type Payload struct {
	RegistrationID uuid.UUID `json:"registrationId"`
	UserID         uuid.UUID `json:"userId"`
}

// Parse validates raw QR data before any command executes. Malformed
// payloads never reach a service.
func Parse(data string) (*Payload, error) {
	if data == "" {
		return nil, apperr.ValidationField("qrData", "payload is empty")
	}
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, apperr.ValidationField("qrData", "payload is not valid JSON")
	}
	if p.RegistrationID == uuid.Nil {
		return nil, apperr.ValidationField("qrData", "registrationId is required")
	}
	if p.UserID == uuid.Nil {
		return nil, apperr.ValidationField("qrData", "userId is required")
	}
	return &p, nil
}

// Encode renders the payload back to its wire form.
func (p *Payload) Encode() string {
	b, _ := json.Marshal(p)
	return string(b)
}
