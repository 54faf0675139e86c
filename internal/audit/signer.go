package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type EventSigner struct {
	secretKey []byte
}

func NewEventSigner(secretKey string) *EventSigner {
	return &EventSigner{
		secretKey: []byte(secretKey),
	}
}

func (s *EventSigner) Sign(eventID string, timestamp time.Time, accountID string, data []byte) string {
	payload := eventID + timestamp.Format(time.RFC3339Nano) + accountID + string(data)
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *EventSigner) Verify(eventID string, timestamp time.Time, accountID string, data []byte, signature string) bool {
	expected := s.Sign(eventID, timestamp, accountID, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignEvent sets e.Signature over the event's JSON form without signature.
func (s *EventSigner) SignEvent(e *Event) error {
	data, err := e.signingBytes()
	if err != nil {
		return err
	}
	e.Signature = s.Sign(e.ID, e.Timestamp, e.AccountID, data)
	return nil
}

// VerifyEvent checks e.Signature.
func (s *EventSigner) VerifyEvent(e Event) bool {
	data, err := e.signingBytes()
	if err != nil {
		return false
	}
	return s.Verify(e.ID, e.Timestamp, e.AccountID, data, e.Signature)
}

func (e Event) signingBytes() ([]byte, error) {
	e.Signature = ""
	return json.Marshal(e)
}
