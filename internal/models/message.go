package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WhatsAppMessage is the audit record for every inbound gateway event.
// Rows are append-only: written before any AI processing and never mutated.
type WhatsAppMessage struct {
	gorm.Model

	MessageUID      string    `json:"message_uid" gorm:"uniqueIndex"`
	MessageID       string    `json:"message_id"` // gateway-side id (data.key.id)
	InstanceID      string    `json:"instance_id"`
	PhoneNumber     string    `json:"phone_number" gorm:"index"` // raw, as received
	NormalizedPhone string    `json:"normalized_phone" gorm:"index"`
	MessageContent  string    `json:"message_content"`
	RawPayload      string    `json:"raw_payload"` // full webhook body, JSON
	UserID          *string   `json:"user_id" gorm:"index"`
	ReceivedAt      time.Time `json:"received_at"`
}

func (m *WhatsAppMessage) BeforeCreate(tx *gorm.DB) error {
	if m.MessageUID == "" {
		m.MessageUID = uuid.NewString()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
	return nil
}
