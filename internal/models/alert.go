package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmergencyAlert is written whenever an inbound message matches the
// self-harm phrase list. Append-only; reviewed by the human care team.
type EmergencyAlert struct {
	gorm.Model

	AlertUID       string  `json:"alert_uid" gorm:"uniqueIndex"`
	UserID         *string `json:"user_id" gorm:"index"`
	Phone          string  `json:"phone" gorm:"index"`
	MessageContent string  `json:"message_content"`
	MatchedPhrase  string  `json:"matched_phrase"`
	ResponseSent   bool    `json:"response_sent"`
}

func (a *EmergencyAlert) BeforeCreate(tx *gorm.DB) error {
	if a.AlertUID == "" {
		a.AlertUID = uuid.NewString()
	}
	return nil
}
