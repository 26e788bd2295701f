package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile mirrors the platform's user record. The coach backend looks
// profiles up by phone and reads the personalization fields; it never
// mutates them.
type UserProfile struct {
	gorm.Model

	UserID          string `json:"user_id" gorm:"uniqueIndex"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone" gorm:"index"`
	CulturalContext string `json:"cultural_context"`
	SpiritualBelief string `json:"spiritual_belief"`
	NudgesOptIn     bool   `json:"nudges_opt_in" gorm:"default:true"`
}

func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	return nil
}

// FirstName returns the first whitespace-delimited token of the full name.
func (u *UserProfile) FirstName() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
