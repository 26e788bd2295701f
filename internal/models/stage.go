package models

import (
	"time"

	"gorm.io/gorm"
)

// Funnel stages. Progression is strictly forward; Partner is terminal.
const (
	StageSDR        = "sdr"
	StageSpecialist = "specialist"
	StageSeller     = "seller"
	StagePartner    = "partner"
)

// ClientStage tracks where a client sits in the coaching funnel.
type ClientStage struct {
	gorm.Model

	UserID       string     `json:"user_id" gorm:"uniqueIndex"`
	CurrentStage string     `json:"current_stage" gorm:"default:sdr"`
	BANTScore    string     `json:"bant_score"` // opaque qualification metadata, JSON
	EnteredAt    time.Time  `json:"entered_at"`
	AdvancedAt   *time.Time `json:"advanced_at"`
}

func (s *ClientStage) BeforeCreate(tx *gorm.DB) error {
	if s.CurrentStage == "" {
		s.CurrentStage = StageSDR
	}
	if s.EnteredAt.IsZero() {
		s.EnteredAt = time.Now()
	}
	return nil
}

// NextStage returns the stage after the given one, or "" when terminal
// or unknown.
func NextStage(stage string) string {
	switch stage {
	case StageSDR:
		return StageSpecialist
	case StageSpecialist:
		return StageSeller
	case StageSeller:
		return StagePartner
	default:
		return ""
	}
}
