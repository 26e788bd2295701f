package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Plan types. Physical and nutritional plans share the morning window for
// proactive suggestions; emotional owns the afternoon, spiritual the evening.
const (
	PlanTypePhysical    = "physical"
	PlanTypeNutritional = "nutritional"
	PlanTypeEmotional   = "emotional"
	PlanTypeSpiritual   = "spiritual"
)

// PlanItem is one checklist entry inside a care plan.
type PlanItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CarePlan is a coaching plan assigned to a user. Items is a JSON array of
// PlanItem, stored as text the same way session context is.
type CarePlan struct {
	gorm.Model

	UserID   string `json:"user_id" gorm:"index"`
	PlanType string `json:"plan_type"`
	Title    string `json:"title"`
	Active   bool   `json:"active" gorm:"default:true"`
	Items    string `json:"items"`
}

// ChecklistItems decodes the plan's checklist. Malformed JSON yields an
// empty list rather than an error; a broken plan must not break the chat.
func (p *CarePlan) ChecklistItems() []PlanItem {
	if p.Items == "" {
		return nil
	}
	var items []PlanItem
	if err := json.Unmarshal([]byte(p.Items), &items); err != nil {
		return nil
	}
	return items
}

// PlanItemCompletion records that a user finished a checklist item.
type PlanItemCompletion struct {
	gorm.Model

	UserID      string    `json:"user_id" gorm:"index"`
	ItemID      string    `json:"item_id" gorm:"index"`
	CompletedAt time.Time `json:"completed_at"`
}

func (c *PlanItemCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	return nil
}
