package models

import (
	"time"

	"gorm.io/gorm"
)

// GamificationStats carries the user's points and streak counters, injected
// into the coach prompt when present.
type GamificationStats struct {
	gorm.Model

	UserID      string `json:"user_id" gorm:"uniqueIndex"`
	TotalPoints int    `json:"total_points"`
	Level       int    `json:"level" gorm:"default:1"`
	StreakDays  int    `json:"streak_days"`
}

// ActivityRecord is a completed activity, used for the "recent activities"
// context line.
type ActivityRecord struct {
	gorm.Model

	UserID      string    `json:"user_id" gorm:"index"`
	Name        string    `json:"name"`
	CompletedAt time.Time `json:"completed_at"`
}

// Mission is a gamified challenge with a done flag.
type Mission struct {
	gorm.Model

	UserID string `json:"user_id" gorm:"index"`
	Title  string `json:"title"`
	Done   bool   `json:"done"`
}

// Goal is a longer-term objective with percentage progress.
type Goal struct {
	gorm.Model

	UserID   string `json:"user_id" gorm:"index"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// PendingAction is something the coach promised to follow up on.
type PendingAction struct {
	gorm.Model

	UserID      string `json:"user_id" gorm:"index"`
	Description string `json:"description"`
	Resolved    bool   `json:"resolved"`
}

// CoachMemory is a short free-text snippet the coach remembered about the
// user in a previous conversation.
type CoachMemory struct {
	gorm.Model

	UserID  string `json:"user_id" gorm:"index"`
	Snippet string `json:"snippet"`
}

// PendingFeedback is a question the system still owes the user an answer
// about, surfaced in context so the coach can close the loop.
type PendingFeedback struct {
	gorm.Model

	UserID   string `json:"user_id" gorm:"index"`
	Question string `json:"question"`
	Answered bool   `json:"answered"`
}
