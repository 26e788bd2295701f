package storage

import (
	"errors"
	"time"

	"github.com/vidasmart/coach-backend/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Message operations
	SaveMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error)
	// RecentMessageExists reports whether the same phone already sent the
	// same content inside the window. Advisory only: the check is
	// read-then-write, two concurrent webhook calls can both pass it.
	RecentMessageExists(normalizedPhone, content string, window time.Duration) (bool, error)
	GetRecentMessages(userID string, limit int) ([]*models.WhatsAppMessage, error)

	// User profile operations
	FindUserByPhones(candidates []string) (*models.UserProfile, error)
	GetUserProfile(userID string) (*models.UserProfile, error)
	CreateUserProfile(profile *models.UserProfile) (*models.UserProfile, error)
	GetNudgeRecipients() ([]*models.UserProfile, error)

	// Emergency operations
	CreateEmergencyAlert(alert *models.EmergencyAlert) (*models.EmergencyAlert, error)

	// Stage operations
	GetClientStage(userID string) (*models.ClientStage, error)
	UpsertClientStage(stage *models.ClientStage) error

	// Plan operations
	GetActivePlans(userID string) ([]*models.CarePlan, error)
	CreateCarePlan(plan *models.CarePlan) (*models.CarePlan, error)
	GetCompletionsSince(userID string, since time.Time) ([]*models.PlanItemCompletion, error)
	CreateCompletion(completion *models.PlanItemCompletion) error

	// Context slices for prompt assembly
	GetGamificationStats(userID string) (*models.GamificationStats, error)
	GetRecentActivities(userID string, limit int) ([]*models.ActivityRecord, error)
	GetOpenMissions(userID string) ([]*models.Mission, error)
	GetGoals(userID string) ([]*models.Goal, error)
	GetPendingActions(userID string) ([]*models.PendingAction, error)
	GetMemorySnippets(userID string, limit int) ([]*models.CoachMemory, error)
	GetPendingFeedback(userID string) ([]*models.PendingFeedback, error)
}
