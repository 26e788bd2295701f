package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vidasmart/coach-backend/internal/models"
)

// DatabaseStore is the PostgreSQL-backed Store implementation.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given GORM connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Message operations

func (s *DatabaseStore) SaveMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error) {
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *DatabaseStore) RecentMessageExists(normalizedPhone, content string, window time.Duration) (bool, error) {
	var count int64
	err := s.db.Model(&models.WhatsAppMessage{}).
		Where("normalized_phone = ? AND message_content = ? AND received_at > ?",
			normalizedPhone, content, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DatabaseStore) GetRecentMessages(userID string, limit int) ([]*models.WhatsAppMessage, error) {
	var messages []*models.WhatsAppMessage
	q := s.db.Where("user_id = ?", userID).Order("received_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// User profile operations

func (s *DatabaseStore) FindUserByPhones(candidates []string) (*models.UserProfile, error) {
	nonEmpty := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, ErrNotFound
	}

	// First row wins: a message is attributed to at most one user.
	var profile models.UserProfile
	err := s.db.Where("phone IN ?", nonEmpty).Order("id ASC").First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *DatabaseStore) GetUserProfile(userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *DatabaseStore) CreateUserProfile(profile *models.UserProfile) (*models.UserProfile, error) {
	if err := s.db.Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *DatabaseStore) GetNudgeRecipients() ([]*models.UserProfile, error) {
	var profiles []*models.UserProfile
	err := s.db.Where("nudges_opt_in = ? AND phone <> ''", true).Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Emergency operations

func (s *DatabaseStore) CreateEmergencyAlert(alert *models.EmergencyAlert) (*models.EmergencyAlert, error) {
	if err := s.db.Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// Stage operations

func (s *DatabaseStore) GetClientStage(userID string) (*models.ClientStage, error) {
	var stage models.ClientStage
	err := s.db.Where("user_id = ?", userID).First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (s *DatabaseStore) UpsertClientStage(stage *models.ClientStage) error {
	var existing models.ClientStage
	err := s.db.Where("user_id = ?", stage.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(stage).Error
	}
	if err != nil {
		return err
	}

	existing.CurrentStage = stage.CurrentStage
	existing.BANTScore = stage.BANTScore
	existing.EnteredAt = stage.EnteredAt
	existing.AdvancedAt = stage.AdvancedAt
	return s.db.Save(&existing).Error
}

// Plan operations

func (s *DatabaseStore) GetActivePlans(userID string) ([]*models.CarePlan, error) {
	var plans []*models.CarePlan
	err := s.db.Where("user_id = ? AND active = ?", userID, true).Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *DatabaseStore) CreateCarePlan(plan *models.CarePlan) (*models.CarePlan, error) {
	if err := s.db.Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *DatabaseStore) GetCompletionsSince(userID string, since time.Time) ([]*models.PlanItemCompletion, error) {
	var completions []*models.PlanItemCompletion
	err := s.db.Where("user_id = ? AND completed_at >= ?", userID, since).Find(&completions).Error
	if err != nil {
		return nil, err
	}
	return completions, nil
}

func (s *DatabaseStore) CreateCompletion(completion *models.PlanItemCompletion) error {
	return s.db.Create(completion).Error
}

// Context slices

func (s *DatabaseStore) GetGamificationStats(userID string) (*models.GamificationStats, error) {
	var stats models.GamificationStats
	err := s.db.Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DatabaseStore) GetRecentActivities(userID string, limit int) ([]*models.ActivityRecord, error) {
	var records []*models.ActivityRecord
	q := s.db.Where("user_id = ?", userID).Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *DatabaseStore) GetOpenMissions(userID string) ([]*models.Mission, error) {
	var missions []*models.Mission
	err := s.db.Where("user_id = ? AND done = ?", userID, false).Find(&missions).Error
	if err != nil {
		return nil, err
	}
	return missions, nil
}

func (s *DatabaseStore) GetGoals(userID string) ([]*models.Goal, error) {
	var goals []*models.Goal
	if err := s.db.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *DatabaseStore) GetPendingActions(userID string) ([]*models.PendingAction, error) {
	var actions []*models.PendingAction
	err := s.db.Where("user_id = ? AND resolved = ?", userID, false).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *DatabaseStore) GetMemorySnippets(userID string, limit int) ([]*models.CoachMemory, error) {
	var snippets []*models.CoachMemory
	q := s.db.Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&snippets).Error; err != nil {
		return nil, err
	}
	return snippets, nil
}

func (s *DatabaseStore) GetPendingFeedback(userID string) ([]*models.PendingFeedback, error) {
	var pending []*models.PendingFeedback
	err := s.db.Where("user_id = ? AND answered = ?", userID, false).Find(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}
