package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidasmart/coach-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	messages    []*models.WhatsAppMessage
	profiles    map[string]*models.UserProfile
	alerts      []*models.EmergencyAlert
	stages      map[string]*models.ClientStage
	plans       map[string][]*models.CarePlan
	completions map[string][]*models.PlanItemCompletion
	stats       map[string]*models.GamificationStats
	activities  map[string][]*models.ActivityRecord
	missions    map[string][]*models.Mission
	goals       map[string][]*models.Goal
	actions     map[string][]*models.PendingAction
	memories    map[string][]*models.CoachMemory
	feedback    map[string][]*models.PendingFeedback
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]*models.UserProfile),
		stages:      make(map[string]*models.ClientStage),
		plans:       make(map[string][]*models.CarePlan),
		completions: make(map[string][]*models.PlanItemCompletion),
		stats:       make(map[string]*models.GamificationStats),
		activities:  make(map[string][]*models.ActivityRecord),
		missions:    make(map[string][]*models.Mission),
		goals:       make(map[string][]*models.Goal),
		actions:     make(map[string][]*models.PendingAction),
		memories:    make(map[string][]*models.CoachMemory),
		feedback:    make(map[string][]*models.PendingFeedback),
	}
}

// Message operations

func (m *MemoryStore) SaveMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.MessageUID == "" {
		msg.MessageUID = uuid.NewString()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *MemoryStore) RecentMessageExists(normalizedPhone, content string, window time.Duration) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	for _, msg := range m.messages {
		if msg.NormalizedPhone == normalizedPhone &&
			msg.MessageContent == content &&
			msg.ReceivedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) GetRecentMessages(userID string, limit int) ([]*models.WhatsAppMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.WhatsAppMessage
	for _, msg := range m.messages {
		if msg.UserID != nil && *msg.UserID == userID {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// User profile operations

func (m *MemoryStore) FindUserByPhones(candidates []string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// First candidate match wins; a message is attributed to at most one user.
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, profile := range m.profiles {
			if profile.Phone == candidate {
				return profile, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserProfile(userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, exists := m.profiles[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return profile, nil
}

func (m *MemoryStore) CreateUserProfile(profile *models.UserProfile) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.UserID == "" {
		profile.UserID = uuid.NewString()
	}
	m.profiles[profile.UserID] = profile
	return profile, nil
}

func (m *MemoryStore) GetNudgeRecipients() ([]*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recipients []*models.UserProfile
	for _, profile := range m.profiles {
		if profile.NudgesOptIn && profile.Phone != "" {
			recipients = append(recipients, profile)
		}
	}
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].UserID < recipients[j].UserID
	})
	return recipients, nil
}

// Emergency operations

func (m *MemoryStore) CreateEmergencyAlert(alert *models.EmergencyAlert) (*models.EmergencyAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.AlertUID == "" {
		alert.AlertUID = uuid.NewString()
	}
	m.alerts = append(m.alerts, alert)
	return alert, nil
}

// Alerts returns all emergency alerts recorded so far (test helper).
func (m *MemoryStore) Alerts() []*models.EmergencyAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.EmergencyAlert{}, m.alerts...)
}

// Messages returns all stored messages (test helper).
func (m *MemoryStore) Messages() []*models.WhatsAppMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.WhatsAppMessage{}, m.messages...)
}

// Stage operations

func (m *MemoryStore) GetClientStage(userID string) (*models.ClientStage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stage, exists := m.stages[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return stage, nil
}

func (m *MemoryStore) UpsertClientStage(stage *models.ClientStage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stage.CurrentStage == "" {
		stage.CurrentStage = models.StageSDR
	}
	if stage.EnteredAt.IsZero() {
		stage.EnteredAt = time.Now()
	}
	m.stages[stage.UserID] = stage
	return nil
}

// Plan operations

func (m *MemoryStore) GetActivePlans(userID string) ([]*models.CarePlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*models.CarePlan
	for _, plan := range m.plans[userID] {
		if plan.Active {
			active = append(active, plan)
		}
	}
	return active, nil
}

func (m *MemoryStore) CreateCarePlan(plan *models.CarePlan) (*models.CarePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans[plan.UserID] = append(m.plans[plan.UserID], plan)
	return plan, nil
}

func (m *MemoryStore) GetCompletionsSince(userID string, since time.Time) ([]*models.PlanItemCompletion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.PlanItemCompletion
	for _, c := range m.completions[userID] {
		if !c.CompletedAt.Before(since) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MemoryStore) CreateCompletion(completion *models.PlanItemCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now()
	}
	m.completions[completion.UserID] = append(m.completions[completion.UserID], completion)
	return nil
}

// Context slices

func (m *MemoryStore) GetGamificationStats(userID string) (*models.GamificationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, exists := m.stats[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return stats, nil
}

// SetGamificationStats seeds stats for a user (test helper).
func (m *MemoryStore) SetGamificationStats(stats *models.GamificationStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stats.UserID] = stats
}

func (m *MemoryStore) GetRecentActivities(userID string, limit int) ([]*models.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := append([]*models.ActivityRecord{}, m.activities[userID]...)
	sort.Slice(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// AddActivity seeds an activity record (test helper).
func (m *MemoryStore) AddActivity(record *models.ActivityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[record.UserID] = append(m.activities[record.UserID], record)
}

func (m *MemoryStore) GetOpenMissions(userID string) ([]*models.Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []*models.Mission
	for _, mission := range m.missions[userID] {
		if !mission.Done {
			open = append(open, mission)
		}
	}
	return open, nil
}

// AddMission seeds a mission (test helper).
func (m *MemoryStore) AddMission(mission *models.Mission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missions[mission.UserID] = append(m.missions[mission.UserID], mission)
}

func (m *MemoryStore) GetGoals(userID string) ([]*models.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Goal{}, m.goals[userID]...), nil
}

// AddGoal seeds a goal (test helper).
func (m *MemoryStore) AddGoal(goal *models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[goal.UserID] = append(m.goals[goal.UserID], goal)
}

func (m *MemoryStore) GetPendingActions(userID string) ([]*models.PendingAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*models.PendingAction
	for _, action := range m.actions[userID] {
		if !action.Resolved {
			pending = append(pending, action)
		}
	}
	return pending, nil
}

// AddPendingAction seeds a pending action (test helper).
func (m *MemoryStore) AddPendingAction(action *models.PendingAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[action.UserID] = append(m.actions[action.UserID], action)
}

func (m *MemoryStore) GetMemorySnippets(userID string, limit int) ([]*models.CoachMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snippets := append([]*models.CoachMemory{}, m.memories[userID]...)
	if limit > 0 && len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets, nil
}

// AddMemorySnippet seeds a memory snippet (test helper).
func (m *MemoryStore) AddMemorySnippet(memory *models.CoachMemory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories[memory.UserID] = append(m.memories[memory.UserID], memory)
}

func (m *MemoryStore) GetPendingFeedback(userID string) ([]*models.PendingFeedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*models.PendingFeedback
	for _, fb := range m.feedback[userID] {
		if !fb.Answered {
			pending = append(pending, fb)
		}
	}
	return pending, nil
}

// AddPendingFeedback seeds pending feedback (test helper).
func (m *MemoryStore) AddPendingFeedback(fb *models.PendingFeedback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback[fb.UserID] = append(m.feedback[fb.UserID], fb)
}
