package services

import (
	"context"
	"log"
	"time"

	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// ConversationService ties the coach pipeline together: context assembly,
// proactive suggestions, the LLM call, stage routing and the best-effort
// relay back through the gateway.
type ConversationService struct {
	store     storage.Store
	coach     *CoachService
	messenger Messenger
	stages    *StageRouter
	limiter   *ReplyLimiter
}

// NewConversationService creates a new conversation service
func NewConversationService(store storage.Store, coach *CoachService, messenger Messenger, stages *StageRouter, limiter *ReplyLimiter) *ConversationService {
	return &ConversationService{
		store:     store,
		coach:     coach,
		messenger: messenger,
		stages:    stages,
		limiter:   limiter,
	}
}

// Skip reasons reported in ReplyResult when no AI reply was produced.
const (
	SkipAIDisabled  = "ai_disabled"
	SkipRateLimited = "rate_limited"
	SkipTrivial     = "trivial_message"
	SkipLLMError    = "llm_error"
)

// ReplyResult is the outcome of one pass through the coach pipeline.
type ReplyResult struct {
	Reply       string       `json:"reply"`
	Stage       string       `json:"stage,omitempty"`
	Advanced    bool         `json:"advanced,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Skipped     string       `json:"skipped,omitempty"`
}

// buildSlices loads every context slice for the user. Individual lookup
// failures are logged and leave their slice empty; a broken slice must not
// block the conversation.
func (s *ConversationService) buildSlices(userID string) ContextSlices {
	var slices ContextSlices
	var err error

	if slices.Gamification, err = s.store.GetGamificationStats(userID); err != nil && err != storage.ErrNotFound {
		log.Printf("Failed to load gamification stats for %s: %v", userID, err)
	}
	if slices.Activities, err = s.store.GetRecentActivities(userID, 3); err != nil {
		log.Printf("Failed to load activities for %s: %v", userID, err)
	}
	if slices.Missions, err = s.store.GetOpenMissions(userID); err != nil {
		log.Printf("Failed to load missions for %s: %v", userID, err)
	}
	if slices.Goals, err = s.store.GetGoals(userID); err != nil {
		log.Printf("Failed to load goals for %s: %v", userID, err)
	}
	if slices.PendingActions, err = s.store.GetPendingActions(userID); err != nil {
		log.Printf("Failed to load pending actions for %s: %v", userID, err)
	}
	if slices.ActivePlans, err = s.store.GetActivePlans(userID); err != nil {
		log.Printf("Failed to load active plans for %s: %v", userID, err)
	}
	if slices.MemorySnippets, err = s.store.GetMemorySnippets(userID, 5); err != nil {
		log.Printf("Failed to load memory snippets for %s: %v", userID, err)
	}
	if slices.PendingFeedback, err = s.store.GetPendingFeedback(userID); err != nil {
		log.Printf("Failed to load pending feedback for %s: %v", userID, err)
	}

	return slices
}

// SuggestionsFor computes the proactive suggestions for a user at the
// given time.
func (s *ConversationService) SuggestionsFor(userID string, now time.Time) []Suggestion {
	plans, err := s.store.GetActivePlans(userID)
	if err != nil {
		log.Printf("Failed to load plans for suggestions: %v", err)
		return nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	completions, err := s.store.GetCompletionsSince(userID, midnight)
	if err != nil {
		log.Printf("Failed to load completions for suggestions: %v", err)
		completions = nil
	}

	return SelectSuggestions(plans, completions, now)
}

// Respond runs the full coach pipeline for one inbound message. When relay
// is true the reply is also sent through the gateway, best-effort. The
// profile may be nil for unmatched senders: they still get a generic reply
// with no context, no suggestions and no stage routing.
func (s *ConversationService) Respond(ctx context.Context, profile *models.UserProfile, phone, message string, relay bool) *ReplyResult {
	result := &ReplyResult{}

	if !s.coach.Enabled() {
		result.Skipped = SkipAIDisabled
		return result
	}

	limiterKey := phone
	if limiterKey == "" && profile != nil {
		limiterKey = profile.UserID
	}
	if s.limiter != nil && limiterKey != "" && !s.limiter.Allow(limiterKey) {
		log.Printf("⏳ AI reply rate-limited for %s", limiterKey)
		result.Skipped = SkipRateLimited
		return result
	}

	var (
		stageName     string
		contextPrompt string
		fullName      string
	)
	if profile != nil {
		fullName = profile.FullName
		if stage, err := s.stages.CurrentStage(profile.UserID); err != nil {
			log.Printf("Failed to load stage for %s: %v", profile.UserID, err)
		} else {
			stageName = stage.CurrentStage
			result.Stage = stageName
		}
		contextPrompt = BuildContextPrompt(fullName, s.buildSlices(profile.UserID))
		result.Suggestions = s.SuggestionsFor(profile.UserID, time.Now())
	}

	systemPrompt := BuildSystemPrompt(profile, stageName, contextPrompt, result.Suggestions)
	reply, check, err := s.coach.GenerateReply(ctx, systemPrompt, message)
	if err != nil {
		// Transient downstream failure: the user simply gets no reply.
		log.Printf("❌ LLM call failed for %s: %v", phone, err)
		result.Skipped = SkipLLMError
		return result
	}
	if reply == "" {
		result.Skipped = SkipTrivial
		return result
	}
	result.Reply = reply

	if relay && phone != "" {
		Deliver(ctx, s.messenger, phone, reply)
	}

	if profile != nil {
		stage, advanced, err := s.stages.Route(profile.UserID, reply, check)
		if err != nil {
			log.Printf("Failed to route stage for %s: %v", profile.UserID, err)
		} else {
			result.Stage = stage.CurrentStage
			result.Advanced = advanced
		}
	}

	return result
}
