package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// EngagementJob runs the scheduled proactive-nudge delivery and the
// housekeeping tickers.
type EngagementJob struct {
	store        storage.Store
	conversation *services.ConversationService
	messenger    services.Messenger
	limiter      *services.ReplyLimiter
	isRunning    bool
}

// NewEngagementJob creates a new engagement job scheduler
func NewEngagementJob(store storage.Store, conversation *services.ConversationService, messenger services.Messenger, limiter *services.ReplyLimiter) *EngagementJob {
	return &EngagementJob{
		store:        store,
		conversation: conversation,
		messenger:    messenger,
		limiter:      limiter,
	}
}

// Start begins all scheduled jobs
func (j *EngagementJob) Start() {
	if j.isRunning {
		log.Println("Engagement jobs already running")
		return
	}

	j.isRunning = true
	log.Println("Starting scheduled engagement jobs...")

	go j.scheduleDailyNudges()
	go j.scheduleLimiterCleanup()
}

// Stop halts all scheduled jobs
func (j *EngagementJob) Stop() {
	j.isRunning = false
	log.Println("Stopping scheduled engagement jobs...")
}

// DAILY NUDGES - Runs every morning at 8 AM
func (j *EngagementJob) scheduleDailyNudges() {
	for j.isRunning {
		now := time.Now()
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
		if !nextRun.After(now) {
			nextRun = nextRun.AddDate(0, 0, 1)
		}

		duration := nextRun.Sub(now)
		log.Printf("Next daily nudge run scheduled in %v", duration)
		time.Sleep(duration)

		if !j.isRunning {
			break
		}

		j.sendDailyNudges()
	}
}

// sendDailyNudges sends up to two plan-item suggestions to every opted-in
// user, best-effort.
func (j *EngagementJob) sendDailyNudges() {
	recipients, err := j.store.GetNudgeRecipients()
	if err != nil {
		log.Printf("❌ Failed to load nudge recipients: %v", err)
		return
	}

	log.Printf("📬 Sending daily nudges to %d users", len(recipients))
	sent := 0
	for _, profile := range recipients {
		suggestions := j.conversation.SuggestionsFor(profile.UserID, time.Now())
		if len(suggestions) == 0 {
			continue
		}

		text := composeNudge(profile.FullName, suggestions)
		delivery := services.Deliver(context.Background(), j.messenger, services.NormalizePhone(profile.Phone), text)
		if delivery.Sent {
			sent++
		}
	}
	log.Printf("✅ Daily nudges sent: %d", sent)
}

func composeNudge(fullName string, suggestions []services.Suggestion) string {
	var b strings.Builder
	name := services.FirstName(fullName)
	if name != "" {
		b.WriteString(fmt.Sprintf("Bom dia, %s! ☀️\n\n", name))
	} else {
		b.WriteString("Bom dia! ☀️\n\n")
	}
	b.WriteString("Que tal começar o dia com um passo do seu plano?\n")
	for _, s := range suggestions {
		b.WriteString(fmt.Sprintf("• %s — %s\n", s.ItemTitle, s.Rationale))
	}
	b.WriteString("\nQualquer coisa, é só me chamar por aqui. 💛")
	return b.String()
}

// LIMITER CLEANUP - Runs every hour
func (j *EngagementJob) scheduleLimiterCleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if !j.isRunning {
			return
		}
		if j.limiter != nil {
			removed := j.limiter.Cleanup(30 * time.Minute)
			if removed > 0 {
				log.Printf("Cleaned up %d idle reply limiters", removed)
			}
		}
	}
}
