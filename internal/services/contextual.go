package services

import (
	"fmt"
	"strings"

	"github.com/vidasmart/coach-backend/internal/models"
)

// Formatters turn raw data slices into short natural-language lines for
// prompt injection. Each returns "" when there is nothing to say. Free text
// is truncated so a single noisy row cannot blow up the prompt.

const maxFieldRunes = 80

// Truncate bounds free text at limit runes, appending "..." when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// FormatGamification summarizes points, level and streak.
func FormatGamification(stats *models.GamificationStats) string {
	if stats == nil {
		return ""
	}
	if stats.TotalPoints == 0 && stats.StreakDays == 0 {
		return ""
	}
	return fmt.Sprintf("🎮 Gamificação: %d pontos, nível %d, sequência de %d dias",
		stats.TotalPoints, stats.Level, stats.StreakDays)
}

// FormatRecentActivities lists up to three recent activity names.
func FormatRecentActivities(records []*models.ActivityRecord) string {
	if len(records) == 0 {
		return ""
	}
	names := make([]string, 0, 3)
	for _, r := range records {
		if len(names) == 3 {
			break
		}
		names = append(names, Truncate(r.Name, maxFieldRunes))
	}
	return "✅ Atividades recentes: " + strings.Join(names, ", ")
}

// FormatMissions lists open missions.
func FormatMissions(missions []*models.Mission) string {
	if len(missions) == 0 {
		return ""
	}
	titles := make([]string, 0, len(missions))
	for _, m := range missions {
		titles = append(titles, Truncate(m.Title, maxFieldRunes))
	}
	return "🎯 Missões em aberto: " + strings.Join(titles, ", ")
}

// FormatGoals lists goals with progress percentage.
func FormatGoals(goals []*models.Goal) string {
	if len(goals) == 0 {
		return ""
	}
	parts := make([]string, 0, len(goals))
	for _, g := range goals {
		parts = append(parts, fmt.Sprintf("%s (%d%%)", Truncate(g.Title, maxFieldRunes), g.Progress))
	}
	return "🏁 Metas: " + strings.Join(parts, ", ")
}

// FormatPendingActions lists follow-ups the coach still owes the user.
func FormatPendingActions(actions []*models.PendingAction) string {
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, Truncate(a.Description, maxFieldRunes))
	}
	return "📌 Pendências: " + strings.Join(parts, "; ")
}

// FormatActivePlans lists the user's active care plans with their types.
func FormatActivePlans(plans []*models.CarePlan) string {
	if len(plans) == 0 {
		return ""
	}
	parts := make([]string, 0, len(plans))
	for _, p := range plans {
		parts = append(parts, fmt.Sprintf("%s (%s)", Truncate(p.Title, maxFieldRunes), p.PlanType))
	}
	return "📋 Planos ativos: " + strings.Join(parts, ", ")
}

// FormatMemorySnippets lists what the coach remembered from earlier talks.
func FormatMemorySnippets(snippets []*models.CoachMemory) string {
	if len(snippets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, Truncate(s.Snippet, maxFieldRunes))
	}
	return "🧠 Memória: " + strings.Join(parts, "; ")
}

// FormatPendingFeedback lists unanswered feedback questions.
func FormatPendingFeedback(feedback []*models.PendingFeedback) string {
	if len(feedback) == 0 {
		return ""
	}
	parts := make([]string, 0, len(feedback))
	for _, f := range feedback {
		parts = append(parts, Truncate(f.Question, maxFieldRunes))
	}
	return "❓ Feedback pendente: " + strings.Join(parts, "; ")
}

// ContextSlices groups every data slice the prompt builder can draw on.
type ContextSlices struct {
	Gamification    *models.GamificationStats
	Activities      []*models.ActivityRecord
	Missions        []*models.Mission
	Goals           []*models.Goal
	PendingActions  []*models.PendingAction
	ActivePlans     []*models.CarePlan
	MemorySnippets  []*models.CoachMemory
	PendingFeedback []*models.PendingFeedback
}

// FirstName extracts the first whitespace-delimited token of a full name.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// BuildContextPrompt concatenates all non-empty formatter lines under a
// personalized header and appends the instruction trailer. Returns "" when
// there is nothing to contextualize; the caller must then send the message
// without extra context rather than treating it as an error.
func BuildContextPrompt(fullName string, slices ContextSlices) string {
	lines := []string{
		FormatGamification(slices.Gamification),
		FormatRecentActivities(slices.Activities),
		FormatMissions(slices.Missions),
		FormatGoals(slices.Goals),
		FormatPendingActions(slices.PendingActions),
		FormatActivePlans(slices.ActivePlans),
		FormatMemorySnippets(slices.MemorySnippets),
		FormatPendingFeedback(slices.PendingFeedback),
	}

	nonEmpty := lines[:0]
	for _, line := range lines {
		if line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}

	var b strings.Builder
	name := FirstName(fullName)
	if name != "" {
		b.WriteString(fmt.Sprintf("Contexto atual de %s:\n", name))
	} else {
		b.WriteString("Contexto atual do cliente:\n")
	}
	for _, line := range nonEmpty {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\nUse essas informações para personalizar a resposta, sem repeti-las de volta para o usuário.")
	return b.String()
}
