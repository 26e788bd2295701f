package services

import (
	"time"

	"github.com/vidasmart/coach-backend/internal/models"
)

// MaxSuggestions caps how many proactive nudges go out per request. This is
// a UX throttle, not a correctness constraint, and must never be exceeded.
const MaxSuggestions = 2

// Suggestion is a system-initiated nudge referencing an incomplete plan item.
// Ephemeral: computed per request, never persisted.
type Suggestion struct {
	PlanType  string `json:"plan_type"`
	PlanTitle string `json:"plan_title"`
	ItemID    string `json:"item_id"`
	ItemTitle string `json:"item_title"`
	Rationale string `json:"rationale"`
}

// priorityPlanTypes returns the plan types favored at the given hour:
// mornings push body and food, afternoons emotional work, evenings
// spiritual practice.
func priorityPlanTypes(hour int) []string {
	switch {
	case hour >= 5 && hour < 12:
		return []string{models.PlanTypePhysical, models.PlanTypeNutritional}
	case hour >= 12 && hour < 18:
		return []string{models.PlanTypeEmotional}
	default:
		return []string{models.PlanTypeSpiritual}
	}
}

func rationaleFor(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Manhã é o melhor horário para cuidar do corpo e da alimentação"
	case hour >= 12 && hour < 18:
		return "A tarde é um bom momento para olhar para as emoções"
	default:
		return "A noite convida a um momento de conexão espiritual"
	}
}

const genericRationale = "Esse item ainda está pendente no seu plano de hoje"

// SelectSuggestions picks up to MaxSuggestions incomplete checklist items
// from the user's active plans. Plans whose type matches the current
// time-of-day priority come first with a time-appropriate rationale; when
// fewer than MaxSuggestions are found the remainder is backfilled from the
// other plan types with a generic rationale.
func SelectSuggestions(plans []*models.CarePlan, completions []*models.PlanItemCompletion, now time.Time) []Suggestion {
	completedToday := make(map[string]bool, len(completions))
	y, m, d := now.Date()
	for _, c := range completions {
		cy, cm, cd := c.CompletedAt.Date()
		if cy == y && cm == m && cd == d {
			completedToday[c.ItemID] = true
		}
	}

	priority := make(map[string]bool)
	for _, t := range priorityPlanTypes(now.Hour()) {
		priority[t] = true
	}

	var suggestions []Suggestion
	pick := func(plan *models.CarePlan, rationale string) {
		for _, item := range plan.ChecklistItems() {
			if completedToday[item.ID] {
				continue
			}
			suggestions = append(suggestions, Suggestion{
				PlanType:  plan.PlanType,
				PlanTitle: plan.Title,
				ItemID:    item.ID,
				ItemTitle: item.Title,
				Rationale: rationale,
			})
			return
		}
	}

	timeRationale := rationaleFor(now.Hour())
	for _, plan := range plans {
		if len(suggestions) == MaxSuggestions {
			return suggestions
		}
		if priority[plan.PlanType] {
			pick(plan, timeRationale)
		}
	}

	for _, plan := range plans {
		if len(suggestions) == MaxSuggestions {
			return suggestions
		}
		if !priority[plan.PlanType] {
			pick(plan, genericRationale)
		}
	}

	return suggestions
}
