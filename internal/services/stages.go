package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vidasmart/coach-backend/internal/storage"

	"github.com/vidasmart/coach-backend/internal/models"
)

// AdvanceMarker is the structured signal the model is instructed to append
// when the conversation is ready for the next funnel stage. It is parsed
// out of the reply and stripped before anything is sent to the user.
const AdvanceMarker = "[STAGE:advance]"

// ProgressionCheck is the typed transition signal decoupled from the
// human-readable reply text. ShouldAdvance always wins over phrase sniffing.
type ProgressionCheck struct {
	ShouldAdvance bool
	Reason        string
}

// stageAdvancePhrases is the legacy compatibility fallback: each stage
// advances when the generated reply contains its handoff phrase. Kept only
// for parity with conversations recorded before the structured marker.
var stageAdvancePhrases = map[string]string{
	models.StageSDR:        "vou te conectar com nosso especialista",
	models.StageSpecialist: "vou te encaminhar para nossa consultora",
	models.StageSeller:     "bem-vindo ao programa de parceiros",
}

// ParseStageSignal extracts the structured advance marker from a generated
// reply, returning the cleaned user-visible text and the progression check.
func ParseStageSignal(reply string) (string, ProgressionCheck) {
	if !strings.Contains(reply, AdvanceMarker) {
		return reply, ProgressionCheck{}
	}
	clean := strings.TrimSpace(strings.ReplaceAll(reply, AdvanceMarker, ""))
	return clean, ProgressionCheck{ShouldAdvance: true, Reason: "model signal"}
}

// StageRouter owns funnel progression: SDR → Specialist → Seller → Partner,
// strictly forward, Partner terminal.
type StageRouter struct {
	store storage.Store
}

// NewStageRouter creates a new stage router
func NewStageRouter(store storage.Store) *StageRouter {
	return &StageRouter{store: store}
}

// CurrentStage returns the user's stage, creating the SDR row on first
// contact.
func (r *StageRouter) CurrentStage(userID string) (*models.ClientStage, error) {
	stage, err := r.store.GetClientStage(userID)
	if err == nil {
		return stage, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	stage = &models.ClientStage{
		UserID:       userID,
		CurrentStage: models.StageSDR,
		EnteredAt:    time.Now(),
	}
	if err := r.store.UpsertClientStage(stage); err != nil {
		return nil, fmt.Errorf("failed to create client stage: %w", err)
	}
	return stage, nil
}

// Route decides whether the reply advances the user's stage and applies the
// transition. The explicit check wins; otherwise the reply is sniffed for
// the current stage's legacy handoff phrase.
func (r *StageRouter) Route(userID, reply string, check ProgressionCheck) (*models.ClientStage, bool, error) {
	stage, err := r.CurrentStage(userID)
	if err != nil {
		return nil, false, err
	}

	next := models.NextStage(stage.CurrentStage)
	if next == "" {
		// Partner (or unknown) is terminal.
		return stage, false, nil
	}

	advance := check.ShouldAdvance
	if !advance {
		if phrase, ok := stageAdvancePhrases[stage.CurrentStage]; ok {
			advance = strings.Contains(strings.ToLower(reply), phrase)
		}
	}
	if !advance {
		return stage, false, nil
	}

	now := time.Now()
	stage.CurrentStage = next
	stage.EnteredAt = now
	stage.AdvancedAt = &now
	if err := r.store.UpsertClientStage(stage); err != nil {
		return nil, false, fmt.Errorf("failed to advance stage: %w", err)
	}

	log.Printf("📈 Client %s advanced to stage %s", userID, next)
	return stage, true, nil
}
