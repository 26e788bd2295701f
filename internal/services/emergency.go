package services

import (
	"context"
	"log"
	"strings"

	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// emergencyPhrases is the fixed self-harm phrase list. Matching is
// case-insensitive substring; accented and unaccented spellings are both
// listed because gateway text arrives unnormalized.
var emergencyPhrases = []string{
	"quero morrer",
	"me matar",
	"vou me matar",
	"suicídio",
	"suicidio",
	"suicidar",
	"tirar minha vida",
	"acabar com tudo",
	"não aguento mais viver",
	"nao aguento mais viver",
	"me machucar",
	"automutilação",
	"automutilacao",
	"sem motivo pra viver",
	"sem motivo para viver",
}

// CrisisResponse is the canned reply for the emergency protocol. The CVV
// (Centro de Valorização da Vida) hotline answers 24h at 188.
const CrisisResponse = "Sinto muito que você esteja passando por isso. 💛 " +
	"Você não está sozinho(a). Por favor, ligue agora para o CVV no número 188 " +
	"(ligação gratuita, 24 horas) ou acesse cvv.org.br para conversar com alguém " +
	"que pode te ajudar. Sua vida importa muito."

// MatchEmergencyPhrase returns the first matching self-harm phrase, or ""
// when the message is clean.
func MatchEmergencyPhrase(content string) string {
	lowered := strings.ToLower(content)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase
		}
	}
	return ""
}

// EmergencyService runs the crisis protocol: send the hotline response and
// record an alert for the care team. It is independent of AI availability.
type EmergencyService struct {
	store     storage.Store
	messenger Messenger
}

// NewEmergencyService creates a new emergency service
func NewEmergencyService(store storage.Store, messenger Messenger) *EmergencyService {
	return &EmergencyService{store: store, messenger: messenger}
}

// Activate sends the crisis response (best-effort) and writes the alert
// row. The alert is written even when the send fails; the message must
// never continue to the LLM after this point.
func (e *EmergencyService) Activate(ctx context.Context, userID *string, phone, content, matchedPhrase string) {
	delivery := Deliver(ctx, e.messenger, phone, CrisisResponse)

	alert := &models.EmergencyAlert{
		UserID:         userID,
		Phone:          phone,
		MessageContent: content,
		MatchedPhrase:  matchedPhrase,
		ResponseSent:   delivery.Sent,
	}
	if _, err := e.store.CreateEmergencyAlert(alert); err != nil {
		log.Printf("❌ Failed to record emergency alert for %s: %v", phone, err)
	} else {
		log.Printf("🚨 Emergency alert recorded for %s", phone)
	}
}
