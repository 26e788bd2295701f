package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// dedupWindow is the advisory duplicate-suppression window carried over
// from the legacy webhook. Read-then-write, not atomic.
const dedupWindow = 30 * time.Second

// EvolutionWebhookPayload is the inbound event shape posted by the
// Evolution API gateway.
type EvolutionWebhookPayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

// Text returns the message body regardless of which field the gateway
// used.
func (p *EvolutionWebhookPayload) Text() string {
	if p.Data.Message.Conversation != "" {
		return p.Data.Message.Conversation
	}
	return p.Data.Message.ExtendedTextMessage.Text
}

// WebhookHandler processes inbound gateway events.
type WebhookHandler struct {
	store        storage.Store
	conversation *services.ConversationService
	emergency    *services.EmergencyService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(store storage.Store, conversation *services.ConversationService, emergency *services.EmergencyService) *WebhookHandler {
	return &WebhookHandler{
		store:        store,
		conversation: conversation,
		emergency:    emergency,
	}
}

// HandleEvolutionWebhook ingests one gateway event. Everything after auth
// is acknowledged with 200: a business failure converted to 4xx/5xx would
// only make the gateway retry the same message.
func (h *WebhookHandler) HandleEvolutionWebhook(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"ok":    false,
			"error": "Method not allowed",
		})
	}

	rawBody := c.Body()

	var payload EvolutionWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Printf("Error parsing webhook payload: %v", err)
		return c.JSON(fiber.Map{"ok": false, "error": "Invalid webhook payload"})
	}

	if payload.Event != "messages.upsert" {
		return c.JSON(fiber.Map{"ok": true, "status": "Event ignored"})
	}

	// Skip our own outbound messages, otherwise the bot answers itself.
	if payload.Data.Key.FromMe {
		return c.JSON(fiber.Map{"ok": true, "status": "Self message skipped"})
	}

	rawPhone := payload.Data.Key.RemoteJid
	normalized := services.NormalizePhone(rawPhone)
	content := payload.Text()

	log.Printf("📱 WhatsApp message from %s: %s", normalized, services.Truncate(content, 60))

	var profile *models.UserProfile
	var userID *string
	if normalized != "" {
		found, err := h.store.FindUserByPhones(services.PhoneCandidates(rawPhone))
		if err != nil && err != storage.ErrNotFound {
			log.Printf("User lookup failed for %s: %v", normalized, err)
		}
		if found != nil {
			profile = found
			userID = &found.UserID
		}
	}

	duplicate := false
	if normalized != "" && content != "" {
		var err error
		duplicate, err = h.store.RecentMessageExists(normalized, content, dedupWindow)
		if err != nil {
			log.Printf("Dedup check failed for %s: %v", normalized, err)
			duplicate = false
		}
	}

	// Audit trail first: the inbound message is persisted before any AI
	// processing, user id nullable.
	msg := &models.WhatsAppMessage{
		MessageID:       payload.Data.Key.ID,
		InstanceID:      payload.Instance,
		PhoneNumber:     rawPhone,
		NormalizedPhone: normalized,
		MessageContent:  content,
		RawPayload:      string(rawBody),
		UserID:          userID,
	}
	if _, err := h.store.SaveMessage(msg); err != nil {
		log.Printf("❌ Failed to persist message from %s: %v", normalized, err)
		return c.JSON(fiber.Map{"ok": false, "error": "Failed to persist message"})
	}

	// Crisis messages bypass duplicate suppression: a retried delivery
	// still gets the hotline response and never falls through to the LLM.
	if phrase := services.MatchEmergencyPhrase(content); phrase != "" {
		h.emergency.Activate(context.Background(), userID, normalized, content, phrase)
		return c.JSON(fiber.Map{"ok": true, "status": "Emergency protocol activated"})
	}

	if duplicate {
		return c.JSON(fiber.Map{"ok": true, "status": "Duplicate ignored"})
	}

	result := h.conversation.Respond(context.Background(), profile, normalized, content, true)
	if result.Skipped != "" {
		log.Printf("No AI reply for %s: %s", normalized, result.Skipped)
	}

	return c.JSON(fiber.Map{"ok": true})
}
