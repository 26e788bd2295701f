package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vidasmart/coach-backend/internal/middleware"
	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// ChatRequest is the body of a coach chat call. Message and From are
// interchangeable, as are UserID and Phone; at least one of each pair is
// required.
type ChatRequest struct {
	Message           string `json:"message"`
	From              string `json:"from"`
	UserID            string `json:"userId"`
	Phone             string `json:"phone"`
	AutomationTrigger string `json:"automation_trigger"`
}

// Text returns the message body from whichever field was used.
func (r *ChatRequest) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.From
}

// ParseChatRequest decodes and validates a chat request body. A body that
// is not JSON is treated as a raw text message; only requests with no
// usable message or no user reference fail.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		raw := strings.TrimSpace(string(body))
		if raw == "" {
			return nil, fmt.Errorf("invalid request body")
		}
		req = ChatRequest{Message: raw}
	}

	if strings.TrimSpace(req.Text()) == "" {
		return nil, fmt.Errorf("message is required")
	}
	if req.UserID == "" && req.Phone == "" {
		return nil, fmt.Errorf("userId or phone is required")
	}
	return &req, nil
}

// ChatHandler serves the direct coach chat endpoint used by the web client
// and by internal automations.
type ChatHandler struct {
	store        storage.Store
	conversation *services.ConversationService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(store storage.Store, conversation *services.ConversationService) *ChatHandler {
	return &ChatHandler{store: store, conversation: conversation}
}

// HandleChat validates the request, resolves the user and runs the coach
// pipeline. Automation triggers are honored only for internal callers and
// relay the reply through the gateway instead of just returning it.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"error": "Method not allowed",
		})
	}

	req, err := ParseChatRequest(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	internal, _ := c.Locals(middleware.InternalCallerKey).(bool)
	if req.AutomationTrigger != "" && !internal {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "automation_trigger requires internal caller",
		})
	}

	profile := h.resolveUser(req)
	if profile == nil && req.UserID != "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	phone := req.Phone
	if profile != nil && profile.Phone != "" {
		phone = profile.Phone
	}
	phone = services.NormalizePhone(phone)

	relay := req.AutomationTrigger != ""
	result := h.conversation.Respond(context.Background(), profile, phone, req.Text(), relay)
	return c.JSON(result)
}

func (h *ChatHandler) resolveUser(req *ChatRequest) *models.UserProfile {
	if req.UserID != "" {
		profile, err := h.store.GetUserProfile(req.UserID)
		if err != nil {
			if err != storage.ErrNotFound {
				log.Printf("User lookup by id failed: %v", err)
			}
			return nil
		}
		return profile
	}

	profile, err := h.store.FindUserByPhones(services.PhoneCandidates(req.Phone))
	if err != nil {
		if err != storage.ErrNotFound {
			log.Printf("User lookup by phone failed: %v", err)
		}
		return nil
	}
	return profile
}
