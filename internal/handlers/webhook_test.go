package handlers_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidasmart/coach-backend/internal/config"
	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/routes"
	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

const testWebhookSecret = "topsecret"

// llmServer doubles for an OpenAI-compatible chat-completions endpoint.
type llmServer struct {
	mu         sync.Mutex
	calls      int
	lastSystem string
	reply      string
	fail       bool
	server     *httptest.Server
}

func newLLMServer(reply string) *llmServer {
	l := &llmServer{reply: reply}
	l.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.fail {
			http.Error(w, "upstream error", http.StatusInternalServerError)
			return
		}

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		for _, m := range req.Messages {
			if m.Role == "system" {
				l.lastSystem = m.Content
			}
		}
		l.calls++

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, l.reply)
	}))
	return l
}

func (l *llmServer) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *llmServer) LastSystem() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSystem
}

// gatewayServer doubles for an Evolution API instance and records every
// sendText body.
type gatewayServer struct {
	mu     sync.Mutex
	bodies []string
	paths  []string
	server *httptest.Server
}

func newGatewayServer() *gatewayServer {
	g := &gatewayServer{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		g.bodies = append(g.bodies, string(body))
		g.paths = append(g.paths, r.URL.Path)
		g.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"status":"PENDING"}`)
	}))
	return g
}

func (g *gatewayServer) Bodies() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.bodies...)
}

type testEnv struct {
	app     *fiber.App
	store   *storage.MemoryStore
	llm     *llmServer
	gateway *gatewayServer
}

func newTestEnv(t *testing.T, reply string) *testEnv {
	t.Helper()
	return newTestEnvWithLimiter(t, reply, 600, 100)
}

func newTestEnvWithLimiter(t *testing.T, reply string, ratePerMinute float64, burst int) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	llm := newLLMServer(reply)
	t.Cleanup(llm.server.Close)
	gateway := newGatewayServer()
	t.Cleanup(gateway.server.Close)

	cfg := &config.Config{
		WebhookSecret:  testWebhookSecret,
		InternalSecret: "internal",
		AllowedOrigins: []string{"https://appvidasmart.com", "http://localhost:5173"},
		PrimaryOrigin:  "https://appvidasmart.com",
	}

	evolution, err := services.NewEvolutionClient(gateway.server.URL, "gw-key", "main")
	require.NoError(t, err)

	coach := services.NewCoachService("test-key", llm.server.URL+"/v1", "gpt-4o-mini", 5*time.Second)
	limiter := services.NewReplyLimiter(ratePerMinute, burst)
	conversation := services.NewConversationService(store, coach, evolution, services.NewStageRouter(store), limiter)
	emergency := services.NewEmergencyService(store, evolution)

	app := fiber.New()
	routes.SetupRoutes(app, cfg, store, conversation, emergency)

	return &testEnv{app: app, store: store, llm: llm, gateway: gateway}
}

func webhookBody(remoteJid, text string) string {
	payload := map[string]interface{}{
		"event":    "messages.upsert",
		"instance": "main",
		"data": map[string]interface{}{
			"key": map[string]interface{}{
				"remoteJid": remoteJid,
				"fromMe":    false,
				"id":        "MSG1",
			},
			"message": map[string]interface{}{
				"conversation": text,
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func postWebhook(t *testing.T, env *testEnv, body, secret string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/evolution", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("apikey", secret)
	}

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	env := newTestEnv(t, "oi")

	resp, body := postWebhook(t, env, webhookBody("5511999999999@s.whatsapp.net", "oi"), "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	resp, _ = postWebhook(t, env, `{"event":"connection.update"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "401 for every event type")

	assert.Empty(t, env.store.Messages(), "nothing persisted on auth failure")
}

func TestWebhookOptionsPreflight(t *testing.T) {
	env := newTestEnv(t, "oi")

	req := httptest.NewRequest(http.MethodOptions, "/webhook/evolution", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "preflight needs no apikey")
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebhookCORSFallbackOrigin(t *testing.T) {
	env := newTestEnv(t, "oi")

	req := httptest.NewRequest(http.MethodOptions, "/webhook/evolution", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "https://appvidasmart.com", resp.Header.Get("Access-Control-Allow-Origin"),
		"unknown origins fall back to the primary production origin")
}

func TestWebhookWrongVerb(t *testing.T) {
	env := newTestEnv(t, "oi")

	req := httptest.NewRequest(http.MethodGet, "/webhook/evolution", nil)
	req.Header.Set("apikey", testWebhookSecret)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t, "oi")

	resp, body := postWebhook(t, env,
		`{"event":"connection.update","instance":"main"}`, testWebhookSecret)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Event ignored", body["status"])
	assert.Empty(t, env.store.Messages())
	assert.Zero(t, env.llm.Calls())
}

func TestWebhookSkipsFromMe(t *testing.T) {
	env := newTestEnv(t, "oi")

	payload := `{"event":"messages.upsert","instance":"main","data":{"key":{"remoteJid":"5511999999999@s.whatsapp.net","fromMe":true,"id":"M1"},"message":{"conversation":"eco"}}}`
	resp, body := postWebhook(t, env, payload, testWebhookSecret)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Zero(t, env.llm.Calls(), "self messages never reach the LLM")
	assert.Empty(t, env.gateway.Bodies(), "no reply to our own messages")
}

func TestWebhookEmergencyProtocol(t *testing.T) {
	env := newTestEnv(t, "não deveria ser chamado")
	_, err := env.store.CreateUserProfile(&models.UserProfile{
		UserID:   "u1",
		FullName: "Maria Silva",
		Phone:    "+5511999999999",
	})
	require.NoError(t, err)

	resp, body := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "quero morrer"), testWebhookSecret)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Emergency protocol activated", body["status"])

	assert.Zero(t, env.llm.Calls(), "emergency messages never reach the LLM")

	bodies := env.gateway.Bodies()
	require.Len(t, bodies, 1, "crisis response goes out through the gateway")
	assert.Contains(t, bodies[0], "188", "response carries the CVV hotline")

	alerts := env.store.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "u1", *alerts[0].UserID)

	messages := env.store.Messages()
	require.Len(t, messages, 1, "audit trail is written before interception")
	assert.Equal(t, "quero morrer", messages[0].MessageContent)
}

func TestWebhookAIReplyWithCulturalContext(t *testing.T) {
	env := newTestEnv(t, "Bom dia, Maria! Como você está?")
	_, err := env.store.CreateUserProfile(&models.UserProfile{
		UserID:          "u1",
		FullName:        "Maria Silva",
		Phone:           "+5511999999999",
		CulturalContext: "nordeste",
		SpiritualBelief: "católica",
	})
	require.NoError(t, err)

	resp, body := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "bom dia"), testWebhookSecret)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	assert.Equal(t, 1, env.llm.Calls())
	assert.Contains(t, env.llm.LastSystem(), "nordeste")
	assert.Contains(t, env.llm.LastSystem(), "católica")

	bodies := env.gateway.Bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Bom dia, Maria")

	messages := env.store.Messages()
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].UserID)
	assert.Equal(t, "u1", *messages[0].UserID)
	assert.Equal(t, "+5511999999999", messages[0].NormalizedPhone)
}

func TestWebhookUnmatchedSenderStillLogged(t *testing.T) {
	env := newTestEnv(t, "Olá! Sou a Sol, coach da VidaSmart.")

	resp, _ := postWebhook(t, env,
		webhookBody("5521988887777@s.whatsapp.net", "oi, quem é você?"), testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	messages := env.store.Messages()
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].UserID, "unmatched messages are logged with null user id")
	assert.Equal(t, 1, env.llm.Calls(), "unmatched senders still get a generic reply")
}

func TestWebhookDuplicateSuppressed(t *testing.T) {
	env := newTestEnv(t, "oi")
	body := webhookBody("5511999999999@s.whatsapp.net", "mesma mensagem")

	resp, _ := postWebhook(t, env, body, testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, decoded := postWebhook(t, env, body, testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Duplicate ignored", decoded["status"])

	assert.Equal(t, 1, env.llm.Calls(), "duplicate gets no second AI reply")
	assert.Len(t, env.store.Messages(), 2, "both copies stay in the audit trail")
}

func TestWebhookInvalidJSON(t *testing.T) {
	env := newTestEnv(t, "oi")

	resp, body := postWebhook(t, env, "{not json", testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"business failures are soft-acknowledged, never 4xx")
	assert.Equal(t, false, body["ok"])
}

func TestWebhookLLMFailureStillAcks(t *testing.T) {
	env := newTestEnv(t, "oi")
	env.llm.fail = true

	resp, body := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "como vai?"), testWebhookSecret)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"], "LLM failure is swallowed, the user just gets no reply")
	assert.Empty(t, env.gateway.Bodies())
	assert.Len(t, env.store.Messages(), 1, "message persisted before the failed AI call")
}

func TestWebhookRateLimitedStillPersisted(t *testing.T) {
	env := newTestEnvWithLimiter(t, "oi", 0.01, 1)

	resp, _ := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "primeira mensagem"), testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "segunda mensagem"), testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"], "throttled messages are still acknowledged")

	assert.Len(t, env.store.Messages(), 2, "throttling never drops the audit trail")
	assert.Equal(t, 1, env.llm.Calls(), "second message gets no AI reply")
	assert.Len(t, env.gateway.Bodies(), 1)
}

func TestWebhookDuplicateEmergencyStillIntercepted(t *testing.T) {
	env := newTestEnv(t, "não deveria ser chamado")
	body := webhookBody("5511999999999@s.whatsapp.net", "quero morrer")

	for i := 0; i < 2; i++ {
		resp, decoded := postWebhook(t, env, body, testWebhookSecret)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Emergency protocol activated", decoded["status"],
			"a retried crisis message runs the protocol again, not the duplicate path")
	}

	assert.Zero(t, env.llm.Calls())
	assert.Len(t, env.store.Alerts(), 2)
	assert.Len(t, env.gateway.Bodies(), 2, "every copy gets the hotline response")
}

func TestWebhookStageAdvanceMarkerStripped(t *testing.T) {
	env := newTestEnv(t, "Perfeito! Vamos avançar.\n"+services.AdvanceMarker)
	_, err := env.store.CreateUserProfile(&models.UserProfile{
		UserID: "u1", FullName: "João Souza", Phone: "+5511999999999",
	})
	require.NoError(t, err)

	resp, _ := postWebhook(t, env,
		webhookBody("5511999999999@s.whatsapp.net", "quero começar o acompanhamento"), testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bodies := env.gateway.Bodies()
	require.Len(t, bodies, 1)
	assert.NotContains(t, bodies[0], "STAGE:", "marker never reaches the user")

	stage, err := env.store.GetClientStage("u1")
	require.NoError(t, err)
	assert.Equal(t, models.StageSpecialist, stage.CurrentStage)
}
