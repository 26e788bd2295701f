package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EvolutionClient sends messages through an Evolution-API-compatible
// WhatsApp gateway.
type EvolutionClient struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

// NewEvolutionClient creates a new Evolution API client. Returns an error
// when the base URL is missing so main can degrade to a nil messenger.
func NewEvolutionClient(baseURL, apiKey, instance string) (*EvolutionClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing Evolution API base URL")
	}
	return &EvolutionClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		instance: instance,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type evolutionSendRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText posts a text message to /message/sendText/{instance}. The
// recipient keeps its normalized form minus the leading "+", which is what
// the gateway expects.
func (e *EvolutionClient) SendText(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(evolutionSendRequest{
		Number: strings.TrimPrefix(to, "+"),
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", e.baseURL, e.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
