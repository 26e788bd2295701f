package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vidasmart/coach-backend/internal/models"
)

// basePersona is the coach's system prompt before any personalization.
const basePersona = "Você é a Sol, coach de bem-estar da VidaSmart. Conversa por WhatsApp " +
	"em português brasileiro, com acolhimento e leveza. Respostas curtas (até 3 parágrafos), " +
	"sem jargão clínico, sempre terminando com um convite prático para o próximo passo. " +
	"Você nunca dá diagnóstico médico e sugere procurar um profissional quando o tema pede."

// stageInstructions tell the model what the commercial goal of each funnel
// stage is and how to signal readiness for the next one.
var stageInstructions = map[string]string{
	models.StageSDR: "Estágio atual: qualificação inicial. Entenda a rotina e os objetivos do cliente. " +
		"Quando ele demonstrar interesse real em um acompanhamento, diga que vai conectá-lo com o especialista.",
	models.StageSpecialist: "Estágio atual: acompanhamento com especialista. Aprofunde o plano de bem-estar " +
		"e identifique se há interesse em um plano pago.",
	models.StageSeller: "Estágio atual: proposta comercial. Apresente com naturalidade os benefícios do plano " +
		"e conduza para a adesão.",
	models.StagePartner: "Estágio atual: parceiro. Foque em retenção, resultados e indicações.",
}

const advanceInstruction = "Se, e somente se, esta conversa estiver pronta para avançar ao próximo " +
	"estágio do funil, termine sua resposta com o marcador " + AdvanceMarker + " em uma linha própria. " +
	"Nunca mencione o marcador nem o funil ao cliente."

// CoachService issues the single-turn chat completions that produce the
// coach's replies.
type CoachService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewCoachService builds the LLM client. An empty API key yields a disabled
// service: replies are skipped, everything else keeps working.
func NewCoachService(apiKey, baseURL, model string, timeout time.Duration) *CoachService {
	svc := &CoachService{model: model, timeout: timeout}
	if apiKey == "" {
		return svc
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	svc.client = openai.NewClientWithConfig(cfg)
	return svc
}

// Enabled reports whether an API key was configured.
func (c *CoachService) Enabled() bool {
	return c.client != nil
}

// BuildSystemPrompt assembles persona, personalization, stage guidance,
// context and proactive suggestions into one system prompt.
func BuildSystemPrompt(profile *models.UserProfile, stage, contextPrompt string, suggestions []Suggestion) string {
	var b strings.Builder
	b.WriteString(basePersona)

	if profile != nil {
		if profile.CulturalContext != "" {
			b.WriteString(fmt.Sprintf("\n\nContexto cultural do cliente: %s. "+
				"Adapte expressões e exemplos a essa realidade.", profile.CulturalContext))
		}
		if profile.SpiritualBelief != "" {
			b.WriteString(fmt.Sprintf("\nCrença espiritual do cliente: %s. "+
				"Respeite e, quando fizer sentido, acolha essa dimensão.", profile.SpiritualBelief))
		}
	}

	if instruction, ok := stageInstructions[stage]; ok {
		b.WriteString("\n\n" + instruction)
		b.WriteString("\n" + advanceInstruction)
	}

	if contextPrompt != "" {
		b.WriteString("\n\n" + contextPrompt)
	}

	if len(suggestions) > 0 {
		b.WriteString("\n\nSugestões proativas para tecer na conversa, se couber:")
		for _, s := range suggestions {
			b.WriteString(fmt.Sprintf("\n- %s (%s)", s.ItemTitle, s.Rationale))
		}
	}

	return b.String()
}

// GenerateReply runs a single-turn completion and returns the cleaned reply
// plus the structured progression check parsed from it. A disabled service
// or trivial message returns an empty reply without error.
func (c *CoachService) GenerateReply(ctx context.Context, systemPrompt, message string) (string, ProgressionCheck, error) {
	if !c.Enabled() || len(strings.TrimSpace(message)) < 2 {
		return "", ProgressionCheck{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", ProgressionCheck{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ProgressionCheck{}, fmt.Errorf("chat completion returned no choices")
	}

	clean, check := ParseStageSignal(resp.Choices[0].Message.Content)
	return clean, check, nil
}
