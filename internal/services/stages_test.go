package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidasmart/coach-backend/internal/models"
	"github.com/vidasmart/coach-backend/internal/storage"
)

func TestParseStageSignal(t *testing.T) {
	clean, check := ParseStageSignal("Ótimo, vamos em frente!\n" + AdvanceMarker)
	assert.True(t, check.ShouldAdvance)
	assert.Equal(t, "Ótimo, vamos em frente!", clean)
	assert.NotContains(t, clean, AdvanceMarker, "marker must never reach the user")

	clean, check = ParseStageSignal("Resposta comum")
	assert.False(t, check.ShouldAdvance)
	assert.Equal(t, "Resposta comum", clean)
}

func TestStageRouterCreatesSDROnFirstContact(t *testing.T) {
	router := NewStageRouter(storage.NewMemoryStore())

	stage, err := router.CurrentStage("u1")
	require.NoError(t, err)
	assert.Equal(t, models.StageSDR, stage.CurrentStage)
}

func TestStageRouterExplicitSignalWins(t *testing.T) {
	router := NewStageRouter(storage.NewMemoryStore())

	stage, advanced, err := router.Route("u1", "qualquer resposta", ProgressionCheck{ShouldAdvance: true})
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, models.StageSpecialist, stage.CurrentStage)
	assert.NotNil(t, stage.AdvancedAt)
}

func TestStageRouterPhraseFallback(t *testing.T) {
	router := NewStageRouter(storage.NewMemoryStore())

	stage, advanced, err := router.Route("u1",
		"Perfeito! Vou te conectar com nosso especialista ainda hoje.", ProgressionCheck{})
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, models.StageSpecialist, stage.CurrentStage)
}

func TestStageRouterNoSignalNoAdvance(t *testing.T) {
	router := NewStageRouter(storage.NewMemoryStore())

	stage, advanced, err := router.Route("u1", "Como foi seu dia?", ProgressionCheck{})
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, models.StageSDR, stage.CurrentStage)
}

func TestStageRouterFullProgression(t *testing.T) {
	router := NewStageRouter(storage.NewMemoryStore())

	expected := []string{models.StageSpecialist, models.StageSeller, models.StagePartner}
	for _, want := range expected {
		stage, advanced, err := router.Route("u1", "avançar", ProgressionCheck{ShouldAdvance: true})
		require.NoError(t, err)
		assert.True(t, advanced)
		assert.Equal(t, want, stage.CurrentStage)
	}

	// Partner is terminal: further signals are ignored.
	stage, advanced, err := router.Route("u1", "avançar", ProgressionCheck{ShouldAdvance: true})
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, models.StagePartner, stage.CurrentStage)
}

func TestNextStage(t *testing.T) {
	assert.Equal(t, models.StageSpecialist, models.NextStage(models.StageSDR))
	assert.Equal(t, models.StageSeller, models.NextStage(models.StageSpecialist))
	assert.Equal(t, models.StagePartner, models.NextStage(models.StageSeller))
	assert.Equal(t, "", models.NextStage(models.StagePartner))
	assert.Equal(t, "", models.NextStage("bogus"))
}
