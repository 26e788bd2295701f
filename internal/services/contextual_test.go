package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidasmart/coach-backend/internal/models"
)

func TestBuildContextPromptEmpty(t *testing.T) {
	prompt := BuildContextPrompt("Maria Silva", ContextSlices{})
	assert.Empty(t, prompt, "no slices means no context prompt")
}

func TestBuildContextPromptWithName(t *testing.T) {
	prompt := BuildContextPrompt("Maria Silva Santos", ContextSlices{
		Gamification: &models.GamificationStats{TotalPoints: 320, Level: 3, StreakDays: 5},
	})

	assert.Contains(t, prompt, "Maria")
	assert.NotContains(t, prompt, "Silva", "only the first name goes in the header")
	assert.Contains(t, prompt, "320 pontos")
	assert.Contains(t, prompt, "personalizar a resposta")
}

func TestBuildContextPromptNoName(t *testing.T) {
	prompt := BuildContextPrompt("", ContextSlices{
		Goals: []*models.Goal{{Title: "Dormir melhor", Progress: 40}},
	})

	assert.Contains(t, prompt, "Contexto atual do cliente")
	assert.Contains(t, prompt, "Dormir melhor (40%)")
}

func TestBuildContextPromptSkipsEmptySlices(t *testing.T) {
	prompt := BuildContextPrompt("João", ContextSlices{
		Missions: []*models.Mission{{Title: "Beber 2L de água"}},
	})

	assert.Contains(t, prompt, "Missões em aberto")
	assert.NotContains(t, prompt, "Gamificação")
	assert.NotContains(t, prompt, "Metas")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := Truncate(long, 80)
	assert.Len(t, []rune(got), 83)
	assert.True(t, strings.HasSuffix(got, "..."))

	short := "tudo bem"
	assert.Equal(t, short, Truncate(short, 80))
}

func TestTruncateMultibyte(t *testing.T) {
	long := strings.Repeat("ã", 90)
	got := Truncate(long, 80)
	assert.Equal(t, strings.Repeat("ã", 80)+"...", got)
}

func TestFormatGamificationZeroed(t *testing.T) {
	assert.Empty(t, FormatGamification(nil))
	assert.Empty(t, FormatGamification(&models.GamificationStats{Level: 1}))
}

func TestFormatRecentActivitiesCapsAtThree(t *testing.T) {
	records := []*models.ActivityRecord{
		{Name: "caminhada"}, {Name: "meditação"}, {Name: "alongamento"}, {Name: "corrida"},
	}
	line := FormatRecentActivities(records)
	assert.Contains(t, line, "caminhada")
	assert.NotContains(t, line, "corrida")
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Maria", FirstName("Maria Silva"))
	assert.Equal(t, "João", FirstName("  João  "))
	assert.Equal(t, "", FirstName(""))
	assert.Equal(t, "", FirstName("   "))
}
