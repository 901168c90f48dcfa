package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/hybridrag/ai"
)

func TestToMessageContent(t *testing.T) {
	msgs := []ai.Message{
		ai.SystemMessage("be brief"),
		ai.UserMessage("where is the tower?"),
		ai.AssistantMessage("Paris"),
	}

	got := toMessageContent(msgs)
	require.Len(t, got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, got[2].Role)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("Paris")}, got[2].Parts)
}

func TestNewProvider_RejectsInvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingModel(""))
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestNewProvider_Services(t *testing.T) {
	p, err := NewProvider(ai.NewConfig(ai.WithRecognizerModel("qwen2.5:3b")))
	require.NoError(t, err)
	defer p.Close()

	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Generator())
	assert.NotNil(t, p.EntityRecognizer())
}
