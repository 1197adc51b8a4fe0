package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	g, err := NewGemini(context.Background(), "   ", "")
	require.Error(t, err)
	assert.Nil(t, g)
}

func TestGemini_NilGenerator(t *testing.T) {
	var g *Gemini
	_, err := g.GenerateContent(context.Background(), "hello")
	assert.EqualError(t, err, "gemini generator is not initialized")
	assert.Equal(t, "", g.Model())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "abc", TruncateForLog("abc", 5))
	assert.Equal(t, "ab...", TruncateForLog("abcdef", 2))
	assert.Equal(t, "abcdef", TruncateForLog("abcdef", 0))
}
