package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseSuggestionPlainJSON(t *testing.T) {
	suggestion := parseSuggestion(`{"category_id":2,"priority_id":1,"department_id":3,"reason":"hardware"}`, zap.NewNop())
	require.NotNil(t, suggestion)
	assert.Equal(t, int64(2), suggestion.CategoryID)
	assert.Equal(t, int64(1), suggestion.PriorityID)
	assert.Equal(t, int64(3), suggestion.DepartmentID)
	assert.Equal(t, "hardware", suggestion.Reason)
}

func TestParseSuggestionCodeFence(t *testing.T) {
	text := "```json\n{\"category_id\":5,\"priority_id\":2,\"department_id\":1,\"reason\":\"red\"}\n```"
	suggestion := parseSuggestion(text, zap.NewNop())
	require.NotNil(t, suggestion)
	assert.Equal(t, int64(5), suggestion.CategoryID)
}

func TestParseSuggestionGarbage(t *testing.T) {
	assert.Nil(t, parseSuggestion("lo siento, no puedo ayudar", zap.NewNop()))
}
