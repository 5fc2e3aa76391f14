package gemini_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/gemini"
)

func TestFoldMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []domain.Message
		expected string
	}{
		{
			name: "system folded with instructions prefix",
			messages: []domain.Message{
				{Role: "system", Content: "Answer concisely."},
				{Role: "user", Content: "What is the best CRM?"},
			},
			expected: "Instructions: Answer concisely.\n\nWhat is the best CRM?",
		},
		{
			name: "no system message",
			messages: []domain.Message{
				{Role: "user", Content: "What is the best CRM?"},
			},
			expected: "What is the best CRM?",
		},
		{
			name: "only first system message is folded",
			messages: []domain.Message{
				{Role: "system", Content: "first"},
				{Role: "system", Content: "second"},
				{Role: "user", Content: "question"},
			},
			expected: "Instructions: first\n\nsecond\n\nquestion",
		},
		{
			name: "multi-turn messages joined in order",
			messages: []domain.Message{
				{Role: "user", Content: "a"},
				{Role: "assistant", Content: "b"},
				{Role: "user", Content: "c"},
			},
			expected: "a\n\nb\n\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, gemini.FoldMessages(tt.messages))
		})
	}
}
