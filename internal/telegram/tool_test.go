package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"main-1: 12.5 pts!", "main\\-1: 12\\.5 pts\\!"},
		{"a_b*c", "a\\_b\\*c"},
		{"(2025-06-20)", "\\(2025\\-06\\-20\\)"},
		{"back\\slash", "back\\\\slash"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeMarkdownV2(tt.in))
		})
	}
}
