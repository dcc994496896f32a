package controller

import (
	"strings"
	"testing"

	"trail-arena/internal/game"
)

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short passes through", "ann", "ann"},
		{"exact length kept", strings.Repeat("a", game.MaxNameLength), strings.Repeat("a", game.MaxNameLength)},
		{"oversized cut to cap", strings.Repeat("a", 40), strings.Repeat("a", game.MaxNameLength)},
		{"multi-byte cut on rune boundary", strings.Repeat("é", 40), strings.Repeat("é", game.MaxNameLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateName(tt.input); got != tt.want {
				t.Errorf("truncateName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
