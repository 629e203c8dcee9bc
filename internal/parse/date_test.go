package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "2025-03-15", "2025-03-15"},
		{"iso datetime", "2025-03-15T09:30:00", "2025-03-15"},
		{"space datetime", "2025-03-15 09:30:00", "2025-03-15"},
		{"slash dmy", "15/03/2025", "2025-03-15"},
		{"dot dmy", "15.03.2025", "2025-03-15"},
		{"rfc3339", "2025-03-15T09:30:00Z", "2025-03-15"},
		{"surrounding whitespace", "  2025-03-15  ", "2025-03-15"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"unparseable passes through", "next Tuesday", "next Tuesday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"iso datetime", "2025-03-15T09:30:00", "2025-03-15 09:30:00"},
		{"space datetime", "2025-03-15 09:30:00", "2025-03-15 09:30:00"},
		{"rfc3339", "2025-03-15T09:30:00Z", "2025-03-15 09:30:00"},
		{"date only gets midnight", "2025-03-15", "2025-03-15 00:00:00"},
		{"empty", "", ""},
		{"unparseable passes through", "just now", "just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTimestamp(tt.in))
		})
	}
}
