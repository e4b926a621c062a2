package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Dana Levi  ", want: "Dana Levi"},
		{name: "multiple spaces between words", input: "Dana    Levi", want: "Dana Levi"},
		{name: "tabs and newlines", input: "Dana\t\nLevi", want: "Dana Levi"},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Zoë O'Neil ", want: "Zoë O'Neil"},
		{name: "hebrew characters", input: " דנה  לוי ", want: "דנה לוי"},
		{name: "direction marks", input: "\u200fDana\u200e Levi", want: "Dana Levi"},
		{name: "control characters", input: "Dana\x00 Levi\x7f", want: "Dana Levi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Dana@Example.COM ", "dana@example.com"},
		{"dana@example.com", "dana@example.com"},
		{"mailto:Dana@example.com", "dana@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  running   late\n\tsorry ", "running late sorry"},
		{"", ""},
		{"one", "one"},
	}

	for _, tt := range tests {
		if got := CollapseSpace(tt.input); got != tt.want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
