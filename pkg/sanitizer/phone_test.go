package sanitizer

import "testing"

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "formatted US number", input: "+1 (555) 123-4567", want: "15551234567"},
		{name: "plain digits", input: "5551234567", want: "5551234567"},
		{name: "dots and spaces", input: " 054.123 4567 ", want: "0541234567"},
		{name: "letters dropped", input: "call 555-CALL", want: "555"},
		{name: "empty", input: "", want: ""},
		{name: "non-ascii digits dropped", input: "٥٥٥١٢٣٤", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DigitsOnly(tt.input); got != tt.want {
				t.Errorf("DigitsOnly(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDigitsOnly_Idempotent(t *testing.T) {
	inputs := []string{"+1 (555) 123-4567", "5551234567", "", "+972-54-123-4567", "ext. 12"}
	for _, in := range inputs {
		once := DigitsOnly(in)
		if twice := DigitsOnly(once); twice != once {
			t.Errorf("DigitsOnly not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "valid E.164 format", input: "+972541234567", want: "+972541234567"},
		{name: "with dashes", input: "+972-54-123-4567", want: "+972541234567"},
		{name: "with parentheses", input: "+1 (212) 555-1234", want: "+12125551234"},
		{name: "national US number", input: "212 555 1234", want: "+12125551234"},
		{name: "leading and trailing spaces", input: "  +972541234567  ", want: "+972541234567"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizePhone(got); again != got {
				t.Errorf("NormalizePhone not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestIsPlausiblePhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"+1 (555) 123-4567", true},
		{"5551234567", true},
		{"+972-54-123-4567", true},
		{"123", false},
		{"555-CALL-NOW", false},
		{"1+5551234567", false},
		{"12345678901234567", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsPlausiblePhone(tt.input); got != tt.want {
				t.Errorf("IsPlausiblePhone(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
