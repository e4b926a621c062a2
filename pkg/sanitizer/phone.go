package sanitizer

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// MinPhoneDigits and MaxPhoneDigits bound a plausible subscriber number, with or without country code.
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

var (
	supportedRegions = []string{
		"US",
		"IL",
	}
)

// DigitsOnly strips every non-digit rune. It is the canonical matching key for phones.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone formats a phone number as E.164, trying each supported region in order.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// IsPlausiblePhone accepts numbers made of digits and common separators whose
// length libphonenumber considers possible for at least one supported region.
func IsPlausiblePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r), r == ' ', r == '-', r == '.', r == '(', r == ')':
		case r == '+' && i == 0:
		default:
			return false
		}
	}

	digits := DigitsOnly(phone)
	if len(digits) < MinPhoneDigits || len(digits) > MaxPhoneDigits {
		return false
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsPossibleNumber(parsedNumber) {
			return true
		}
	}
	return false
}
