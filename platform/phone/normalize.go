// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies when no region is configured.
const DefaultRegion = "BR"

// ErrInvalid is returned for input that is not a valid phone number.
var ErrInvalid = errors.New("invalid phone number")

// NormalizeE164 formats input to E.164, reading national numbers as region.
// Blank input yields an empty string and no error.
func NormalizeE164(input, region string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalid
	}

	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalid
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// IsValid reports whether input parses as a valid number for region.
func IsValid(input, region string) bool {
	normalized, err := NormalizeE164(input, region)
	return err == nil && normalized != ""
}
