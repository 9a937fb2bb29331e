// Package validate checks customer input for the intake dialogue.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrNotANumber    = errors.New("quantity is not a number")
	ErrNonPositive   = errors.New("quantity must be positive")
	ErrTooLarge      = errors.New("quantity too large")
	ErrTooShort      = errors.New("address too short")
	ErrInvalidFormat = errors.New("invalid phone format")
)

// MaxQuantity is the largest self-service order; larger ones go to a manager.
var MaxQuantity = decimal.NewFromInt(1000)

// MinAddressLength is counted in characters, not bytes.
const MinAddressLength = 10

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{10,}$`)

// Quantity parses a free-form amount such as "5", "10,5" or "7 м³".
func Quantity(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)

	var sb strings.Builder
	if strings.HasPrefix(trimmed, "-") {
		sb.WriteByte('-')
	}
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '.':
			sb.WriteRune(r)
		case r == ',':
			sb.WriteByte('.')
		}
	}

	cleaned := sb.String()
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, ErrNotANumber
	}
	q, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	if !q.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	if q.GreaterThan(MaxQuantity) {
		return decimal.Zero, ErrTooLarge
	}
	return q, nil
}

// Address accepts anything that looks long enough to be a full address.
func Address(s string) (string, error) {
	addr := strings.TrimSpace(s)
	if utf8.RuneCountInString(addr) < MinAddressLength {
		return "", ErrTooShort
	}
	return addr, nil
}

// Phone is a syntactic check only.
func Phone(s string) (string, error) {
	phone := strings.TrimSpace(s)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidFormat
	}
	return phone, nil
}
