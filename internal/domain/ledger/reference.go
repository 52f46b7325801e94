package ledger

import (
	"strings"
	"unicode"
)

// NewReferenceCode builds the human-readable code shown to residents so the
// administration can match a bank transfer: property number, category codes
// and a random suffix, e.g. "A-101-MAMU-7QK3ZP". It is advisory only and
// never used as a unique key.
func NewReferenceCode(propertyNumber string, categories []PaymentType, suffix string) string {
	number := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return unicode.ToUpper(r)
		}
		return -1
	}, strings.TrimSpace(propertyNumber))
	if number == "" {
		number = "SN"
	}

	var codes strings.Builder
	for _, c := range categories {
		codes.WriteString(c.Code())
	}
	if codes.Len() == 0 {
		codes.WriteString(PaymentTypeMixed.Code())
	}

	return number + "-" + codes.String() + "-" + strings.ToUpper(suffix)
}
