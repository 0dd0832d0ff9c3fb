package daraja

import (
	"encoding/base64"
	"strings"
	"time"
	"unicode"
)

// NormalizePhone reduces a caller-supplied phone number to the digits-only
// international form the provider expects. A leading 0 is replaced with the
// country code, a leading + is stripped, and any number not already prefixed
// with the country code gets it prepended. The function is total: malformed
// input produces a best-effort digit string, validation is the caller's
// responsibility.
func NormalizePhone(input, countryCode string) string {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return digits
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		return digits
	default:
		return countryCode + digits
	}
}

// StkPassword computes the provider's request signature: base64 of the
// concatenation shortcode+passkey+timestamp. A shared-secret scheme, not a
// hash; the byte layout must match the provider exactly.
func StkPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// Timestamp formats t in the provider's YYYYMMDDHHmmss layout, local time.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}
