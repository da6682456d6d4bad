package patient

import (
	"regexp"
	"strings"
)

// CountryCode is the fixed prefix of every canonical phone number.
const CountryCode = "+421"

var (
	canonicalPhoneRe = regexp.MustCompile(`^\+421\d{9}$`)
	phoneNoiseRe     = regexp.MustCompile(`[\s\-().]`)
	nonDigitRe       = regexp.MustCompile(`\D`)
)

// CleanPhone drops spaces, dashes, dots and parentheses.
func CleanPhone(value string) string {
	return phoneNoiseRe.ReplaceAllString(strings.TrimSpace(value), "")
}

// NormalizePhone converts the accepted input shapes to +421XXXXXXXXX:
// "+421...", "00421...", "421XXXXXXXXX", "0XXXXXXXXX" and a bare 9-digit
// mobile number starting with 9. Anything else comes back cleaned but
// otherwise untouched so validation can reject it.
func NormalizePhone(value string) string {
	p := CleanPhone(value)
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, CountryCode):
		return p
	case strings.HasPrefix(p, "00421"):
		return "+" + p[2:]
	case strings.HasPrefix(p, "421") && len(p) == 12:
		return "+" + p
	case strings.HasPrefix(p, "0") && len(p) == 10:
		return CountryCode + p[1:]
	case len(p) == 9 && strings.HasPrefix(p, "9"):
		return CountryCode + p
	}
	return p
}

// IsCanonicalPhone reports whether value is already +421 followed by 9 digits.
func IsCanonicalPhone(value string) bool {
	return canonicalPhoneRe.MatchString(value)
}

// LastDigits returns the trailing n digits of value, or every digit when
// there are fewer than n.
func LastDigits(value string, n int) string {
	d := nonDigitRe.ReplaceAllString(value, "")
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

// MaskPhone keeps the last four digits for log lines.
func MaskPhone(value string) string {
	tail := LastDigits(value, 4)
	if tail == "" {
		return ""
	}
	return "***" + tail
}
