package services

import "strings"

// defaultCountryCode is prefixed to bare local numbers. The platform's
// user base is Brazilian.
var defaultCountryCode = "55"

// SetDefaultCountryCode overrides the country code used by NormalizePhone
// and PhoneCandidates (call from main.go). Empty input keeps the current
// value.
func SetDefaultCountryCode(countryCode string) {
	if countryCode != "" {
		defaultCountryCode = countryCode
	}
}

// NormalizePhone converts a raw gateway identifier into canonical E.164-ish
// form: WhatsApp JID suffixes ("@s.whatsapp.net", "@g.us") and device parts
// (":12") are stripped, only digits survive plus a single leading "+", and
// bare numbers get the default country code. Empty input normalizes to "".
// Idempotent: NormalizePhone(NormalizePhone(x)) == NormalizePhone(x).
func NormalizePhone(raw string) string {
	return NormalizePhoneCC(raw, defaultCountryCode)
}

// NormalizePhoneCC is NormalizePhone with an explicit country code.
func NormalizePhoneCC(raw, countryCode string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// JID suffix and device part
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}

	hasPlus := strings.HasPrefix(s, "+")
	digits := digitsOnly(s)
	if digits == "" {
		return ""
	}

	if hasPlus || strings.HasPrefix(digits, countryCode) {
		return "+" + digits
	}

	// Bare local number: 10 digits (landline) or 11 (mobile with 9th digit)
	if len(digits) == 10 || len(digits) == 11 {
		return "+" + countryCode + digits
	}

	return "+" + digits
}

// PhoneCandidates returns the lookup variants for a raw gateway identifier,
// normalized form first. The user match takes the first profile whose phone
// equals any candidate, in order.
func PhoneCandidates(raw string) []string {
	normalized := NormalizePhone(raw)
	if normalized == "" {
		return nil
	}

	digits := strings.TrimPrefix(normalized, "+")
	variants := []string{
		normalized,
		digits,
	}
	if strings.HasPrefix(digits, defaultCountryCode) {
		local := digits[len(defaultCountryCode):]
		variants = append(variants, local, "+"+local)
	}

	seen := make(map[string]bool, len(variants))
	candidates := make([]string, 0, len(variants))
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		candidates = append(candidates, v)
	}
	return candidates
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
