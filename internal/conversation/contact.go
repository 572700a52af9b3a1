package conversation

import (
	"regexp"
	"strings"
)

var phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{5,}\d`)

// ExtractContact pulls a customer name and phone number out of a free-text
// reply like "Ana Gómez, 300 111 2233". The phone is the first digit run of
// at least seven digits; the name is whatever remains around it, trimmed of
// filler punctuation. Either return may be empty.
func ExtractContact(text string) (name, phone string) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "", ""
	}

	loc := phoneRe.FindStringIndex(raw)
	if loc != nil {
		candidate := normalizePhone(raw[loc[0]:loc[1]])
		if len(strings.TrimPrefix(candidate, "+")) >= 7 {
			phone = candidate
			raw = raw[:loc[0]] + raw[loc[1]:]
		}
	}

	name = strings.Trim(raw, " \t\n,.;:-")
	for _, prefix := range []string{"soy ", "me llamo ", "mi nombre es ", "i am ", "my name is "} {
		if n := strings.ToLower(name); strings.HasPrefix(n, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}
	return name, phone
}

// normalizePhone strips formatting from a dialed number, keeping a leading +.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}
	return digits
}
