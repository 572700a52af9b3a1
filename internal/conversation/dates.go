package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

var weekdayWords = [7][]string{
	time.Sunday:    {"domingo", "sunday"},
	time.Monday:    {"lunes", "monday"},
	time.Tuesday:   {"martes", "tuesday"},
	time.Wednesday: {"miercoles", "wednesday"},
	time.Thursday:  {"jueves", "thursday"},
	time.Friday:    {"viernes", "friday"},
	time.Saturday:  {"sabado", "saturday"},
}

var monthNames = map[string]time.Month{
	"enero": time.January, "january": time.January,
	"febrero": time.February, "february": time.February,
	"marzo": time.March, "march": time.March,
	"abril": time.April, "april": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "june": time.June,
	"julio": time.July, "july": time.July,
	"agosto": time.August, "august": time.August,
	"septiembre": time.September, "setiembre": time.September, "september": time.September,
	"octubre": time.October, "october": time.October,
	"noviembre": time.November, "november": time.November,
	"diciembre": time.December, "december": time.December,
}

var (
	dayOfMonthRe = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)\b`)
	numericRe    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
)

// ParseDateExpression resolves a colloquial Spanish or English date phrase to
// a civil date relative to now in the given location. It understands "hoy",
// "mañana", "próximo jueves", "next week", "14 de marzo" and D/M[/Y] forms.
// The second return is false when no date is recognized in the text.
func ParseDateExpression(text string, loc *time.Location, now time.Time) (schedule.CivilDate, bool) {
	t := normalizeText(text)
	today := schedule.CivilDateOf(now, loc)

	switch {
	case containsWord(t, "hoy") || containsWord(t, "today"):
		return today, true
	case strings.Contains(t, "pasado manana"):
		return today.AddDays(2), true
	case containsWord(t, "manana") || containsWord(t, "tomorrow"):
		return today.AddDays(1), true
	case strings.Contains(t, "next week") || strings.Contains(t, "proxima semana") || strings.Contains(t, "semana que viene"):
		return today.AddDays(7), true
	}

	// Scan the coming week in order so the nearest named weekday wins when a
	// message mentions more than one. Bare "lunes" on a Monday means next
	// Monday; "hoy" covers today.
	for offset := 1; offset <= 7; offset++ {
		wd := (int(today.Weekday()) + offset) % 7
		for _, name := range weekdayWords[wd] {
			if containsWord(t, name) {
				return today.AddDays(offset), true
			}
		}
	}

	if m := dayOfMonthRe.FindStringSubmatch(t); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			d := schedule.CivilDate{Year: today.Year, Month: month, Day: day}
			if d.Valid() {
				if d.Before(today) {
					d.Year++
				}
				return d, true
			}
		}
	}

	if m := numericRe.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := today.Year
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		d := schedule.CivilDate{Year: year, Month: time.Month(month), Day: day}
		if d.Valid() {
			if m[3] == "" && d.Before(today) {
				d.Year++
			}
			return d, true
		}
	}

	return schedule.CivilDate{}, false
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return replacer.Replace(s)
}

func containsWord(text, word string) bool {
	for len(text) > 0 {
		i := strings.Index(text, word)
		if i < 0 {
			return false
		}
		before := i == 0 || !isLetter(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		text = text[i+len(word):]
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
