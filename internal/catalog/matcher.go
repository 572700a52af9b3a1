package catalog

import "strings"

// Match resolves free text against a tenant's service list: first an exact
// substring match on the service name, then on its aliases. Returns nil when
// nothing matches. Disabled services never match.
func Match(services []Service, text string) *Service {
	needle := normalize(text)
	if needle == "" {
		return nil
	}

	for i := range services {
		if !services[i].Enabled {
			continue
		}
		if name := normalize(services[i].Name); name != "" && strings.Contains(needle, name) {
			return &services[i]
		}
	}
	for i := range services {
		if !services[i].Enabled {
			continue
		}
		for _, alias := range services[i].Aliases {
			if a := normalize(alias); a != "" && strings.Contains(needle, a) {
				return &services[i]
			}
		}
	}
	return nil
}

// normalize lowercases and strips the Spanish diacritics users type
// inconsistently, so "depilación" and "depilacion" match the same row.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return replacer.Replace(s)
}
