package domain

import "strings"

// FilterLines keeps the lines of each fragment that contain term,
// ignoring case. Each kept line becomes its own record, without a
// trailing carriage return. An empty term returns fragments unchanged.
func FilterLines(fragments []Record, term string) []Record {
	if term == "" {
		return fragments
	}
	needle := strings.ToLower(term)

	var kept []Record
	for _, f := range fragments {
		for _, line := range strings.Split(f.Text, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if strings.Contains(strings.ToLower(line), needle) {
				kept = append(kept, Record{Text: line, Source: f.Source})
			}
		}
	}
	return kept
}
