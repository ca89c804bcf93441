package sheetrange

import (
	"regexp"
	"strings"
	"unicode"
)

var parenthesised = regexp.MustCompile(`\(.*?\)`)

// HeaderName turns a table header cell into a field name.
func HeaderName(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// FieldName turns a key-value label such as "Plate Number (RSL):" into plate_number.
func FieldName(label string) string {
	s := parenthesised.ReplaceAllString(label, "")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.ReplaceAll(s, " ", "_")
}

// Prettify turns a field name back into a display label: "well_position" becomes
// "Well Position".
func Prettify(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		for j := 1; j < len(r); j++ {
			r[j] = unicode.ToLower(r[j])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
