package directory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose into a base letter plus a combining mark
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "ẞ", "ss",
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"ı", "i",
)

// Fold lower-cases s and strips accents, so that "Atlético" and "atletico"
// compare equal. Used for fuzzy club search.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(foldReplacer.Replace(strings.TrimSpace(folded)))
}

// likePattern builds a %query% pattern for LIKE ... ESCAPE '\'.
func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(Fold(query))
	return "%" + escaped + "%"
}
