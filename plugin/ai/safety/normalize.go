package safety

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuationFolder = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"«", `"`, "»", `"`,
	"–", "-", "—", "-", "−", "-",
)

func isJunk(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || r == unicode.ReplacementChar
}

func toSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Normalize folds text into a canonical form: compatibility forms are
// decomposed, control and format characters dropped, smart punctuation
// folded to ASCII, diacritics stripped and whitespace collapsed.
func Normalize(text string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(toSpace),
		runes.Remove(runes.Predicate(isJunk)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = punctuationFolder.Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}
