package analyzer

import (
	"strings"
	"unicode"

	"github.com/client9/misspell"
)

// spellChecker computes the linguistic-quality signal: the share of
// dictionary-misspelled words in the article body.
type spellChecker struct {
	replacer *misspell.Replacer
}

func newSpellChecker() *spellChecker {
	r := misspell.New()
	r.Compile()
	return &spellChecker{replacer: r}
}

// Check tokenizes the text, skips capitalized tokens (likely proper nouns)
// and single letters, and counts dictionary misses. Returns the misspelled
// word count and the misspelling rate over the checked tokens.
func (c *spellChecker) Check(text string) (int, float64) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	checked := 0
	misspelled := 0
	for _, w := range words {
		runes := []rune(w)
		if len(runes) < 2 {
			continue
		}
		if unicode.IsUpper(runes[0]) {
			continue
		}
		checked++
		if _, diffs := c.replacer.Replace(w); len(diffs) > 0 {
			misspelled++
		}
	}

	if checked == 0 {
		return 0, 0
	}
	return misspelled, float64(misspelled) / float64(checked)
}
