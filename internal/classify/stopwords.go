package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// #region stopwords
// stopwords contains common English and Russian words excluded from topic matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "just": true, "very": true, "also": true, "there": true,
	"some": true, "all": true, "our": true, "their": true, "s": true,
	"t": true, "m": true, "ll": true, "ve": true, "re": true, "d": true,

	"и": true, "в": true, "во": true, "не": true, "что": true, "он": true,
	"на": true, "я": true, "с": true, "со": true, "как": true, "а": true,
	"то": true, "все": true, "она": true, "так": true, "его": true,
	"но": true, "да": true, "ты": true, "к": true, "у": true, "же": true,
	"вы": true, "за": true, "бы": true, "по": true, "только": true,
	"ее": true, "мне": true, "было": true, "вот": true, "от": true,
	"меня": true, "еще": true, "нет": true, "о": true, "из": true,
	"ему": true, "это": true, "мы": true, "они": true, "их": true,
	"или": true, "ни": true, "быть": true, "был": true, "была": true,
	"для": true, "при": true, "этот": true, "эта": true, "эти": true,
}

// normalize lower-cases text and collapses every run of non-alphanumeric
// runes into a single space, so phrase lists match on word boundaries.
func normalize(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// contentWords splits text into unique lowercase non-stopword tokens.
func contentWords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// stemMatch reports whether word belongs to the stem. Stems shorter than
// four runes only match exactly.
func stemMatch(word, stem string) bool {
	if word == stem {
		return true
	}
	return utf8.RuneCountInString(stem) >= 4 && strings.HasPrefix(word, stem)
}

// #endregion stopwords
