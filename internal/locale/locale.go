package locale

// #region imports
import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// #endregion

// #region language

// Language is a supported interview locale.
type Language string

const (
	English Language = "en"
	Russian Language = "ru"
)

// Supported lists the interview languages in matcher preference order.
var Supported = []Language{English, Russian}

var aliases = map[string]Language{
	"en": English, "eng": English, "english": English, "английский": English, "англ": English,
	"ru": Russian, "rus": Russian, "russian": Russian, "русский": Russian, "рус": Russian,
}

// Parse accepts a code, a name in either language or a BCP 47 tag.
func Parse(s string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if l, ok := aliases[key]; ok {
		return l, nil
	}
	if l, ok := matchTag(key); ok {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Russian})

// matchTag maps a locale tag such as "ru-RU" onto a supported language.
func matchTag(tag string) (Language, bool) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return "", false
	}
	return Supported[idx], true
}

// #endregion

// #region detection

// Source says which rule decided the language.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceLocale   Source = "locale"
	SourceScript   Source = "script"
	SourceDefault  Source = "default"
)

// Detection is the outcome of Detect.
type Detection struct {
	Language Language
	Source   Source
}

var (
	commandPattern = regexp.MustCompile(`(?i)(?:^|\s)/lang(?:uage)?\s+(\S+)`)
	settingPattern = regexp.MustCompile(`(?i)\blanguage\s*[:=]\s*(\S+)`)
)

var phrases = []struct {
	text string
	lang Language
}{
	{"in english", English},
	{"speak english", English},
	{"по-английски", English},
	{"на английском", English},
	{"in russian", Russian},
	{"speak russian", Russian},
	{"по-русски", Russian},
	{"на русском", Russian},
}

// courtesy words may surround a language phrase without turning the message
// into content.
var courtesy = map[string]bool{
	"please": true, "let's": true, "lets": true, "can": true, "could": true, "we": true,
	"you": true, "i": true, "would": true, "like": true, "to": true, "prefer": true,
	"continue": true, "go": true, "on": true, "ok": true, "okay": true, "just": true, "only": true,
	"давайте": true, "давай": true, "можно": true, "пожалуйста": true, "будем": true,
	"продолжим": true, "говорить": true, "лучше": true, "хочу": true, "я": true, "мы": true,
	"только": true,
}

// Detector chooses the session language once, from the first message.
type Detector struct {
	fallback Language
}

// NewDetector creates a detector that falls back to def.
func NewDetector(def Language) *Detector {
	if def == "" {
		def = English
	}
	return &Detector{fallback: def}
}

// Detect applies, in order: an explicit instruction in the text, the client
// locale tag, a Cyrillic majority among letters, and the default.
func (d *Detector) Detect(text, localeTag string) Detection {
	if l, ok := explicit(text); ok {
		return Detection{Language: l, Source: SourceExplicit}
	}
	if localeTag != "" {
		if l, ok := matchTag(localeTag); ok {
			return Detection{Language: l, Source: SourceLocale}
		}
	}
	if l, ok := script(text); ok {
		return Detection{Language: l, Source: SourceScript}
	}
	return Detection{Language: d.fallback, Source: SourceDefault}
}

// StripInstruction removes "/lang xx" and "language: xx" instructions from
// text.
func StripInstruction(text string) string {
	text = commandPattern.ReplaceAllString(text, " ")
	text = settingPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func explicit(text string) (Language, bool) {
	for _, re := range []*regexp.Regexp{commandPattern, settingPattern} {
		if m := re.FindStringSubmatch(text); m != nil {
			if l, err := Parse(strings.Trim(m[1], ".,!?;")); err == nil {
				return l, true
			}
		}
	}
	return phraseInstruction(text)
}

// phraseInstruction matches a message that is a language phrase plus
// courtesy words only, so "in English, please" counts and "I studied in
// English literature" does not.
func phraseInstruction(text string) (Language, bool) {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?;:\"'«»()")
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, p := range phrases {
		needle := " " + p.text + " "
		if !strings.Contains(joined, needle) {
			continue
		}
		rest := strings.Fields(strings.Replace(joined, needle, " ", 1))
		if allCourtesy(rest) {
			return p.lang, true
		}
	}
	return "", false
}

func allCourtesy(words []string) bool {
	for _, w := range words {
		if !courtesy[w] {
			return false
		}
	}
	return true
}

// script reports Russian when at least half of the letters are Cyrillic.
func script(text string) (Language, bool) {
	letters, cyrillic := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if letters == 0 {
		return "", false
	}
	if cyrillic*2 >= letters {
		return Russian, true
	}
	return English, true
}

// #endregion
