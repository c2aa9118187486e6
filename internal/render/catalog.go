package render

// #region imports
import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// questionTemplate appends the current question to a message.
const questionTemplate = "{{.Question}}"

// ErrUnknownLanguage is returned for a language missing from the catalog.
var ErrUnknownLanguage = errors.New("render: language not in catalog")

// #region messages

// Messages is the catalog section for one language.
type Messages struct {
	StageNames  map[string]string   `yaml:"stage_names"`
	Questions   map[string][]string `yaml:"questions"`
	Probes      map[string]string   `yaml:"probes"`
	Acknowledge []string            `yaml:"acknowledge"`
	Warm        []string            `yaml:"warm"`
	Recover     map[string]string   `yaml:"recover"`
	Pace        map[string]string   `yaml:"pace"`
	Heading     string              `yaml:"heading"`
	Transition  struct {
		Complete string `yaml:"complete"`
		Finished string `yaml:"finished"`
		MovingTo string `yaml:"moving_to"`
	} `yaml:"transition"`
	Summary struct {
		Title    string `yaml:"title"`
		Stages   string `yaml:"stages"`
		Line     string `yaml:"line"`
		ThankYou string `yaml:"thank_you"`
	} `yaml:"summary"`
	Status struct {
		Title        string `yaml:"title"`
		CurrentStage string `yaml:"current_stage"`
		Duration     string `yaml:"duration"`
		Depth        string `yaml:"depth"`
		Engagement   string `yaml:"engagement"`
		Examples     string `yaml:"examples"`
		Progress     string `yaml:"progress"`
		Done         string `yaml:"done"`
		Current      string `yaml:"current"`
		Pending      string `yaml:"pending"`
		Ended        string `yaml:"ended"`
	} `yaml:"status"`
	Apology string `yaml:"apology"`
}

// StageName returns the display name of st.
func (m *Messages) StageName(st stage.Stage) string {
	if n, ok := m.StageNames[string(st)]; ok {
		return n
	}
	return string(st)
}

// Question returns the question for st at depth. Depths past the end of
// the list reuse the last question.
func (m *Messages) Question(st stage.Stage, depth int) string {
	qs := m.Questions[string(st)]
	if len(qs) == 0 {
		return ""
	}
	i := min(max(depth-1, 0), len(qs)-1)
	return qs[i]
}

// #endregion

// #region catalog

// Catalog holds the parsed messages of every language plus the compiled
// templates of every string in them.
type Catalog struct {
	langs map[locale.Language]*Messages
	tmpl  map[string]*template.Template
}

// DefaultCatalog loads the built-in English and Russian catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

// LoadCatalog parses and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	raw := map[string]*Messages{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		langs: make(map[locale.Language]*Messages, len(raw)),
		tmpl:  make(map[string]*template.Template),
	}
	for code, m := range raw {
		lang, err := locale.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("catalog section %q: %w", code, err)
		}
		if err := validate(m); err != nil {
			return nil, fmt.Errorf("catalog section %q: %w", code, err)
		}
		for _, s := range m.templates() {
			if _, ok := c.tmpl[s]; ok {
				continue
			}
			t, err := template.New("").Option("missingkey=error").Parse(s)
			if err != nil {
				return nil, fmt.Errorf("catalog section %q: template %q: %w", code, s, err)
			}
			c.tmpl[s] = t
		}
		c.langs[lang] = m
	}
	if len(c.langs) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return c, nil
}

// Messages returns the section for lang.
func (c *Catalog) Messages(lang locale.Language) (*Messages, error) {
	m, ok := c.langs[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	return m, nil
}

// fill executes a catalog string against data.
func (c *Catalog) fill(s string, data any) (string, error) {
	t, ok := c.tmpl[s]
	if !ok {
		var err error
		if t, err = template.New("").Parse(s); err != nil {
			return "", err
		}
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return b.String(), nil
}

// #endregion

// #region validate

func validate(m *Messages) error {
	var missing []string
	for _, st := range stage.Order {
		if m.StageNames[string(st)] == "" {
			missing = append(missing, "stage_names."+string(st))
		}
		if len(m.Questions[string(st)]) == 0 {
			missing = append(missing, "questions."+string(st))
		}
	}
	for _, p := range controller.Probes {
		if m.Probes[string(p)] == "" {
			missing = append(missing, "probes."+string(p))
		}
	}
	for _, k := range []controller.RecoveryKind{controller.RecoverOffTopic, controller.RecoverConfusion, controller.RecoverResistance} {
		if m.Recover[string(k)] == "" {
			missing = append(missing, "recover."+string(k))
		}
	}
	if len(m.Acknowledge) == 0 {
		missing = append(missing, "acknowledge")
	}
	if m.Apology == "" {
		missing = append(missing, "apology")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// templates lists every template string in m.
func (m *Messages) templates() []string {
	out := []string{
		questionTemplate, m.Heading, m.Apology,
		m.Transition.Complete, m.Transition.Finished, m.Transition.MovingTo,
		m.Summary.Title, m.Summary.Stages, m.Summary.Line, m.Summary.ThankYou,
		m.Status.Title, m.Status.CurrentStage, m.Status.Duration, m.Status.Depth,
		m.Status.Engagement, m.Status.Examples, m.Status.Progress, m.Status.Done,
		m.Status.Current, m.Status.Pending, m.Status.Ended,
	}
	out = append(out, m.Acknowledge...)
	out = append(out, m.Warm...)
	for _, s := range m.Probes {
		out = append(out, s)
	}
	for _, s := range m.Recover {
		out = append(out, s)
	}
	for _, s := range m.Pace {
		out = append(out, s)
	}
	return out
}

// #endregion
