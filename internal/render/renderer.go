package render

// #region imports
import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region renderer

// fields is the data every catalog template is executed against.
type fields struct {
	StageName    string
	Completeness int
	Depth        int
	Previous     int
	Question     string
	Probe        string
	Mark         string
	Minutes      int
	Engagement   string
	Examples     int
}

// Renderer turns directives into interviewer messages.
type Renderer struct {
	catalog *Catalog
	gen     Generator
	log     *zap.Logger
}

// New creates a renderer. gen may be nil, in which case catalog text is
// returned as is.
func New(cat *Catalog, gen Generator, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{catalog: cat, gen: gen, log: logger.Named("render")}
}

// #endregion

// #region render

// Render phrases d in the session language using the session's pinned
// template version.
func (r *Renderer) Render(ctx context.Context, req Request) (string, error) {
	m, err := r.catalog.Messages(req.Language)
	if err != nil {
		return "", err
	}
	style := StyleOf(req.Version)
	d := req.Directive
	f := fields{
		StageName:    m.StageName(d.Stage),
		Completeness: d.Completeness,
		Depth:        d.Depth,
		Previous:     d.PreviousCompleteness,
		Question:     m.Question(d.Stage, d.Depth),
		Probe:        m.Probes[string(controller.ProbeBeginnerView)],
	}

	var parts []string
	add := func(tmpl string) error {
		if tmpl == "" {
			return nil
		}
		s, err := r.catalog.fill(tmpl, f)
		if err != nil {
			return err
		}
		parts = append(parts, s)
		return nil
	}

	switch d.Kind {
	case controller.AskDeepening:
		err = r.ask(m, style, d, add)
	case controller.AcknowledgeAndContinue:
		err = r.acknowledge(m, style, d, add)
	case controller.Recover:
		err = r.recovery(m, style, d, add)
	case controller.TransitionTo:
		err = r.transition(m, style, d, &f, add)
	case controller.EndInterview:
		return r.summary(m, req.Scores)
	default:
		return "", fmt.Errorf("render: unknown directive %q", d.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", d.Kind, err)
	}

	text := strings.Join(parts, "\n\n")
	if style.Polish && r.gen != nil && d.Kind != controller.TransitionTo {
		text = r.polish(ctx, req, text)
	}
	return text, nil
}

func (r *Renderer) ask(m *Messages, style Style, d controller.Directive, add func(string) error) error {
	if style.Heading {
		if err := add(m.Heading); err != nil {
			return err
		}
	}
	if style.Pace {
		if err := add(m.Pace[string(d.Engagement)]); err != nil {
			return err
		}
	}
	probe := d.Probe
	if probe == "" {
		probe = controller.ProbeExample
	}
	return add(m.Probes[string(probe)])
}

func (r *Renderer) acknowledge(m *Messages, style Style, d controller.Directive, add func(string) error) error {
	ack := m.Acknowledge[d.Depth%len(m.Acknowledge)]
	if err := add(ack); err != nil {
		return err
	}
	if style.Warm && d.Engagement == classify.EngagementHigh && len(m.Warm) > 0 {
		if err := add(m.Warm[d.Depth%len(m.Warm)]); err != nil {
			return err
		}
	}
	if style.Pace {
		if err := add(m.Pace[string(d.Engagement)]); err != nil {
			return err
		}
	}
	return add(questionTemplate)
}

func (r *Renderer) recovery(m *Messages, _ Style, d controller.Directive, add func(string) error) error {
	if err := add(m.Recover[string(d.Recovery)]); err != nil {
		return err
	}
	if d.Recovery == controller.RecoverResistance {
		return nil
	}
	return add(questionTemplate)
}

func (r *Renderer) transition(m *Messages, style Style, d controller.Directive, f *fields, add func(string) error) error {
	if style.Heading {
		if err := add(m.Transition.Complete); err != nil {
			return err
		}
		if err := add(m.Transition.Finished); err != nil {
			return err
		}
	}
	if err := add(m.Transition.MovingTo); err != nil {
		return err
	}
	f.Question = m.Question(d.Stage, 1)
	return add(questionTemplate)
}

// #endregion

// #region summary

// Mark grades a final stage score: ✅ at 80 and above, ⚠️ at 50 and above,
// ❌ below.
func Mark(score int) string {
	switch {
	case score >= stage.DefaultMinCompleteness:
		return "✅"
	case score >= 50:
		return "⚠️"
	default:
		return "❌"
	}
}

func (r *Renderer) summary(m *Messages, scores map[stage.Stage]int) (string, error) {
	lines := []string{m.Summary.Title, "", m.Summary.Stages}
	for _, st := range stage.Order {
		score := scores[st]
		line, err := r.catalog.fill(m.Summary.Line, fields{
			StageName:    m.StageName(st),
			Completeness: score,
			Mark:         Mark(score),
		})
		if err != nil {
			return "", fmt.Errorf("render summary: %w", err)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", m.Summary.ThankYou)
	return strings.Join(lines, "\n"), nil
}

// #endregion

// #region status

// Status renders the progress report.
func (r *Renderer) Status(lang locale.Language, v StatusView) (string, error) {
	m, err := r.catalog.Messages(lang)
	if err != nil {
		return "", err
	}
	f := fields{
		StageName:    m.StageName(v.Stage),
		Completeness: v.Completeness,
		Depth:        v.Depth,
		Minutes:      v.Minutes,
		Engagement:   string(v.Engagement),
		Examples:     v.Examples,
	}

	var lines []string
	for _, t := range []string{m.Status.Title, "", m.Status.CurrentStage, m.Status.Duration, m.Status.Depth, m.Status.Engagement, m.Status.Examples, "", m.Status.Progress} {
		s, err := r.catalog.fill(t, f)
		if err != nil {
			return "", fmt.Errorf("render status: %w", err)
		}
		lines = append(lines, s)
	}

	current := stage.Ordinal(v.Stage)
	for _, st := range stage.Order {
		row := fields{StageName: m.StageName(st), Completeness: v.Scores[st]}
		tmpl := m.Status.Pending
		switch ord := stage.Ordinal(st); {
		case ord < current || (ord == current && v.Terminated):
			tmpl = m.Status.Done
		case ord == current:
			tmpl = m.Status.Current
			row.Completeness = v.Completeness
		}
		s, err := r.catalog.fill(tmpl, row)
		if err != nil {
			return "", fmt.Errorf("render status: %w", err)
		}
		lines = append(lines, s)
	}
	if v.Terminated {
		lines = append(lines, "", m.Status.Ended)
	}
	return strings.Join(lines, "\n"), nil
}

// #endregion

// #region apology

// Apology returns the generic error message for lang, falling back to
// English.
func (r *Renderer) Apology(lang locale.Language) string {
	if m, err := r.catalog.Messages(lang); err == nil {
		return m.Apology
	}
	if m, err := r.catalog.Messages(locale.English); err == nil {
		return m.Apology
	}
	return "Sorry, something went wrong. Please try again."
}

// Opening returns the first question of the interview.
func (r *Renderer) Opening(lang locale.Language) (string, error) {
	m, err := r.catalog.Messages(lang)
	if err != nil {
		return "", err
	}
	return m.Question(stage.First(), 1), nil
}

// StageName returns the localized display name of st.
func (r *Renderer) StageName(lang locale.Language, st stage.Stage) string {
	if m, err := r.catalog.Messages(lang); err == nil {
		return m.StageName(st)
	}
	return string(st)
}

// #endregion

// #region polish

// polish asks the generator to rephrase draft. Any failure falls back to
// the draft.
func (r *Renderer) polish(ctx context.Context, req Request, draft string) string {
	system := systemPrompt(req)
	out, err := r.gen.Generate(ctx, system, draft)
	if err != nil {
		r.log.Warn("generator failed, using catalog text", zap.Error(err))
		return draft
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return draft
	}
	return out
}

func systemPrompt(req Request) string {
	d := req.Directive
	var b strings.Builder
	b.WriteString("You are a professional interviewer extracting expert knowledge. ")
	fmt.Fprintf(&b, "Reply only in language %q. ", req.Language)
	fmt.Fprintf(&b, "Current stage: %s, question depth %d of %d. ", d.Stage, d.Depth, stage.MaxDepth)
	fmt.Fprintf(&b, "Intent: %s", d.Kind)
	if d.Probe != "" {
		fmt.Fprintf(&b, " (%s)", d.Probe)
	}
	if d.Recovery != "" {
		fmt.Fprintf(&b, " (%s)", d.Recovery)
	}
	switch d.Engagement {
	case classify.EngagementHigh:
		b.WriteString(". The respondent is engaged; keep a brisk pace.")
	case classify.EngagementLow:
		b.WriteString(". The respondent seems tired; be gentle and brief.")
	default:
		b.WriteString(".")
	}
	b.WriteString(" Rephrase the draft message naturally, keep its meaning, ask exactly one question.")
	return b.String()
}

// #endregion
