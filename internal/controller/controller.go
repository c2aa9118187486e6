package controller

// #region imports
import (
	"maps"

	"go.uber.org/zap"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/completeness"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region controller-struct

// Controller applies one classified response to a session state and decides
// what the interviewer does next. It holds no per-session data and is safe
// for concurrent use across sessions.
type Controller struct {
	log *zap.Logger
}

// New creates a controller. A nil logger disables decision logging.
func New(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{log: logger.Named("controller")}
}

// #endregion

// #region step

// Step advances s by one turn. Rules are checked in order:
//
//	terminated     -> ErrTerminated, s untouched
//	fallback       -> ASK_DEEPENING, no tallies, no depth change
//	off topic      -> RECOVER(off_topic)
//	confusion      -> RECOVER(confusion)
//	resistance     -> RECOVER(resistance)
//	otherwise      -> record, then deepen / continue / transition
func (c *Controller) Step(s *State, resp classify.ClassifiedResponse) (Directive, error) {
	if s.Terminated {
		return Directive{}, ErrTerminated
	}
	if err := s.Validate(); err != nil {
		return Directive{}, err
	}

	s.Turn++
	pushWindow(s, resp)
	s.Engagement = EngagementOf(s.Window)

	var d Directive
	switch {
	case resp.Fallback:
		d = c.hold(s, AskDeepening)
		d.Probe = nextProbe(s)
	case !resp.OnTopic:
		d = c.recovery(s, RecoverOffTopic)
	case resp.Signal == classify.SignalConfusion:
		d = c.recovery(s, RecoverConfusion)
	case resp.Signal == classify.SignalResistance:
		d = c.recovery(s, RecoverResistance)
	default:
		d = c.advance(s, resp)
	}

	c.log.Debug("step",
		zap.Int("turn", s.Turn),
		zap.String("kind", string(d.Kind)),
		zap.String("from", string(d.From)),
		zap.String("stage", string(d.Stage)),
		zap.Int("depth", d.Depth),
		zap.Int("completeness", d.Completeness),
		zap.String("engagement", string(d.Engagement)),
		zap.Bool("forced", d.Forced),
	)
	return d, nil
}

// #endregion

// #region hold

// hold builds a directive that leaves stage, depth and tallies as they are.
func (c *Controller) hold(s *State, kind DirectiveKind) Directive {
	return Directive{
		Kind:         kind,
		From:         s.Stage,
		Stage:        s.Stage,
		Depth:        s.Depth,
		Completeness: s.Completeness(),
		Engagement:   s.Engagement,
	}
}

func (c *Controller) recovery(s *State, kind RecoveryKind) Directive {
	d := c.hold(s, Recover)
	d.Recovery = kind
	return d
}

// #endregion

// #region advance

// advance records an on-topic answer and picks the next move. The answer is
// credited to the depth it was given at, before the counter moves.
func (c *Controller) advance(s *State, resp classify.ClassifiedResponse) Directive {
	answered := s.Depth
	tr := completeness.Restore(s.Stage, s.Tallies)
	tr.Record(resp, answered)
	s.Tallies = tr.Tallies()

	score := tr.Score()
	gate := stage.Gate(s.Stage, s.Tallies, score)

	if answered >= stage.MaxDepth {
		if s.Stage == stage.WrapUp {
			if gate.Allowed {
				return c.end(s, score)
			}
			d := c.hold(s, AskDeepening)
			d.Probe = nextProbe(s)
			d.Unmet = gate.Unmet
			return d
		}
		if !gate.Allowed {
			c.log.Info("forced transition",
				zap.String("stage", string(s.Stage)),
				zap.Strings("unmet", gate.Unmet),
			)
		}
		return c.transition(s, score, !gate.Allowed, gate.Unmet)
	}

	s.Depth++

	switch {
	case resp.Shallow():
		d := c.hold(s, AskDeepening)
		d.Probe = nextProbe(s)
		d.Unmet = gate.Unmet
		return d
	case gate.Allowed && s.Stage == stage.WrapUp:
		return c.end(s, score)
	case gate.Allowed:
		return c.transition(s, score, false, nil)
	default:
		d := c.hold(s, AcknowledgeAndContinue)
		d.Unmet = gate.Unmet
		return d
	}
}

// #endregion

// #region transition

func (c *Controller) transition(s *State, score int, forced bool, unmet []string) Directive {
	from := s.Stage
	next, ok := stage.Next(from)
	if !ok {
		return c.end(s, score)
	}
	c.recordScore(s, from, score)

	s.Stage = next
	s.Depth = 1
	s.Tallies = stage.Tallies{}

	return Directive{
		Kind:                 TransitionTo,
		From:                 from,
		Stage:                next,
		Forced:               forced,
		Depth:                1,
		Completeness:         0,
		PreviousCompleteness: score,
		Engagement:           s.Engagement,
		Unmet:                unmet,
	}
}

func (c *Controller) end(s *State, score int) Directive {
	c.recordScore(s, s.Stage, score)
	s.Terminated = true
	return Directive{
		Kind:                 EndInterview,
		From:                 s.Stage,
		Stage:                s.Stage,
		Depth:                s.Depth,
		Completeness:         score,
		PreviousCompleteness: score,
		Engagement:           s.Engagement,
	}
}

func (c *Controller) recordScore(s *State, st stage.Stage, score int) {
	if s.Scores == nil {
		s.Scores = make(map[stage.Stage]int)
	}
	s.Scores[st] = score
}

// #endregion

// #region clone

// Clone returns a deep copy of s so a turn can be computed without touching
// the committed state.
func (s State) Clone() State {
	out := s
	out.Window = append([]classify.ClassifiedResponse(nil), s.Window...)
	out.ProbeUse = maps.Clone(s.ProbeUse)
	out.Scores = maps.Clone(s.Scores)
	return out
}

// #endregion
