// Package interview runs interview turns: it owns the session lock, the
// store round trip and the collaborators around the controller.
package interview

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/archive"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/logging"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/render"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region options

const (
	defaultClassifierTimeout = 10 * time.Second
	defaultRenderTimeout     = 20 * time.Second
	defaultSessionTimeout    = 180 * time.Minute
	maxKeyInsights           = 3
)

// Options wires a Service. Store, Classifier and Renderer are required.
type Options struct {
	Store      session.Store
	Classifier classify.Classifier
	Renderer   *render.Renderer

	// Optional collaborators.
	TurnLog  *logging.TurnLog
	Archiver archive.Archiver
	Logger   *zap.Logger

	DefaultLanguage   locale.Language
	DefaultVersion    render.Version
	ClassifierTimeout time.Duration
	RenderTimeout     time.Duration
	SessionTimeout    time.Duration
	// InternalNotes adds internal_notes to every turn output.
	InternalNotes bool

	Now func() time.Time
}

// #endregion

// #region service

// Service serializes turns per session and runs them through the
// controller. Different sessions proceed in parallel.
type Service struct {
	store      session.Store
	classifier classify.Classifier
	renderer   *render.Renderer
	turnLog    *logging.TurnLog
	archiver   archive.Archiver
	log        *zap.Logger

	controller *controller.Controller
	detector   *locale.Detector
	locks      *session.Locker
	metrics    Metrics

	defaultLanguage   locale.Language
	defaultVersion    render.Version
	classifierTimeout time.Duration
	renderTimeout     time.Duration
	sessionTimeout    time.Duration
	internalNotes     bool
	now               func() time.Time
}

// New validates opts and returns a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Classifier == nil || opts.Renderer == nil {
		return nil, errors.New("interview: store, classifier and renderer are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:             opts.Store,
		classifier:        opts.Classifier,
		renderer:          opts.Renderer,
		turnLog:           opts.TurnLog,
		archiver:          opts.Archiver,
		log:               logger.Named("interview"),
		controller:        controller.New(logger),
		detector:          locale.NewDetector(opts.DefaultLanguage),
		locks:             session.NewLocker(),
		defaultLanguage:   opts.DefaultLanguage,
		defaultVersion:    opts.DefaultVersion,
		classifierTimeout: opts.ClassifierTimeout,
		renderTimeout:     opts.RenderTimeout,
		sessionTimeout:    opts.SessionTimeout,
		internalNotes:     opts.InternalNotes,
		now:               opts.Now,
	}
	if s.defaultLanguage == "" {
		s.defaultLanguage = locale.English
	}
	if s.defaultVersion == "" {
		s.defaultVersion = render.DefaultVersion
	}
	if s.classifierTimeout <= 0 {
		s.classifierTimeout = defaultClassifierTimeout
	}
	if s.renderTimeout <= 0 {
		s.renderTimeout = defaultRenderTimeout
	}
	if s.sessionTimeout <= 0 {
		s.sessionTimeout = defaultSessionTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Metrics returns a snapshot of the service counters.
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// #endregion

// #region start

// Start opens a session and returns the opening question. The language
// comes from in.Language, which is final, else the locale tag, else the
// default; those two may still be refined by the first message.
func (s *Service) Start(ctx context.Context, in StartInput) (TurnOutput, error) {
	version := s.defaultVersion
	if in.Version != "" {
		v, err := render.ParseVersion(in.Version)
		if err != nil {
			return TurnOutput{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		version = v
	}

	det := locale.Detection{Language: s.defaultLanguage, Source: locale.SourceDefault}
	if in.Language != "" {
		lang, err := locale.Parse(in.Language)
		if err != nil {
			return TurnOutput{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		det = locale.Detection{Language: lang, Source: locale.SourceExplicit}
	} else if in.Locale != "" {
		if d := s.detector.Detect("", in.Locale); d.Source == locale.SourceLocale {
			det = d
		}
	}

	sess := session.New(in.UserID, det.Language, version, s.now())
	sess.LanguageSource = det.Source

	text, err := s.renderer.Opening(sess.Language)
	if err != nil {
		s.metrics.errorsOccurred.Add(1)
		return s.apology(sess), fmt.Errorf("render opening: %w", err)
	}
	if err := s.store.Create(ctx, sess); err != nil {
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("create session failed", zap.String("session", sess.ID), zap.Error(err))
		return s.apology(sess), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.sessionsStarted.Add(1)
	s.appendMessages(ctx, sess.ID, session.Message{Role: session.RoleAgent, Text: text, Stage: sess.Stage, CreatedAt: sess.CreatedAt})

	s.log.Info("session started",
		zap.String("session", sess.ID),
		zap.String("user", sess.UserID),
		zap.String("language", string(sess.Language)),
		zap.String("language_source", string(sess.LanguageSource)),
		zap.String("version", string(sess.PromptVersion)))

	return TurnOutput{
		InterviewStage: sess.Stage,
		Response:       text,
		Metadata: Metadata{
			QuestionDepth:   sess.Depth,
			Completeness:    sess.Completeness(),
			EngagementLevel: sess.Engagement,
		},
		SessionID: sess.ID,
	}, nil
}

// #endregion

// #region turn

// Turn processes one user message. On error the returned output still
// carries the localized apology as its response.
func (s *Service) Turn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	sess, err := s.store.Load(ctx, in.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.metrics.errorsOccurred.Add(1)
		return s.apology(nil), fmt.Errorf("%w: %w", ErrInvalidTurnOrder, err)
	case err != nil:
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("load session failed", zap.String("session", in.SessionID), zap.Error(err))
		return s.apology(nil), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if sess.Terminated {
		s.metrics.errorsOccurred.Add(1)
		return s.apology(sess), fmt.Errorf("%w: session %s already ended", ErrInvalidTurnOrder, sess.ID)
	}

	next := sess.Clone()
	now := s.now().UTC()

	if !next.LanguageLocked() {
		if switched, out, err := s.chooseLanguage(ctx, next, in, now); switched || err != nil {
			return out, err
		}
	}

	resp, classErr := s.classify(ctx, next, in.Text)

	before := struct {
		stage stage.Stage
		depth int
	}{next.Stage, next.Depth}

	dir, err := s.controller.Step(&next.State, resp)
	if err != nil {
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("controller rejected state", zap.String("session", sess.ID), zap.Error(err))
		return s.apology(sess), fmt.Errorf("%w: %w", ErrInvalidTurnOrder, err)
	}
	next.Remember(resp)
	if dir.Kind != controller.Recover && !resp.Fallback {
		next.RecordInsight(before.stage, resp, in.Text)
	}

	text, err := s.render(ctx, next, dir)
	if err != nil {
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("render failed", zap.String("session", sess.ID), zap.Error(err))
		return s.apology(sess), fmt.Errorf("render: %w", err)
	}

	next.UpdatedAt = now
	if err := s.store.Save(ctx, next); err != nil {
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("save session failed", zap.String("session", sess.ID), zap.Error(err))
		return s.apology(sess), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.messagesProcessed.Add(1)

	s.appendMessages(ctx, next.ID,
		session.Message{Role: session.RoleUser, Text: in.Text, Stage: before.stage, CreatedAt: now},
		session.Message{Role: session.RoleAgent, Text: text, Stage: next.Stage, CreatedAt: now},
	)
	s.logTurn(ctx, logging.TurnRecord{
		TurnID:          uuid.New().String(),
		SessionID:       next.ID,
		Turn:            next.Turn,
		Text:            in.Text,
		StageBefore:     before.stage,
		DepthBefore:     before.depth,
		Classified:      resp,
		Fallback:        resp.Fallback,
		ClassifierError: errString(classErr),
		Directive:       dir,
	})

	if dir.Kind == controller.EndInterview {
		s.metrics.sessionsCompleted.Add(1)
		s.archive(ctx, next, archive.ReasonCompleted)
	}

	return s.output(next, dir, text), nil
}

// chooseLanguage settles the session language on the first message. A
// message that only carries a language instruction sets the language, locks
// it, and repeats the opening question without counting as an answer.
func (s *Service) chooseLanguage(ctx context.Context, sess *session.Session, in TurnInput, now time.Time) (bool, TurnOutput, error) {
	det := s.detector.Detect(in.Text, in.Locale)
	switch {
	case det.Source == locale.SourceExplicit:
	case sess.LanguageSource == locale.SourceDefault && det.Source != locale.SourceDefault:
	default:
		return false, TurnOutput{}, nil
	}
	changed := det.Language != sess.Language
	sess.Language = det.Language
	sess.LanguageSource = det.Source
	if changed {
		s.log.Info("session language chosen",
			zap.String("session", sess.ID),
			zap.String("language", string(det.Language)),
			zap.String("source", string(det.Source)))
	}

	if det.Source != locale.SourceExplicit || locale.StripInstruction(in.Text) != "" {
		return false, TurnOutput{}, nil
	}

	text, err := s.renderer.Opening(sess.Language)
	if err != nil {
		s.metrics.errorsOccurred.Add(1)
		return true, s.apology(sess), fmt.Errorf("render opening: %w", err)
	}
	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		s.metrics.errorsOccurred.Add(1)
		s.log.Error("save session failed", zap.String("session", sess.ID), zap.Error(err))
		return true, s.apology(sess), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.messagesProcessed.Add(1)
	s.appendMessages(ctx, sess.ID,
		session.Message{Role: session.RoleUser, Text: in.Text, Stage: sess.Stage, CreatedAt: now},
		session.Message{Role: session.RoleAgent, Text: text, Stage: sess.Stage, CreatedAt: now},
	)
	return true, TurnOutput{
		InterviewStage: sess.Stage,
		Response:       text,
		Metadata: Metadata{
			QuestionDepth:   sess.Depth,
			Completeness:    sess.Completeness(),
			EngagementLevel: sess.Engagement,
		},
		SessionID: sess.ID,
	}, nil
}

// classify runs the classifier under its timeout. Any failure yields the
// fallback classification together with an ErrClassificationUnavailable.
func (s *Service) classify(ctx context.Context, sess *session.Session, text string) (classify.ClassifiedResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, s.classifierTimeout)
	defer cancel()

	s.metrics.classifierCalls.Add(1)
	resp, err := s.classifier.Classify(cctx, text, sess.Stage, sess.Classified)
	if err == nil {
		return resp, nil
	}
	s.metrics.classifierErrors.Add(1)
	s.log.Warn("classifier unavailable, using fallback",
		zap.String("session", sess.ID),
		zap.String("stage", string(sess.Stage)),
		zap.Error(err))
	return classify.FallbackResponse(), fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
}

func (s *Service) render(ctx context.Context, sess *session.Session, dir controller.Directive) (string, error) {
	rctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()
	return s.renderer.Render(rctx, render.Request{
		Directive: dir,
		Language:  sess.Language,
		Version:   sess.PromptVersion,
		Scores:    sess.Scores,
	})
}

func (s *Service) output(sess *session.Session, dir controller.Directive, text string) TurnOutput {
	out := TurnOutput{
		InterviewStage: dir.Stage,
		Response:       text,
		Metadata: Metadata{
			QuestionDepth:   dir.Depth,
			Completeness:    dir.Completeness,
			EngagementLevel: dir.Engagement,
		},
		SessionID: sess.ID,
		Directive: dir,
		Done:      dir.Kind == controller.EndInterview,
	}
	if s.internalNotes {
		out.InternalNotes = notes(sess, dir)
	}
	return out
}

func notes(sess *session.Session, dir controller.Directive) *InternalNotes {
	n := &InternalNotes{
		KeyInsights:     []string{},
		FollowUpNeeded:  append([]string{}, dir.Unmet...),
		RespondentState: controller.RespondentState(dir.Engagement),
	}
	if k := len(sess.Classified); k > 0 && sess.Classified[k-1].ContradictsPrior {
		n.FollowUpNeeded = append(n.FollowUpNeeded, "reconcile contradiction with earlier answer")
	}
	from := dir.Stage
	if dir.From != "" {
		from = dir.From
	}
	if in, ok := sess.Insights[from]; ok {
		ex := in.Examples
		if len(ex) > maxKeyInsights {
			ex = ex[len(ex)-maxKeyInsights:]
		}
		n.KeyInsights = append(n.KeyInsights, ex...)
	}
	return n
}

// apology is the output used on every unrecoverable error. sess may be nil
// when the session could not be loaded.
func (s *Service) apology(sess *session.Session) TurnOutput {
	lang := s.defaultLanguage
	out := TurnOutput{}
	if sess != nil {
		lang = sess.Language
		out.InterviewStage = sess.Stage
		out.SessionID = sess.ID
		out.Metadata = Metadata{
			QuestionDepth:   sess.Depth,
			Completeness:    sess.Completeness(),
			EngagementLevel: sess.Engagement,
		}
	}
	out.Response = s.renderer.Apology(lang)
	return out
}

// #endregion

// #region side-effects

func (s *Service) appendMessages(ctx context.Context, id string, msgs ...session.Message) {
	if err := s.store.AppendMessages(ctx, id, msgs...); err != nil {
		s.log.Warn("append transcript failed", zap.String("session", id), zap.Error(err))
	}
}

func (s *Service) logTurn(ctx context.Context, rec logging.TurnRecord) {
	if s.turnLog == nil {
		return
	}
	if err := s.turnLog.LogRecord(ctx, rec); err != nil {
		s.log.Warn("turn log write failed", zap.String("session", rec.SessionID), zap.Error(err))
	}
}

func (s *Service) archive(ctx context.Context, sess *session.Session, reason string) {
	if s.archiver == nil {
		return
	}
	msgs, err := s.store.Messages(ctx, sess.ID)
	if err != nil {
		s.log.Warn("read transcript for archive failed", zap.String("session", sess.ID), zap.Error(err))
	}
	where, err := s.archiver.Archive(ctx, archive.Build(sess, msgs, reason, s.now()))
	if err != nil {
		s.log.Warn("archive failed", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	s.log.Info("session archived", zap.String("session", sess.ID), zap.String("reason", reason), zap.String("location", where))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// #endregion

// #region queries

// Session returns the stored session.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTurnOrder, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return sess, nil
}

// Active returns the user's unfinished session, if any.
func (s *Service) Active(ctx context.Context, userID string) (*session.Session, error) {
	sess, err := s.store.ActiveForUser(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return sess, nil
}

// Transcript returns the stored messages of a session.
func (s *Service) Transcript(ctx context.Context, id string) ([]session.Message, error) {
	msgs, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return msgs, nil
}

// Status renders the progress report of a session in its language.
func (s *Service) Status(ctx context.Context, id string) (string, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderer.Status(sess.Language, render.StatusView{
		Stage:        sess.Stage,
		Depth:        sess.Depth,
		Completeness: sess.Completeness(),
		Engagement:   sess.Engagement,
		Examples:     sess.ExampleCount(),
		Minutes:      int(math.Round(sess.UpdatedAt.Sub(sess.CreatedAt).Minutes())),
		Scores:       sess.Scores,
		Terminated:   sess.Terminated,
	})
}

// #endregion

// #region maintenance

// Export archives a session on demand, finished or not, and returns where
// the document went.
func (s *Service) Export(ctx context.Context, id string) (string, error) {
	if s.archiver == nil {
		return "", errors.New("interview: no archiver configured")
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Session(ctx, id)
	if err != nil {
		return "", err
	}
	msgs, err := s.store.Messages(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	where, err := s.archiver.Archive(ctx, archive.Build(sess, msgs, archive.ReasonManual, s.now()))
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", id, err)
	}
	return where, nil
}

// Reset deletes a session so the user can start over.
func (s *Service) Reset(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.log.Info("session reset", zap.String("session", id))
	return nil
}

// ReapExpired archives and deletes unfinished sessions idle longer than
// the session timeout and returns how many were removed.
func (s *Service) ReapExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.sessionTimeout)
	expired, err := s.store.Expired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	n := 0
	for _, candidate := range expired {
		ok, err := s.reap(ctx, candidate.ID, cutoff)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	s.metrics.sessionsExpired.Add(int64(n))
	if n > 0 {
		s.log.Info("reaped expired sessions", zap.Int("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// reap rechecks the session under its lock, since a turn may have landed
// after it was listed.
func (s *Service) reap(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if sess.Terminated || !sess.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	s.archive(ctx, sess, archive.ReasonExpired)
	if err := s.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return true, nil
}

// #endregion
