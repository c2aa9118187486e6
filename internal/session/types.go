package session

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/render"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #endregion

// #region errors

// ErrNotFound is returned when no session has the requested id.
var ErrNotFound = errors.New("session: not found")

// #endregion

// #region limits

const (
	// MaxClassified bounds the classifier history kept for contradiction checks.
	MaxClassified = 20
	// DefaultMaxHistory bounds the stored message transcript.
	DefaultMaxHistory = 100

	excerptRunes = 280
)

// #endregion

// #region insights

// Insights are the excerpts collected for one stage.
type Insights struct {
	Examples     []string `json:"examples,omitempty"`
	Processes    []string `json:"processes,omitempty"`
	FailureModes []string `json:"failure_modes,omitempty"`
}

// #endregion

// #region session

// Session is one interview. The embedded controller state is the part the
// controller mutates; everything else is owned by the collaborator layer.
type Session struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Language       locale.Language `json:"language"`
	LanguageSource locale.Source   `json:"language_source,omitempty"`
	PromptVersion  render.Version  `json:"prompt_version"`

	controller.State

	Insights   map[stage.Stage]*Insights     `json:"insights,omitempty"`
	Classified []classify.ClassifiedResponse `json:"classified,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New starts a session at the first stage. Language and prompt version are
// fixed here for the session lifetime.
func New(userID string, lang locale.Language, version render.Version, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:            uuid.New().String(),
		UserID:        userID,
		Language:      lang,
		PromptVersion: version,
		State:         controller.NewState(),
		Insights:      make(map[stage.Stage]*Insights),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State = s.State.Clone()
	out.Classified = append([]classify.ClassifiedResponse(nil), s.Classified...)
	if s.Insights != nil {
		out.Insights = make(map[stage.Stage]*Insights, len(s.Insights))
		for st, in := range s.Insights {
			cp := Insights{
				Examples:     append([]string(nil), in.Examples...),
				Processes:    append([]string(nil), in.Processes...),
				FailureModes: append([]string(nil), in.FailureModes...),
			}
			out.Insights[st] = &cp
		}
	}
	return &out
}

// Remember appends resp to the bounded classifier history.
func (s *Session) Remember(resp classify.ClassifiedResponse) {
	s.Classified = append(s.Classified, resp)
	if over := len(s.Classified) - MaxClassified; over > 0 {
		s.Classified = append([]classify.ClassifiedResponse(nil), s.Classified[over:]...)
	}
}

// RecordInsight files an excerpt of text under st according to the flags
// on resp.
func (s *Session) RecordInsight(st stage.Stage, resp classify.ClassifiedResponse, text string) {
	if !resp.ContainsExample && !resp.DescribesProcess {
		return
	}
	if s.Insights == nil {
		s.Insights = make(map[stage.Stage]*Insights)
	}
	in, ok := s.Insights[st]
	if !ok {
		in = &Insights{}
		s.Insights[st] = in
	}
	ex := excerpt(text)
	if resp.ContainsExample {
		in.Examples = append(in.Examples, ex)
		if st == stage.FailureModes {
			in.FailureModes = append(in.FailureModes, ex)
		}
	}
	if resp.DescribesProcess {
		in.Processes = append(in.Processes, ex)
	}
}

// LanguageLocked reports whether the session language is settled: chosen
// explicitly at start or by an instruction, or fixed by the first answer.
func (s *Session) LanguageLocked() bool {
	return s.Turn > 0 || s.LanguageSource == locale.SourceExplicit
}

// ExampleCount totals the examples collected across stages.
func (s *Session) ExampleCount() int {
	n := 0
	for _, in := range s.Insights {
		n += len(in.Examples)
	}
	return n
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	r := []rune(text)
	return string(r[:excerptRunes]) + "…"
}

func (s *Session) marshal() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session %s: %w", s.ID, err)
	}
	return string(b), nil
}

// #endregion

// #region message

// Role marks who wrote a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one transcript entry.
type Message struct {
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Stage     stage.Stage `json:"stage"`
	CreatedAt time.Time   `json:"created_at"`
}

// #endregion

// #region interfaces

// Store persists sessions and their transcripts.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]*Session, error)
	ActiveForUser(ctx context.Context, userID string) (*Session, error)
	AppendMessages(ctx context.Context, id string, msgs ...Message) error
	Messages(ctx context.Context, id string) ([]Message, error)
	// Expired lists unfinished sessions idle since before cutoff.
	Expired(ctx context.Context, cutoff time.Time) ([]*Session, error)
	Close() error
}

// #endregion
