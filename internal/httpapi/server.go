// Package httpapi exposes the interview service as JSON over HTTP.
package httpapi

// #region imports
import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/interview"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
)

// #endregion

// #region server

// Options configures the handler.
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Server struct {
	svc *interview.Service
	log *zap.Logger
}

// NewServer returns the routed handler wrapped in request logging and CORS.
//
//	POST   /sessions                  start an interview
//	GET    /sessions/{id}             progress of a session
//	DELETE /sessions/{id}             reset a session
//	POST   /sessions/{id}/messages    answer the current question
//	GET    /sessions/{id}/transcript  stored messages
//	GET    /metrics                   service counters
//	GET    /healthz                   liveness
func NewServer(svc *interview.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, log: logger.Named("http")}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return s.withLogging(c.Handler(mux))
}

// #endregion

// #region dto

type startRequest struct {
	UserID   string `json:"user_id"`
	Locale   string `json:"locale,omitempty"`
	Language string `json:"language,omitempty"`
	Version  string `json:"prompt_version,omitempty"`
	// Resume returns the user's unfinished session instead of opening a new one.
	Resume bool `json:"resume,omitempty"`
}

type startResponse struct {
	SessionID string               `json:"session_id"`
	Resumed   bool                 `json:"resumed,omitempty"`
	Output    interview.TurnOutput `json:"output"`
}

type messageRequest struct {
	Text   string `json:"text"`
	Locale string `json:"locale,omitempty"`
}

type statusResponse struct {
	SessionID       string         `json:"session_id"`
	UserID          string         `json:"user_id"`
	Language        string         `json:"language"`
	PromptVersion   string         `json:"prompt_version"`
	InterviewStage  string         `json:"interview_stage"`
	QuestionDepth   int            `json:"question_depth"`
	Completeness    int            `json:"completeness"`
	EngagementLevel string         `json:"engagement_level"`
	Turn            int            `json:"turn"`
	Terminated      bool           `json:"terminated"`
	Scores          map[string]int `json:"stage_completeness"`
	Report          string         `json:"report"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Stage     string    `json:"stage"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	// Output carries the apology shown to the user when a turn fails.
	Output *interview.TurnOutput `json:"output,omitempty"`
}

// #endregion

// #region routing

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Metrics())
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStart(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}, /sessions/{id}/messages, /sessions/{id}/transcript
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		notFound(w)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleStatus(w, r, id)
		case http.MethodDelete:
			s.handleReset(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch {
	case parts[1] == "messages" && r.Method == http.MethodPost:
		s.handleMessage(w, r, id)
	case parts[1] == "transcript" && r.Method == http.MethodGet:
		s.handleTranscript(w, r, id)
	case parts[1] == "messages" || parts[1] == "transcript":
		methodNotAllowed(w)
	default:
		notFound(w)
	}
}

// #endregion

// #region handlers

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "user_id is required")
		return
	}

	if req.Resume {
		sess, err := s.svc.Active(r.Context(), req.UserID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, startResponse{
				SessionID: sess.ID,
				Resumed:   true,
				Output: interview.TurnOutput{
					InterviewStage: sess.Stage,
					Metadata: interview.Metadata{
						QuestionDepth:   sess.Depth,
						Completeness:    sess.Completeness(),
						EngagementLevel: sess.Engagement,
					},
				},
			})
			return
		case !errors.Is(err, session.ErrNotFound):
			s.fail(w, err, nil)
			return
		}
	}

	out, err := s.svc.Start(r.Context(), interview.StartInput{
		UserID:   req.UserID,
		Locale:   req.Locale,
		Language: req.Language,
		Version:  req.Version,
	})
	if err != nil {
		s.fail(w, err, &out)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: out.SessionID, Output: out})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, id string) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.Turn(r.Context(), interview.TurnInput{SessionID: id, Text: req.Text, Locale: req.Locale})
	if err != nil {
		s.fail(w, err, &out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.svc.Session(r.Context(), id)
	if err != nil {
		s.fail(w, err, nil)
		return
	}
	report, err := s.svc.Status(r.Context(), id)
	if err != nil {
		s.fail(w, err, nil)
		return
	}

	scores := make(map[string]int, len(sess.Scores))
	for st, v := range sess.Scores {
		scores[string(st)] = v
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Language:        string(sess.Language),
		PromptVersion:   string(sess.PromptVersion),
		InterviewStage:  string(sess.Stage),
		QuestionDepth:   sess.Depth,
		Completeness:    sess.Completeness(),
		EngagementLevel: string(sess.Engagement),
		Turn:            sess.Turn,
		Terminated:      sess.Terminated,
		Scores:          scores,
		Report:          report,
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.svc.Reset(r.Context(), id); err != nil {
		s.fail(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.svc.Session(r.Context(), id); err != nil {
		s.fail(w, err, nil)
		return
	}
	msgs, err := s.svc.Transcript(r.Context(), id)
	if err != nil {
		s.fail(w, err, nil)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			Role:      string(m.Role),
			Stage:     string(m.Stage),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": out})
}

// #endregion

// #region helpers

// fail maps service errors to status codes. out, when it has a response,
// is the apology to show the user.
func (s *Server) fail(w http.ResponseWriter, err error, out *interview.TurnOutput) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	body := errorResponse{Error: err.Error()}
	if out != nil && out.Response != "" {
		body.Output = out
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrInvalidTurnOrder):
		return http.StatusConflict
	case errors.Is(err, interview.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// maxBodyBytes caps request bodies; a message is one utterance.
const maxBodyBytes = 1 << 20

// decodeBody reads a size-capped JSON body into v and writes the error
// response itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return false
	}
	badRequest(w, "invalid JSON body")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// #endregion
