package codec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region mock
type mockJudgeService struct {
	resp *structpb.Struct
	err  error

	lastReq *structpb.Struct
}

func (m *mockJudgeService) Classify(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.lastReq = in
	return m.resp, m.err
}

// fakeConn satisfies grpc.ClientConnInterface for exercising the RPC binding.
type fakeConn struct {
	grpc.ClientConnInterface

	method string
	reply  *structpb.Struct
	err    error
}

func (f *fakeConn) Invoke(_ context.Context, method string, _ any, reply any, _ ...grpc.CallOption) error {
	f.method = method
	if f.err != nil {
		return f.err
	}
	proto.Merge(reply.(proto.Message), f.reply)
	return nil
}

func judgement(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

// #endregion mock

// #region constructor-tests
func TestNewJudgeClient(t *testing.T) {
	client, err := NewJudgeClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewJudgeClientWithService(t *testing.T) {
	c := NewJudgeClientWithService(&mockJudgeService{})
	if c == nil || c.client == nil {
		t.Fatal("expected non-nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without connection: %v", err)
	}
}

// #endregion constructor-tests

// #region classify-tests
func TestClassify_Success(t *testing.T) {
	mock := &mockJudgeService{
		resp: judgement(t, map[string]any{
			"specificity":      "specific",
			"contains_example": true,
			"on_topic":         true,
			"signal":           "none",
		}),
	}
	c := NewJudgeClientWithService(mock)
	text := strings.Repeat("detail ", 320)

	got, err := c.Classify(context.Background(), text, stage.Operations, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WordCount != 320 || got.Length != classify.LengthLong {
		t.Errorf("length computed locally: got %d/%q", got.WordCount, got.Length)
	}
	if !got.ContainsExample || !got.OnTopic || got.Specificity != classify.SpecificitySpecific {
		t.Errorf("judge fields not mapped: %+v", got)
	}
	if got.Engagement != classify.EngagementHigh {
		t.Errorf("engagement: got %q, want high", got.Engagement)
	}

	if st := mock.lastReq.GetFields()["stage"].GetStringValue(); st != "operations" {
		t.Errorf("request stage: got %q", st)
	}
}

func TestClassify_SendsHistory(t *testing.T) {
	mock := &mockJudgeService{
		resp: judgement(t, map[string]any{"specificity": "generic", "on_topic": true, "contradicts_prior": true}),
	}
	c := NewJudgeClientWithService(mock)
	history := []classify.ClassifiedResponse{{Length: classify.LengthShort, Specificity: classify.SpecificityGeneric}}

	got, err := c.Classify(context.Background(), "actually no", stage.Profiling, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.ContradictsPrior || got.Signal != classify.SignalNone {
		t.Errorf("got %+v", got)
	}
	prior := mock.lastReq.GetFields()["history"].GetListValue().GetValues()
	if len(prior) != 1 {
		t.Fatalf("history entries: got %d, want 1", len(prior))
	}
	if l := prior[0].GetStructValue().GetFields()["length"].GetStringValue(); l != "short" {
		t.Errorf("history length: got %q", l)
	}
}

func TestClassify_ContradictionNeedsHistory(t *testing.T) {
	mock := &mockJudgeService{
		resp: judgement(t, map[string]any{"specificity": "specific", "on_topic": true, "contradicts_prior": true}),
	}
	got, err := NewJudgeClientWithService(mock).Classify(context.Background(), "actually", stage.Profiling, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContradictsPrior {
		t.Error("contradiction reported without history")
	}
}

func TestClassify_Error(t *testing.T) {
	mock := &mockJudgeService{err: errors.New("rpc failed")}
	c := NewJudgeClientWithService(mock)

	_, err := c.Classify(context.Background(), "text", stage.Greeting, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, mock.err) {
		t.Errorf("expected wrapped rpc error, got: %v", err)
	}
}

func TestClassify_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"bad-specificity", map[string]any{"specificity": "vague", "on_topic": true}},
		{"bad-signal", map[string]any{"specificity": "specific", "on_topic": true, "signal": "anger"}},
		{"missing-on-topic", map[string]any{"specificity": "specific"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewJudgeClientWithService(&mockJudgeService{resp: judgement(t, tt.fields)})
			_, err := c.Classify(context.Background(), "text", stage.Greeting, nil)
			if !errors.Is(err, ErrMalformedJudgement) {
				t.Errorf("got %v, want ErrMalformedJudgement", err)
			}
		})
	}
}

func TestClassify_NilReply(t *testing.T) {
	c := NewJudgeClientWithService(&mockJudgeService{})
	if _, err := c.Classify(context.Background(), "text", stage.Greeting, nil); !errors.Is(err, ErrMalformedJudgement) {
		t.Errorf("got %v, want ErrMalformedJudgement", err)
	}
}

// #endregion classify-tests

// #region binding-tests
func TestJudgeServiceClient_Invoke(t *testing.T) {
	conn := &fakeConn{reply: judgement(t, map[string]any{"specificity": "specific", "on_topic": false})}
	c := NewJudgeClientWithService(NewJudgeServiceClient(conn))

	got, err := c.Classify(context.Background(), "my cat likes boxes", stage.Essence, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.method != classifyMethod {
		t.Errorf("method: got %q, want %q", conn.method, classifyMethod)
	}
	if got.OnTopic {
		t.Error("expected off-topic judgement")
	}
}

func TestJudgeServiceClient_InvokeError(t *testing.T) {
	conn := &fakeConn{err: errors.New("unavailable")}
	c := NewJudgeClientWithService(NewJudgeServiceClient(conn))
	if _, err := c.Classify(context.Background(), "x", stage.Essence, nil); !errors.Is(err, conn.err) {
		t.Errorf("got %v, want wrapped invoke error", err)
	}
}

// #endregion binding-tests
