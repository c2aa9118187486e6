package codec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

// #region service
// classifyMethod is the full RPC name of the judge's unary classify call.
const classifyMethod = "/interviewer.v1.Judge/Classify"

// ErrMalformedJudgement is returned when the judge reply does not fit the
// fixed classification shape.
var ErrMalformedJudgement = errors.New("codec: malformed judgement")

// JudgeService is the RPC surface of the external judge model.
type JudgeService interface {
	Classify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type judgeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewJudgeServiceClient binds the judge RPC surface to a connection.
func NewJudgeServiceClient(cc grpc.ClientConnInterface) JudgeService {
	return &judgeServiceClient{cc: cc}
}

func (c *judgeServiceClient) Classify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, classifyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion service

// #region client-struct
// JudgeClient is a model-backed classify.Classifier. Length, word count and
// engagement are computed locally; the judge supplies the semantic fields.
type JudgeClient struct {
	conn   *grpc.ClientConn
	client JudgeService
}
// #endregion client-struct

// #region constructor
// NewJudgeClient connects to the judge gRPC server.
func NewJudgeClient(addr string) (*JudgeClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &JudgeClient{
		conn:   conn,
		client: NewJudgeServiceClient(conn),
	}, nil
}

// NewJudgeClientWithService creates a JudgeClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewJudgeClientWithService(svc JudgeService) *JudgeClient {
	return &JudgeClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *JudgeClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region classify
// Classify sends the utterance, the active stage and the prior judgements to
// the judge and folds the reply into a ClassifiedResponse.
func (c *JudgeClient) Classify(ctx context.Context, text string, st stage.Stage, history []classify.ClassifiedResponse) (classify.ClassifiedResponse, error) {
	req, err := buildRequest(text, st, history)
	if err != nil {
		return classify.ClassifiedResponse{}, fmt.Errorf("build classify request: %w", err)
	}

	resp, err := c.client.Classify(ctx, req)
	if err != nil {
		return classify.ClassifiedResponse{}, fmt.Errorf("classify rpc: %w", err)
	}

	out, err := decodeJudgement(resp)
	if err != nil {
		return classify.ClassifiedResponse{}, err
	}

	words := len(strings.Fields(text))
	out.WordCount = words
	out.Length = classify.BucketFor(words)
	if len(history) == 0 {
		out.ContradictsPrior = false
	}
	out.Engagement = classify.EngagementFor(out)
	return out, nil
}
// #endregion classify

// #region wire
func buildRequest(text string, st stage.Stage, history []classify.ClassifiedResponse) (*structpb.Struct, error) {
	prior := make([]any, len(history))
	for i, h := range history {
		prior[i] = map[string]any{
			"length":            string(h.Length),
			"specificity":       string(h.Specificity),
			"contains_example":  h.ContainsExample,
			"describes_process": h.DescribesProcess,
			"on_topic":          h.OnTopic,
		}
	}
	return structpb.NewStruct(map[string]any{
		"text":    text,
		"stage":   string(st),
		"history": prior,
	})
}

func decodeJudgement(s *structpb.Struct) (classify.ClassifiedResponse, error) {
	if s == nil {
		return classify.ClassifiedResponse{}, fmt.Errorf("%w: empty reply", ErrMalformedJudgement)
	}
	f := s.GetFields()

	spec := classify.Specificity(f["specificity"].GetStringValue())
	switch spec {
	case classify.SpecificityGeneric, classify.SpecificitySpecific:
	default:
		return classify.ClassifiedResponse{}, fmt.Errorf("%w: specificity %q", ErrMalformedJudgement, spec)
	}

	signal := classify.Signal(f["signal"].GetStringValue())
	switch signal {
	case "":
		signal = classify.SignalNone
	case classify.SignalNone, classify.SignalConfusion, classify.SignalResistance:
	default:
		return classify.ClassifiedResponse{}, fmt.Errorf("%w: signal %q", ErrMalformedJudgement, signal)
	}

	onTopic, ok := f["on_topic"]
	if !ok {
		return classify.ClassifiedResponse{}, fmt.Errorf("%w: missing on_topic", ErrMalformedJudgement)
	}

	return classify.ClassifiedResponse{
		Specificity:      spec,
		ContainsExample:  f["contains_example"].GetBoolValue(),
		DescribesProcess: f["describes_process"].GetBoolValue(),
		OnTopic:          onTopic.GetBoolValue(),
		Signal:           signal,
		ContradictsPrior: f["contradicts_prior"].GetBoolValue(),
	}, nil
}
// #endregion wire
