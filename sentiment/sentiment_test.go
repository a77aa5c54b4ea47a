package sentiment

import (
	"context"
	"net"
	"testing"

	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeLanguage struct {
	languagepb.UnimplementedLanguageServiceServer

	calls   int
	lastReq *languagepb.AnalyzeSentimentRequest
	score   float32
	mag     float32
	err     error
}

func (f *fakeLanguage) AnalyzeSentiment(_ context.Context, req *languagepb.AnalyzeSentimentRequest) (*languagepb.AnalyzeSentimentResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &languagepb.AnalyzeSentimentResponse{
		DocumentSentiment: &languagepb.Sentiment{Score: f.score, Magnitude: f.mag},
	}, nil
}

func newTestClient(t *testing.T, fake *fakeLanguage) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	languagepb.RegisterLanguageServiceServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client, err := New(context.Background(), option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAnalyze_PassesScoreThrough(t *testing.T) {
	fake := &fakeLanguage{score: 0.8, mag: 1.6}
	client := newTestClient(t, fake)

	res, err := client.Analyze(context.Background(), "this is great")
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 0.8, Magnitude: 1.6}, res)

	doc := fake.lastReq.GetDocument()
	assert.Equal(t, "this is great", doc.GetContent())
	assert.Equal(t, languagepb.Document_PLAIN_TEXT, doc.GetType())
}

func TestAnalyze_EmptyTextSkipsCall(t *testing.T) {
	fake := &fakeLanguage{}
	client := newTestClient(t, fake)

	_, err := client.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, 0, fake.calls)
}

func TestAnalyze_Error(t *testing.T) {
	fake := &fakeLanguage{err: status.Error(codes.PermissionDenied, "language API disabled")}
	client := newTestClient(t, fake)

	_, err := client.Analyze(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, 1, fake.calls)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "positive", Label(0.4))
	assert.Equal(t, "negative", Label(-0.1))
	assert.Equal(t, "neutral", Label(0))
}
