package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
)

type fakeOpenAI struct {
	chatReply  string
	chatFails  int32 // number of leading chat calls answered with 500
	chatCalls  atomic.Int32
	embedCalls atomic.Int32
	lastChat   atomic.Value // string: raw request body
}

func (f *fakeOpenAI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		n := f.chatCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.lastChat.Store(string(body))

		w.Header().Set("Content-Type", "application/json")
		if n <= f.chatFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.chatReply},
				"finish_reason": "stop",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		f.embedCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[0.1,0.2,0.3],"index":0}],"model":"text-embedding-3-small","usage":{"prompt_tokens":1,"total_tokens":1}}`))
	})
	return mux
}

func newTestProvider(t *testing.T, fake *fakeOpenAI) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/v1"
	cfg.APIKey = "sk-test"
	cfg.MaxRetries = 2
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestProvider_Generate(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "Plan: run 3x per week"}
	p := newTestProvider(t, fake)

	out, err := p.Generate(context.Background(), "plan a marathon", nil)
	require.NoError(t, err)
	assert.Equal(t, "Plan: run 3x per week", out)
	assert.Contains(t, fake.lastChat.Load().(string), "plan a marathon")
}

func TestProvider_GenerateWithImage(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "a whiteboard"}
	p := newTestProvider(t, fake)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	_, err := p.Generate(context.Background(), "what is this", png)
	require.NoError(t, err)
	assert.Contains(t, fake.lastChat.Load().(string), "data:image/png;base64,")
}

func TestProvider_RetriesTransientFailure(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "ok", chatFails: 1}
	p := newTestProvider(t, fake)

	out, err := p.Generate(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), fake.chatCalls.Load())
}

func TestProvider_GenerateFailureIsCollaboratorError(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "never", chatFails: 10}
	p := newTestProvider(t, fake)

	_, err := p.Generate(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.True(t, aierrors.IsCollaborator(err))
	assert.Equal(t, int32(2), fake.chatCalls.Load())
}

func TestProvider_CheckSafety(t *testing.T) {
	t.Run("ParsesFencedVerdict", func(t *testing.T) {
		fake := &fakeOpenAI{chatReply: "```json\n{\"isSafe\":true,\"sanitizedInput\":\"learn go\",\"reasoning\":\"benign\",\"flaggedContent\":[]}\n```"}
		p := newTestProvider(t, fake)

		v, err := p.CheckSafety(context.Background(), "learn go")
		require.NoError(t, err)
		assert.True(t, v.IsSafe)
		assert.Equal(t, "learn go", v.SanitizedInput)
		assert.True(t, strings.Contains(fake.lastChat.Load().(string), "content safety filter"))
	})

	t.Run("MissingIsSafe", func(t *testing.T) {
		fake := &fakeOpenAI{chatReply: `{"safe":true,"reasoning":"benign"}`}
		p := newTestProvider(t, fake)

		_, err := p.CheckSafety(context.Background(), "learn go")
		require.Error(t, err)
		assert.True(t, aierrors.IsMalformed(err))
	})

	t.Run("ExplicitUnsafe", func(t *testing.T) {
		fake := &fakeOpenAI{chatReply: `{"isSafe":false,"reasoning":"violence","flaggedContent":["hurt"]}`}
		p := newTestProvider(t, fake)

		v, err := p.CheckSafety(context.Background(), "hurt someone")
		require.NoError(t, err)
		assert.False(t, v.IsSafe)
		assert.Equal(t, []string{"hurt"}, v.FlaggedContent)
	})

	t.Run("MalformedVerdict", func(t *testing.T) {
		fake := &fakeOpenAI{chatReply: "I think it is fine"}
		p := newTestProvider(t, fake)

		_, err := p.CheckSafety(context.Background(), "learn go")
		require.Error(t, err)
		assert.True(t, aierrors.IsMalformed(err))
	})
}

func TestProvider_Embed(t *testing.T) {
	fake := &fakeOpenAI{}
	p := newTestProvider(t, fake)

	emb, err := p.Embed(context.Background(), "deep work", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, 3, emb.Dimension)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)
	assert.Equal(t, int32(1), fake.embedCalls.Load())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChatModel = ""

	_, err := NewProvider(cfg)
	assert.Error(t, err)
}
