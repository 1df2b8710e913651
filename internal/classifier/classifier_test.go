package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pbaille/autojournal/internal/breaker"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

type scripted struct {
	replies map[string]string
	err     error
	prompts []string
	opts    []Options
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Complete(_ context.Context, prompt string, opts Options) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return "", s.err
	}
	for prefix, reply := range s.replies {
		if strings.HasPrefix(prompt, prefix) {
			return reply, nil
		}
	}
	return "", errors.New("no reply scripted")
}

func TestTasksParseProviderOutput(t *testing.T) {
	p := &scripted{replies: map[string]string{
		"Summarize": "  A page about gophers.\n",
		"Suggest":   "```\nGo, Concurrency , #gophers,, go\n```",
		"Pick":      "**science.**",
		"Write":     "\"Gophers dig.\"",
	}}
	c := New(p, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	summary, err := c.Summarize(ctx, "text", "Title", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "A page about gophers.", summary)

	tags, err := c.Tag(ctx, "text", "Title")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "concurrency", "gophers"}, tags)

	category, err := c.Categorize(ctx, "text", "Title")
	require.NoError(t, err)
	assert.Equal(t, "Science", category)

	note, err := c.AnnotateHighlight(ctx, "passage", "Title")
	require.NoError(t, err)
	assert.Equal(t, "Gophers dig.", note)

	assert.Equal(t, []Options{summaryOptions, tagOptions, categoryOptions, noteOptions}, p.opts)
}

func TestUnknownCategoryBecomesOther(t *testing.T) {
	p := &scripted{replies: map[string]string{"Pick": "Cooking"}}
	c := New(p, nil, zaptest.NewLogger(t))

	category, err := c.Categorize(context.Background(), "text", "Title")
	require.NoError(t, err)
	assert.Equal(t, "Other", category)
}

func TestProviderFailureIsExternal(t *testing.T) {
	p := &scripted{err: errors.New("connection refused")}
	c := New(p, nil, zaptest.NewLogger(t))

	_, err := c.Summarize(context.Background(), "text", "Title", "https://example.com")
	assert.True(t, appErrors.IsExternal(err))

	_, err = New(Unavailable{}, nil, zaptest.NewLogger(t)).Tag(context.Background(), "x", "y")
	assert.True(t, appErrors.IsExternal(err))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestInputsAreTruncated(t *testing.T) {
	p := &scripted{replies: map[string]string{"Pick": "Other"}}
	c := New(p, nil, zaptest.NewLogger(t))

	_, err := c.Categorize(context.Background(), strings.Repeat("é", categoryInputLimit+500), "Title")
	require.NoError(t, err)
	require.Len(t, p.prompts, 1)
	assert.Equal(t, categoryInputLimit, strings.Count(p.prompts[0], "é"))
}

func TestAnthropicProvider(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"hello"}]}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic("secret", "")
	require.NoError(t, err)
	a.WithBaseURL(srv.URL)

	out, err := a.Complete(context.Background(), "prompt", Options{Temperature: 0.3, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, defaultAnthropicModel, got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Equal(t, "prompt", got.Messages[0].Content)
}

func TestAnthropicClientErrorsArePermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad"}}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic("secret", "")
	require.NoError(t, err)
	a.WithBaseURL(srv.URL)

	cfg := breaker.DefaultConfig("anthropic")
	cfg.Backoff = time.Millisecond
	c := New(a, breaker.New(cfg, zaptest.NewLogger(t), nil), zaptest.NewLogger(t))

	_, err = c.Summarize(context.Background(), "text", "Title", "https://example.com")
	assert.True(t, appErrors.IsExternal(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Travel"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("key", "")
	require.NoError(t, err)
	g.WithBaseURL(srv.URL)

	cfg := breaker.DefaultConfig("gemini")
	cfg.Backoff = time.Millisecond
	c := New(g, breaker.New(cfg, zaptest.NewLogger(t), nil), zaptest.NewLogger(t))

	category, err := c.Categorize(context.Background(), "text", "Title")
	require.NoError(t, err)
	assert.Equal(t, "Travel", category)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGeminiRequestShape(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+defaultGeminiModel+":generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini("key", "")
	require.NoError(t, err)
	g.WithBaseURL(srv.URL + "/")

	out, err := g.Complete(context.Background(), "prompt", Options{Temperature: 0.1, MaxTokens: 20})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 20, got.GenerationConfig.MaxOutputTokens)
	assert.Len(t, got.SafetySettings, 4)
	assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("anthropic", "", "")
	require.NoError(t, err)
	assert.Equal(t, "none", p.Name())

	p, err = NewProvider("gemini", "k", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	_, err = NewProvider("openai", "k", "")
	assert.Error(t, err)
}
