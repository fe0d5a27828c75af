package src

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAgent(t *testing.T, server *httptest.Server) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Model = "mistral"
	cfg.GenerateTimeout = 5 * time.Second
	cfg.StartupTimeout = 2 * time.Second
	return &Agent{
		cfg:        cfg,
		baseURL:    server.URL,
		httpClient: server.Client(),
		log:        zap.NewNop().Sugar(),
	}
}

// fakeOllama serves the endpoint subset the agent talks to.
func fakeOllama(t *testing.T, generate func(req ollamaGenerateRequest) ollamaGenerateResponse) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, json.NewEncoder(w).Encode(generate(req)))
	})
	return httptest.NewServer(mux)
}

func TestGenerateCarriesContextToken(t *testing.T) {
	var gotContexts [][]int
	server := fakeOllama(t, func(req ollamaGenerateRequest) ollamaGenerateResponse {
		gotContexts = append(gotContexts, req.Context)
		return ollamaGenerateResponse{Response: "ok", Context: []int{1, 2, 3}, Done: true}
	})
	defer server.Close()

	a := testAgent(t, server)
	ctx := context.Background()

	_, err := a.Generate(ctx, "first", "")
	require.NoError(t, err)
	_, err = a.Generate(ctx, "second", "")
	require.NoError(t, err)

	require.Len(t, gotContexts, 2)
	assert.Nil(t, gotContexts[0], "first request starts with no conversation state")
	assert.Equal(t, []int{1, 2, 3}, gotContexts[1], "second request carries the returned token")
}

func TestGenerateServerErrorIsTransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	_, err := a.Generate(context.Background(), "prompt", "")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "generate", te.Op)
}

func TestEnsureModelPullsWhenMissing(t *testing.T) {
	pulled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var req ollamaPullRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Name)
		pulled = true
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	require.NoError(t, a.EnsureModel(context.Background()))
	assert.True(t, pulled)
}

func TestEnsureModelMatchesLatestTag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("pull must not be called when the model is present")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	require.NoError(t, a.EnsureModel(context.Background()))
}

func TestListModels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral"},{"name":"codellama"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	names, err := a.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mistral", "codellama"}, names)
}

func TestWaitForServerTimesOut(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	a := testAgent(t, server)
	a.cfg.StartupTimeout = 10 * time.Millisecond

	err := a.WaitForServer(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "connect", te.Op)
}

func TestGenerateStreamAssemblesFragments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"hel","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"lo","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"","done":true,"context":[9]}` + "\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	var tokens []string
	out, err := a.GenerateStream(context.Background(), "hi", "", func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, []string{"hel", "lo"}, tokens)
	assert.Equal(t, []int{9}, a.context)
}

func TestAskStreamForwardsTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"an","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"swer","done":true}` + "\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := testAgent(t, server)
	var streamed strings.Builder
	out, err := a.AskStream(context.Background(), "why?", func(tok string) {
		streamed.WriteString(tok)
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "answer", streamed.String())
}
