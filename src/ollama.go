package src

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama wire types for the endpoints we use: /api/version, /api/tags,
// /api/pull and /api/generate.
type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Context []int  `json:"context,omitempty"`
	Stream  bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Context  []int  `json:"context,omitempty"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// CheckConnection reports whether the inference server answers its
// version endpoint right now.
func (a *Agent) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// WaitForServer polls the version endpoint until the server answers or
// the startup budget runs out.
func (a *Agent) WaitForServer(ctx context.Context) error {
	deadline := time.Now().Add(a.cfg.StartupTimeout)
	for time.Now().Before(deadline) {
		if a.CheckConnection(ctx) {
			return nil
		}
		a.log.Debugw("waiting for inference server", "url", a.baseURL)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return &TransportError{Op: "connect", Err: fmt.Errorf("no response from %s within %s", a.baseURL, a.cfg.StartupTimeout)}
}

// ListModels returns the names the server has available locally.
func (a *Agent) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "tags", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "tags", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// EnsureModel checks that the configured model is present and pulls it if
// not. Pulling a multi-gigabyte model is slow; the pull request is given
// its own generous deadline instead of the generate timeout.
func (a *Agent) EnsureModel(ctx context.Context) error {
	names, err := a.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == a.cfg.Model || strings.TrimSuffix(n, ":latest") == a.cfg.Model {
			return nil
		}
	}

	a.log.Infow("model not present, pulling", "model", a.cfg.Model)
	body, err := json.Marshal(ollamaPullRequest{Name: a.cfg.Model, Stream: false})
	if err != nil {
		return err
	}
	pullCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	req, err := http.NewRequestWithContext(pullCtx, http.MethodPost, a.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "pull", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "pull", Err: fmt.Errorf("failed to pull model %s: status %d", a.cfg.Model, resp.StatusCode)}
	}
	return nil
}

// Generate sends one blocking generation request and returns the full
// response text. The conversation context token returned by the server is
// kept on the agent and threaded into the next call.
func (a *Agent) Generate(ctx context.Context, prompt, system string) (string, error) {
	if !a.CheckConnection(ctx) {
		a.log.Warnw("inference server not answering, waiting", "url", a.baseURL)
		if err := a.WaitForServer(ctx); err != nil {
			return "", err
		}
	}
	if err := a.EnsureModel(ctx); err != nil {
		return "", err
	}

	payload := ollamaGenerateRequest{
		Model:   a.cfg.Model,
		Prompt:  prompt,
		System:  system,
		Context: a.context,
		Stream:  false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerateTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(genCtx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "generate", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "generate", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "generate", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Context) > 0 {
		a.context = out.Context
	}
	a.log.Debugw("generate complete",
		"model", a.cfg.Model,
		"prompt_len", len(prompt),
		"response_len", len(out.Response),
		"duration", time.Since(start))
	return out.Response, nil
}

// GenerateStream is the streaming flavor: the server sends one JSON
// object per line, onToken sees each fragment as it arrives, and the
// assembled text is returned only once the stream reports done. Callers
// that parse the response must use the returned value, never the
// fragments.
func (a *Agent) GenerateStream(ctx context.Context, prompt, system string, onToken func(string)) (string, error) {
	if !a.CheckConnection(ctx) {
		if err := a.WaitForServer(ctx); err != nil {
			return "", err
		}
	}
	if err := a.EnsureModel(ctx); err != nil {
		return "", err
	}

	payload := ollamaGenerateRequest{
		Model:   a.cfg.Model,
		Prompt:  prompt,
		System:  system,
		Context: a.context,
		Stream:  true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerateTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(genCtx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "generate", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "generate", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", &TransportError{Op: "generate", Err: fmt.Errorf("decode stream chunk: %w", err)}
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onToken != nil {
				onToken(chunk.Response)
			}
		}
		if chunk.Done {
			if len(chunk.Context) > 0 {
				a.context = chunk.Context
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &TransportError{Op: "generate", Err: err}
	}
	return full.String(), nil
}
