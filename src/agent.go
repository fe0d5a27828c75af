package src

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Agent owns the connection to the inference server plus the per-session
// conversation state. One Agent serves one CLI invocation; it is not safe
// for concurrent use.
type Agent struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger

	// context is the opaque conversation token the server hands back
	// after each generation. Threading it into the next request keeps
	// the model's memory of the session alive.
	context []int

	tunnel  *Tunnel
	scanner *ProjectScanner
}

// NewAgent builds an agent from config. When an SSH target is configured
// the tunnel is started first and the agent talks to its local end.
func NewAgent(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Agent, error) {
	a := &Agent{
		cfg: cfg,
		log: log,
		// The generate timeout is enforced per request through the
		// context; the client itself stays unbounded so model pulls
		// can run long.
		httpClient: &http.Client{},
	}

	if cfg.SSH != "" {
		tunnel, err := OpenTunnel(ctx, cfg.SSH, cfg.Port, log)
		if err != nil {
			return nil, fmt.Errorf("open ssh tunnel: %w", err)
		}
		a.tunnel = tunnel
		a.baseURL = fmt.Sprintf("http://localhost:%d", tunnel.LocalPort)
	} else {
		a.baseURL = cfg.BaseURL()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	a.scanner = NewProjectScanner(cwd)
	return a, nil
}

// Close tears down the tunnel if one is running.
func (a *Agent) Close() error {
	if a.tunnel != nil {
		return a.tunnel.Close()
	}
	return nil
}

// Scanner exposes the project scanner so commands can build file context.
func (a *Agent) Scanner() *ProjectScanner {
	return a.scanner
}

// Complete is the plain prompt-in, text-out entry point used by the
// convergence loop and the one-shot commands.
func (a *Agent) Complete(ctx context.Context, prompt string) (string, error) {
	return a.Generate(ctx, prompt, "")
}
