package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"draftflow/pkg/config"
	providertypes "draftflow/pkg/provider/types"
)

// ErrUnavailable is returned when the backend could not be built.
var ErrUnavailable = errors.New("provider unavailable")

// Factory builds a backend on first use.
type Factory func(ctx context.Context) (Client, error)

// Status is a snapshot of Generator health for status endpoints.
type Status struct {
	Provider  string                   `json:"provider"`
	Ready     bool                     `json:"ready"`
	Calls     int64                    `json:"calls"`
	Failures  int64                    `json:"failures"`
	LastOKAt  time.Time                `json:"last_ok_at,omitzero"`
	LastError string                   `json:"last_error,omitempty"`
	Usage     providertypes.TokenUsage `json:"usage"`
}

// Generator adapts a Client to the workflow's text collaborator. The backend
// is built once on first use and calls are serialized.
type Generator struct {
	providerID string
	factory    Factory
	log        *slog.Logger

	mu          sync.Mutex
	initialized bool
	initErr     error
	client      Client
	status      Status
}

// NewGenerator wires a Generator to the backend named in cfg.
func NewGenerator(cfg *config.Config) *Generator {
	return NewGeneratorWithFactory(cfg.LLM.Provider, func(ctx context.Context) (Client, error) {
		return New(ctx, cfg)
	})
}

// NewGeneratorWithFactory builds a Generator around an arbitrary backend factory.
func NewGeneratorWithFactory(providerID string, factory Factory) *Generator {
	providerID = strings.ToLower(strings.TrimSpace(providerID))
	if providerID == "" {
		providerID = Mock
	}

	return &Generator{
		providerID: providerID,
		factory:    factory,
		log:        slog.Default().With("component", "provider.generator", "provider", providerID),
		status:     Status{Provider: providerID},
	}
}

// Generate returns the backend's text for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.status.Calls++
	client, err := g.clientLocked(ctx)
	if err != nil {
		g.status.Failures++
		return "", err
	}

	result, err := client.Generate(ctx, prompt)
	if err != nil {
		g.status.Failures++
		g.status.LastError = err.Error()
		return "", err
	}

	g.status.LastError = ""
	g.status.LastOKAt = time.Now().UTC()
	if result.Metadata.Usage != nil {
		g.status.Usage = g.status.Usage.Add(*result.Metadata.Usage)
	}

	return result.Text, nil
}

// Health checks the backend, building it when needed.
func (g *Generator) Health(ctx context.Context) error {
	g.mu.Lock()
	client, err := g.clientLocked(ctx)
	g.mu.Unlock()
	if err != nil {
		return err
	}

	err = client.Health(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.status.LastError = err.Error()
		return err
	}
	g.status.LastError = ""
	g.status.LastOKAt = time.Now().UTC()
	return nil
}

// Status returns a snapshot of call counters and backend state.
func (g *Generator) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := g.status
	status.Ready = g.client != nil
	return status
}

// clientLocked builds the backend once. A failed build is cached unless it
// was caused by the caller's context, in which case the next call retries.
func (g *Generator) clientLocked(ctx context.Context) (Client, error) {
	if g.initialized {
		return g.client, g.initErr
	}

	client, err := g.factory(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrUnavailable, g.providerID, err)
		g.status.LastError = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			g.log.Debug("LLM backend build interrupted", "error", err)
			return nil, err
		}
		g.initialized = true
		g.initErr = err
		g.log.Warn("LLM backend unavailable", "error", err)
		return nil, err
	}

	g.initialized = true
	g.client = client
	g.log.Debug("LLM backend initialized")
	return client, nil
}
