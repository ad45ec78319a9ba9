// Package gateway runs the draftflow daemon: the run worker loop, the Gmail
// poller, operator channels and the status HTTP server.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"draftflow/pkg/agent"
	"draftflow/pkg/bus"
	"draftflow/pkg/channel"
	"draftflow/pkg/config"
	"draftflow/pkg/provider"
	"draftflow/pkg/report"
	"draftflow/pkg/store"
)

const (
	healthCheckInterval = 30 * time.Second
	defaultRunsLimit    = 20
	maxRunsLimit        = 200
)

// ProviderStatus is the LLM backend view the status server reports on.
type ProviderStatus interface {
	Health(ctx context.Context) error
	Status() provider.Status
}

// Renderer formats a finished run for the channel that triggered it.
type Renderer func(store.Run) string

type Service struct {
	cfg          *config.Config
	log          *slog.Logger
	instance     *agent.Instance
	provider     ProviderStatus
	channels     []channel.Adapter
	renderers    map[string]Renderer
	pollInterval time.Duration

	mu               sync.RWMutex
	startedAt        time.Time
	polling          bool
	providerLastOKAt time.Time
	providerLastErr  string
	channelStates    map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status           string                  `json:"status"`
	UptimeSeconds    int64                   `json:"uptime_seconds"`
	WorkerRunning    bool                    `json:"worker_running"`
	ActiveRuns       int                     `json:"active_runs"`
	GmailPolling     bool                    `json:"gmail_polling"`
	ProviderLastOKAt string                  `json:"provider_last_ok_at,omitempty"`
	ProviderLastErr  string                  `json:"provider_last_error,omitempty"`
	Provider         provider.Status         `json:"provider"`
	Channels         map[string]channelState `json:"channels"`
}

type runsResponse struct {
	Runs []store.Run `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewService wires the daemon. The Gmail poller runs only when the poll
// interval is positive and mailbox credentials are configured.
func NewService(cfg *config.Config, instance *agent.Instance, llm ProviderStatus, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if instance == nil {
		return nil, errors.New("agent instance is required")
	}
	if llm == nil {
		return nil, errors.New("provider is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		instance:      instance,
		provider:      llm,
		channels:      adapters,
		renderers:     map[string]Renderer{},
		pollInterval:  time.Duration(cfg.Gmail.PollIntervalSeconds) * time.Second,
		channelStates: channelStates,
	}, nil
}

// SetRenderer overrides how replies to channel are rendered. The default is
// report.Reply.
func (s *Service) SetRenderer(channelName string, render Renderer) {
	s.renderers[channelName] = render
}

// Run blocks until ctx is done, an operator requests a stop or a component
// fails. A stop request returns nil.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkProviderHealth(ctx); err != nil {
		s.log.Warn("LLM provider is unhealthy, drafts will use fallback text", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.instance.Run(gctx)
	})

	g.Go(func() error {
		s.watchProviderHealth(gctx)
		return nil
	})

	if s.cfg.Gateway.Enabled {
		g.Go(func() error {
			return s.runStatusServer(gctx)
		})
	}

	switch {
	case s.pollInterval <= 0:
		s.log.Info("Gmail polling disabled")
	case !s.cfg.Gmail.HasCredentials():
		s.log.Warn("Gmail polling disabled, credentials are not configured")
	default:
		s.setPolling(true)
		g.Go(func() error {
			defer s.setPolling(false)
			return s.instance.PollGmail(gctx, s.pollInterval)
		})
	}

	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})
		g.Go(func() error {
			err := adapter.Run(gctx, s.handleTrigger)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				s.log.Info("Channel stopped", "channel", adapter.Name())
				return nil
			case errors.Is(err, channel.ErrStopRequested):
				return err
			default:
				return fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		})
	}

	s.log.Info("Gateway started", "channels", len(s.channels), "status_server", s.cfg.Gateway.Enabled)

	err := g.Wait()
	if errors.Is(err, channel.ErrStopRequested) {
		s.log.Info("Gateway stopped by operator")
		return nil
	}
	return err
}

func (s *Service) handleTrigger(ctx context.Context, trigger bus.Trigger) (bus.Reply, error) {
	run, err := s.instance.Submit(ctx, trigger)
	reply := bus.Reply{
		Channel:  trigger.Channel,
		ChatID:   trigger.ChatID,
		RunID:    run.ID,
		Metadata: map[string]string{"status": string(run.Status)},
	}
	if run.ID != "" {
		reply.Content = s.render(trigger.Channel, run)
	}
	if err != nil {
		reply.Error = err.Error()
		return reply, err
	}
	return reply, nil
}

func (s *Service) render(channelName string, run store.Run) string {
	if render, ok := s.renderers[channelName]; ok {
		return render(run)
	}
	return report.Reply(run)
}

func (s *Service) watchProviderHealth(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.checkProviderHealth(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("LLM provider health check failed", "error", err)
			}
		}
	}
}

func (s *Service) statusAddr() string {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = config.DefaultGatewayHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = config.DefaultGatewayPort
	}

	return host + ":" + strconv.Itoa(port)
}

func (s *Service) runStatusServer(ctx context.Context) error {
	addr := s.statusAddr()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start status server: %w", err)
	}
	return nil
}

// Router returns the status HTTP handler.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentStatus("ok"))
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.writeJSON(w, statusCode, s.currentStatus(status))
}

func (s *Service) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := s.instance.History().ListRuns(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to list runs", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}

	s.writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
}

func (s *Service) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.instance.History().GetRun(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
	case err != nil:
		s.log.Error("Failed to load run", "run_id", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load run"})
	default:
		s.writeJSON(w, http.StatusOK, run)
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	providerLastOK := ""
	if !s.providerLastOKAt.IsZero() {
		providerLastOK = s.providerLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:           status,
		UptimeSeconds:    uptime,
		WorkerRunning:    s.instance.Running(),
		ActiveRuns:       s.instance.Active(),
		GmailPolling:     s.polling,
		ProviderLastOKAt: providerLastOK,
		ProviderLastErr:  s.providerLastErr,
		Provider:         s.provider.Status(),
		Channels:         channels,
	}
}

// isReady requires the worker loop and a healthy provider. Channels are
// optional: a daemon may only poll Gmail.
func (s *Service) isReady() bool {
	if !s.instance.Running() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.providerLastOKAt.IsZero() {
		return false
	}
	return s.providerLastErr == ""
}

func (s *Service) checkProviderHealth(ctx context.Context) error {
	if err := s.provider.Health(ctx); err != nil {
		s.mu.Lock()
		s.providerLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("provider health check failed: %w", err)
	}

	s.mu.Lock()
	s.providerLastErr = ""
	s.providerLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setPolling(polling bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polling = polling
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}

	return err.Error()
}
