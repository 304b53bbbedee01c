package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browsermatrix/internal/orchestrator"
	"github.com/shehryarbajwa/browsermatrix/internal/provider"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// RunnerFactory builds the runner for a provider
type RunnerFactory func(p provider.Provider) *orchestrator.Runner

// CreateRunRequest is the body of POST /v1/runs. Credentials may instead come from HTTP
// basic auth.
type CreateRunRequest struct {
	Provider    string             `json:"provider"`
	URL         string             `json:"url"`
	Code        string             `json:"code"`
	Timeout     int                `json:"timeout"`
	Settle      string             `json:"settle"`
	Verbose     bool               `json:"verbose"`
	LogLevel    models.LogLevel    `json:"logLevel"`
	Credentials models.Credentials `json:"credentials"`
	Browsers    json.RawMessage    `json:"browsers"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	registry  *provider.Registry
	newRunner RunnerFactory
	store     *Store
	logger    *zap.Logger

	// ctx bounds admission of new sessions; cancelling it lets running sessions finish
	ctx context.Context
}

// NewHandler creates a new HTTP handler. Runs started through it stop admitting
// sessions once ctx is cancelled.
func NewHandler(ctx context.Context, registry *provider.Registry, newRunner RunnerFactory, store *Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:  registry,
		newRunner: newRunner,
		store:     store,
		logger:    logger,
		ctx:       ctx,
	}
}

// CreateRun handles POST /v1/runs. The run is validated and its browsers resolved before
// responding; sessions are opened in the background.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Credentials.UserName == "" && req.Credentials.AccessToken == "" {
		if user, key, ok := r.BasicAuth(); ok {
			req.Credentials = models.Credentials{UserName: user, AccessToken: key}
		}
	}

	p, err := h.registry.Get(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := models.RunConfig{
		Browsers:    req.Browsers,
		Code:        req.Code,
		URL:         req.URL,
		Verbose:     req.Verbose,
		Timeout:     req.Timeout,
		MinLogLevel: req.LogLevel,
		Credentials: req.Credentials,
	}
	if req.Settle != "" {
		settle, err := time.ParseDuration(req.Settle)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid settle duration: "+err.Error())
			return
		}
		cfg.Settle = settle
	}

	runner := h.newRunner(p)
	defs, err := runner.Prepare(cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrInvalidRun) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	run := models.Run{
		ID:        uuid.New().String(),
		Provider:  p.Name(),
		Status:    models.StatusRunning,
		StartedAt: time.Now(),
		Browsers:  defs,
	}
	events := h.store.Add(run)

	go func() {
		result, err := runner.Execute(h.ctx, cfg, defs, events)
		if err != nil {
			h.logger.Warn("Run failed", zap.String("run", run.ID), zap.Error(err))
		}
		h.store.Finish(run.ID, result, err)
	}()

	h.logger.Info("Run started",
		zap.String("run", run.ID),
		zap.String("provider", run.Provider),
		zap.Int("browsers", len(defs)))

	writeJSON(w, http.StatusAccepted, run)
}

// GetRun handles GET /v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /v1/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	providerName := r.URL.Query().Get("provider")
	status := models.RunStatus(r.URL.Query().Get("status"))

	writeJSON(w, http.StatusOK, h.store.List(providerName, status))
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": h.registry.Names()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
