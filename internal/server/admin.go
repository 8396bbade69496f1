package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/template"
)

// providerSummary and modelSummary are the admin-surface wire shapes for
// listProviders()/listModels(), trimmed from the full domain bindings down
// to what an operator dashboard needs.
type providerSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Models      []string `json:"models"`
}

type modelSummary struct {
	ID             string   `json:"id"`
	ProviderID     string   `json:"provider_id"`
	ProviderModel  string   `json:"provider_model"`
	Description    string   `json:"description,omitempty"`
	FallbackModels []string `json:"fallback_models,omitempty"`
}

// HandleListProvidersAdmin implements GET /admin/providers.
func (h *Handler) HandleListProvidersAdmin(w http.ResponseWriter, r *http.Request) {
	bindings := h.registry().ListProviders()
	out := make([]providerSummary, 0, len(bindings))
	for _, b := range bindings {
		modelIDs := make([]string, 0, len(b.Models))
		for _, m := range b.Models {
			modelIDs = append(modelIDs, m.ID)
		}
		out = append(out, providerSummary{ID: b.ID, Description: b.Description, Models: modelIDs})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleListModelsAdmin implements GET /admin/models.
func (h *Handler) HandleListModelsAdmin(w http.ResponseWriter, r *http.Request) {
	models := h.registry().ListModels()
	out := make([]modelSummary, 0, len(models))
	for _, m := range models {
		out = append(out, modelSummary{
			ID:             m.ModelID,
			ProviderID:     m.ProviderID,
			ProviderModel:  m.ProviderModel,
			Description:    m.Description,
			FallbackModels: m.FallbackModels,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleProviderLogin implements POST /admin/providers/{id}/login: starts
// the provider's configured login command as a background job and returns
// its id for polling via GET /admin/jobs/{id}.
func (h *Handler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := h.registry().GetProvider(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider", "invalid_request_error")
		return
	}

	rec, err := p.StartLoginJob()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusAccepted, jobRecordToWire(rec))
}

// HandleProviderStatus implements GET /admin/providers/{id}/status.
func (h *Handler) HandleProviderStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.registry().GetProvider(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider", "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusOK, p.CheckAuthStatus(r.Context()))
}

// HandleProviderRateLimits implements GET /admin/providers/{id}/ratelimits.
func (h *Handler) HandleProviderRateLimits(w http.ResponseWriter, r *http.Request) {
	p, ok := h.registry().GetProvider(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider", "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusOK, p.CheckRateLimits(r.Context()))
}

// HandleListJobs implements GET /admin/jobs?limit=N.
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	records := h.jobManager.ListJobs(limit)
	out := make([]jobWire, 0, len(records))
	for _, rec := range records {
		out = append(out, jobRecordToWire(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetJob implements GET /admin/jobs/{id}.
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.jobManager.GetJob(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job", "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusOK, jobRecordToWire(rec))
}

// HandleHealthSnapshot implements GET /admin/health.
func (h *Handler) HandleHealthSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker().Snapshot())
}

// HandleHealthSnapshotModel implements GET /admin/health/{model}.
func (h *Handler) HandleHealthSnapshotModel(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.tracker().SnapshotModel(chi.URLParam(r, "model"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown model", "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// adminJobRequest is the body for POST /admin/jobs: an arbitrary CLI
// invocation, subject to the Job Manager's allow-list.
type adminJobRequest struct {
	Tag        string            `json:"tag"`
	Executable string            `json:"executable"`
	Args       []string          `json:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	TimeoutMs  int               `json:"timeout_ms,omitempty"`
}

// HandleRunJob implements POST /admin/jobs: generic-CLI job execution,
// rejected by the Job Manager itself unless the executable is allow-listed.
func (h *Handler) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	var req adminJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "invalid_request_error")
		return
	}
	if req.Executable == "" {
		writeError(w, http.StatusBadRequest, "executable is required", "invalid_request_error")
		return
	}

	spec := domain.CommandSpec{
		Executable: req.Executable,
		Args:       req.Args,
		Env:        req.Env,
		Cwd:        req.Cwd,
		TimeoutMs:  req.TimeoutMs,
	}
	rec, err := h.jobManager.StartCommand(req.Tag, spec, template.Vars{})
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error(), "invalid_request_error")
		return
	}
	writeJSON(w, http.StatusAccepted, jobRecordToWire(rec))
}

// jobWire is the admin-facing job shape: FinishedAt/ExitCode flattened to
// JSON-friendly nullable values instead of pointers leaking Go semantics.
type jobWire struct {
	ID         string     `json:"id"`
	Tag        string     `json:"tag"`
	Command    string     `json:"command"`
	Args       []string   `json:"args,omitempty"`
	Status     jobs.Status `json:"status"`
	StartedAt  string     `json:"started_at"`
	FinishedAt *string    `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	URLs       []string   `json:"urls,omitempty"`
	Logs       []string   `json:"logs,omitempty"`
}

func jobRecordToWire(rec jobs.Record) jobWire {
	w := jobWire{
		ID:        rec.ID,
		Tag:       rec.Tag,
		Command:   rec.Command,
		Args:      rec.Args,
		Status:    rec.Status,
		StartedAt: rec.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		ExitCode:  rec.ExitCode,
		URLs:      rec.URLs,
		Logs:      rec.Logs,
	}
	if rec.FinishedAt != nil {
		s := rec.FinishedAt.Format("2006-01-02T15:04:05.000Z07:00")
		w.FinishedAt = &s
	}
	return w
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(marshalError(message, errType, ""))
}
