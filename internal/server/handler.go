package server

import (
	"log/slog"
	"sync/atomic"

	"github.com/relaywell/cligateway/internal/dispatcher"
	"github.com/relaywell/cligateway/internal/health"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/registry"
	"github.com/relaywell/cligateway/internal/store/sqlite"
)

// liveConfig is the set of collaborators a config reload replaces as one
// unit: the registry, its dispatcher and health tracker are all built
// together from the same RuntimeConfig, so they're swapped together.
type liveConfig struct {
	registry   *registry.Registry
	dispatcher *dispatcher.Dispatcher
	tracker    *health.Tracker
}

// Handler holds every dependency the HTTP routes need. Grounded on the
// teacher pack's gateway.Handler (kommunication-aegis-ai-gateway) shape: a
// struct of collaborators built once at startup and passed to chi route
// registration, rather than package-level globals. The routing-relevant
// trio (registry/dispatcher/tracker) sits behind an atomic.Pointer so
// internal/config's hot-reload watcher can swap in a freshly-validated
// RuntimeConfig's build without a restart and without readers ever
// observing a half-updated set.
type Handler struct {
	live         atomic.Pointer[liveConfig]
	jobManager   *jobs.Manager
	interactions *sqlite.Store // nil when the audit log is disabled
	logger       *slog.Logger
}

// NewHandler constructs a Handler. interactions may be nil.
func NewHandler(reg *registry.Registry, disp *dispatcher.Dispatcher, tracker *health.Tracker, jobManager *jobs.Manager, interactions *sqlite.Store, logger *slog.Logger) *Handler {
	h := &Handler{
		jobManager:   jobManager,
		interactions: interactions,
		logger:       logger,
	}
	h.live.Store(&liveConfig{registry: reg, dispatcher: disp, tracker: tracker})
	return h
}

// SwapLive replaces the registry/dispatcher/tracker trio atomically. Called
// by the config watcher after a successful reload; in-flight requests keep
// using whichever trio they already loaded.
func (h *Handler) SwapLive(reg *registry.Registry, disp *dispatcher.Dispatcher, tracker *health.Tracker) {
	h.live.Store(&liveConfig{registry: reg, dispatcher: disp, tracker: tracker})
}

func (h *Handler) registry() *registry.Registry     { return h.live.Load().registry }
func (h *Handler) dispatcher() *dispatcher.Dispatcher { return h.live.Load().dispatcher }
func (h *Handler) tracker() *health.Tracker         { return h.live.Load().tracker }
