package server

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts every route this gateway exposes onto r. Grounded
// on the teacher's frontdoor route registration (one route per concern,
// grouped by prefix) generalized to the admin surface this gateway adds.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/v1/chat/completions", h.HandleChatCompletion)
	r.Get("/v1/models", h.HandleListModels)

	r.Route("/admin", func(admin chi.Router) {
		admin.Get("/providers", h.HandleListProvidersAdmin)
		admin.Get("/models", h.HandleListModelsAdmin)
		admin.Post("/providers/{id}/login", h.HandleProviderLogin)
		admin.Get("/providers/{id}/status", h.HandleProviderStatus)
		admin.Get("/providers/{id}/ratelimits", h.HandleProviderRateLimits)
		admin.Get("/jobs", h.HandleListJobs)
		admin.Get("/jobs/{id}", h.HandleGetJob)
		admin.Post("/jobs", h.HandleRunJob)
		admin.Get("/health", h.HandleHealthSnapshot)
		admin.Get("/health/{model}", h.HandleHealthSnapshotModel)
	})
}
