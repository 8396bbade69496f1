package server

import (
	"encoding/json"
	"net/http"
)

// HandleListModels implements GET /v1/models: every registered model id in
// the OpenAI model-list wire shape.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	models := h.registry().ListModels()
	data := make([]modelData, 0, len(models))
	for _, m := range models {
		data = append(data, modelData{
			ID:      m.ModelID,
			Object:  "model",
			OwnedBy: m.ProviderID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelListResponse{Object: "list", Data: data})
}
