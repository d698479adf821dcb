package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/models"
	"github.com/martyndavies/hubapi-example-langchain/internal/version"
)

// HealthHandler handles GET /health with a hub catalog check
type HealthHandler struct {
	catalog   agent.Catalog
	modelName string
}

func NewHealthHandler(catalog agent.Catalog, modelName string) *HealthHandler {
	return &HealthHandler{catalog: catalog, modelName: modelName}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok", "model": h.modelName}
	overallStatus := "healthy"

	// Short timeout so a slow hub does not block probes
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.catalog == nil {
		checks["hub"] = "disabled"
	} else if _, err := h.catalog.FetchTools(ctx); err != nil {
		checks["hub"] = "unavailable: " + err.Error()
		overallStatus = "degraded"
	} else {
		checks["hub"] = "ok"
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version.Version,
		Checks:  checks,
	})
}
