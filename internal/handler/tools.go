package handler

import (
	"net/http"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/models"
)

// ToolsHandler handles GET /api/v1/tools
type ToolsHandler struct {
	catalog agent.Catalog
}

func NewToolsHandler(catalog agent.Catalog) *ToolsHandler {
	return &ToolsHandler{catalog: catalog}
}

func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.catalog.FetchTools(r.Context())
	if err != nil {
		models.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	infos := make([]models.ToolInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, models.ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters(),
		})
	}
	models.WriteJSON(w, http.StatusOK, models.ToolsResponse{
		Status: "success",
		Count:  len(infos),
		Tools:  infos,
	})
}
