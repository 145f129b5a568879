package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"checkpoint-route-service/internal/api/dto"
	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
)

// RouteHandler exposes the expected checkpoint route of a shipment.
type RouteHandler struct {
	Service RoutingService
	Log     *logger.Logger
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentID")

	path, err := h.Service.ResolveRoute(r.Context(), shipmentID)
	if err != nil {
		writeServiceError(w, r, h.Log, "resolve route", err)
		return
	}

	res := dto.RouteResponse{
		ShipmentID:        shipmentID,
		Source:            string(path.Source),
		Path:              path.Path,
		CheckpointIDs:     path.CheckpointIDs,
		CheckpointDetails: make([]dto.CheckpointDetailResponse, 0, len(path.CheckpointDetails)),
	}
	for _, n := range path.CheckpointDetails {
		res.CheckpointDetails = append(res.CheckpointDetails, checkpointDetail(n))
	}

	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func checkpointDetail(n domain.CheckpointNode) dto.CheckpointDetailResponse {
	d := dto.CheckpointDetailResponse{
		ID:             n.ID,
		Name:           n.Name,
		DistrictID:     n.DistrictID,
		DistrictName:   n.DistrictName,
		ProvinceName:   n.ProvinceName,
		AddressID:      n.AddressID,
		CheckpointType: string(n.Type),
		Virtual:        n.Virtual,
	}
	if len(n.Links) > 0 {
		d.Neighbors = make(map[string]string, len(n.Links))
		for dir, ref := range n.Links {
			name := ref.Name
			if name == "" {
				name = ref.ID
			}
			d.Neighbors[string(dir)] = name
		}
	}
	return d
}
