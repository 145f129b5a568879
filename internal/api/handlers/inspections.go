package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"checkpoint-route-service/internal/api/dto"
	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
)

// InspectionHandler is the write path of the inspection ledger.
type InspectionHandler struct {
	Service RoutingService
	Log     *logger.Logger
}

func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentID")

	var req dto.RecordInspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.RecordInspection(r.Context(), domain.NewInspection{
		ShipmentID:          shipmentID,
		ShipmentDirectionID: req.ShipmentDirectionID,
		CheckpointID:        req.CheckpointID,
		CheckedByID:         req.CheckedByID,
		Stage:               domain.InspectionStage(req.Stage),
		Irregularity: domain.Irregularity{
			HasIrregularity: req.HasIrregularity,
			Details:         req.IrregularityDetails,
		},
		Notes: req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, h.Log, "record inspection", err)
		return
	}

	writeJSON(w, r, h.Log, http.StatusCreated, dto.InspectionResponse{
		ID:                  rec.ID,
		ShipmentID:          rec.ShipmentID,
		CheckpointID:        rec.CheckpointID,
		ShipmentDirectionID: rec.ShipmentDirectionID,
		CheckedByID:         rec.CheckedByID,
		CheckedAt:           rec.CheckedAt,
		Stage:               string(rec.Stage),
		HasIrregularity:     rec.Irregularity.HasIrregularity,
		IrregularityDetails: rec.Irregularity.Details,
		Notes:               rec.Notes,
		SequenceOrder:       rec.SequenceOrder,
	})
}
