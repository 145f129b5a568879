package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"checkpoint-route-service/internal/api/dto"
	"checkpoint-route-service/internal/platform/logger"
)

// SequenceHandler exposes reading, editing and lock checks of persisted
// checkpoint sequences.
type SequenceHandler struct {
	Service RoutingService
	Log     *logger.Logger
}

func (h *SequenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentID")
	directionID := chi.URLParam(r, "directionID")

	view, err := h.Service.GetSequence(r.Context(), shipmentID, directionID)
	if err != nil {
		writeServiceError(w, r, h.Log, "get sequence", err)
		return
	}

	res := dto.SequenceResponse{
		ShipmentID:            view.ShipmentID,
		ShipmentDirectionID:   view.ShipmentDirectionID,
		State:                 string(view.State),
		LastInspectedPosition: view.LastInspectedPosition,
		Checkpoints:           make([]dto.SequenceRowResponse, 0, len(view.Rows)),
	}
	for _, row := range view.Rows {
		res.Checkpoints = append(res.Checkpoints, dto.SequenceRowResponse{
			CheckpointID:   row.CheckpointID,
			CheckpointName: row.CheckpointName,
			SequenceOrder:  row.SequenceOrder,
			Inspected:      row.Inspected,
			Locked:         row.Locked,
		})
	}

	writeJSON(w, r, h.Log, http.StatusOK, res)
}

// Put proposes a full replacement of the sequence. A proposal that touches
// a frozen position is answered with 409 and leaves the sequence unchanged.
func (h *SequenceHandler) Put(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentID")
	directionID := chi.URLParam(r, "directionID")

	var req dto.ProposeSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.Service.ProposeSequenceChange(r.Context(), shipmentID, directionID, req.CheckpointIDs)
	if err != nil {
		writeServiceError(w, r, h.Log, "propose sequence", err)
		return
	}

	status := http.StatusOK
	if !decision.Accepted {
		status = http.StatusConflict
	}
	writeJSON(w, r, h.Log, status, dto.ProposeSequenceResponse{Accepted: decision.Accepted, Reason: decision.Reason})
}

func (h *SequenceHandler) CanModify(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "shipmentID")
	directionID := chi.URLParam(r, "directionID")

	q := r.URL.Query()
	checkpointID := q.Get("checkpoint_id")
	position, err := strconv.Atoi(q.Get("position"))
	if checkpointID == "" || err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, "checkpoint_id and integer position are required")
		return
	}

	ok, err := h.Service.CanModify(r.Context(), shipmentID, directionID, checkpointID, position)
	if err != nil {
		writeServiceError(w, r, h.Log, "can modify", err)
		return
	}

	writeJSON(w, r, h.Log, http.StatusOK, dto.CanModifyResponse{
		CheckpointID: checkpointID,
		Position:     position,
		Modifiable:   ok,
	})
}
