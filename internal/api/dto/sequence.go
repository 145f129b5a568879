package dto

type SequenceRowResponse struct {
	CheckpointID   string `json:"checkpoint_id"`
	CheckpointName string `json:"checkpoint_name"`
	SequenceOrder  int    `json:"sequence_order"`
	Inspected      bool   `json:"inspected"`
	Locked         bool   `json:"locked"`
}

type SequenceResponse struct {
	ShipmentID            string                `json:"shipment_id"`
	ShipmentDirectionID   string                `json:"shipment_direction_id"`
	State                 string                `json:"state"`
	LastInspectedPosition *int                  `json:"last_inspected_position"`
	Checkpoints           []SequenceRowResponse `json:"checkpoints"`
}

type ProposeSequenceRequest struct {
	CheckpointIDs []string `json:"checkpoint_ids"`
}

type ProposeSequenceResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type CanModifyResponse struct {
	CheckpointID string `json:"checkpoint_id"`
	Position     int    `json:"position"`
	Modifiable   bool   `json:"modifiable"`
}
