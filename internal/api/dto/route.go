package dto

type CheckpointDetailResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	DistrictID     string            `json:"district_id"`
	DistrictName   string            `json:"district_name"`
	ProvinceName   string            `json:"province_name,omitempty"`
	AddressID      string            `json:"address_id"`
	CheckpointType string            `json:"checkpoint_type"`
	Neighbors      map[string]string `json:"neighbors,omitempty"`
	Virtual        bool              `json:"virtual"`
}

type RouteResponse struct {
	ShipmentID        string                     `json:"shipment_id"`
	Source            string                     `json:"source"`
	Path              []string                   `json:"path"`
	CheckpointIDs     []string                   `json:"checkpoint_ids"`
	CheckpointDetails []CheckpointDetailResponse `json:"checkpoint_details"`
}
