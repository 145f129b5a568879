package domain

// Records which policy produced a CheckpointPath.
type RouteSource string

const (
	RouteFromSequence          RouteSource = "sequence"
	RouteComputed              RouteSource = "computed"
	RouteFallbackIntermediate  RouteSource = "fallback_intermediate"
	RouteFallbackEndpointsOnly RouteSource = "fallback_endpoints"
)

// Represents the expected passage of a shipment through checkpoints.
// Path holds display names, CheckpointIDs is parallel to Path and uses ""
// for virtual endpoints. CheckpointDetails starts with the departure
// endpoint node, lists transit checkpoints, and ends with the destination
// endpoint node. A CheckpointPath is derived data and is never persisted.
type CheckpointPath struct {
	Path              []string
	CheckpointIDs     []string
	CheckpointDetails []CheckpointNode
	Source            RouteSource
}
