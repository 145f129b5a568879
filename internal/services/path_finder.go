package services

import (
	"strings"

	"checkpoint-route-service/internal/domain"
)

// DefaultMaxDepth bounds the number of checkpoints on one search branch.
const DefaultMaxDepth = 256

// RouteOptions tunes route search. The zero value is usable.
type RouteOptions struct {
	MaxDepth int
}

func (o RouteOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Resolved departure and destination districts of a query.
type routeEndpoints struct {
	departureID     string
	departureName   string
	destinationID   string
	destinationName string
}

// FindRoute derives the default checkpoint route between the departure and
// destination districts of dir.
//
// Every (departure checkpoint, destination checkpoint) pair is searched
// depth-first, expanding north, south, east, west. A branch succeeds when it
// reaches the destination checkpoint or any checkpoint in the destination
// district, and ends without a result when it revisits a checkpoint already
// on the branch. The route with the fewest checkpoints wins; ties go to the
// first one found. When no route exists the result degrades to the two
// district endpoints, so a displayable path is always returned. Only an
// unresolvable district is an error.
//
// The fallback_intermediate source is never produced today: its exact
// checkpoint search only finds routes the district search already found.
func FindRoute(dir domain.ShipmentDirection, graph *domain.CheckpointGraph, opts RouteOptions) (domain.CheckpointPath, error) {
	ends, err := resolveEndpoints(dir, graph)
	if err != nil {
		return domain.CheckpointPath{}, err
	}

	departures := graph.NodesInDistrict(ends.departureID)
	targets := graph.NodesInDistrict(ends.destinationID)

	if len(departures) > 0 && len(targets) > 0 {
		s := &routeSearch{graph: graph, maxDepth: opts.maxDepth(), matchDistrict: true}
		for _, d := range departures {
			for _, t := range targets {
				s.run(d.ID, t)
			}
		}
		if s.best != nil {
			return computedPath(ends, graph, s.best), nil
		}

		// Fallback A: single search between the first checkpoint of each
		// district, matching on the exact checkpoint only. Its match is a
		// subset of the district match above under the same depth bound,
		// so it cannot succeed where that search failed; it is kept so the
		// fallback order stays complete if the first pass is ever narrowed.
		s = &routeSearch{graph: graph, maxDepth: opts.maxDepth()}
		s.run(departures[0].ID, targets[0])
		if len(s.best) >= 2 {
			return intermediatePath(ends, graph, s.best, departures[0], targets[0]), nil
		}
	}

	// Fallback B: the two endpoints with no transit checkpoints.
	return endpointsPath(ends, departures, targets), nil
}

// routeSearch keeps the best branch found across all searched pairs.
type routeSearch struct {
	graph         *domain.CheckpointGraph
	maxDepth      int
	matchDistrict bool

	best []string
}

func (s *routeSearch) run(startID string, target domain.CheckpointNode) {
	visited := make(map[string]struct{})
	s.explore(startID, target, visited, make([]string, 0, 16))
}

// explore visits nodeID with trail holding the branch walked so far.
// visited contains exactly the checkpoints on the current branch, so
// sibling branches never prune each other.
func (s *routeSearch) explore(nodeID string, target domain.CheckpointNode, visited map[string]struct{}, trail []string) {
	if _, seen := visited[nodeID]; seen {
		return
	}
	node, ok := s.graph.Node(nodeID)
	if !ok {
		return
	}

	trail = append(trail, nodeID)

	// A branch already as long as the best route cannot replace it, since
	// equal lengths keep the first route found.
	if s.best != nil && len(trail) >= len(s.best) {
		return
	}
	if len(trail) > s.maxDepth {
		return
	}

	if node.ID == target.ID || (s.matchDistrict && node.DistrictID == target.DistrictID) {
		s.best = append([]string(nil), trail...)
		return
	}

	visited[nodeID] = struct{}{}
	defer delete(visited, nodeID)

	for _, d := range domain.Directions {
		next, ok := s.graph.Neighbor(nodeID, d)
		if !ok {
			continue
		}
		s.explore(next, target, visited, trail)
	}
}

func resolveEndpoints(dir domain.ShipmentDirection, graph *domain.CheckpointGraph) (routeEndpoints, error) {
	ends := routeEndpoints{
		departureID:     strings.TrimSpace(dir.DepartureDistrictID),
		departureName:   strings.TrimSpace(dir.DepartureDistrictName),
		destinationID:   strings.TrimSpace(dir.DestinationDistrictID),
		destinationName: strings.TrimSpace(dir.DestinationDistrictName),
	}

	if ends.departureID == "" {
		return routeEndpoints{}, &domain.ResolutionError{ShipmentID: dir.ShipmentID, Reason: "departure district is unknown"}
	}
	if ends.destinationID == "" {
		return routeEndpoints{}, &domain.ResolutionError{ShipmentID: dir.ShipmentID, Reason: "destination district is unknown"}
	}

	if ends.departureName == "" {
		ends.departureName = districtName(graph, ends.departureID)
	}
	if ends.destinationName == "" {
		ends.destinationName = districtName(graph, ends.destinationID)
	}

	return ends, nil
}

// Fall back to the district name carried by any of its checkpoints, then to the id.
func districtName(graph *domain.CheckpointGraph, districtID string) string {
	for _, n := range graph.NodesInDistrict(districtID) {
		if n.DistrictName != "" {
			return n.DistrictName
		}
	}
	return districtID
}

func computedPath(ends routeEndpoints, graph *domain.CheckpointGraph, trail []string) domain.CheckpointPath {
	startID := trail[0]
	endID := trail[len(trail)-1]

	var transit []string
	if len(trail) > 2 {
		transit = trail[1 : len(trail)-1]
	}

	start, _ := graph.Node(startID)
	end, _ := graph.Node(endID)

	p := newPath(ends, transit, graph, start, end, domain.RouteComputed)
	p.CheckpointIDs[0] = startID
	p.CheckpointIDs[len(p.CheckpointIDs)-1] = endID
	return p
}

func intermediatePath(
	ends routeEndpoints,
	graph *domain.CheckpointGraph,
	trail []string,
	start, end domain.CheckpointNode,
) domain.CheckpointPath {
	return newPath(ends, trail[1:len(trail)-1], graph, start, end, domain.RouteFallbackIntermediate)
}

func endpointsPath(ends routeEndpoints, departures, targets []domain.CheckpointNode) domain.CheckpointPath {
	start := domain.VirtualEndpoint(ends.departureID, ends.departureName)
	if len(departures) > 0 {
		start = departures[0]
	}
	end := domain.VirtualEndpoint(ends.destinationID, ends.destinationName)
	if len(targets) > 0 {
		end = targets[0]
	}

	return domain.CheckpointPath{
		Path:              []string{ends.departureName, ends.destinationName},
		CheckpointIDs:     []string{start.ID, end.ID},
		CheckpointDetails: []domain.CheckpointNode{start, end},
		Source:            domain.RouteFallbackEndpointsOnly,
	}
}

// newPath wraps transit checkpoints between the two district endpoints.
// Endpoint ids are left empty; callers that resolved real endpoint
// checkpoints fill them in.
func newPath(
	ends routeEndpoints,
	transit []string,
	graph *domain.CheckpointGraph,
	start, end domain.CheckpointNode,
	source domain.RouteSource,
) domain.CheckpointPath {
	n := len(transit) + 2
	p := domain.CheckpointPath{
		Path:              make([]string, 0, n),
		CheckpointIDs:     make([]string, 0, n),
		CheckpointDetails: make([]domain.CheckpointNode, 0, n),
		Source:            source,
	}

	p.Path = append(p.Path, ends.departureName)
	p.CheckpointIDs = append(p.CheckpointIDs, "")
	p.CheckpointDetails = append(p.CheckpointDetails, endpointNode(start, ends.departureID, ends.departureName))

	for _, id := range transit {
		node, ok := graph.Node(id)
		if !ok {
			node = domain.CheckpointNode{ID: id, Name: id}
		}
		p.Path = append(p.Path, node.Name)
		p.CheckpointIDs = append(p.CheckpointIDs, id)
		p.CheckpointDetails = append(p.CheckpointDetails, node)
	}

	p.Path = append(p.Path, ends.destinationName)
	p.CheckpointIDs = append(p.CheckpointIDs, "")
	p.CheckpointDetails = append(p.CheckpointDetails, endpointNode(end, ends.destinationID, ends.destinationName))

	return p
}

func endpointNode(n domain.CheckpointNode, districtID, districtName string) domain.CheckpointNode {
	if n.ID == "" {
		return domain.VirtualEndpoint(districtID, districtName)
	}
	return n
}
