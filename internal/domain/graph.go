package domain

import "sort"

// CheckpointGraph is a read-only adjacency view over a checkpoint snapshot.
//
// No cycle or dangling-id validation happens at construction time: a link
// to an id missing from the snapshot is simply not traversable, and an
// asymmetric link is a half-open edge usable in one direction only.
type CheckpointGraph struct {
	nodes      map[string]CheckpointNode
	byDistrict map[string][]CheckpointNode
}

func NewCheckpointGraph(nodes []CheckpointNode) *CheckpointGraph {
	g := &CheckpointGraph{
		nodes:      make(map[string]CheckpointNode, len(nodes)),
		byDistrict: make(map[string][]CheckpointNode),
	}

	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		g.nodes[n.ID] = n
		g.byDistrict[n.DistrictID] = append(g.byDistrict[n.DistrictID], n)
	}

	// Sorting fixes the D x T enumeration order, which decides ties
	// between equally short routes.
	for _, list := range g.byDistrict {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	return g
}

func (g *CheckpointGraph) Len() int { return len(g.nodes) }

func (g *CheckpointGraph) Node(id string) (CheckpointNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Return the id of the neighbor linked from nodeID in direction d.
// Links pointing outside the snapshot are reported as absent.
func (g *CheckpointGraph) Neighbor(nodeID string, d Direction) (string, bool) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return "", false
	}

	next, ok := n.Neighbor(d)
	if !ok {
		return "", false
	}
	if _, exists := g.nodes[next]; !exists {
		return "", false
	}
	return next, true
}

// Return all checkpoints in a district ordered by id.
func (g *CheckpointGraph) NodesInDistrict(districtID string) []CheckpointNode {
	list := g.byDistrict[districtID]
	out := make([]CheckpointNode, len(list))
	copy(out, list)
	return out
}

// Half-open edge: From links To in Direction, but To does not link back.
type AsymmetricLink struct {
	FromID    string
	Direction Direction
	ToID      string
	// BackID is what To holds in the opposite slot ("" when empty).
	BackID string
}

// Report every link whose reciprocal slot does not point back.
// Dangling links (target missing from the snapshot) are reported too.
func (g *CheckpointGraph) AsymmetricLinks() []AsymmetricLink {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []AsymmetricLink
	for _, id := range ids {
		n := g.nodes[id]
		for _, d := range Directions {
			to, ok := n.Neighbor(d)
			if !ok {
				continue
			}

			back := ""
			if target, exists := g.nodes[to]; exists {
				back, _ = target.Neighbor(d.Opposite())
			}
			if back != id {
				out = append(out, AsymmetricLink{FromID: id, Direction: d, ToID: to, BackID: back})
			}
		}
	}

	return out
}
