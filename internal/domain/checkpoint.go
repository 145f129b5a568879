package domain

import "fmt"

// Classifies the administrative boundary a checkpoint sits on.
type CheckpointType string

const (
	CheckpointDomesticInterDistrict CheckpointType = "domestic_inter_district"
	CheckpointIntraDistrict         CheckpointType = "intra_district"
	CheckpointInterProvincial       CheckpointType = "inter_provincial"
	CheckpointInternational         CheckpointType = "international"
)

func (t CheckpointType) Valid() bool {
	switch t {
	case CheckpointDomesticInterDistrict, CheckpointIntraDistrict, CheckpointInterProvincial, CheckpointInternational:
		return true
	}
	return false
}

// One of the four adjacency slots of a checkpoint.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// Fixed expansion order used by route search.
var Directions = [4]Direction{North, South, East, West}

// Return the reciprocal slot (north <-> south, east <-> west).
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return ""
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if d.Opposite() == "" {
		return "", fmt.Errorf("parse direction: unknown direction %q", s)
	}
	return d, nil
}

// Neighbor reference with the neighbor's name denormalized for display.
type NeighborRef struct {
	ID   string
	Name string
}

// Represents a fixed inspection post assigned to a district.
// A checkpoint links to at most one neighbor per direction. Links are
// written reciprocally by LinkCheckpoints, but readers must not assume
// the data they receive is symmetric.
type CheckpointNode struct {
	ID           string
	Name         string
	DistrictID   string
	DistrictName string
	ProvinceName string
	AddressID    string
	Type         CheckpointType
	Links        map[Direction]NeighborRef

	// Virtual marks a synthesized endpoint that stands for a district
	// with no resolvable checkpoint.
	Virtual bool
}

// Return the neighbor id linked in direction d, if any.
func (n CheckpointNode) Neighbor(d Direction) (string, bool) {
	ref, ok := n.Links[d]
	if !ok || ref.ID == "" {
		return "", false
	}
	return ref.ID, true
}

// Build a virtual endpoint node representing the district itself.
func VirtualEndpoint(districtID, districtName string) CheckpointNode {
	return CheckpointNode{
		Name:         districtName,
		DistrictID:   districtID,
		DistrictName: districtName,
		Virtual:      true,
	}
}
