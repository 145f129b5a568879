package domain

import "testing"

func node(id, district string, links map[Direction]string) CheckpointNode {
	n := CheckpointNode{ID: id, Name: "name-" + id, DistrictID: district, Type: CheckpointIntraDistrict}
	if len(links) > 0 {
		n.Links = make(map[Direction]NeighborRef, len(links))
		for d, to := range links {
			n.Links[d] = NeighborRef{ID: to}
		}
	}
	return n
}

func TestCheckpointGraphNeighbor(t *testing.T) {
	g := NewCheckpointGraph([]CheckpointNode{
		node("A", "X", map[Direction]string{North: "B", East: "ghost"}),
		node("B", "Y", map[Direction]string{South: "A"}),
	})

	if got, ok := g.Neighbor("A", North); !ok || got != "B" {
		t.Fatalf("expected A north = B, got %q (ok=%v)", got, ok)
	}
	if _, ok := g.Neighbor("A", West); ok {
		t.Fatalf("expected no west neighbor for A")
	}
	if _, ok := g.Neighbor("A", East); ok {
		t.Fatalf("expected dangling link to be absent")
	}
	if _, ok := g.Neighbor("missing", North); ok {
		t.Fatalf("expected unknown node to have no neighbors")
	}
}

func TestCheckpointGraphNodesInDistrictSortedAndCopied(t *testing.T) {
	g := NewCheckpointGraph([]CheckpointNode{
		node("c3", "X", nil),
		node("c1", "X", nil),
		node("c2", "X", nil),
		node("d1", "Y", nil),
	})

	got := g.NodesInDistrict("X")
	if len(got) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(got))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if got[i].ID != want {
			t.Fatalf("expected position %d to be %q, got %q", i, want, got[i].ID)
		}
	}

	got[0].ID = "mutated"
	if again := g.NodesInDistrict("X"); again[0].ID != "c1" {
		t.Fatalf("expected graph to be unaffected by caller mutation, got %q", again[0].ID)
	}

	if len(g.NodesInDistrict("nowhere")) != 0 {
		t.Fatalf("expected empty list for unknown district")
	}
}

func TestCheckpointGraphAsymmetricLinks(t *testing.T) {
	g := NewCheckpointGraph([]CheckpointNode{
		node("A", "X", map[Direction]string{North: "B"}),
		node("B", "Y", map[Direction]string{South: "A", East: "C"}),
		node("C", "Z", map[Direction]string{West: "A"}),
		node("D", "Z", map[Direction]string{South: "ghost"}),
	})

	got := g.AsymmetricLinks()

	want := []AsymmetricLink{
		{FromID: "B", Direction: East, ToID: "C", BackID: "A"},
		{FromID: "C", Direction: West, ToID: "A", BackID: ""},
		{FromID: "D", Direction: South, ToID: "ghost", BackID: ""},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d asymmetric links, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("link %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestDirectionOpposite(t *testing.T) {
	pairs := map[Direction]Direction{North: South, South: North, East: West, West: East}
	for d, want := range pairs {
		if got := d.Opposite(); got != want {
			t.Fatalf("expected %s opposite %s, got %s", d, want, got)
		}
	}

	if _, err := ParseDirection("up"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestNewInspectionValidate(t *testing.T) {
	valid := NewInspection{
		ShipmentID:          "s1",
		ShipmentDirectionID: "d1",
		CheckpointID:        "cp1",
		CheckedByID:         "officer-7",
		Stage:               StageInTransit,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badStage := valid
	badStage.Stage = "LOST"
	if err := badStage.Validate(); err == nil {
		t.Fatalf("expected error for unknown stage")
	}

	detailsOnly := valid
	detailsOnly.Irregularity = Irregularity{Details: "seal broken"}
	if err := detailsOnly.Validate(); err == nil {
		t.Fatalf("expected error for details without an irregularity")
	}
}
