package domain

import "testing"

func TestChunkPointIDIsStable(t *testing.T) {
	a := Chunk{Text: "x", SourceID: "https://en.wikipedia.org/?curid=1", Sequence: 2}
	b := Chunk{Text: "changed text", SourceID: "https://en.wikipedia.org/?curid=1", Sequence: 2}
	if a.PointID() != b.PointID() {
		t.Fatalf("expected same id for same source and position")
	}
	b.Sequence = 3
	if a.PointID() == b.PointID() {
		t.Fatalf("expected different ids for different positions")
	}
}

func TestDistanceValid(t *testing.T) {
	if !DistanceCosine.Valid() || Distance("Manhattan").Valid() {
		t.Fatalf("unexpected distance validation")
	}
}
