package domain

import (
	"fmt"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.MustParse("6f1c3a52-4a3e-4d1b-9a55-3d0c2b7e8f10")

// Document is the raw text fetched for one entity. It is never mutated after loading.
type Document struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
	Entity   string `json:"entity"`
}

// Chunk is a bounded window of a Document's text. Entity and SourceID are always
// copied from the parent Document; filtered retrieval depends on it.
type Chunk struct {
	Text     string `json:"text"`
	Entity   string `json:"entity"`
	SourceID string `json:"source_id"`
	Sequence int    `json:"sequence_index"`
}

// PointID is stable for a given source and position, so re-indexing overwrites instead of
// duplicating.
func (c Chunk) PointID() uuid.UUID {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", c.SourceID, c.Sequence)))
}

type EmbeddedChunk struct {
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"vector"`
}

type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceDot    Distance = "Dot"
	DistanceEuclid Distance = "Euclid"
)

func (d Distance) Valid() bool {
	switch d {
	case DistanceCosine, DistanceDot, DistanceEuclid:
		return true
	default:
		return false
	}
}

// Collection describes a named vector index. It can only be created whole or dropped whole.
type Collection struct {
	Name      string   `json:"name"`
	Dimension int      `json:"dimension"`
	Distance  Distance `json:"distance"`
}
