package chunking

import "github.com/kirillkom/athlete-rag/internal/core/domain"

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Splitter cuts text into fixed-size character windows. Consecutive windows share
// exactly Overlap characters; only the last window may be shorter than ChunkSize.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) SplitDocument(doc domain.Document) []domain.Chunk {
	windows := s.Split(doc.Text)
	if len(windows) == 0 {
		return nil
	}
	out := make([]domain.Chunk, 0, len(windows))
	for i, text := range windows {
		out = append(out, domain.Chunk{
			Text:     text,
			Entity:   doc.Entity,
			SourceID: doc.SourceID,
			Sequence: i,
		})
	}
	return out
}

func (s *Splitter) Split(text string) []string {
	spans := s.spans(len([]rune(text)))
	if len(spans) == 0 {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, string(runes[sp.start:sp.end]))
	}
	return out
}

type span struct {
	start, end int
}

func (s *Splitter) spans(length int) []span {
	if length == 0 {
		return nil
	}
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]span, 0, length/step+1)
	for start := 0; start < length; start += step {
		end := start + s.ChunkSize
		if end > length {
			end = length
		}
		out = append(out, span{start: start, end: end})
		if end == length {
			break
		}
	}
	return out
}
