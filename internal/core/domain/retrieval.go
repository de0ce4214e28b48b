package domain

type Query struct {
	RawText string `json:"raw_text"`
}

// RetrievalFilter pins a search to a single entity. The zero value searches everything.
type RetrievalFilter struct {
	Entity string `json:"entity,omitempty"`
}

func (f RetrievalFilter) IsSet() bool {
	return f.Entity != ""
}

type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult []ScoredChunk

func (r RetrievalResult) Texts() []string {
	out := make([]string, 0, len(r))
	for _, c := range r {
		out = append(out, c.Text)
	}
	return out
}

type Answer struct {
	Text    string          `json:"text"`
	Sources RetrievalResult `json:"sources"`
	Filter  RetrievalFilter `json:"filter"`
}
