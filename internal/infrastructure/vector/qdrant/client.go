package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/resilience"
)

const entityField = "entity"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	err := c.do(ctx, "qdrant.exists", http.MethodGet, collectionPath(name)+"/exists", nil, &out)
	if err != nil {
		return false, err
	}
	return out.Result.Exists, nil
}

// CreateCollection fails when the collection already exists. It also indexes the entity
// payload field so filtered searches stay cheap.
func (c *Client) CreateCollection(ctx context.Context, collection domain.Collection) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     collection.Dimension,
			"distance": string(collection.Distance),
		},
	}
	if err := c.do(ctx, "qdrant.create_collection", http.MethodPut, collectionPath(collection.Name), body, nil); err != nil {
		return err
	}

	index := map[string]any{
		"field_name":   entityField,
		"field_schema": "keyword",
	}
	path := collectionPath(collection.Name) + "/index?wait=true"
	if err := c.do(ctx, "qdrant.create_index", http.MethodPut, path, index, nil); err != nil {
		return fmt.Errorf("create entity index: %w", err)
	}
	return nil
}

// DeleteCollection treats a missing collection as already deleted.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	err := c.do(ctx, "qdrant.delete_collection", http.MethodDelete, collectionPath(name), nil, nil)
	var statusErr *resilience.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

type point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

type pointPayload struct {
	Text     string `json:"text"`
	Entity   string `json:"entity"`
	SourceID string `json:"source_id"`
	Sequence int    `json:"sequence_index"`
}

func (c *Client) Upsert(ctx context.Context, collection string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]point, 0, len(chunks))
	for _, ec := range chunks {
		points = append(points, point{
			ID:     ec.Chunk.PointID().String(),
			Vector: ec.Vector,
			Payload: pointPayload{
				Text:     ec.Chunk.Text,
				Entity:   ec.Chunk.Entity,
				SourceID: ec.Chunk.SourceID,
				Sequence: ec.Chunk.Sequence,
			},
		})
	}
	path := collectionPath(collection) + "/points?wait=true"
	return c.do(ctx, "qdrant.upsert", http.MethodPut, path, map[string]any{"points": points}, nil)
}

func (c *Client) Search(
	ctx context.Context,
	collection string,
	queryVector []float32,
	limit int,
	filter domain.RetrievalFilter,
) (domain.RetrievalResult, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.IsSet() {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   entityField,
					"match": map[string]any{"value": filter.Entity},
				},
			},
		}
	}

	var searchResp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	path := collectionPath(collection) + "/points/search"
	if err := c.do(ctx, "qdrant.search", http.MethodPost, path, reqBody, &searchResp); err != nil {
		return nil, err
	}

	out := make(domain.RetrievalResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredChunk{
			Chunk: domain.Chunk{
				Text:     r.Payload.Text,
				Entity:   r.Payload.Entity,
				SourceID: r.Payload.SourceID,
				Sequence: r.Payload.Sequence,
			},
			Score: r.Score,
		})
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := collectionPath(collection) + "/points/count"
	if err := c.do(ctx, "qdrant.count", http.MethodPost, path, map[string]any{"exact": true}, &out); err != nil {
		return 0, err
	}
	return out.Result.Count, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewStatusError("qdrant", operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporary(operation, err)
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}
