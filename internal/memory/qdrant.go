package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// QdrantIndex implements schemas.VectorIndex against a Qdrant points API.
// Record payloads are stored as-is; their field names are the wire contract.
type QdrantIndex struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *zap.Logger
}

// -- Qdrant API Structures (internal to this file) --

type qdrantPoint struct {
	ID      string               `json:"id"`
	Vector  []float32            `json:"vector"`
	Payload schemas.MemoryRecord `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64              `json:"score"`
		Payload schemas.MemoryRecord `json:"payload"`
	} `json:"result"`
}

type qdrantScrollRequest struct {
	Limit       int  `json:"limit"`
	WithPayload bool `json:"with_payload"`
}

type qdrantScrollResponse struct {
	Result struct {
		Points []struct {
			Payload schemas.MemoryRecord `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

type qdrantCollectionResponse struct {
	Result struct {
		Status      string `json:"status"`
		PointsCount int64  `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type qdrantCreateCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

// NewQdrantIndex builds the client from configuration.
func NewQdrantIndex(cfg config.MemoryConfig, logger *zap.Logger) *QdrantIndex {
	baseURL := cfg.QdrantURL
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantIndex{
		baseURL:    baseURL,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.Named("memory.qdrant"),
	}
}

// EnsureCollection creates the collection with cosine distance when it does
// not exist yet. An existing collection is left untouched.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	if _, err := q.CollectionInfo(ctx); err == nil {
		return nil
	}

	var req qdrantCreateCollectionRequest
	req.Vectors.Size = vectorSize
	req.Vectors.Distance = "Cosine"

	if err := q.call(ctx, http.MethodPut, q.collectionPath(""), req, nil); err != nil {
		return fmt.Errorf("create collection %q: %w", q.collection, err)
	}
	q.logger.Info("Created vector collection", zap.String("collection", q.collection), zap.Int("vector_size", vectorSize))
	return nil
}

// Upsert stores one embedding with its payload.
func (q *QdrantIndex) Upsert(ctx context.Context, id string, embedding []float32, rec schemas.MemoryRecord) error {
	req := qdrantUpsertRequest{Points: []qdrantPoint{{ID: id, Vector: embedding, Payload: rec}}}
	if err := q.call(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), req, nil); err != nil {
		return fmt.Errorf("upsert point %s: %w", id, err)
	}
	return nil
}

// Search returns the nearest records, best score first (Qdrant's own order).
func (q *QdrantIndex) Search(ctx context.Context, embedding []float32, limit int) ([]schemas.SearchHit, error) {
	req := qdrantSearchRequest{Vector: embedding, Limit: limit, WithPayload: true}
	var resp qdrantSearchResponse
	if err := q.call(ctx, http.MethodPost, q.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]schemas.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, schemas.SearchHit{Score: r.Score, Record: r.Payload})
	}
	return hits, nil
}

// RecentPoints scrolls up to limit points. Qdrant scroll order is by point
// ID, so "recent" is approximate; callers are warned by the contract.
func (q *QdrantIndex) RecentPoints(ctx context.Context, limit int) ([]schemas.MemoryRecord, error) {
	req := qdrantScrollRequest{Limit: limit, WithPayload: true}
	var resp qdrantScrollResponse
	if err := q.call(ctx, http.MethodPost, q.collectionPath("/points/scroll"), req, &resp); err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}

	records := make([]schemas.MemoryRecord, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		records = append(records, p.Payload)
	}
	return records, nil
}

// DeleteCollection drops the whole collection.
func (q *QdrantIndex) DeleteCollection(ctx context.Context) error {
	if err := q.call(ctx, http.MethodDelete, q.collectionPath(""), nil, nil); err != nil {
		return fmt.Errorf("delete collection %q: %w", q.collection, err)
	}
	q.logger.Info("Deleted vector collection", zap.String("collection", q.collection))
	return nil
}

// CollectionInfo reports collection statistics.
func (q *QdrantIndex) CollectionInfo(ctx context.Context) (schemas.CollectionInfo, error) {
	var resp qdrantCollectionResponse
	if err := q.call(ctx, http.MethodGet, q.collectionPath(""), nil, &resp); err != nil {
		return schemas.CollectionInfo{}, fmt.Errorf("collection info: %w", err)
	}
	return schemas.CollectionInfo{
		Name:        q.collection,
		PointsCount: resp.Result.PointsCount,
		VectorSize:  resp.Result.Config.Params.Vectors.Size,
		Status:      resp.Result.Status,
	}, nil
}

func (q *QdrantIndex) collectionPath(suffix string) string {
	return "/collections/" + q.collection + suffix
}

// call issues one JSON request with a short backoff on transient failures.
func (q *QdrantIndex) call(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	b.MaxInterval = 2 * time.Second

	operation := func() error {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if bodyBytes != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := q.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			apiErr := fmt.Errorf("qdrant %s %s: status %d", method, path, resp.StatusCode)
			if resp.StatusCode < 500 {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}
		if respBody == nil {
			return nil
		}
		return json.Unmarshal(raw, respBody)
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

var _ schemas.VectorIndex = (*QdrantIndex)(nil)
