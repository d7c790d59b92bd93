package schemas

import "context"

// -- Inference Collaborator Contracts --

// GenerationRequest carries one text-generation call to the inference
// collaborator. Images are raw encoded frames for vision-capable models.
type GenerationRequest struct {
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	Images      [][]byte `json:"images,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	ForceJSON   bool     `json:"force_json,omitempty"`
}

// InferenceClient abstracts the embedding / text-generation model. Responses
// may be wrapped in prose or markdown; callers must sanitize before parsing.
type InferenceClient interface {
	// Generate produces free text for the given request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// -- Vector Memory Collaborator Contracts --

// CollectionInfo summarizes the state of the backing vector collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	PointsCount int64  `json:"points_count"`
	VectorSize  int    `json:"vector_size"`
	Status      string `json:"status,omitempty"`
}

// VectorIndex abstracts the similarity store. Implementations persist the
// MemoryRecord payload verbatim and return hits sorted descending by score.
type VectorIndex interface {
	// EnsureCollection creates the backing collection if it does not exist.
	EnsureCollection(ctx context.Context, vectorSize int) error
	// Upsert stores one embedding with its record payload.
	Upsert(ctx context.Context, id string, embedding []float32, rec MemoryRecord) error
	// Search returns up to limit nearest records, best score first.
	Search(ctx context.Context, embedding []float32, limit int) ([]SearchHit, error)
	// RecentPoints returns up to limit recently written records. Ordering is
	// backend-defined and callers must treat it as approximate.
	RecentPoints(ctx context.Context, limit int) ([]MemoryRecord, error)
	// DeleteCollection drops the whole collection.
	DeleteCollection(ctx context.Context) error
	// CollectionInfo reports collection statistics.
	CollectionInfo(ctx context.Context) (CollectionInfo, error)
}
