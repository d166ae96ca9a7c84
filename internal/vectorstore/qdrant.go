package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	vgrerrors "github.com/vectorgrep/vgrep/internal/errors"
)

// QdrantStore implements Store against a remote Qdrant collection over
// gRPC, for deployments that want the index to outlive and be shared
// across process restarts without managing an on-disk HNSW file directly.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore dials host:port and returns a store bound to collection.
// EnsureCollection still has to be called before Upsert/Search will work.
func NewQdrantStore(host string, port int, collection string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", host, port, err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int, metric string) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	dist := qdrant.Distance_Cosine
	if metric == "l2" {
		dist = qdrant.Distance_Euclid
	}

	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: dist,
		}),
	}); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// qdrantRetryConfig governs retries for transient gRPC failures talking to a
// remote Qdrant collection; a locally-embedded HNSW store has no equivalent
// failure mode and doesn't use this.
var qdrantRetryConfig = vgrerrors.RetryConfig{
	MaxRetries:   3,
	InitialDelay: 250 * time.Millisecond,
	MaxDelay:     4 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// Upsert writes records to the collection, retrying the gRPC call with
// exponential backoff since an indexing run's Qdrant connection sharing a
// network path with the rest of a CI job is the most likely place a
// transient failure shows up.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"path":        r.Payload.Path,
				"startLine":   r.Payload.StartLine,
				"endLine":     r.Payload.EndLine,
				"contentHash": r.Payload.ContentHash,
				"nodeType":    r.Payload.NodeKind,
				"symbolName":  r.Payload.SymbolName,
			}),
		}
	}

	err := vgrerrors.Retry(ctx, qdrantRetryConfig, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStore) DeleteByPath(ctx context.Context, path string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("path", path)},
	}
	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	}); err != nil {
		return fmt.Errorf("failed to delete points for path %s: %w", path, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	limit := uint64(k)
	withPayload := qdrant.NewWithPayloadEnable(true)

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    withPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", s.collection, err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		results = append(results, Result{
			ID:      pointIDString(p.GetId()),
			Score:   p.GetScore(),
			Payload: payloadFromFields(p.GetPayload()),
		})
	}
	return results, nil
}

// DropCollection deletes the collection outright. A collection that was
// never created is treated the same as one successfully dropped.
func (s *QdrantStore) DropCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Count retries its gRPC call the same way Upsert does: cheap, idempotent,
// worth a few backoff attempts before surfacing a failure to the caller.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := vgrerrors.RetryWithResult(ctx, qdrantRetryConfig, func() (int, error) {
		resp, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.collection,
			Exact:          &exact,
		})
		if err != nil {
			return 0, err
		}
		return int(resp), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points in %s: %w", s.collection, err)
	}
	return n, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadFromFields(fields map[string]*qdrant.Value) Payload {
	return Payload{
		Path:        fields["path"].GetStringValue(),
		StartLine:   int(fields["startLine"].GetIntegerValue()),
		EndLine:     int(fields["endLine"].GetIntegerValue()),
		ContentHash: fields["contentHash"].GetStringValue(),
		NodeKind:    fields["nodeType"].GetStringValue(),
		SymbolName:  fields["symbolName"].GetStringValue(),
	}
}
