// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorstore keeps one Qdrant point per article: a deterministic
// point ID derived from the arXiv identifier, the abstract embedding in a
// named vector slot, and the full Article as payload.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// Defaults applied when the configuration leaves a field empty.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 6334
	DefaultCollection = "arxiv_articles"
	DefaultVectorName = "abstract"
	DefaultDimensions = 768
)

// Payload fields with secondary indexes.
const (
	fieldArxivID     = "arxiv_id"
	fieldPublished   = "published"
	fieldProcessedAt = "processed_at"
)

// ErrLengthMismatch reports parallel article and vector slices of
// different lengths.
var ErrLengthMismatch = errors.New("articles and vectors differ in length")

// pointsClient is the subset of *qdrant.Client the store uses.
type pointsClient interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Store is the article vector index.
type Store struct {
	client     pointsClient
	collection string
	vectorName string
	dimensions uint64
	distance   qdrant.Distance

	mu    sync.Mutex
	ready bool
}

// New connects to Qdrant over gRPC using cfg.
func New(cfg types.VectorStoreConfig) (*Store, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}
	return newStore(client, cfg)
}

func newStore(client pointsClient, cfg types.VectorStoreConfig) (*Store, error) {
	distance, err := parseDistance(cfg.Distance)
	if err != nil {
		return nil, err
	}
	s := &Store{
		client:     client,
		collection: cfg.Collection,
		vectorName: cfg.VectorName,
		dimensions: cfg.Dimensions,
		distance:   distance,
	}
	if s.collection == "" {
		s.collection = DefaultCollection
	}
	if s.vectorName == "" {
		s.vectorName = DefaultVectorName
	}
	if s.dimensions == 0 {
		s.dimensions = DefaultDimensions
	}
	return s, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Collection returns the collection name.
func (s *Store) Collection() string { return s.collection }

func parseDistance(name string) (qdrant.Distance, error) {
	switch strings.ToLower(name) {
	case "", "dot":
		return qdrant.Distance_Dot, nil
	case "cosine":
		return qdrant.Distance_Cosine, nil
	case "euclid", "euclidean":
		return qdrant.Distance_Euclid, nil
	case "manhattan":
		return qdrant.Distance_Manhattan, nil
	default:
		return 0, fmt.Errorf("unknown distance %q: use dot, cosine, euclid or manhattan", name)
	}
}

// EnsureCollection creates the collection and its payload indexes when it
// does not exist yet. It runs at most once per Store once it succeeds.
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		slog.Info("creating collection", "collection", s.collection, "vector", s.vectorName, "size", s.dimensions)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				s.vectorName: {Size: s.dimensions, Distance: s.distance},
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collection, err)
		}

		indexes := []struct {
			field string
			typ   qdrant.FieldType
		}{
			{fieldArxivID, qdrant.FieldType_FieldTypeText},
			{fieldPublished, qdrant.FieldType_FieldTypeDatetime},
			{fieldProcessedAt, qdrant.FieldType_FieldTypeDatetime},
		}
		for _, idx := range indexes {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: s.collection,
				Wait:           qdrant.PtrOf(true),
				FieldName:      idx.field,
				FieldType:      idx.typ.Enum(),
			})
			if err != nil {
				return fmt.Errorf("creating %s index: %w", idx.field, err)
			}
		}
	}

	s.ready = true
	return nil
}

// DeleteCollection drops the collection. A missing collection is not an
// error; the return value reports whether anything was deleted.
func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		return false, nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return false, fmt.Errorf("deleting collection %s: %w", s.collection, err)
	}
	s.ready = false
	return true, nil
}

// Upsert writes one point per article, replacing any point with the same
// ID. articles and vectors are parallel; a length mismatch fails before
// anything is written. Empty input is a no-op.
func (s *Store) Upsert(ctx context.Context, articles []types.Article, vectors [][]float32) error {
	if len(articles) != len(vectors) {
		return fmt.Errorf("%w: %d articles, %d vectors", ErrLengthMismatch, len(articles), len(vectors))
	}
	if len(articles) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(articles))
	for i := range articles {
		p, err := s.point(&articles[i], vectors[i])
		if err != nil {
			return err
		}
		points[i] = p
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// UpsertOne writes a single article and its vector.
func (s *Store) UpsertOne(ctx context.Context, a *types.Article, vector []float32) error {
	return s.Upsert(ctx, []types.Article{*a}, [][]float32{vector})
}

func (s *Store) point(a *types.Article, vector []float32) (*qdrant.PointStruct, error) {
	id, err := PointID(a.ArxivID)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty vector for %s", a.ArxivID)
	}
	payload, err := toPayload(a)
	if err != nil {
		return nil, fmt.Errorf("building payload for %s: %w", a.ArxivID, err)
	}
	return &qdrant.PointStruct{
		Id: qdrant.NewIDNum(id),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			s.vectorName: qdrant.NewVector(vector...),
		}),
		Payload: payload,
	}, nil
}

// exists reports whether the collection is present. Read paths use it so
// that a store which was never written to reads as empty.
func (s *Store) exists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready {
		return true, nil
	}
	ok, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	return ok, nil
}

// Search returns up to limit articles nearest to vector, most similar
// first.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		return []types.SearchResult{}, nil
	}
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return []types.SearchResult{}, err
	}

	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(s.vectorName),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.collection, err)
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, h := range hits {
		a, err := fromPayload(h.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("decoding point %v: %w", h.GetId(), err)
		}
		results = append(results, types.SearchResult{Article: *a, Score: float64(h.GetScore())})
	}

	types.SortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchText embeds query and searches with the resulting vector.
func (s *Store) SearchText(ctx context.Context, e Embedder, query string, limit int) ([]types.SearchResult, error) {
	vector, err := e.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.Search(ctx, vector, limit)
}

// LookupByID returns the stored article whose arxiv_id equals id exactly.
// It reports false when no such article exists.
func (s *Store) LookupByID(ctx context.Context, id string) (*types.Article, bool, error) {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldArxivID, id)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("looking up %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, false, nil
	}
	a, err := fromPayload(points[0].GetPayload())
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", id, err)
	}
	return a, true, nil
}

// Scroll returns up to limit stored articles in no particular order.
func (s *Store) Scroll(ctx context.Context, limit int) ([]types.Article, error) {
	if limit <= 0 {
		return []types.Article{}, nil
	}
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return []types.Article{}, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling %s: %w", s.collection, err)
	}

	articles := make([]types.Article, 0, len(points))
	for _, p := range points {
		a, err := fromPayload(p.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("decoding point %v: %w", p.GetId(), err)
		}
		articles = append(articles, *a)
	}
	return articles, nil
}

// LatestImportWatermark returns the UTC day of the most recently
// published stored article. It reports false when the collection does not
// exist or holds no points.
func (s *Store) LatestImportWatermark(ctx context.Context) (time.Time, bool, error) {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		OrderBy: &qdrant.OrderBy{
			Key:       fieldPublished,
			Direction: qdrant.Direction_Desc.Enum(),
		},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("reading watermark: %w", err)
	}
	if len(points) == 0 {
		return time.Time{}, false, nil
	}

	a, err := fromPayload(points[0].GetPayload())
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decoding watermark point: %w", err)
	}
	if a.Published.IsZero() {
		return time.Time{}, false, fmt.Errorf("watermark point %s has no published date", a.ArxivID)
	}
	p := a.Published.UTC()
	return time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, time.UTC), true, nil
}
