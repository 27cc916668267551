package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/pkg/logger"
)

// Embedder turns text into the vectors stored in the index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Index is the optional semantic entity lookup over campaign and ad set
// names. Vectors carry the owning client id so search is tenant-filtered at
// the index, not in application code.
type Index struct {
	client         client.Client
	embedder       Embedder
	collectionName string
	vectorDim      int
}

// IndexedEntity is one name vector plus the fields search returns.
type IndexedEntity struct {
	EntityID  string
	ClientID  string
	Name      string
	Kind      string
	Embedding []float32
}

func NewIndex(endpoint, collectionName string, vectorDim int, embedder Embedder) (*Index, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus index initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Index{
		client:         c,
		embedder:       embedder,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (x *Index) Close() error {
	return x.client.Close()
}

func (x *Index) CreateCollection(ctx context.Context) error {
	has, err := x.client.HasCollection(ctx, x.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", x.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: x.collectionName,
		Description:    "Advertising entity name embeddings",
		Fields: []*entity.Field{
			{
				Name:       "entity_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", x.vectorDim),
				},
			},
			{
				Name:     "client_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "name",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "kind",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
		},
	}

	if err := x.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, _ := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err := x.client.CreateIndex(ctx, x.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := x.client.LoadCollection(ctx, x.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", x.collectionName))

	return nil
}

// Insert writes name vectors for a batch of entities.
func (x *Index) Insert(ctx context.Context, entries []IndexedEntity) error {
	if len(entries) == 0 {
		return nil
	}

	entityIDs := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	clientIDs := make([]string, len(entries))
	names := make([]string, len(entries))
	kinds := make([]string, len(entries))

	for i, e := range entries {
		entityIDs[i] = e.EntityID
		embeddings[i] = e.Embedding
		clientIDs[i] = e.ClientID
		names[i] = e.Name
		kinds[i] = e.Kind
	}

	_, err := x.client.Insert(
		ctx,
		x.collectionName,
		"",
		entity.NewColumnVarChar("entity_id", entityIDs),
		entity.NewColumnFloatVector("embedding", x.vectorDim, embeddings),
		entity.NewColumnVarChar("client_id", clientIDs),
		entity.NewColumnVarChar("name", names),
		entity.NewColumnVarChar("kind", kinds),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entities: %w", err)
	}

	if err := x.client.Flush(ctx, x.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Entities indexed", zap.Int("count", len(entries)))

	return nil
}

// SearchEntities embeds the query and returns the client's nearest entities
// by name similarity.
func (x *Index) SearchEntities(ctx context.Context, clientID, query string, limit int) ([]rag.Entity, error) {
	embedding, err := x.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// client_id values are uuids generated by this system; the quote strip
	// guards expression injection anyway.
	expr := fmt.Sprintf(`client_id == "%s"`, strings.ReplaceAll(clientID, `"`, ""))

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := x.client.Search(
		ctx,
		x.collectionName,
		[]string{},
		expr,
		[]string{"entity_id", "name", "kind"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.L2,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var results []rag.Entity
	for _, sr := range searchResult {
		entityIDCol := sr.Fields.GetColumn("entity_id")
		nameCol := sr.Fields.GetColumn("name")
		kindCol := sr.Fields.GetColumn("kind")

		for i := 0; i < sr.ResultCount; i++ {
			entityID, _ := entityIDCol.Get(i)
			name, _ := nameCol.Get(i)
			kind, _ := kindCol.Get(i)

			results = append(results, rag.Entity{
				ID:         asString(entityID),
				Kind:       parseKind(asString(kind)),
				Name:       asString(name),
				Attributes: map[string]any{"similarity": sr.Scores[i]},
			})
		}
	}

	logger.Debug("Semantic entity search completed",
		zap.String("client_id", clientID),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func parseKind(s string) rag.Kind {
	switch s {
	case string(rag.KindAdSet):
		return rag.KindAdSet
	case string(rag.KindAd):
		return rag.KindAd
	default:
		return rag.KindCampaign
	}
}

func asString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
