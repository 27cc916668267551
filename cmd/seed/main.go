package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/graph/neo4j"
	"github.com/adgraph/backend/internal/llm"
	"github.com/adgraph/backend/internal/seed"
	"github.com/adgraph/backend/internal/vector/milvus"
	"github.com/adgraph/backend/pkg/config"
	appLogger "github.com/adgraph/backend/pkg/logger"
)

func main() {
	var (
		randomSeed = flag.Int64("seed", 42, "random seed for reproducible data")
		numClients = flag.Int("clients", 5, "number of clients to generate")
		metricDays = flag.Int("days", 90, "days of metric history per entity")
		reset      = flag.Bool("reset", false, "delete existing generated data first")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Seeding graph with generated advertising data",
		zap.Int64("seed", *randomSeed),
		zap.Int("clients", *numClients),
		zap.Int("metric_days", *metricDays),
	)

	graphClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
	}
	ctx := context.Background()
	defer graphClient.Close(ctx)

	if err := graphClient.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize graph schema", zap.Error(err))
	}

	params := seed.DefaultParams()
	params.NumClients = *numClients
	params.MetricDays = *metricDays

	generator := seed.NewGenerator(*randomSeed, time.Now().UTC())
	data := generator.Generate(params)

	if *reset {
		for _, client := range data.Clients {
			if err := graphClient.DeleteClientData(ctx, client.ID); err != nil {
				appLogger.Warn("Failed to delete client data", zap.Error(err))
			}
		}
	}

	for _, client := range data.Clients {
		if err := graphClient.UpsertClient(ctx, client); err != nil {
			appLogger.Fatal("Failed to upsert client", zap.Error(err), zap.String("client", client.Name))
		}
	}
	for _, campaign := range data.Campaigns {
		if err := graphClient.UpsertCampaign(ctx, campaign); err != nil {
			appLogger.Fatal("Failed to upsert campaign", zap.Error(err), zap.String("campaign", campaign.Name))
		}
	}
	for _, adset := range data.AdSets {
		if err := graphClient.UpsertAdSet(ctx, adset); err != nil {
			appLogger.Fatal("Failed to upsert ad set", zap.Error(err), zap.String("adset", adset.Name))
		}
	}
	for _, ad := range data.Ads {
		if err := graphClient.UpsertAd(ctx, ad); err != nil {
			appLogger.Fatal("Failed to upsert ad", zap.Error(err), zap.String("ad", ad.Name))
		}
	}

	batchSize := 500
	for i := 0; i < len(data.Metrics); i += batchSize {
		end := i + batchSize
		if end > len(data.Metrics) {
			end = len(data.Metrics)
		}
		if err := graphClient.InsertMetrics(ctx, data.Metrics[i:end]); err != nil {
			appLogger.Fatal("Failed to insert metrics", zap.Error(err))
		}
	}

	appLogger.Info("Graph seeded",
		zap.Int("clients", len(data.Clients)),
		zap.Int("campaigns", len(data.Campaigns)),
		zap.Int("adsets", len(data.AdSets)),
		zap.Int("ads", len(data.Ads)),
		zap.Int("metric_rows", len(data.Metrics)),
	)

	if cfg.Milvus.Enabled {
		if err := indexEntityNames(ctx, cfg, data); err != nil {
			appLogger.Fatal("Failed to index entity names", zap.Error(err))
		}
	}

	for _, client := range data.Clients {
		fmt.Printf("client %s  %s (%s)\n", client.ID, client.Name, client.Industry)
	}
}

// indexEntityNames embeds campaign and ad set names into the semantic index
// so retrieval can find entities by similarity.
func indexEntityNames(ctx context.Context, cfg *config.Config, data *seed.Dataset) error {
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	})

	index, err := milvus.NewIndex(
		cfg.Milvus.Endpoint,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		llmClient,
	)
	if err != nil {
		return err
	}
	defer index.Close()

	if err := index.CreateCollection(ctx); err != nil {
		return err
	}

	var entries []milvus.IndexedEntity
	var texts []string

	for _, campaign := range data.Campaigns {
		entries = append(entries, milvus.IndexedEntity{
			EntityID: campaign.ID,
			ClientID: campaign.ClientID,
			Name:     campaign.Name,
			Kind:     "campaign",
		})
		texts = append(texts, campaign.Name)
	}
	for _, adset := range data.AdSets {
		entries = append(entries, milvus.IndexedEntity{
			EntityID: adset.ID,
			ClientID: adset.ClientID,
			Name:     adset.Name,
			Kind:     "adset",
		})
		texts = append(texts, adset.Name)
	}

	embeddings, err := llmClient.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(entries) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(entries), len(embeddings))
	}

	for i := range entries {
		entries[i].Embedding = embeddings[i]
	}

	appLogger.Info("Indexing entity names", zap.Int("count", len(entries)))

	return index.Insert(ctx, entries)
}
