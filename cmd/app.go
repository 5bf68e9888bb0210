package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/orin-music/orin-api/internal/audio"
	"github.com/orin-music/orin-api/internal/config"
	"github.com/orin-music/orin-api/internal/database"
	"github.com/orin-music/orin-api/internal/embedder"
	"github.com/orin-music/orin-api/internal/events"
	"github.com/orin-music/orin-api/internal/indexer"
	"github.com/orin-music/orin-api/internal/llm"
	"github.com/orin-music/orin-api/internal/lrclib"
	"github.com/orin-music/orin-api/internal/metrics"
	"github.com/orin-music/orin-api/internal/pipeline"
	"github.com/orin-music/orin-api/internal/segmenter"
	"github.com/orin-music/orin-api/internal/storage"
)

// app bundles the long-lived components the commands share.
type app struct {
	cfg      *config.Config
	curated  *database.CuratedStore
	ledger   *database.Ledger
	bus      *events.Bus
	seg      *segmenter.Segmenter
	emb      *embedder.Embedder
	index    *indexer.Indexer
	store    *storage.R2 // nil when R2 is not configured
	cw       *metrics.Client
	skips    *audio.SkipLogger
	runner   *pipeline.Runner
	importer *pipeline.Importer
}

// newApp opens the databases and wires the pipeline stack.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	for _, dir := range []string{
		filepath.Dir(cfg.CuratedDBPath),
		filepath.Dir(cfg.StatusDBPath),
		cfg.AudioDir(),
		cfg.SnippetsDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	curated, err := database.OpenCurated(cfg.CuratedDBPath)
	if err != nil {
		return nil, fmt.Errorf("open curated database: %w", err)
	}

	ledger, err := database.OpenLedger(cfg.StatusDBPath)
	if err != nil {
		curated.Close()
		return nil, fmt.Errorf("open status database: %w", err)
	}

	providers := llm.NewProviderFactory(
		cfg.GroqAPIKey, cfg.GroqModel,
		cfg.CerebrasAPIKey, cfg.CerebrasModel,
	).Providers(cfg.LLMProviders)
	if len(providers) == 0 {
		log.Println("⚠️  No LLM providers configured - segmentation will fail")
	}
	seg := segmenter.New(providers)

	cw, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️ CloudWatch metrics disabled: %v", err)
	}
	if cw != nil {
		seg.Tokens = cw
	}

	emb := embedder.New(embedder.Config{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	})

	index, err := indexer.New(indexer.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		URL:    cfg.QdrantURL,
		APIKey: cfg.QdrantAPIKey,
	})
	if err != nil {
		ledger.Close()
		curated.Close()
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	var store *storage.R2
	if cfg.IsR2Configured() {
		store, err = storage.New(ctx, storage.Config{
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2BucketName,
			PublicDomain:    cfg.R2PublicDomain,
		})
		if err != nil {
			index.Close()
			ledger.Close()
			curated.Close()
			return nil, fmt.Errorf("connect to R2: %w", err)
		}
	} else {
		log.Println("⚠️  R2 not configured - snippets stay on local disk")
	}

	skips := audio.NewSkipLogger(cfg.SkippedSongsLog())
	bus := events.NewBus()

	processor := &pipeline.Processor{
		AudioDir:    cfg.AudioDir(),
		SnippetsDir: cfg.SnippetsDir(),
		Audio:       audio.NewDownloader(cfg.AudioDir()),
		Probe:       audio.ProbeDuration,
		Slice:       audio.Slice,
		Segmenter:   seg,
		Embedder:    emb,
		Index:       index,
		SkipLog:     skips,
	}
	if store != nil {
		processor.Uploader = store
	}

	runner := &pipeline.Runner{
		Catalog:   curated,
		Ledger:    ledger,
		Processor: processor,
		Bus:       bus,
		Embedder:  emb,
		OutputDir: cfg.OutputDir,
	}
	if cfg.BatchSegmentation {
		runner.BatchSegmenter = seg
	}
	if cw != nil {
		runner.Metrics = cw
	}

	importer := &pipeline.Importer{
		Curated:  curated,
		Playlist: youtubePlaylists{},
		Lyrics:   lrclib.New(),
		Bus:      bus,
	}

	return &app{
		cfg:      cfg,
		curated:  curated,
		ledger:   ledger,
		bus:      bus,
		seg:      seg,
		emb:      emb,
		index:    index,
		store:    store,
		cw:       cw,
		skips:    skips,
		runner:   runner,
		importer: importer,
	}, nil
}

// Close releases databases and connections.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		log.Printf("⚠️ Could not close qdrant connection: %v", err)
	}
	if err := a.ledger.Close(); err != nil {
		log.Printf("⚠️ Could not close status database: %v", err)
	}
	if err := a.curated.Close(); err != nil {
		log.Printf("⚠️ Could not close curated database: %v", err)
	}
}

// youtubePlaylists adapts the yt-dlp helpers to the importer's interface.
type youtubePlaylists struct{}

func (youtubePlaylists) ExtractVideos(ctx context.Context, playlistURL string) ([]audio.PlaylistVideo, error) {
	return audio.ExtractPlaylistVideos(ctx, playlistURL)
}

func (youtubePlaylists) Title(ctx context.Context, playlistURL string) (string, error) {
	return audio.PlaylistTitle(ctx, playlistURL)
}
