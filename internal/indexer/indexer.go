package indexer

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

const (
	// CollectionName holds the indexed song snippets.
	CollectionName = "song_snippets"

	// VectorSize matches the embedding model output after truncation.
	VectorSize = 768
)

// SnippetPayload is the metadata stored alongside each snippet vector.
type SnippetPayload struct {
	SnippetID        string  `json:"snippet_id"`
	SongTitle        string  `json:"song_title"`
	Artist           string  `json:"artist"`
	Album            string  `json:"album"`
	Lyrics           string  `json:"lyrics"`
	AIDescription    string  `json:"ai_description"`
	SnippetURL       string  `json:"snippet_url"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	PrimaryEmotion   string  `json:"primary_emotion"`
	SecondaryEmotion string  `json:"secondary_emotion"`
	Energy           string  `json:"energy"`
	Tone             string  `json:"tone"`
	Genre            string  `json:"genre"`
	TrackID          int64   `json:"track_id"`
}

// SearchFilters narrow a vector search. Empty fields are ignored.
type SearchFilters struct {
	Energy         string
	PrimaryEmotion string
	Genre          string
}

// SearchHit is one scored result from the collection.
type SearchHit struct {
	Score   float32
	Payload SnippetPayload
}

// CollectionInfo summarizes the collection state.
type CollectionInfo struct {
	Name        string `json:"name"`
	PointsCount uint64 `json:"points_count"`
	Status      string `json:"status"`
}

// Config selects local or cloud Qdrant. URL plus APIKey means cloud.
type Config struct {
	Host   string
	Port   int
	URL    string
	APIKey string
}

// Indexer manages the song snippets vector collection.
type Indexer struct {
	client *qdrant.Client
}

// New connects to Qdrant. Cloud mode is used when both URL and APIKey are
// set, otherwise host and port.
func New(cfg Config) (*Indexer, error) {
	clientCfg := &qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	}

	if cfg.URL != "" && cfg.APIKey != "" {
		host, port, useTLS, err := parseCloudURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		clientCfg.Host = host
		clientCfg.Port = port
		clientCfg.APIKey = cfg.APIKey
		clientCfg.UseTLS = useTLS
		log.Printf("☁️ Connecting to Qdrant Cloud at %s", host)
	} else {
		log.Printf("🔌 Connecting to Qdrant at %s:%d", cfg.Host, cfg.Port)
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Indexer{client: client}, nil
}

func parseCloudURL(raw string) (host string, port int, useTLS bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("qdrant url %q: %w", raw, err)
	}
	host = u.Hostname()
	if host == "" {
		host = raw
	}
	useTLS = u.Scheme != "http"
	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("qdrant url port %q: %w", p, err)
		}
	}
	return host, port, useTLS, nil
}

// EnsureCollection creates the collection if it does not exist.
func (ix *Indexer) EnsureCollection(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	log.Printf("✅ Created collection %s (%d dims, cosine)", CollectionName, VectorSize)
	return nil
}

// Clear drops and recreates the collection.
func (ix *Indexer) Clear(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if err := ix.client.DeleteCollection(ctx, CollectionName); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
	}
	return ix.EnsureCollection(ctx)
}

// Count returns the number of indexed snippets, 0 if the collection is
// missing.
func (ix *Indexer) Count(ctx context.Context) (uint64, error) {
	exists, err := ix.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return 0, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}

	count, err := ix.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return count, nil
}

// UpsertSnippets indexes vectors with their payloads. Lengths must match and
// point ids are the snippet uuids.
func (ix *Indexer) UpsertSnippets(ctx context.Context, vectors [][]float32, payloads []SnippetPayload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("vectors/payloads length mismatch: %d vs %d", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return nil
	}

	if err := ix.EnsureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, vec := range vectors {
		p := payloads[i]
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.SnippetID),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				"snippet_id":        p.SnippetID,
				"song_title":        p.SongTitle,
				"artist":            p.Artist,
				"album":             p.Album,
				"lyrics":            p.Lyrics,
				"ai_description":    p.AIDescription,
				"snippet_url":       p.SnippetURL,
				"start_time":        p.StartTime,
				"end_time":          p.EndTime,
				"primary_emotion":   p.PrimaryEmotion,
				"secondary_emotion": p.SecondaryEmotion,
				"energy":            p.Energy,
				"tone":              p.Tone,
				"genre":             p.Genre,
				"track_id":          p.TrackID,
			}),
		})
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	log.Printf("📊 Indexed %d snippets", len(points))
	return nil
}

// Search runs a vector similarity query with optional payload filters.
func (ix *Indexer) Search(ctx context.Context, vector []float32, limit int, filters SearchFilters) ([]SearchHit, error) {
	query := &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	var must []*qdrant.Condition
	if filters.Energy != "" {
		must = append(must, qdrant.NewMatch("energy", filters.Energy))
	}
	if filters.PrimaryEmotion != "" {
		must = append(must, qdrant.NewMatch("primary_emotion", filters.PrimaryEmotion))
	}
	if filters.Genre != "" {
		must = append(must, qdrant.NewMatch("genre", strings.ToLower(filters.Genre)))
	}
	if len(must) > 0 {
		query.Filter = &qdrant.Filter{Must: must}
	}

	points, err := ix.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	hits := make([]SearchHit, 0, len(points))
	for _, sp := range points {
		hits = append(hits, SearchHit{
			Score:   sp.GetScore(),
			Payload: payloadFromValues(sp.GetPayload()),
		})
	}
	return hits, nil
}

// Info returns collection name, point count and status.
func (ix *Indexer) Info(ctx context.Context) (*CollectionInfo, error) {
	info, err := ix.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	return &CollectionInfo{
		Name:        CollectionName,
		PointsCount: info.GetPointsCount(),
		Status:      info.GetStatus().String(),
	}, nil
}

// DeleteSnippets removes points by snippet id.
func (ix *Indexer) DeleteSnippets(ctx context.Context, snippetIDs []string) error {
	if len(snippetIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, 0, len(snippetIDs))
	for _, id := range snippetIDs {
		ids = append(ids, qdrant.NewID(id))
	}

	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (ix *Indexer) Close() error {
	return ix.client.Close()
}

func payloadFromValues(values map[string]*qdrant.Value) SnippetPayload {
	str := func(key string) string { return values[key].GetStringValue() }
	num := func(key string) float64 {
		if v, ok := values[key]; ok {
			if d := v.GetDoubleValue(); d != 0 {
				return d
			}
			return float64(v.GetIntegerValue())
		}
		return 0
	}

	return SnippetPayload{
		SnippetID:        str("snippet_id"),
		SongTitle:        str("song_title"),
		Artist:           str("artist"),
		Album:            str("album"),
		Lyrics:           str("lyrics"),
		AIDescription:    str("ai_description"),
		SnippetURL:       str("snippet_url"),
		StartTime:        num("start_time"),
		EndTime:          num("end_time"),
		PrimaryEmotion:   str("primary_emotion"),
		SecondaryEmotion: str("secondary_emotion"),
		Energy:           str("energy"),
		Tone:             str("tone"),
		Genre:            str("genre"),
		TrackID:          values["track_id"].GetIntegerValue(),
	}
}
