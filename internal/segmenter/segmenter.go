// Package segmenter identifies emotionally meaningful lyric segments via LLM.
package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/orin-music/orin-api/internal/llm"
	"github.com/orin-music/orin-api/internal/logger"
)

const (
	maxRetries = 3
	retryDelay = 1 * time.Second

	singleMaxTokens   = 2000
	batchTokensPerSong = 1500
	batchMaxTokens     = 15000

	temperature = 0.3

	// BatchSize is the number of songs per batch LLM call.
	BatchSize = 10
)

// Segment is a meaningful span of lyrics identified by the LLM.
type Segment struct {
	StartLine        int    `json:"start_line"`
	EndLine          int    `json:"end_line"`
	Lyrics           string `json:"lyrics"`
	AIDescription    string `json:"ai_description"`
	PrimaryEmotion   string `json:"primary_emotion"`
	SecondaryEmotion string `json:"secondary_emotion,omitempty"`
	Energy           string `json:"energy"`
	Tone             string `json:"tone"`
}

// Result is the outcome of segmenting a single song.
type Result struct {
	Success    bool
	Segments   []Segment
	Genre      string
	Provider   string
	Error      string
	RetryAfter time.Duration // Non-zero when the provider rate limited the call
}

// BatchSong is one song submitted for batch segmentation.
type BatchSong struct {
	Lyrics  string
	Title   string
	Artist  string
	TrackID int64
}

// SongResult is the per-song outcome within a batch.
type SongResult struct {
	TrackID  int64
	Segments []Segment
	Genre    string
	Error    string
}

// BatchResult is the outcome of a batch segmentation call.
type BatchResult struct {
	SongResults []SongResult
	RetryAfter  time.Duration // Non-zero when the provider rate limited the call
}

// TokenRecorder receives per-call token usage, e.g. a CloudWatch client.
type TokenRecorder interface {
	RecordTokenUsage(provider string, totalTokens, inputTokens, outputTokens int64)
}

// Segmenter runs lyric segmentation against an ordered list of providers.
type Segmenter struct {
	providers []llm.Provider

	// Tokens, when set, records token usage for each successful call.
	Tokens TokenRecorder
}

// New creates a Segmenter. Providers are tried in order until one succeeds.
func New(providers []llm.Provider) *Segmenter {
	return &Segmenter{providers: providers}
}

// SegmentLyrics analyzes one song and identifies meaningful segments.
//
// A rate-limited provider short-circuits: the result carries RetryAfter and
// no other provider or retry is attempted, so the caller can stop cleanly.
func (s *Segmenter) SegmentLyrics(ctx context.Context, lyrics, title, artist string) Result {
	if len(s.providers) == 0 {
		return Result{Error: "no LLM providers configured"}
	}

	prompt := buildPrompt(lyrics, title, artist)
	start := time.Now()
	lastError := ""

	for _, provider := range s.providers {
		for attempt := 0; attempt < maxRetries; attempt++ {
			resp, err := provider.Complete(ctx, llm.ChatRequest{
				SystemPrompt: systemPrompt,
				UserPrompt:   prompt,
				Temperature:  temperature,
				MaxTokens:    singleMaxTokens,
			})

			if err != nil {
				var rle *llm.RateLimitError
				if errors.As(err, &rle) {
					return Result{
						Error:      err.Error(),
						RetryAfter: rle.RetryAfter,
					}
				}

				lastError = fmt.Sprintf("%s error: %v", provider.Name(), err)
				if !sleepBetweenRetries(ctx, attempt) {
					return Result{Error: ctx.Err().Error()}
				}
				continue
			}

			genre, segments, err := parseResponse(resp.Content)
			if err != nil {
				lastError = err.Error()
				if !sleepBetweenRetries(ctx, attempt) {
					return Result{Error: ctx.Err().Error()}
				}
				continue
			}

			if len(segments) > 0 {
				s.record(ctx, provider.Name(), resp.Usage, time.Since(start), 1)
				return Result{
					Success:  true,
					Segments: segments,
					Genre:    genre,
					Provider: provider.Name(),
				}
			}

			lastError = fmt.Sprintf("%s returned no segments", provider.Name())
			if !sleepBetweenRetries(ctx, attempt) {
				return Result{Error: ctx.Err().Error()}
			}
		}
	}

	if lastError == "" {
		lastError = "all providers failed"
	}
	return Result{Error: lastError}
}

// SegmentBatch analyzes up to BatchSize songs in one LLM call.
//
// Songs the model omits from its response get a per-song error entry so
// callers can tell "model skipped it" apart from "call never happened".
func (s *Segmenter) SegmentBatch(ctx context.Context, songs []BatchSong) BatchResult {
	if len(songs) == 0 {
		return BatchResult{}
	}
	if len(s.providers) == 0 {
		return failBatch(songs, "no LLM providers configured")
	}

	prompt := buildBatchPrompt(songs)
	maxTokens := batchTokensPerSong * len(songs)
	if maxTokens > batchMaxTokens {
		maxTokens = batchMaxTokens
	}

	start := time.Now()
	lastError := ""

	for _, provider := range s.providers {
		for attempt := 0; attempt < maxRetries; attempt++ {
			resp, err := provider.Complete(ctx, llm.ChatRequest{
				SystemPrompt: systemPrompt,
				UserPrompt:   prompt,
				Temperature:  temperature,
				MaxTokens:    maxTokens,
			})

			if err != nil {
				var rle *llm.RateLimitError
				if errors.As(err, &rle) {
					return BatchResult{RetryAfter: rle.RetryAfter}
				}

				lastError = fmt.Sprintf("%s error: %v", provider.Name(), err)
				if !sleepBetweenRetries(ctx, attempt) {
					return failBatch(songs, ctx.Err().Error())
				}
				continue
			}

			byIndex, err := parseBatchResponse(resp.Content)
			if err != nil {
				lastError = err.Error()
				if !sleepBetweenRetries(ctx, attempt) {
					return failBatch(songs, ctx.Err().Error())
				}
				continue
			}

			results := make([]SongResult, 0, len(songs))
			for i, song := range songs {
				// song_index counts from 1, matching the SONG headers
				entry, ok := byIndex[i+1]
				if !ok || len(entry.Segments) == 0 {
					results = append(results, SongResult{
						TrackID: song.TrackID,
						Error:   fmt.Sprintf("song %d missing from batch response", i+1),
					})
					continue
				}
				results = append(results, SongResult{
					TrackID:  song.TrackID,
					Segments: toSegments(entry.Segments),
					Genre:    NormalizeGenre(entry.Genre),
				})
			}

			s.record(ctx, provider.Name(), resp.Usage, time.Since(start), len(songs))
			log.Printf("✅ Segmenter: batch of %d songs segmented via %s", len(songs), provider.Name())
			return BatchResult{SongResults: results}
		}
	}

	if lastError == "" {
		lastError = "all providers failed"
	}
	return failBatch(songs, lastError)
}

func (s *Segmenter) record(ctx context.Context, provider string, usage llm.Usage, elapsed time.Duration, songCount int) {
	logger.LogSegmentationRequest(ctx, provider, elapsed, songCount, nil)
	if s.Tokens != nil {
		s.Tokens.RecordTokenUsage(provider, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
	}
}

func failBatch(songs []BatchSong, errMsg string) BatchResult {
	results := make([]SongResult, 0, len(songs))
	for _, song := range songs {
		results = append(results, SongResult{TrackID: song.TrackID, Error: errMsg})
	}
	return BatchResult{SongResults: results}
}

// sleepBetweenRetries waits with linear backoff. Returns false if the
// context was cancelled while waiting.
func sleepBetweenRetries(ctx context.Context, attempt int) bool {
	if attempt >= maxRetries-1 {
		return true
	}
	select {
	case <-time.After(retryDelay * time.Duration(attempt+1)):
		return true
	case <-ctx.Done():
		return false
	}
}
