package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() Config {
	return Config{
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "snippets-bucket",
	}
}

func TestConfigIsConfigured(t *testing.T) {
	assert.True(t, fullConfig().IsConfigured())

	partial := fullConfig()
	partial.SecretAccessKey = ""
	assert.False(t, partial.IsConfigured())

	assert.False(t, Config{}.IsConfigured())
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "only-bucket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "snippets/abc-123.opus", Key("abc-123", ".opus"))
	assert.Equal(t, "snippets/abc-123.opus", Key("abc-123", ""))
	assert.Equal(t, "snippets/abc-123.mp3", Key("abc-123", ".mp3"))
}

func TestPublicURL(t *testing.T) {
	ctx := context.Background()

	r2, err := New(ctx, fullConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://snippets-bucket.r2.dev/snippets/x.opus", r2.PublicURL("snippets/x.opus"))

	cfg := fullConfig()
	cfg.PublicDomain = "cdn.example.com"
	r2, err = New(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/snippets/x.opus", r2.PublicURL("snippets/x.opus"))
}
