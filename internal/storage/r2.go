package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const snippetContentType = "audio/opus"

// Config holds the R2 connection settings. All four of Endpoint,
// AccessKeyID, SecretAccessKey and Bucket must be set for uploads to work.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicDomain    string
}

// IsConfigured reports whether enough settings are present to upload.
func (c Config) IsConfigured() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// R2 uploads snippet audio to a Cloudflare R2 bucket via the S3 API.
type R2 struct {
	client *s3.Client
	cfg    Config
}

// New builds an R2 client. Returns an error if the config is incomplete.
func New(ctx context.Context, cfg Config) (*R2, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("R2 storage not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})

	log.Printf("☁️ R2 storage ready (bucket: %s)", cfg.Bucket)
	return &R2{client: client, cfg: cfg}, nil
}

// Key returns the object key for a snippet id.
func Key(snippetID, ext string) string {
	if ext == "" {
		ext = ".opus"
	}
	return "snippets/" + snippetID + ext
}

// UploadSnippet uploads a local audio file and returns its public URL.
func (r *R2) UploadSnippet(ctx context.Context, localPath, snippetID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open snippet: %w", err)
	}
	defer f.Close()

	key := Key(snippetID, filepath.Ext(localPath))
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(snippetContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return r.PublicURL(key), nil
}

// DeleteSnippet removes an object by snippet id and extension.
func (r *R2) DeleteSnippet(ctx context.Context, snippetID, ext string) error {
	key := Key(snippetID, ext)
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PublicURL builds the public URL for an object key. A custom domain wins
// over the default r2.dev form.
func (r *R2) PublicURL(key string) string {
	if r.cfg.PublicDomain != "" {
		return fmt.Sprintf("https://%s/%s", r.cfg.PublicDomain, key)
	}
	return fmt.Sprintf("https://%s.r2.dev/%s", r.cfg.Bucket, key)
}
