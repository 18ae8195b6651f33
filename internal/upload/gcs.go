package upload

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	UploadExpiry    time.Duration
	AccessExpiry    time.Duration
}

// GCSPresigner signs V4 PUT and GET URLs against a bucket owned by this service.
type GCSPresigner struct {
	client       *storage.Client
	bucket       string
	uploadExpiry time.Duration
	accessExpiry time.Duration
	now          func() time.Time
}

func NewGCSPresigner(ctx context.Context, cfg GCSConfig) (*GCSPresigner, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is not configured")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client failed: %w", err)
	}
	if cfg.UploadExpiry <= 0 {
		cfg.UploadExpiry = 15 * time.Minute
	}
	if cfg.AccessExpiry <= 0 {
		cfg.AccessExpiry = 24 * time.Hour
	}
	return &GCSPresigner{
		client:       client,
		bucket:       bucket,
		uploadExpiry: cfg.UploadExpiry,
		accessExpiry: cfg.AccessExpiry,
		now:          time.Now,
	}, nil
}

func (g *GCSPresigner) Presign(_ context.Context, req Request) (*Ticket, error) {
	now := g.now()
	key := ObjectKey(req, now)
	handle := g.client.Bucket(g.bucket)

	uploadURL, err := handle.SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: MediaType(req.FileType),
		Expires:     now.Add(g.uploadExpiry),
	})
	if err != nil {
		return nil, fmt.Errorf("sign upload url failed: %w", err)
	}
	accessURL, err := handle.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: now.Add(g.accessExpiry),
	})
	if err != nil {
		return nil, fmt.Errorf("sign access url failed: %w", err)
	}

	return &Ticket{
		UploadURL: uploadURL,
		AccessURL: accessURL,
		FileKey:   key,
		Bucket:    g.bucket,
		Expires:   now.Add(g.uploadExpiry),
	}, nil
}

func (g *GCSPresigner) Close() error {
	return g.client.Close()
}
