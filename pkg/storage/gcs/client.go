package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"google.golang.org/api/option"
)

const (
	pingTimeout       = 5 * time.Second
	maxSignedURLTTL   = 7 * 24 * time.Hour
	defaultPublicBase = "https://storage.googleapis.com"
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client signs upload URLs and manages objects in the product image bucket.
type Client struct {
	storage    *storage.Client
	bucket     string
	publicBase string
	uploadTTL  time.Duration
	signer     *serviceAccount
	now        func() time.Time
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// SignedUpload is what a browser needs to PUT an object directly to the bucket.
type SignedUpload struct {
	URL       string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Object    string            `json:"object"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// NewClient builds the storage client. Explicit service-account credentials are
// also used for local signing; without them signing goes through IAM signBlob.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	var (
		opts   []option.ClientOption
		signer *serviceAccount
	)
	rawCreds := strings.TrimSpace(gcp.CredentialsJSON)
	if rawCreds == "" && gcp.ApplicationCredentials != "" {
		data, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		rawCreds = string(data)
	}
	if rawCreds != "" {
		sa, err := parseServiceAccount(rawCreds)
		if err != nil {
			return nil, err
		}
		signer = sa
		opts = append(opts, option.WithCredentialsJSON([]byte(rawCreds)))
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := &Client{
		storage:    sc,
		bucket:     cfg.BucketName,
		publicBase: cfg.PublicBaseURL,
		uploadTTL:  cfg.UploadURLExpiry,
		signer:     signer,
		now:        time.Now,
	}

	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func parseServiceAccount(raw string) (*serviceAccount, error) {
	var sa serviceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	return &sa, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// SignedUploadURL returns a V4 signed PUT URL bound to contentType.
func (c *Client) SignedUploadURL(object, contentType string) (*SignedUpload, error) {
	if c == nil || c.bucket == "" {
		return nil, errNotInitialized
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return nil, errors.New("object name is required")
	}
	if strings.TrimSpace(contentType) == "" {
		return nil, errors.New("content type is required")
	}

	ttl := c.uploadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if ttl > maxSignedURLTTL {
		ttl = maxSignedURLTTL
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	expires := now().Add(ttl)

	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     expires,
	}

	var (
		signed string
		err    error
	)
	switch {
	case c.signer != nil:
		opts.GoogleAccessID = c.signer.ClientEmail
		opts.PrivateKey = []byte(c.signer.PrivateKey)
		signed, err = storage.SignedURL(c.bucket, object, opts)
	case c.storage != nil:
		signed, err = c.storage.Bucket(c.bucket).SignedURL(object, opts)
	default:
		return nil, errNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("signing upload url: %w", err)
	}

	return &SignedUpload{
		URL:       signed,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		Object:    object,
		PublicURL: c.PublicURL(object),
		ExpiresAt: expires.UTC(),
	}, nil
}

// PublicURL is the read URL stored on products once the upload finishes.
func (c *Client) PublicURL(object string) string {
	if c == nil {
		return ""
	}
	base := strings.TrimRight(c.publicBase, "/")
	if base == "" {
		base = defaultPublicBase
	}
	segments := strings.Split(strings.TrimLeft(object, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", base, url.PathEscape(c.bucket), strings.Join(segments, "/"))
}

// DeleteObject removes an object. Missing objects are not an error.
func (c *Client) DeleteObject(ctx context.Context, object string) error {
	if c == nil || c.storage == nil {
		return errNotInitialized
	}
	err := c.storage.Bucket(c.bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting %s: %w", object, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.storage == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.storage.Bucket(c.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %q: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.storage == nil {
		return nil
	}
	return c.storage.Close()
}
