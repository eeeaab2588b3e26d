package gcs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Client{
		bucket:    "brewcart-media",
		uploadTTL: 10 * time.Minute,
		signer:    &serviceAccount{ClientEmail: "signer@example.iam.gserviceaccount.com", PrivateKey: string(pemKey)},
		now:       func() time.Time { return fixed },
	}
}

func TestSignedUploadURL(t *testing.T) {
	t.Parallel()
	client := testClient(t)

	upload, err := client.SignedUploadURL("/stores/s1/products/p1/img.png", "image/png")
	require.NoError(t, err)

	parsed, err := url.Parse(upload.URL)
	require.NoError(t, err)
	require.Equal(t, "storage.googleapis.com", parsed.Host)
	require.True(t, strings.HasPrefix(parsed.Path, "/brewcart-media/stores/s1/products/p1/img.png"))

	q := parsed.Query()
	require.Equal(t, "GOOG4-RSA-SHA256", q.Get("X-Goog-Algorithm"))
	require.Equal(t, "600", q.Get("X-Goog-Expires"))
	require.Contains(t, q.Get("X-Goog-Credential"), "signer@example.iam.gserviceaccount.com")
	require.Contains(t, q.Get("X-Goog-SignedHeaders"), "content-type")

	require.Equal(t, "PUT", upload.Method)
	require.Equal(t, "image/png", upload.Headers["Content-Type"])
	require.Equal(t, "stores/s1/products/p1/img.png", upload.Object)
	require.Equal(t, "https://storage.googleapis.com/brewcart-media/stores/s1/products/p1/img.png", upload.PublicURL)
	require.Equal(t, time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC), upload.ExpiresAt)
}

func TestSignedUploadURLErrors(t *testing.T) {
	t.Parallel()
	client := testClient(t)

	_, err := client.SignedUploadURL("", "image/png")
	require.Error(t, err)

	_, err = client.SignedUploadURL("a.png", " ")
	require.Error(t, err)

	var nilClient *Client
	_, err = nilClient.SignedUploadURL("a.png", "image/png")
	require.ErrorIs(t, err, errNotInitialized)

	_, err = (&Client{bucket: "b"}).SignedUploadURL("a.png", "image/png")
	require.ErrorIs(t, err, errNotInitialized)
}

func TestPublicURLUsesConfiguredBase(t *testing.T) {
	client := &Client{bucket: "media", publicBase: "https://cdn.example.com/"}
	require.Equal(t, "https://cdn.example.com/media/a%20b/c.png", client.PublicURL("a b/c.png"))
}

func TestParseServiceAccount(t *testing.T) {
	_, err := parseServiceAccount(`{"client_email":""}`)
	require.Error(t, err)

	sa, err := parseServiceAccount(`{"client_email":"x@y","private_key":"k"}`)
	require.NoError(t, err)
	require.Equal(t, "x@y", sa.ClientEmail)
}
