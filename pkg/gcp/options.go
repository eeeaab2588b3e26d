// Package gcp holds the credential and error helpers shared by the Google
// Cloud clients.
package gcp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ClientOptions picks inline credentials over a credentials file. With
// neither set the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig, extra ...option.ClientOption) []option.ClientOption {
	opts := append([]option.ClientOption(nil), extra...)
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return append(opts, option.WithCredentialsJSON([]byte(raw)))
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return append(opts, option.WithCredentialsFile(path))
	}
	return opts
}

// IsNotFound matches both REST (googleapi) and gRPC not-found errors.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}

// Transient reports whether a single API error is worth retrying: throttling,
// timeouts and server-side failures over either REST or gRPC.
func Transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	switch status.Code(err) {
	case codes.Aborted, codes.DeadlineExceeded, codes.Internal,
		codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}
