package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClientOptions(t *testing.T) {
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: `{"k":"v"}`, ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "  "}))
	assert.Len(t, ClientOptions(config.GCPConfig{}, option.WithScopes("s")), 1)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, IsNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.True(t, IsNotFound(status.Error(codes.NotFound, "gone")))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"rest 503":    {&googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		"rest 429":    {fmt.Errorf("wrap: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), true},
		"rest 400":    {&googleapi.Error{Code: http.StatusBadRequest}, false},
		"grpc busy":   {status.Error(codes.Unavailable, "busy"), true},
		"grpc denied": {status.Error(codes.PermissionDenied, "no"), false},
		"opaque":      {errors.New("opaque"), false},
		"nil":         {nil, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Transient(tc.err))
		})
	}
}
