package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/cache"
	"github.com/raycargo/backoffice/internal/infra/client"
	"github.com/raycargo/backoffice/internal/infra/resilience"
)

func newDirectory(t *testing.T, h http.HandlerFunc) *client.DirectoryClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := cache.New[*domain.Client](time.Minute)
	t.Cleanup(c.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return client.NewDirectoryClient(srv.Client(), srv.URL, cfg, c)
}

func TestGetClient_DecodesAndCaches(t *testing.T) {
	var calls atomic.Int32
	dir := newDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/clients/client-1", r.URL.Path)
		json.NewEncoder(w).Encode(domain.Client{
			ID:         "client-1",
			Name:       "Ana Díaz",
			Department: "Hialeah",
			Recipients: []domain.Recipient{{ID: "r-1", Name: "Luis Díaz"}},
		})
	})

	for i := 0; i < 3; i++ {
		got, err := dir.GetClient(context.Background(), "client-1")
		require.NoError(t, err)
		assert.Equal(t, "Hialeah", got.Department)
		require.Len(t, got.Recipients, 1)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	dir := newDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := dir.GetClient(context.Background(), "ghost")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "client", nf.Resource)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetClient_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	dir := newDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := dir.GetClient(context.Background(), "client-1")

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "client-directory", ext.Service)
	assert.Equal(t, int32(3), calls.Load())

	// failures are not cached
	_, err = dir.GetClient(context.Background(), "client-1")
	assert.Error(t, err)
	assert.Equal(t, int32(6), calls.Load())
}

func TestPing(t *testing.T) {
	dir := newDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	assert.Equal(t, "client-directory", dir.Name())
	assert.Error(t, dir.Ping(context.Background()))
}
