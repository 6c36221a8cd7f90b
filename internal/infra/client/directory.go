// Package client holds HTTP adapters for systems this service reads from
// but does not own.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/cache"
	"github.com/raycargo/backoffice/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// DirectoryClient fetches clients and their saved recipients from the
// client-management API. It implements port.ClientDirectory and
// port.HealthChecker.
type DirectoryClient struct {
	httpClient *http.Client
	baseURL    string
	guard      *resilience.Guard
	cfg        resilience.Config
	cache      *cache.InMemory[*domain.Client]
}

// NewDirectoryClient creates a new DirectoryClient. Lookups are cached for
// the lifetime of c.
func NewDirectoryClient(httpClient *http.Client, baseURL string, cfg resilience.Config, c *cache.InMemory[*domain.Client]) *DirectoryClient {
	return &DirectoryClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		guard:      resilience.NewGuard("client-directory", cfg.MaxConcurrency),
		cfg:        cfg,
		cache:      c,
	}
}

// GetClient fetches a client with retry, circuit breaker, caching and tracing.
func (c *DirectoryClient) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "DirectoryClient.GetClient")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", id))

	client, hit, err := c.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*domain.Client, error) {
		return c.fetch(ctx, id)
	})
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *DirectoryClient) fetch(ctx context.Context, id string) (*domain.Client, error) {
	var (
		client  domain.Client
		missing bool
	)

	err := c.guard.Do(ctx, func(ctx context.Context) error {
		return resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			u := fmt.Sprintf("%s/v1/clients/%s", c.baseURL, url.PathEscape(id))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			// a 404 is an answer, not a failure worth retrying
			if resp.StatusCode == http.StatusNotFound {
				missing = true
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("client directory returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&client)
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "client-directory", Err: err}
	}
	if missing {
		return nil, &domain.ErrNotFound{Resource: "client", ID: id}
	}
	return &client, nil
}

// Breaker exposes the upstream guard for health reporting.
func (c *DirectoryClient) Breaker() *resilience.Guard { return c.guard }

// Name implements port.HealthChecker.
func (c *DirectoryClient) Name() string { return "client-directory" }

// Ping implements port.HealthChecker.
func (c *DirectoryClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("client directory health returned status %d", resp.StatusCode)
	}
	return nil
}
