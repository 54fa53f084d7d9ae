// Package catalog reads asset metadata from the catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stashdrop/stashdrop/pkg/domain"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/version"
)

// DefaultTimeout bounds a catalog request.
const DefaultTimeout = 15 * time.Second

// maxCatalogBytes caps the size of a decoded catalog document.
const maxCatalogBytes = 32 << 20

// ErrNotFound reports that the catalog holds no asset with the requested ID.
var ErrNotFound = errors.New(messages.ErrAssetNotFound)

// Client talks to the catalog service's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// NewClient creates a client for baseURL. A nil httpClient gets a DefaultTimeout client.
func NewClient(baseURL string, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// FetchAll retrieves GET /all.
func (c *Client) FetchAll(ctx context.Context) (domain.Catalog, error) {
	var cat domain.Catalog

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/all", nil)
	if err != nil {
		return cat, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return cat, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cat, fmt.Errorf("%s: %s", messages.ErrCatalogStatus, resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes)).Decode(&cat); err != nil {
		return cat, fmt.Errorf("%s: %w", messages.ErrCatalogDecode, err)
	}
	if cat.Categories == nil {
		cat.Categories = map[string][]domain.AssetRecord{}
	}

	total := 0
	for _, records := range cat.Categories {
		total += len(records)
	}
	c.logger.Debug("catalog fetched", "categories", len(cat.Categories), "assets", total)
	return cat, nil
}

// Find fetches the catalog and returns the record with the given ID.
func (c *Client) Find(ctx context.Context, id string) (domain.AssetRecord, error) {
	cat, err := c.FetchAll(ctx)
	if err != nil {
		return domain.AssetRecord{}, err
	}
	rec, ok := cat.Find(id)
	if !ok {
		return domain.AssetRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}
