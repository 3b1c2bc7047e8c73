// Package catalog talks to the upstream catalog service: one-shot product
// fetches, asynchronous comparison tasks, and the summary feed that seeds the
// search engine.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/kozydot/findr/pkg/httpclient"
	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/reconcile"
	"github.com/kozydot/findr/pkg/tracing"
)

// Client implements reconcile.Client against the upstream REST API.
type Client struct {
	baseURL string
	http    *httpclient.Client
	logger  ectologger.Logger
}

var _ reconcile.Client = (*Client)(nil)

// NewClient creates a catalog client rooted at baseURL.
func NewClient(baseURL string, httpClient *httpclient.Client, logger ectologger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// FetchProduct retrieves the current aggregate for a product. A 404 maps to
// reconcile.ErrNotFound; any other non-2xx status is an error.
func (c *Client) FetchProduct(ctx context.Context, productID string) (*models.ProductRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Client.FetchProduct")
	defer span.End()

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, url.PathEscape(productID)))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, reconcile.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch product %q: upstream returned %d", productID, resp.StatusCode)
	}

	var record models.ProductRecord
	if err := resp.JSON(&record); err != nil {
		return nil, fmt.Errorf("fetch product %q: %w", productID, err)
	}
	return &record, nil
}

// RequestComparison triggers an asynchronous multi-retailer comparison. The
// upstream answers with the task id as a plain-text body.
func (c *Client) RequestComparison(ctx context.Context, productID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Client.RequestComparison")
	defer span.End()

	resp, err := c.http.Post(ctx, fmt.Sprintf("%s/api/v1/products/%s/compare", c.baseURL, url.PathEscape(productID)), nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("request comparison for %q: upstream returned %d", productID, resp.StatusCode)
	}

	taskID := strings.TrimSpace(string(resp.Body))
	if taskID == "" {
		return "", fmt.Errorf("request comparison for %q: upstream returned empty task id", productID)
	}
	return taskID, nil
}

// PollComparisonResult checks a comparison task. A 202 means the task is
// still running; a 200 carries the terminal partial update.
func (c *Client) PollComparisonResult(ctx context.Context, taskID string) (*models.PartialUpdate, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Client.PollComparisonResult")
	defer span.End()

	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/api/v1/products/comparison/%s", c.baseURL, url.PathEscape(taskID)))
	if err != nil {
		return nil, false, err
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil, true, nil
	case http.StatusOK:
		var update models.PartialUpdate
		if err := resp.JSON(&update); err != nil {
			return nil, false, fmt.Errorf("poll comparison %q: %w", taskID, err)
		}
		return &update, false, nil
	default:
		return nil, false, fmt.Errorf("poll comparison %q: upstream returned %d", taskID, resp.StatusCode)
	}
}

// FetchCatalog retrieves product summaries for the search engine. query is
// optional; empty fetches the full catalog listing.
func (c *Client) FetchCatalog(ctx context.Context, query string) ([]models.ProductSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Client.FetchCatalog")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/products", c.baseURL)
	if query != "" {
		endpoint += "/search?q=" + url.QueryEscape(query)
	}

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: upstream returned %d", resp.StatusCode)
	}

	var summaries []models.ProductSummary
	if err := resp.JSON(&summaries); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return summaries, nil
}

// Ping reports upstream reachability for health checks. Any response below
// 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/api/v1/products", c.baseURL))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("upstream unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
