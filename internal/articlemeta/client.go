// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package articlemeta looks up SciELO document metadata in the ArticleMeta
// API and maps its ISIS-style JSON records to types.Document.
package articlemeta

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sethgrid/pester"

	"github.com/pdiddy/scielo-harvest/pkg/types"
)

// DefaultBaseURL is the ArticleMeta article endpoint.
const DefaultBaseURL = "http://articlemeta.scielo.org/api/v1/article/"

// Fetcher returns the raw JSON record of one document. Implementations
// return types.ErrDocumentNotFound when the service has no such record.
type Fetcher interface {
	Fetch(ctx context.Context, publisherID, collection string) ([]byte, error)
}

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches article records over HTTP.
type Client struct {
	HTTP      Doer
	BaseURL   string
	UserAgent string
}

// NewClient returns a Client backed by a pester client with exponential
// backoff that also retries HTTP 429.
func NewClient(cfg types.ArticleMetaConfig) *Client {
	hc := pester.New()
	hc.Backoff = pester.ExponentialBackoff
	hc.RetryOnHTTP429 = true
	if cfg.MaxRetries > 0 {
		hc.MaxRetries = cfg.MaxRetries
	}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{HTTP: hc, BaseURL: base, UserAgent: cfg.UserAgent}
}

// URL returns the lookup URL for one document.
func (c *Client) URL(publisherID, collection string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	vs := url.Values{}
	vs.Set("code", publisherID)
	vs.Set("collection", collection)
	vs.Set("format", "json")
	return base + "?" + vs.Encode()
}

// Fetch requests the JSON record for (publisherID, collection).
func (c *Client) Fetch(ctx context.Context, publisherID, collection string) ([]byte, error) {
	link := c.URL(publisherID, collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ArticleMeta request %s: %w", link, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s/%s: %w", collection, publisherID, types.ErrDocumentNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("ArticleMeta returned HTTP %d for %s", resp.StatusCode, link)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ArticleMeta response: %w", err)
	}
	if isEmptyRecord(b) {
		return nil, fmt.Errorf("%s/%s: %w", collection, publisherID, types.ErrDocumentNotFound)
	}
	return b, nil
}

// isEmptyRecord reports whether body carries no record: empty, null or {}.
func isEmptyRecord(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("{}"))
}

// Service resolves documents by fetching and parsing their records.
type Service struct {
	Fetcher Fetcher
}

// Document returns the metadata of (publisherID, collection).
func (s *Service) Document(ctx context.Context, publisherID, collection string) (*types.Document, error) {
	b, err := s.Fetcher.Fetch(ctx, publisherID, collection)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(b)
	if err != nil {
		return nil, fmt.Errorf("parsing ArticleMeta record %s/%s: %w", collection, publisherID, err)
	}
	if doc.Collection == "" {
		doc.Collection = collection
	}
	return doc, nil
}
