// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest pages through search engine results and resolves every
// identifier found into a metadata record, one record at a time.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/scielo-harvest/internal/httputil"
	"github.com/pdiddy/scielo-harvest/internal/search"
	"github.com/pdiddy/scielo-harvest/pkg/types"
)

const defaultMaxAttempts = 5

// PageFetcher requests one page of search results for query.
type PageFetcher interface {
	FetchPage(ctx context.Context, query url.Values) (search.Page, error)
}

// Lookup resolves an identifier to its metadata record. It returns
// types.ErrDocumentNotFound when the service has no record.
type Lookup interface {
	Document(ctx context.Context, publisherID, collection string) (*types.Document, error)
}

// Stats counts what a harvest has done so far.
type Stats struct {
	Pages          int   `json:"pages" yaml:"pages"`
	Requests       int   `json:"requests" yaml:"requests"`
	FailedRequests int   `json:"failed_requests" yaml:"failed_requests"`
	Offsets        []int `json:"offsets" yaml:"offsets"`
	Identifiers    int   `json:"identifiers" yaml:"identifiers"`
	Documents      int   `json:"documents" yaml:"documents"`
	NotFound       int   `json:"not_found" yaml:"not_found"`
	NumFound       int   `json:"num_found" yaml:"num_found"`
}

// Harvester is a pull iterator over the metadata records matching a search.
// It holds at most one page of identifiers and is not restartable.
type Harvester struct {
	pages  PageFetcher
	lookup Lookup
	log    logrus.FieldLogger

	query       url.Values
	pageSize    int
	from        int
	policy      types.BadStatusPolicy
	maxAttempts int

	pending []search.Identifier
	done    bool
	err     error
	stats   Stats
}

// New prepares a harvest of the search described by rawURL, a URL copied
// from the SciELO search website.
func New(rawURL string, pages PageFetcher, lookup Lookup, cfg types.SearchConfig, log logrus.FieldLogger) (*Harvester, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = search.DefaultPageSize
	}
	query, err := search.BuildQuery(rawURL, pageSize)
	if err != nil {
		return nil, err
	}

	policy := cfg.OnBadStatus
	if policy == "" {
		policy = types.PolicyRetry
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown bad-status policy %q (want %q or %q)", policy, types.PolicyRetry, types.PolicySkip)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Harvester{
		pages:       pages,
		lookup:      lookup,
		log:         log,
		query:       query,
		pageSize:    pageSize,
		from:        1,
		policy:      policy,
		maxAttempts: maxAttempts,
	}, nil
}

// Query returns a copy of the current search query.
func (h *Harvester) Query() url.Values {
	q := make(url.Values, len(h.query))
	for k, v := range h.query {
		q[k] = append([]string(nil), v...)
	}
	return q
}

// Stats returns a snapshot of the harvest counters.
func (h *Harvester) Stats() Stats {
	s := h.stats
	s.Offsets = append([]int(nil), h.stats.Offsets...)
	return s
}

// Next returns the next metadata record. It returns io.EOF once a page
// yields no identifiers. After any other error every call returns that
// error again.
func (h *Harvester) Next(ctx context.Context) (*types.Document, error) {
	for {
		if h.err != nil {
			return nil, h.err
		}

		if len(h.pending) > 0 {
			id := h.pending[0]
			h.pending = h.pending[1:]

			doc, err := h.lookup.Document(ctx, id.PublisherID, id.Collection)
			if errors.Is(err, types.ErrDocumentNotFound) {
				h.stats.NotFound++
				h.log.WithFields(logrus.Fields{"pid": id.PublisherID, "collection": id.Collection}).
					Warn("document not found in metadata service, skipping")
				continue
			}
			if err != nil {
				h.err = fmt.Errorf("looking up %s/%s: %w", id.Collection, id.PublisherID, err)
				return nil, h.err
			}
			h.stats.Documents++
			return doc, nil
		}

		if h.done {
			return nil, io.EOF
		}

		if err := h.fetchPage(ctx); err != nil {
			h.err = err
			return nil, err
		}
	}
}

// fetchPage requests the page at the current offset and queues its
// identifiers. An empty page marks the harvest done.
func (h *Harvester) fetchPage(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		from := h.from
		h.query.Set("from", strconv.Itoa(from))
		if h.policy == types.PolicySkip {
			h.from += h.pageSize
		}

		h.stats.Requests++
		h.stats.Offsets = append(h.stats.Offsets, from)
		page, err := h.pages.FetchPage(ctx, h.query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !h.retryable(err) {
				return fmt.Errorf("fetching page from=%d: %w", from, err)
			}
			h.stats.FailedRequests++
			if attempt+1 >= h.maxAttempts {
				return fmt.Errorf("fetching page from=%d: giving up after %d attempts: %w", from, attempt+1, err)
			}
			log := h.log.WithFields(logrus.Fields{"from": from, "attempt": attempt + 1}).WithError(err)
			if h.policy == types.PolicySkip {
				log.Warn("page request failed, skipping to the next page")
				continue
			}
			wait := httputil.Backoff(attempt)
			log.Warnf("page request failed, retrying in %v", wait)
			if err := httputil.Sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if h.policy == types.PolicyRetry {
			h.from += h.pageSize
		}
		h.stats.Pages++
		if page.NumFound > 0 {
			h.stats.NumFound = page.NumFound
		}

		h.log.WithFields(logrus.Fields{"from": from, "ids": len(page.IDs), "num_found": page.NumFound}).Info("fetched page")
		h.log.WithField("from", from).Debugf("page identifiers: %v", page.IDs)

		if len(page.IDs) == 0 {
			h.done = true
			return nil
		}

		h.stats.Identifiers += len(page.IDs)
		h.pending = make([]search.Identifier, 0, len(page.IDs))
		for _, raw := range page.IDs {
			h.pending = append(h.pending, search.SplitIdentifier(raw))
		}
		return nil
	}
}

// retryable reports whether a failed page request is retried under the
// configured policy. Non-200 responses always are; transport failures only
// under the retry policy.
func (h *Harvester) retryable(err error) bool {
	var se *search.StatusError
	if errors.As(err, &se) {
		return true
	}
	var re *search.RequestError
	return h.policy == types.PolicyRetry && errors.As(err, &re)
}
