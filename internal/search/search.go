// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search talks to the SciELO search engine: it builds the paged
// query from a website URL and extracts document identifiers from the
// engine's XML output.
package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/pdiddy/scielo-harvest/internal/httputil"
)

// DefaultBaseURL is the search engine endpoint. Requests are plain HTTP.
const DefaultBaseURL = "http://search.scielo.org/"

// StatusError reports a search response with a status other than 200.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search engine returned HTTP %d for %s", e.Code, e.URL)
}

// RequestError wraps a transport failure (connection error, timeout).
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("search request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Page is one page of search results.
type Page struct {
	// IDs are the raw document identifiers in response order.
	IDs []string

	// NumFound is the total hit count reported by the engine, zero if absent.
	NumFound int

	// Start is the zero-based offset reported by the engine.
	Start int
}

// Client fetches result pages from the search engine.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
}

// URL returns the fully qualified request URL for query.
func (c *Client) URL(query url.Values) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "?" + query.Encode()
}

// FetchPage requests one page and returns the identifiers it contains.
// A non-200 response yields a *StatusError, a transport failure a
// *RequestError. HTTP 429 is retried with backoff before giving up.
func (c *Client) FetchPage(ctx context.Context, query url.Values) (Page, error) {
	link := c.URL(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, &RequestError{URL: link, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Page{}, &StatusError{Code: resp.StatusCode, URL: link}
	}

	page, err := ParsePage(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("parsing search response from %s: %w", link, err)
	}
	return page, nil
}

// errEmptyDocument is returned when a response body holds no XML element.
var errEmptyDocument = errors.New("no root element")

// ParsePage extracts the non-empty text of every str[@name='id'] element
// below a doc element of any result element, at any depth of the document.
func ParsePage(r io.Reader) (Page, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var (
		page Page
		seen bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Page{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		seen = true
		if start.Name.Local != "result" {
			continue
		}

		var res solrResult
		if err := dec.DecodeElement(&res, &start); err != nil {
			return Page{}, err
		}
		if n, err := strconv.Atoi(res.NumFound); err == nil {
			page.NumFound += n
		}
		if n, err := strconv.Atoi(res.Start); err == nil && page.Start == 0 {
			page.Start = n
		}
		for _, doc := range res.Docs {
			for _, s := range doc.Strs {
				if s.Name == "id" && s.Value != "" {
					page.IDs = append(page.IDs, s.Value)
				}
			}
		}
	}

	if !seen {
		return Page{}, errEmptyDocument
	}
	return page, nil
}

// charsetReader decodes responses that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Solr XML response structures.
type solrResult struct {
	NumFound string    `xml:"numFound,attr"`
	Start    string    `xml:"start,attr"`
	Docs     []solrDoc `xml:"doc"`
}

type solrDoc struct {
	Strs []solrStr `xml:"str"`
}

type solrStr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}
