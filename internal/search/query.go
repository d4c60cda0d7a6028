// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of identifiers requested per page.
const DefaultPageSize = 100

// BuildQuery derives the search engine query from a URL copied from the
// SciELO search website. Only parameters whose name contains "q" or
// "filter" are kept, blank values are dropped, and output, from and count
// are forced to the XML output, the first offset and pageSize.
func BuildQuery(rawURL string, pageSize int) (url.Values, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing search URL: %w", err)
	}

	query := url.Values{}
	for key, values := range parseQuery(u.RawQuery) {
		if !strings.Contains(key, "q") && !strings.Contains(key, "filter") {
			continue
		}
		for _, v := range values {
			if v == "" {
				continue
			}
			query.Add(key, v)
		}
	}

	query.Set("output", "xml")
	query.Set("from", "1")
	query.Set("count", strconv.Itoa(pageSize))
	return query, nil
}

// Identifier addresses one document in the metadata service.
type Identifier struct {
	// Collection is the collection acronym (e.g. "scl").
	Collection string

	// PublisherID is the SciELO PID (e.g. "S0102-311X2016000600601").
	PublisherID string
}

// SplitIdentifier derives the collection code (last 3 characters) and the
// publisher id (first 23 characters) from a raw search engine id such as
// "S0102-311X2016000600601-scl". The length is not validated: shorter
// strings yield the whole string for both parts and an empty string yields
// an empty Identifier.
func SplitIdentifier(raw string) Identifier {
	r := []rune(raw)
	col := r
	if len(r) > 3 {
		col = r[len(r)-3:]
	}
	pid := r
	if len(r) > 23 {
		pid = r[:23]
	}
	return Identifier{Collection: string(col), PublisherID: string(pid)}
}

// parseQuery splits a raw query into its pairs. Unlike url.ParseQuery it
// never drops a pair: "+" becomes a space and a percent sign that does not
// start a valid escape is kept as literal text. Pairs without "=" are ignored.
func parseQuery(raw string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = unescape(key)
		values[key] = append(values[key], unescape(value))
	}
	return values
}

// unescape decodes "+" and every valid %XX sequence in s, leaving invalid
// escapes untouched.
func unescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}
