// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articlemeta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scielo-harvest/pkg/types"
)

func TestClient_URL(t *testing.T) {
	c := &Client{}
	assert.Equal(t,
		"http://articlemeta.scielo.org/api/v1/article/?code=S0102-311X2016000600601&collection=scl&format=json",
		c.URL("S0102-311X2016000600601", "scl"))
}

func TestClient_Fetch(t *testing.T) {
	var gotCode, gotCollection, gotFormat, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCode = r.URL.Query().Get("code")
		gotCollection = r.URL.Query().Get("collection")
		gotFormat = r.URL.Query().Get("format")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleArticleJSON))
	}))
	defer ts.Close()

	c := NewClient(types.ArticleMetaConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "scielo-harvest/test"},
		BaseURL:    ts.URL + "/api/v1/article/",
		MaxRetries: 1,
	})

	b, err := c.Fetch(context.Background(), "S0102-311X2016000600601", "scl")
	require.NoError(t, err)

	assert.JSONEq(t, sampleArticleJSON, string(b))
	assert.Equal(t, "S0102-311X2016000600601", gotCode)
	assert.Equal(t, "scl", gotCollection)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "scielo-harvest/test", gotUA)
}

func TestClient_Fetch_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"404", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"null body", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("null\n")) }},
		{"empty body", func(w http.ResponseWriter, _ *http.Request) {}},
		{"empty object", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("{}")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c := &Client{HTTP: ts.Client(), BaseURL: ts.URL + "/"}
			_, err := c.Fetch(context.Background(), "S0001", "scl")
			assert.ErrorIs(t, err, types.ErrDocumentNotFound)
		})
	}
}

func TestClient_Fetch_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := &Client{HTTP: ts.Client(), BaseURL: ts.URL + "/"}
	_, err := c.Fetch(context.Background(), "S0001", "scl")
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrDocumentNotFound))
	assert.Contains(t, err.Error(), "HTTP 403")
}

// fakeFetcher serves canned payloads keyed by collection/pid.
type fakeFetcher struct {
	payloads map[string]string
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, pid, col string) ([]byte, error) {
	f.calls++
	p, ok := f.payloads[col+"/"+pid]
	if !ok {
		return nil, types.ErrDocumentNotFound
	}
	return []byte(p), nil
}

func TestService_Document(t *testing.T) {
	f := &fakeFetcher{payloads: map[string]string{
		"scl/S0102-311X2016000600601": sampleArticleJSON,
		"arg/S0001":                   `{"code": "S0001"}`,
		"arg/BAD":                     `{"code": `,
	}}
	s := &Service{Fetcher: f}

	doc, err := s.Document(context.Background(), "S0102-311X2016000600601", "scl")
	require.NoError(t, err)
	assert.Equal(t, "S0102-311X2016000600601", doc.PublisherID)

	doc, err = s.Document(context.Background(), "S0001", "arg")
	require.NoError(t, err)
	assert.Equal(t, "arg", doc.Collection, "collection falls back to the requested one")

	_, err = s.Document(context.Background(), "MISSING", "scl")
	assert.ErrorIs(t, err, types.ErrDocumentNotFound)

	_, err = s.Document(context.Background(), "BAD", "arg")
	assert.Error(t, err)
	assert.Equal(t, 4, f.calls)
}
