// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scielo-harvest/pkg/types"
)

const wantHeader = "SciELO ID,DOI,original title,ISSN,journal title,total authors,not normalized country,ISO 3166 Affiliation,ISO Language"

// sliceSource yields docs, then err (io.EOF when nil).
type sliceSource struct {
	docs  []*types.Document
	err   error
	pulls int
}

func (s *sliceSource) Next(context.Context) (*types.Document, error) {
	s.pulls++
	if len(s.docs) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	d := s.docs[0]
	s.docs = s.docs[1:]
	return d, nil
}

func fullDocument() *types.Document {
	return &types.Document{
		PublisherID:   "S0102-311X2016000600601",
		DOI:           "10.1590/0102-311X00115815",
		OriginalTitle: "Zika virus and microcephaly",
		Journal:       types.Journal{SciELOISSN: "0102-311X", Title: `Journal "X"`},
		Authors:       []types.Author{{Surname: "Silva"}, {Surname: "Pérez"}, {Surname: "Souza"}},
		MixedAffiliations: []types.Affiliation{
			{Index: "A01", Country: "Brazil", CountryISO3166: "br"},
			{Index: "A02", Country: "brazil", CountryISO3166: "BR"},
			{Index: "A03", Country: "Argentina", CountryISO3166: "ar"},
			{Index: "A04"},
		},
		Languages: []string{"pt", "en", "PT"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	src := &sliceSource{docs: []*types.Document{fullDocument(), {PublisherID: "S0001"}}}

	rows, err := WriteCSV(context.Background(), src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, wantHeader, lines[0])
	assert.Equal(t,
		`"S0102-311X2016000600601","10.1590/0102-311X00115815","Zika virus and microcephaly","0102-311X","Journal ""X""","3","ARGENTINA;BRAZIL","AR;BR","EN;PT"`,
		lines[1])
	assert.Equal(t, `"S0001","","","","","0","","",""`, lines[2])
}

func TestWriteCSV_EmptySource(t *testing.T) {
	var buf bytes.Buffer
	rows, err := WriteCSV(context.Background(), &sliceSource{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
	assert.Equal(t, wantHeader+"\n", buf.String())
}

func TestWriteCSV_SourceError(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("lookup failed")
	src := &sliceSource{docs: []*types.Document{{PublisherID: "S0001"}}, err: boom}

	rows, err := WriteCSV(context.Background(), src, &buf)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rows)
	assert.Contains(t, buf.String(), `"S0001"`, "rows before the failure are already written")
}

// countingWriter records how many bytes reached it when each write happened.
type countingWriter struct {
	writes []int
	total  int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.total += len(p)
	w.writes = append(w.writes, w.total)
	return len(p), nil
}

func TestWriteCSV_FlushesEachRow(t *testing.T) {
	w := &countingWriter{}
	src := &sliceSource{docs: []*types.Document{{PublisherID: "A"}, {PublisherID: "B"}}}

	_, err := WriteCSV(context.Background(), src, w)
	require.NoError(t, err)
	assert.Len(t, w.writes, 3, "header and each row reach the writer separately")
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Journal "X"`, `"Journal ""X"""`},
		{"plain", `"plain"`},
		{"", `""`},
		{"a,b", `"a,b"`},
		{`"`, `""""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), tt.in)
	}
}

func TestRow_NoAuthors(t *testing.T) {
	row := Row(&types.Document{PublisherID: "S0001", Authors: nil})
	assert.Equal(t, "0", row[5])

	row = Row(&types.Document{PublisherID: "S0001", Authors: []types.Author{}})
	assert.Equal(t, "0", row[5])
}

func TestRow_AbsentAffiliations(t *testing.T) {
	doc := &types.Document{PublisherID: "S0001", MixedAffiliations: nil}
	require.NotPanics(t, func() { Row(doc) })

	row := Row(doc)
	assert.Equal(t, "", row[6])
	assert.Equal(t, "", row[7])
}

func TestRow_ColumnCount(t *testing.T) {
	assert.Len(t, Row(fullDocument()), len(Header))
}

func TestJoinSet(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"case-insensitive dedup", []string{"br", "BR", "ar"}, "AR;BR"},
		{"empty values ignored", []string{"", "pt", ""}, "PT"},
		{"nil", nil, ""},
		{"single", []string{"es"}, "ES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinSet(tt.values))
		})
	}
}
