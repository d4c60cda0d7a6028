// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders harvested metadata records as CSV and writes the
// run summary.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/scielo-harvest/pkg/types"
)

// Header is the CSV header line, in column order.
var Header = []string{
	"SciELO ID",
	"DOI",
	"original title",
	"ISSN",
	"journal title",
	"total authors",
	"not normalized country",
	"ISO 3166 Affiliation",
	"ISO Language",
}

// Source yields metadata records until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (*types.Document, error)
}

// WriteCSV writes the header line and one row per record pulled from src.
// Each row is flushed before the next record is requested. It returns the
// number of rows written.
func WriteCSV(ctx context.Context, src Source, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}

	rows := 0
	for {
		doc, err := src.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}

		if _, err := bw.WriteString(FormatRow(Row(doc)) + "\n"); err != nil {
			return rows, fmt.Errorf("writing row %d: %w", rows+1, err)
		}
		if err := bw.Flush(); err != nil {
			return rows, fmt.Errorf("writing row %d: %w", rows+1, err)
		}
		rows++
	}
}

// Row derives the nine CSV fields of doc.
func Row(doc *types.Document) []string {
	var countries, isoCodes []string
	for _, aff := range doc.MixedAffiliations {
		countries = append(countries, aff.Country)
		isoCodes = append(isoCodes, aff.CountryISO3166)
	}

	return []string{
		doc.PublisherID,
		doc.DOI,
		doc.OriginalTitle,
		doc.Journal.SciELOISSN,
		doc.Journal.Title,
		strconv.Itoa(len(doc.Authors)),
		joinSet(countries),
		joinSet(isoCodes),
		joinSet(doc.Languages),
	}
}

// joinSet upper-cases the non-empty values, removes duplicates and joins
// them with ";" in sorted order.
func joinSet(values []string) string {
	seen := make(map[string]bool, len(values))
	var set []string
	for _, v := range values {
		if v == "" {
			continue
		}
		v = strings.ToUpper(v)
		if seen[v] {
			continue
		}
		seen[v] = true
		set = append(set, v)
	}
	sort.Strings(set)
	return strings.Join(set, ";")
}

// FormatRow quotes every field and joins them with commas. Embedded double
// quotes are doubled.
func FormatRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = Quote(f)
	}
	return strings.Join(quoted, ",")
}

// Quote wraps s in double quotes, doubling any quote inside it.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
