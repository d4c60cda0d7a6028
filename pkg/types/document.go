// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for scielo-harvest: the
// metadata record returned by the lookup service and run configuration.
package types

import "errors"

// ErrDocumentNotFound is returned by a metadata lookup when the service has
// no record for the requested identifier.
var ErrDocumentNotFound = errors.New("document not found")

// Document is the bibliographic metadata of one SciELO article as returned
// by the ArticleMeta service.
type Document struct {
	// Collection is the collection acronym (e.g. "scl").
	Collection string `json:"collection" yaml:"collection"`

	// PublisherID is the SciELO PID (e.g. "S0102-311X2016000600601").
	PublisherID string `json:"publisher_id" yaml:"publisher_id"`

	// DOI is the bare DOI, empty when the article has none.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// OriginalLanguage is the ISO 639 code of the language the article was written in.
	OriginalLanguage string `json:"original_language,omitempty" yaml:"original_language,omitempty"`

	// OriginalTitle is the title in the original language.
	OriginalTitle string `json:"original_title,omitempty" yaml:"original_title,omitempty"`

	Journal Journal `json:"journal" yaml:"journal"`

	// Authors lists the article authors in source order. Nil when the
	// record carries no author field.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// MixedAffiliations holds the raw affiliations enriched with normalized
	// country data. Nil means the record has no affiliation field at all,
	// which is distinct from an empty list.
	MixedAffiliations []Affiliation `json:"mixed_affiliations,omitempty" yaml:"mixed_affiliations,omitempty"`

	// Languages lists the languages the full text is available in.
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// Journal identifies the journal an article was published in.
type Journal struct {
	SciELOISSN string `json:"scielo_issn" yaml:"scielo_issn"`
	Title      string `json:"title" yaml:"title"`
}

// Author is one entry of the article author list.
type Author struct {
	Surname    string   `json:"surname" yaml:"surname"`
	GivenNames string   `json:"given_names" yaml:"given_names"`
	Role       string   `json:"role,omitempty" yaml:"role,omitempty"`
	XRefs      []string `json:"xref,omitempty" yaml:"xref,omitempty"`
}

// Affiliation is one institution an author is affiliated with. Country and
// CountryISO3166 are empty when the source does not provide them.
type Affiliation struct {
	Index          string `json:"index" yaml:"index"`
	Institution    string `json:"institution,omitempty" yaml:"institution,omitempty"`
	Country        string `json:"country,omitempty" yaml:"country,omitempty"`
	CountryISO3166 string `json:"country_iso_3166,omitempty" yaml:"country_iso_3166,omitempty"`
	City           string `json:"city,omitempty" yaml:"city,omitempty"`
	State          string `json:"state,omitempty" yaml:"state,omitempty"`
	Email          string `json:"email,omitempty" yaml:"email,omitempty"`

	// Normalized is true when a normalized affiliation with the same index
	// supplied the country data.
	Normalized bool `json:"normalized" yaml:"normalized"`
}
