// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articlemeta

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pdiddy/scielo-harvest/pkg/types"
)

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/\S+`)

// ParseDocument maps an ArticleMeta JSON record to a Document.
//
// The record follows the ISIS field layout: article data under "article"
// (v10 authors, v12 titles, v40 original language, v70 affiliations, v237
// DOI, v240 normalized affiliations), journal data under "title" (v100
// title, v400 SciELO ISSN, v935 fallback) and full text links under
// "fulltexts".
func ParseDocument(b []byte) (*types.Document, error) {
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}

	a := rec.Article
	doc := &types.Document{
		Collection:       rec.Collection,
		PublisherID:      firstNonEmpty(a.Code, rec.Code),
		OriginalLanguage: a.V40.first("_"),
	}

	doc.DOI = normalizeDOI(firstNonEmpty(a.V237.first("_"), rec.DOI))

	for _, t := range a.V12 {
		if t.get("l") == doc.OriginalLanguage {
			doc.OriginalTitle = t.get("_")
			break
		}
	}

	doc.Journal = types.Journal{
		SciELOISSN: firstNonEmpty(rec.Title.V400.first("_"), rec.Title.V935.first("_")),
		Title:      rec.Title.V100.first("_"),
	}

	if a.V10 != nil {
		doc.Authors = make([]types.Author, 0, len(a.V10))
		for _, au := range a.V10 {
			doc.Authors = append(doc.Authors, types.Author{
				Surname:    au.get("s"),
				GivenNames: au.get("n"),
				Role:       au.get("r"),
				XRefs:      strings.Fields(au.get("1")),
			})
		}
	}

	doc.MixedAffiliations = mixAffiliations(a.V70, a.V240)
	doc.Languages = languages(rec.Fulltexts, doc.OriginalLanguage)

	return doc, nil
}

// mixAffiliations returns the raw affiliations with country data from the
// normalized affiliation of the same index merged in. Nil when the record
// has no raw affiliation field.
func mixAffiliations(raw, normalized field) []types.Affiliation {
	if raw == nil {
		return nil
	}

	norm := make(map[string]subfields, len(normalized))
	for _, n := range normalized {
		norm[n.get("i")] = n
	}

	mixed := make([]types.Affiliation, 0, len(raw))
	for _, r := range raw {
		aff := types.Affiliation{
			Index:       r.get("i"),
			Institution: r.get("_"),
			Country:     r.get("p"),
			City:        r.get("c"),
			State:       r.get("s"),
			Email:       r.get("e"),
		}
		if n, ok := norm[aff.Index]; ok {
			iso := strings.TrimSpace(n.get("p"))
			if iso != "" {
				aff.Normalized = true
				aff.CountryISO3166 = iso
				if name := countryName(iso); name != "" {
					aff.Country = name
				}
			}
		}
		mixed = append(mixed, aff)
	}
	return mixed
}

// countryName returns the English name of an ISO 3166 alpha-2 code, or ""
// when the code is unknown.
func countryName(iso string) string {
	region, err := language.ParseRegion(iso)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(region)
}

// languages lists the full text languages, falling back to the original
// language. Nil when neither is known.
func languages(ft fulltexts, original string) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, m := range []map[string]string{ft.PDF, ft.HTML} {
		for lang := range m {
			if lang == "" || seen[lang] {
				continue
			}
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	if len(langs) == 0 && original != "" {
		langs = []string{original}
	}
	return langs
}

func normalizeDOI(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := doiPattern.FindString(raw); m != "" {
		return m
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ArticleMeta JSON structures.
type record struct {
	Code       string    `json:"code"`
	Collection string    `json:"collection"`
	DOI        string    `json:"doi"`
	Article    article   `json:"article"`
	Title      journal   `json:"title"`
	Fulltexts  fulltexts `json:"fulltexts"`
}

type article struct {
	Code string `json:"code"`
	V10  field  `json:"v10"`
	V12  field  `json:"v12"`
	V40  field  `json:"v40"`
	V70  field  `json:"v70"`
	V237 field  `json:"v237"`
	V240 field  `json:"v240"`
}

type journal struct {
	V100 field `json:"v100"`
	V400 field `json:"v400"`
	V935 field `json:"v935"`
}

type fulltexts struct {
	PDF  map[string]string `json:"pdf"`
	HTML map[string]string `json:"html"`
}

// field is a repeatable ISIS field: one subfield map per occurrence.
type field []subfields

// first returns subfield key of the first occurrence.
func (f field) first(key string) string {
	if len(f) == 0 {
		return ""
	}
	return f[0].get(key)
}

// subfields maps subfield codes ("_" for the main value) to values. Values
// are usually strings; numbers and booleans are rendered as text.
type subfields map[string]any

func (s subfields) get(key string) string {
	switch v := s[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
