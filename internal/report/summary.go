// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scielo-harvest/internal/harvest"
	"github.com/pdiddy/scielo-harvest/pkg/types"
)

// Summary is the on-disk record of one harvest run.
type Summary struct {
	SearchURL string              `yaml:"search_url"`
	Query     map[string][]string `yaml:"query"`
	Policy    string              `yaml:"on_bad_status"`
	PageSize  int                 `yaml:"page_size"`
	Stats     harvest.Stats       `yaml:"stats"`
	Rows      int                 `yaml:"rows"`
	Error     string              `yaml:"error,omitempty"`
	Timestamp time.Time           `yaml:"timestamp"`
}

// NewSummary assembles a summary from the run inputs and outcome. runErr
// may be nil.
func NewSummary(searchURL string, query url.Values, cfg types.SearchConfig, stats harvest.Stats, rows int, runErr error) Summary {
	s := Summary{
		SearchURL: searchURL,
		Query:     map[string][]string(query),
		Policy:    string(cfg.OnBadStatus),
		PageSize:  cfg.PageSize,
		Stats:     stats,
		Rows:      rows,
		Timestamp: time.Now(),
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}

// WriteSummary saves s to a YAML file at path.
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return &s, nil
}
