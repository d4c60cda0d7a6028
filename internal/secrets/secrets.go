// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads operator credentials from a directory of plain-text
// files. The filename is the key and the trimmed contents are the value.
//
// Recognised keys: contact-email (appended to the User-Agent sent to SciELO).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ContactEmail is the key holding the operator's contact address.
const ContactEmail = "contact-email"

// Secrets maps key names to values.
type Secrets map[string]string

// Keys returns the loaded key names in sorted order. Values are never logged.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty set. Unreadable files are logged and skipped.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logrus.WithError(err).WithField("secret", name).Warn("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}
