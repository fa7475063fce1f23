// Package normalize maps records from external, string-keyed schemas onto the
// internal record types using a declarative field-mapping table.
package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed mappings.yaml
var defaultMappings []byte

// KindDate marks a field whose value is canonicalised to YYYYMMDD
const KindDate = "date"

// Field maps one internal field to its ordered candidate source keys
type Field struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
	Kind    string   `yaml:"kind,omitempty"`
}

// Mapping is the field table for one external schema
type Mapping struct {
	Version int     `yaml:"version"`
	Key     string  `yaml:"key"`
	Fields  []Field `yaml:"fields"`
}

// Table holds mappings by schema name ("law", "prec", "legalqa")
type Table map[string]Mapping

// Parse decodes and validates a mapping table document.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse field mappings: %w", err)
	}
	for name, m := range t {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("mapping %q: %w", name, err)
		}
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable Table
)

// Default returns the embedded mapping table.
func Default() Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultMappings)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Names lists the schema names in the table, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Mapping) validate() error {
	if len(m.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	seen := make(map[string]bool, len(m.Fields))
	hasKey := false
	for _, f := range m.Fields {
		if f.Name == "" || len(f.Sources) == 0 {
			return fmt.Errorf("field %q needs a name and at least one source", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Name == m.Key {
			hasKey = true
		}
	}
	if !hasKey {
		return fmt.Errorf("key field %q is not mapped", m.Key)
	}
	return nil
}

// Apply resolves every mapped field from raw. Fields with no usable source
// value are nil.
func (m Mapping) Apply(raw map[string]any) map[string]*string {
	out := make(map[string]*string, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Name] = f.resolve(raw)
	}
	return out
}

func (f Field) resolve(raw map[string]any) *string {
	for _, key := range f.Sources {
		v, ok := raw[key]
		if !ok {
			continue
		}
		s, ok := scalarText(v)
		if !ok {
			continue
		}
		if f.Kind == KindDate {
			// A present but malformed date yields null rather than trying later keys.
			return canonicalDate(s)
		}
		return &s
	}
	return nil
}

// scalarText renders a JSON scalar as trimmed text. Blank strings, nulls and
// composite values are treated as absent.
func scalarText(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// CanonicalDate returns s in YYYYMMDD form, or nil when s is nil or not a
// valid calendar date. "2020-03-26" and "2020.03.26" both become "20200326".
func CanonicalDate(s *string) *string {
	if s == nil {
		return nil
	}
	return canonicalDate(*s)
}

// canonicalDate keeps the digits of s and returns them when they form a valid
// calendar date in YYYYMMDD form.
func canonicalDate(s string) *string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) != 8 {
		return nil
	}
	if _, err := time.Parse("20060102", d); err != nil {
		return nil
	}
	return &d
}
