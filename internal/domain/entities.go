package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Kind selects which adapter the factory constructs.
type Kind string

const (
	KindAnalytical Kind = "analytical"
	KindRelational Kind = "relational"
	KindDocument   Kind = "document"
	KindText       Kind = "text"
	KindPDF        Kind = "pdf"
	KindExtraction Kind = "extraction"
	KindKeyValue   Kind = "keyvalue"
)

var kindDescriptions = map[Kind]string{
	KindAnalytical: "DuckDB analytical database (SQL)",
	KindRelational: "SQLite embedded database (SQL)",
	KindDocument:   "MongoDB collection (Extended JSON filter)",
	KindText:       "local text files",
	KindPDF:        "local PDF files, one fragment per page",
	KindExtraction: "hosted text-extraction API",
	KindKeyValue:   "bbolt key/value bucket (key prefix scan)",
}

// Kinds returns every recognized kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindDescriptions))
	for k := range kindDescriptions {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind resolves a discriminator value. Matching ignores case and
// surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindDescriptions[k]; !ok {
		return "", NewConfigError("", fmt.Sprintf("unsupported retriever kind %q", s))
	}
	return k, nil
}

func (k Kind) Description() string {
	return kindDescriptions[k]
}

func (k Kind) String() string {
	return string(k)
}

// Configuration keys.
const (
	KeyKind       = "kind"
	KeyDBPath     = "db_path"
	KeyURI        = "uri"
	KeyDatabase   = "db"
	KeyCollection = "collection"
	KeyBucket     = "bucket"
	KeyFilePath   = "file_path"
	KeyAPIURL     = "api_url"
	KeyAPIKey     = "api_key"
)

// MemoryPath is the in-memory sentinel accepted by the SQL kinds.
const MemoryPath = ":memory:"

// Configuration is the flat key/value mapping handed to the factory.
type Configuration map[string]string

// ConfigurationFrom stringifies scalar values, e.g. from a decoded YAML map.
// Nil values are dropped.
func ConfigurationFrom(m map[string]any) Configuration {
	cfg := make(Configuration, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		cfg[k] = fmt.Sprint(v)
	}
	return cfg
}

// Get returns the trimmed value for key.
func (c Configuration) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Clone returns an independent copy.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Kind reads and parses the discriminator.
func (c Configuration) Kind() (Kind, error) {
	raw := c.Get(KeyKind)
	if raw == "" {
		return "", NewConfigError("", fmt.Sprintf("missing required key %q", KeyKind))
	}
	return ParseKind(raw)
}

// Request is a backend-specific query. Text carries SQL, an Extended JSON
// filter, a key prefix or a search term depending on the kind.
type Request struct {
	Text   string
	Args   []any
	Filter any
}

// Record is one result unit: a row tuple for database kinds or a text
// fragment for file and extraction kinds.
type Record struct {
	Columns []string `json:"columns,omitempty"`
	Values  []any    `json:"values,omitempty"`
	Text    string   `json:"text,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// Rows returns the value tuples of records.
func Rows(records []Record) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Values)
	}
	return rows
}

// Texts returns the text fragments of records.
func Texts(records []Record) []string {
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Text)
	}
	return texts
}
