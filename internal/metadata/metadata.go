// Package metadata loads the deposition metadata document and stamps the
// release fields onto it.
package metadata

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/andresuchdata/zenodo-publish/internal/release"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMissingMetadata is returned when the document has no "metadata" object.
var ErrMissingMetadata = errors.New(`metadata document has no "metadata" object`)

const metadataKey = "metadata"

// Record is the metadata document sent to the deposition endpoint. Only the
// nested metadata section is inspected; every other key is passed through.
type Record struct {
	doc map[string]any
}

// Load reads a metadata document. YAML is used for .yaml/.yml files; anything
// else is parsed as JSON, with comments and trailing commas allowed.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses a JSON (or JSONC) metadata document.
func ParseJSON(data []byte) (*Record, error) {
	var doc map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata json: %w", err)
	}
	return newRecord(doc)
}

// ParseYAML parses a YAML metadata document.
func ParseYAML(data []byte) (*Record, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata yaml: %w", err)
	}
	normalized, _ := normalize(doc).(map[string]any)
	return newRecord(normalized)
}

func newRecord(doc map[string]any) (*Record, error) {
	if doc == nil {
		return nil, ErrMissingMetadata
	}
	if _, ok := doc[metadataKey].(map[string]any); !ok {
		return nil, ErrMissingMetadata
	}
	return &Record{doc: doc}, nil
}

// WithRelease returns a copy of the record with title, version and
// publication_date set from in. The receiver is left untouched.
func (r *Record) WithRelease(in release.Input) *Record {
	doc := make(map[string]any, len(r.doc))
	for k, v := range r.doc {
		doc[k] = v
	}

	src := r.section()
	meta := make(map[string]any, len(src)+3)
	for k, v := range src {
		meta[k] = v
	}
	meta["title"] = in.Title
	meta["version"] = in.Version
	meta["publication_date"] = in.PublicationDate()
	doc[metadataKey] = meta

	return &Record{doc: doc}
}

// Field returns a value from the nested metadata section.
func (r *Record) Field(name string) (any, bool) {
	v, ok := r.section()[name]
	return v, ok
}

// Title is a shortcut for the metadata title.
func (r *Record) Title() string {
	title, _ := r.section()["title"].(string)
	return title
}

// MarshalJSON emits the full document.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

// Pretty renders the document as indented JSON, for logs.
func (r *Record) Pretty() string {
	compact, err := json.Marshal(r.doc)
	if err != nil {
		return fmt.Sprintf("%v", r.doc)
	}
	// jsoniter only indents the top level of a map
	var out bytes.Buffer
	if err := stdjson.Indent(&out, compact, "", "  "); err != nil {
		return string(compact)
	}
	return out.String()
}

func (r *Record) section() map[string]any {
	meta, _ := r.doc[metadataKey].(map[string]any)
	return meta
}

// normalize converts the map[any]any values yaml produces for non-string keys
// into map[string]any so the document stays JSON-encodable.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	default:
		return v
	}
}
