// Package vocab loads the token vocabulary that maps token spellings to
// feature indices. The last index of every vocabulary is reserved for
// spellings it does not contain.
package vocab

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// defaultData is the C front-end vocabulary used when no vocabulary is configured.
//
//go:embed clang.json
var defaultData []byte

// Format is the encoding of a vocabulary file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Vocabulary maps token spellings to one-hot feature indices.
type Vocabulary struct {
	index  map[string]int
	width  int
	source string
}

// New builds a vocabulary from a spelling->index table. The feature width is
// the largest index plus two: one slot past the table is kept for unknown spellings.
func New(entries map[string]int) (*Vocabulary, error) {
	v := &Vocabulary{index: make(map[string]int, len(entries)), width: 1}
	for spelling, idx := range entries {
		if idx < 0 {
			return nil, fmt.Errorf("vocabulary index for %q is negative: %d", spelling, idx)
		}
		v.index[spelling] = idx
		if idx+2 > v.width {
			v.width = idx + 2
		}
	}
	return v, nil
}

// Default returns the embedded C vocabulary.
func Default() (*Vocabulary, error) {
	v, err := Parse(defaultData, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("embedded vocabulary: %w", err)
	}
	v.source = "embedded:clang.json"
	return v, nil
}

// Load reads a vocabulary from a local path or any URL the afs service supports.
// An empty location yields the embedded default.
func Load(ctx context.Context, location string) (*Vocabulary, error) {
	if location == "" {
		return Default()
	}
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary %s: %w", location, err)
	}
	v, err := Parse(data, FormatFromPath(location))
	if err != nil {
		return nil, fmt.Errorf("parsing vocabulary %s: %w", location, err)
	}
	v.source = location
	return v, nil
}

// Parse decodes a spelling->index table.
func Parse(data []byte, format Format) (*Vocabulary, error) {
	entries := make(map[string]int)
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &entries)
	case FormatTOML:
		err = toml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, err
	}
	return New(entries)
}

// Index returns the feature index of spelling, or Unknown if it is not in the table.
func (v *Vocabulary) Index(spelling string) int {
	if idx, ok := v.index[spelling]; ok {
		return idx
	}
	return v.Unknown()
}

// Lookup returns the index of spelling and whether the table contains it.
func (v *Vocabulary) Lookup(spelling string) (int, bool) {
	idx, ok := v.index[spelling]
	return idx, ok
}

// Unknown is the reserved index for spellings outside the table.
func (v *Vocabulary) Unknown() int {
	return v.width - 1
}

// Width is the length of a feature vector.
func (v *Vocabulary) Width() int {
	return v.width
}

// Len returns the number of spellings in the table.
func (v *Vocabulary) Len() int {
	return len(v.index)
}

// Source describes where the vocabulary was loaded from.
func (v *Vocabulary) Source() string {
	return v.source
}

// Fingerprint returns a stable byte encoding of the table, used in cache keys.
func (v *Vocabulary) Fingerprint() []byte {
	var sb strings.Builder
	for _, spelling := range slices.Sorted(maps.Keys(v.index)) {
		fmt.Fprintf(&sb, "%q=%d\n", spelling, v.index[spelling])
	}
	return []byte(sb.String())
}
