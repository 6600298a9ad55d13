package structure

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ObservationKind names a piece of content the scanner extracts from a file.
type ObservationKind string

const (
	ObserveManifest ObservationKind = "manifest"
	ObserveHeaders  ObservationKind = "headers"
	ObserveVersion  ObservationKind = "version"
)

// maxObservedSize caps how much of a file is read for observations.
const maxObservedSize = 1 << 20

// Observations is the bag of content facts gathered for one probed file.
// Absent facts stay at their zero value.
type Observations struct {
	Manifest      *Manifest
	ManifestError string
	Headers       []Header
	Version       string
	HasVersion    bool
}

// Header is one markdown ATX header.
type Header struct {
	Level int
	Text  string
}

// Manifest is a parsed TOML document addressed by dotted keys.
type Manifest struct {
	root map[string]any
}

// ParseManifest decodes TOML content.
func ParseManifest(data []byte) (*Manifest, error) {
	root := map[string]any{}
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &Manifest{root: root}, nil
}

func (m *Manifest) lookup(key string) (any, bool) {
	var cur any = m.root
	for _, part := range strings.Split(key, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether the dotted key is present.
func (m *Manifest) Has(key string) bool {
	_, ok := m.lookup(key)
	return ok
}

// String returns the scalar at key formatted as a string.
func (m *Manifest) String(key string) (string, bool) {
	v, ok := m.lookup(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// Strings returns the string elements of the array at key.
func (m *Manifest) Strings(key string) []string {
	v, ok := m.lookup(key)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether the array at key holds the string want.
func (m *Manifest) Contains(key, want string) bool {
	for _, s := range m.Strings(key) {
		if s == want {
			return true
		}
	}
	return false
}

// Keys returns every dotted key path in the manifest, sorted. Tables
// contribute both their own key and their children.
func (m *Manifest) Keys() []string {
	var keys []string
	var walk func(prefix string, table map[string]any)
	walk = func(prefix string, table map[string]any) {
		for k, v := range table {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			keys = append(keys, full)
			if sub, ok := v.(map[string]any); ok {
				walk(full, sub)
			}
		}
	}
	walk("", m.root)
	sort.Strings(keys)
	return keys
}

var (
	atxHeaderRe     = regexp.MustCompile(`^(#{1,6})[ \t]+(.*?)[ \t]*#*[ \t]*$`)
	dunderVersionRe = regexp.MustCompile(`(?m)^__version__\s*(?::\s*str\s*)?=\s*["']([^"']+)["']`)
)

func observe(data []byte, kinds []ObservationKind) *Observations {
	obs := &Observations{}
	for _, k := range kinds {
		switch k {
		case ObserveManifest:
			m, err := ParseManifest(data)
			if err != nil {
				obs.ManifestError = err.Error()
				continue
			}
			obs.Manifest = m
		case ObserveHeaders:
			obs.Headers = markdownHeaders(data)
		case ObserveVersion:
			if m := dunderVersionRe.FindSubmatch(data); m != nil {
				obs.Version = string(m[1])
				obs.HasVersion = true
			}
		}
	}
	return obs
}

// markdownHeaders returns ATX headers outside fenced code blocks.
func markdownHeaders(data []byte) []Header {
	var headers []Header
	inFence := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxObservedSize)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := atxHeaderRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headers = append(headers, Header{Level: len(m[1]), Text: m[2]})
	}
	return headers
}
