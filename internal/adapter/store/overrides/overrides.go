// Package overrides loads the table that pins estimate-target climate
// stations to a quality-controlled reference site.
package overrides

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultPath is used when STATION_OVERRIDES_PATH is unset.
const DefaultPath = "data/station_overrides.json"

// Table maps a target station id (e.g. IA2203) to its reference site id
// (e.g. DSM).
type Table struct {
	refs map[string]string
}

// Load reads a JSON object of target -> reference ids. Duplicate targets,
// empty ids and malformed station ids are rejected.
func Load(path string) (*Table, error) {
	//nolint:gosec // G304: path comes from configuration.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}
	t, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("overrides %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates an overrides document.
func Parse(b []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object of target to reference ids")
	}

	refs := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		target := strings.TrimSpace(tok.(string))
		var ref string
		if err := dec.Decode(&ref); err != nil {
			return nil, fmt.Errorf("decode reference for %s: %w", target, err)
		}
		ref = strings.TrimSpace(ref)

		if len(target) != 6 {
			return nil, fmt.Errorf("target %q is not a six character station id", target)
		}
		if ref == "" {
			return nil, fmt.Errorf("target %s has an empty reference id", target)
		}
		if _, dup := refs[target]; dup {
			return nil, fmt.Errorf("duplicate target %s", target)
		}
		refs[target] = ref
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &Table{refs: refs}, nil
}

// New builds a table from an in-memory map.
func New(refs map[string]string) *Table {
	cp := make(map[string]string, len(refs))
	for k, v := range refs {
		cp[k] = v
	}
	return &Table{refs: cp}
}

// Reference returns the reference site for a target station.
func (t *Table) Reference(target string) (string, bool) {
	if t == nil {
		return "", false
	}
	ref, ok := t.refs[target]
	return ref, ok
}

// Len returns the number of targets.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.refs)
}

// TargetsInState returns the targets whose ids start with a state code,
// sorted.
func (t *Table) TargetsInState(state string) []string {
	if t == nil {
		return nil
	}
	var out []string
	for target := range t.refs {
		if strings.HasPrefix(target, strings.ToUpper(state)) {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}
