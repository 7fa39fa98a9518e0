package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// VariantAttributes is the open set of descriptive fields a product variant
// may carry. Every field is optional; Extra holds category specific keys that
// have no dedicated field.
type VariantAttributes struct {
	Size       *string           `json:"size,omitempty"`
	Color      *string           `json:"color,omitempty"`
	Material   *string           `json:"material,omitempty"`
	Finish     *string           `json:"finish,omitempty"`
	Dimensions *string           `json:"dimensions,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// IsEmpty reports whether no attribute is set.
func (a VariantAttributes) IsEmpty() bool {
	return len(a.pairs()) == 0
}

// Get returns the attribute stored under key, looking at the named fields
// first and then at Extra.
func (a VariantAttributes) Get(key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range a.pairs() {
		if p[0] == key {
			return p[1], true
		}
	}
	return "", false
}

// Label renders the present attributes as "key: value" pairs in a stable order.
func (a VariantAttributes) Label() string {
	pairs := a.pairs()
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+": "+p[1])
	}
	return strings.Join(parts, ", ")
}

func (a VariantAttributes) pairs() [][2]string {
	var out [][2]string
	named := []struct {
		key   string
		value *string
	}{
		{"size", a.Size},
		{"color", a.Color},
		{"material", a.Material},
		{"finish", a.Finish},
		{"dimensions", a.Dimensions},
	}
	for _, n := range named {
		if n.value == nil || strings.TrimSpace(*n.value) == "" {
			continue
		}
		out = append(out, [2]string{n.key, strings.TrimSpace(*n.value)})
	}
	keys := make([]string, 0, len(a.Extra))
	for k := range a.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.TrimSpace(a.Extra[k])
		if v == "" {
			continue
		}
		out = append(out, [2]string{strings.ToLower(strings.TrimSpace(k)), v})
	}
	return out
}

// Value marshals the attributes into JSON for the attributes column.
func (a VariantAttributes) Value() (driver.Value, error) {
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes the JSON attributes column.
func (a *VariantAttributes) Scan(value interface{}) error {
	if value == nil {
		*a = VariantAttributes{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("variant attributes: unsupported scan type %T", value)
	}

	var result VariantAttributes
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
	}
	*a = result
	return nil
}
