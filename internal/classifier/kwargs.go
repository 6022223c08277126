package classifier

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/tagwise/tagwise/internal/errors"
)

// ErrInvalidKwargs is returned for an unknown or mistyped keyword argument.
var ErrInvalidKwargs = errors.NewStd("invalid keyword arguments")

// Kwargs reads typed keyword arguments from configuration and remembers
// which ones were consumed, so leftovers can be rejected.
type Kwargs struct {
	owner string
	m     map[string]any
	used  map[string]bool
	errs  []string
}

// NewKwargs wraps m. Keys are matched case-insensitively.
func NewKwargs(owner string, m map[string]any) *Kwargs {
	lower := make(map[string]any, len(m))
	for k, v := range m {
		lower[strings.ToLower(k)] = v
	}
	return &Kwargs{owner: owner, m: lower, used: make(map[string]bool)}
}

func (k *Kwargs) lookup(name string) (any, bool) {
	k.used[name] = true
	v, ok := k.m[name]
	return v, ok && v != nil
}

func (k *Kwargs) fail(name string, v any, want string) {
	k.errs = append(k.errs, fmt.Sprintf("%s: want %s, got %T(%v)", name, want, v, v))
}

// Float returns the float argument name or def.
func (k *Kwargs) Float(name string, def float64) float64 {
	v, ok := k.lookup(name)
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		k.fail(name, v, "number")
		return def
	}
	return f
}

// Int returns the integer argument name or def.
func (k *Kwargs) Int(name string, def int) int {
	v, ok := k.lookup(name)
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		k.fail(name, v, "integer")
		return def
	}
	return int(f)
}

// Bool returns the boolean argument name or def.
func (k *Kwargs) Bool(name string, def bool) bool {
	v, ok := k.lookup(name)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	k.fail(name, v, "bool")
	return def
}

// String returns the string argument name or def.
func (k *Kwargs) String(name, def string) string {
	v, ok := k.lookup(name)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		k.fail(name, v, "string")
		return def
	}
	return s
}

// Strings returns a list argument name. A single string yields a one
// element list.
func (k *Kwargs) Strings(name string) []string {
	v, ok := k.lookup(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				k.fail(name, v, "list of strings")
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	k.fail(name, v, "list of strings")
	return nil
}

// IntPair returns a two element integer list such as ngram_range.
func (k *Kwargs) IntPair(name string, def [2]int) [2]int {
	v, ok := k.lookup(name)
	if !ok {
		return def
	}
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []int:
		for _, i := range t {
			items = append(items, i)
		}
	}
	if len(items) != 2 {
		k.fail(name, v, "[min, max]")
		return def
	}
	a, okA := toFloat(items[0])
	b, okB := toFloat(items[1])
	if !okA || !okB {
		k.fail(name, v, "[min, max]")
		return def
	}
	return [2]int{int(a), int(b)}
}

// Err reports type errors and arguments that no option consumed.
func (k *Kwargs) Err() error {
	errs := slices.Clone(k.errs)
	for _, name := range slices.Sorted(maps.Keys(k.m)) {
		if !k.used[name] {
			errs = append(errs, fmt.Sprintf("%s: unknown argument", name))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.New(fmt.Errorf("%w for %s: %s", ErrInvalidKwargs, k.owner, strings.Join(errs, "; "))).
		Component("classifier").
		Category(errors.CategoryConfiguration).
		Context("owner", k.owner).
		Build()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
