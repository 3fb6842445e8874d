package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a cache entry: a family name followed by parameters.
// Invalidation matches on prefixes, so Key{"conversations"} covers every
// filtered conversations list.
type Key []string

// NewKey builds a key. Params are formatted canonically: nil (including a
// nil pointer) becomes "none", pointers are dereferenced.
func NewKey(family string, params ...any) Key {
	k := make(Key, 0, 1+len(params))
	k = append(k, family)
	for _, p := range params {
		k = append(k, formatParam(p))
	}
	return k
}

func formatParam(p any) string {
	switch v := p.(type) {
	case nil:
		return "none"
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case *int64:
		if v == nil {
			return "none"
		}
		return strconv.FormatInt(*v, 10)
	case *int:
		if v == nil {
			return "none"
		}
		return strconv.Itoa(*v)
	case *string:
		if v == nil {
			return "none"
		}
		return *v
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Family returns the first element, or "" for an empty key.
func (k Key) Family() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether prefix matches the leading elements of k.
// An empty prefix matches everything.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) hash() string {
	return strings.Join(k, "\x00")
}
