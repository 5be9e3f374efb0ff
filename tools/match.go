package tools

import (
	"reflect"
	"strings"
)

// Bindings map pattern variables (like "?n") to values.
type Bindings map[string]interface{}

func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for p, v := range bs {
		acc[p] = v
	}
	return acc
}

// IsVariable reports whether the pattern string is a variable.  "?"
// alone is anonymous and matches anything without binding.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// Match matches the pattern against the fact.  Returns the extended
// Bindings or nil if there is no match.
//
// A map pattern matches a map fact that has (at least) the pattern's
// properties with matching values.  An array pattern matches an array
// of the same length element by element.  A variable matches anything
// consistent with its binding.  Numbers are compared as float64s.
func Match(pattern, fact interface{}, bs Bindings) Bindings {
	if bs == nil {
		bs = make(Bindings)
	}
	return match(pattern, fact, bs.Copy())
}

// match can modify the given bindings.
func match(pattern, fact interface{}, bs Bindings) Bindings {
	pattern = fudge(pattern)
	fact = fudge(fact)

	switch vv := pattern.(type) {
	case string:
		if !IsVariable(vv) {
			if s, is := fact.(string); is && s == vv {
				return bs
			}
			return nil
		}
		if vv == "?" {
			return bs
		}
		if bound, have := bs[vv]; have {
			if reflect.DeepEqual(fudge(bound), fact) {
				return bs
			}
			return nil
		}
		bs[vv] = fact
		return bs

	case map[string]interface{}:
		m, is := fact.(map[string]interface{})
		if !is {
			return nil
		}
		for p, v := range vv {
			x, have := m[p]
			if !have {
				if s, is := v.(string); is && s == "?" {
					continue
				}
				return nil
			}
			if bs = match(v, x, bs); bs == nil {
				return nil
			}
		}
		return bs

	case map[interface{}]interface{}:
		// YAML sometimes gives these.
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			s, is := k.(string)
			if !is {
				return nil
			}
			m[s] = v
		}
		return match(m, fact, bs)

	case []interface{}:
		xs, is := fact.([]interface{})
		if !is || len(xs) != len(vv) {
			return nil
		}
		for i, v := range vv {
			if bs = match(v, xs[i], bs); bs == nil {
				return nil
			}
		}
		return bs

	default:
		if reflect.DeepEqual(pattern, fact) {
			return bs
		}
		return nil
	}
}

// fudge is a hack to cast numbers to float64s.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float32:
		return float64(vv)
	case int64:
		return float64(vv)
	case int32:
		return float64(vv)
	case int:
		return float64(vv)
	default:
		return x
	}
}
