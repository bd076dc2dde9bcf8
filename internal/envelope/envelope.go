// Package envelope normalizes JSON payloads returned by the legacy upstream
// API. Endpoints wrap payloads in zero, one, or two levels of {"data": ...}
// and some list endpoints use an "items" key instead. Every helper here is a
// pure function over a json-decoded value: no helper panics, and malformed
// input degrades to the caller-supplied fallback.
package envelope

// Object reports v as a JSON object. Arrays and primitives do not qualify.
func Object(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Array reports v as a JSON array.
func Array(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

// UnwrapArray extracts the list payload from v. Bare arrays pass through
// unchanged. Wrapped payloads are searched in order: data, data.data,
// data.items, items. Anything else yields an empty, non-nil slice.
func UnwrapArray(v any) []any {
	if v == nil {
		return []any{}
	}
	if arr, ok := Array(v); ok {
		return arr
	}
	obj, ok := Object(v)
	if !ok {
		return []any{}
	}
	if arr, ok := Array(obj["data"]); ok {
		return arr
	}
	if inner, ok := Object(obj["data"]); ok {
		if arr, ok := Array(inner["data"]); ok {
			return arr
		}
		if arr, ok := Array(inner["items"]); ok {
			return arr
		}
	}
	if arr, ok := Array(obj["items"]); ok {
		return arr
	}
	return []any{}
}

// UnwrapObject extracts the object payload from v. A "data" key always wins
// over treating the outer object as the payload, and data.data wins over
// data. Arrays and primitives yield nil. A payload that legitimately carries
// a top-level "data" field is indistinguishable from an envelope; the
// upstream contract has never clarified this, so the envelope reading wins.
func UnwrapObject(v any) map[string]any {
	obj, ok := Object(v)
	if !ok {
		return nil
	}
	if data, ok := Object(obj["data"]); ok {
		if inner, ok := Object(data["data"]); ok {
			return inner
		}
		return data
	}
	return obj
}

// Primitive constrains fallbacks to the scalar types encoding/json produces.
type Primitive interface {
	~string | ~float64 | ~bool
}

// UnwrapPrimitive extracts a scalar payload whose dynamic type matches the
// fallback's. Matching is by type alone: 0, NaN, and "" all count as valid
// numbers and strings. The check runs against v itself, then data, then
// data.data; anything else yields the fallback.
func UnwrapPrimitive[T Primitive](v any, fallback T) T {
	if v == nil {
		return fallback
	}
	if p, ok := v.(T); ok {
		return p
	}
	obj, ok := Object(v)
	if !ok {
		return fallback
	}
	if p, ok := obj["data"].(T); ok {
		return p
	}
	if inner, ok := Object(obj["data"]); ok {
		if p, ok := inner["data"].(T); ok {
			return p
		}
	}
	return fallback
}

// UnwrapString is UnwrapPrimitive for strings.
func UnwrapString(v any, fallback string) string {
	return UnwrapPrimitive(v, fallback)
}

// UnwrapNumber is UnwrapPrimitive for JSON numbers (float64 after decoding).
func UnwrapNumber(v any, fallback float64) float64 {
	return UnwrapPrimitive(v, fallback)
}

// UnwrapBool is UnwrapPrimitive for booleans.
func UnwrapBool(v any, fallback bool) bool {
	return UnwrapPrimitive(v, fallback)
}

// UnwrapProperty looks up a named field at the top level, then under data,
// then under data.data. A present field wins even when its value is null;
// absence at every level yields the fallback.
func UnwrapProperty(v any, name string, fallback any) any {
	obj, ok := Object(v)
	if !ok {
		return fallback
	}
	if val, ok := obj[name]; ok {
		return val
	}
	if data, ok := Object(obj["data"]); ok {
		if val, ok := data[name]; ok {
			return val
		}
		if inner, ok := Object(data["data"]); ok {
			if val, ok := inner[name]; ok {
				return val
			}
		}
	}
	return fallback
}

// Page is a normalized paginated payload. Data is always non-nil; the other
// fields stay zero when the response carries no such metadata.
type Page struct {
	Data       []any
	Meta       map[string]any
	Pagination map[string]any
	Total      *float64
}

// UnwrapPaginated normalizes a list response together with its pagination
// metadata. Meta and Pagination are taken from the top level first, then from
// under data. Total resolves in order: top level, data, meta, pagination.
func UnwrapPaginated(v any) Page {
	page := Page{Data: UnwrapArray(v)}
	obj, ok := Object(v)
	if !ok {
		return page
	}
	data, _ := Object(obj["data"])

	if m, ok := Object(obj["meta"]); ok {
		page.Meta = m
	} else if m, ok := Object(data["meta"]); ok {
		page.Meta = m
	}
	if p, ok := Object(obj["pagination"]); ok {
		page.Pagination = p
	} else if p, ok := Object(data["pagination"]); ok {
		page.Pagination = p
	}

	for _, candidate := range []any{obj["total"], data["total"], page.Meta["total"], page.Pagination["total"]} {
		if n, ok := candidate.(float64); ok {
			page.Total = &n
			break
		}
	}
	return page
}

// IsSuccess reports whether v looks like a successful response. An explicit
// success flag at the top level, under data, or under data.data wins; an
// error field at the top level or under data loses; otherwise the presence of
// a data key (or v being a bare array) counts as implicit success.
func IsSuccess(v any) bool {
	if v == nil {
		return false
	}
	obj, ok := Object(v)
	if !ok {
		_, isArr := Array(v)
		return isArr
	}

	data, hasData := obj["data"]
	inner, _ := Object(data)

	if flag, ok := obj["success"].(bool); ok && flag {
		return true
	}
	if flag, ok := inner["success"].(bool); ok && flag {
		return true
	}
	if deep, ok := Object(inner["data"]); ok {
		if flag, ok := deep["success"].(bool); ok && flag {
			return true
		}
	}

	if _, ok := obj["error"]; ok {
		return false
	}
	if _, ok := inner["error"]; ok {
		return false
	}

	return hasData
}

// ErrorMessage extracts a human-readable error string from a failed response,
// checking error and message fields at the top level and under data. Returns
// "" when no string is found.
func ErrorMessage(v any) string {
	obj, ok := Object(v)
	if !ok {
		return ""
	}
	data, _ := Object(obj["data"])
	for _, candidate := range []any{obj["error"], data["error"], obj["message"], data["message"]} {
		if s, ok := candidate.(string); ok && s != "" {
			return s
		}
		if nested, ok := Object(candidate); ok {
			if s, ok := nested["message"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
