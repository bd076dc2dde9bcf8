package envelope

import (
	"encoding/json"
	"fmt"
)

// DecodeArray unwraps the list payload of v and decodes each element into T.
// Elements that fail to decode abort with an error rather than being dropped,
// since a half-decoded list silently hides upstream contract drift.
func DecodeArray[T any](v any) ([]T, error) {
	raw := UnwrapArray(v)
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		decoded, err := decodeValue[T](item)
		if err != nil {
			return nil, fmt.Errorf("envelope: element %d: %w", i, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

// DecodeObject unwraps the object payload of v and decodes it into T.
// A missing payload yields a nil result and no error; callers treat that as
// not found.
func DecodeObject[T any](v any) (*T, error) {
	obj := UnwrapObject(v)
	if obj == nil {
		return nil, nil
	}
	decoded, err := decodeValue[T](obj)
	if err != nil {
		return nil, fmt.Errorf("envelope: object payload: %w", err)
	}
	return &decoded, nil
}

// DecodePaginated is DecodeArray plus normalized pagination metadata.
func DecodePaginated[T any](v any) ([]T, Page, error) {
	page := UnwrapPaginated(v)
	items, err := DecodeArray[T](v)
	if err != nil {
		return nil, page, err
	}
	return items, page, nil
}

func decodeValue[T any](v any) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
