package restaurant

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeCollection parses a stored collection. An empty or null value is an
// empty collection.
func decodeCollection(data []byte) ([]Restaurant, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Restaurant{}, nil
	}
	var list []Restaurant
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if list == nil {
		list = []Restaurant{}
	}
	return list, nil
}

func encodeCollection(list []Restaurant) ([]byte, error) {
	if list == nil {
		list = []Restaurant{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return b, nil
}
