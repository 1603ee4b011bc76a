package export

import (
	"encoding/json"
	"fmt"
)

// ImportStrings parses a JSON array of strings (group-id or keyword list).
// A malformed payload is reported to the caller; nothing is applied.
func ImportStrings(data []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse string list: %w", err)
	}
	return list, nil
}

// ExportStrings renders a string list as indented JSON. Export and import
// round-trip losslessly.
func ExportStrings(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render string list: %w", err)
	}
	return data, nil
}
