package encoding

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadArgumentFile reads a JSON argument file for a contract call. Types are
// not validated here; encoding reports the failing argument by index.
func LoadArgumentFile(path string) (*ArgumentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading argument file %s: %w", path, err)
	}
	var af ArgumentFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parsing argument file %s: %w", path, err)
	}
	return &af, nil
}
