package feed

import (
	"encoding/json"
	"fmt"
	"os"

	"feedrag/internal/domain"
)

// LoadRecords reads a feed export: a JSON array of flat string-valued
// objects, one per document.
func LoadRecords(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
