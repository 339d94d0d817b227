package store

import (
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/knjiznica/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeSnapshot(s *model.Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding dataset: %w", err)
	}
	return data, nil
}

func decodeSnapshot(raw []byte) (*model.Snapshot, error) {
	if !jsoniter.ConfigFastest.Valid(raw) {
		return nil, ErrStorageCorrupt
	}
	var s model.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	s.Normalize()
	return &s, nil
}

// NewID returns a collection-unique id such as "book-0193...". The uuid v7
// body combines a millisecond timestamp with random bits.
func NewID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}
