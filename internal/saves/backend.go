package saves

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fortuna/predictor/internal/league"
)

// Backend is the persistent mapping that owns the canonical copy of a
// namespace's slots. The whole mapping is read once and rewritten in full.
type Backend interface {
	LoadAll(ctx context.Context, namespace string) (map[string]Slot, error)
	ReplaceAll(ctx context.Context, namespace string, slots map[string]Slot) error
}

// MemoryBackend keeps serialized mappings in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string][]byte{}}
}

// LoadAll decodes the stored mapping for namespace
func (b *MemoryBackend) LoadAll(ctx context.Context, namespace string) (map[string]Slot, error) {
	_ = ctx
	b.mu.RLock()
	raw, ok := b.data[namespace]
	b.mu.RUnlock()
	if !ok {
		return map[string]Slot{}, nil
	}
	return DecodeMapping(raw)
}

// ReplaceAll stores the full mapping for namespace
func (b *MemoryBackend) ReplaceAll(ctx context.Context, namespace string, slots map[string]Slot) error {
	_ = ctx
	raw, err := EncodeMapping(slots)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.data[namespace] = raw
	b.mu.Unlock()
	return nil
}

// EncodeMapping serializes a slot mapping
func EncodeMapping(slots map[string]Slot) ([]byte, error) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encoding save slots: %w", err)
	}
	return raw, nil
}

// DecodeMapping parses a serialized slot mapping. Slot names are taken from
// the mapping keys.
func DecodeMapping(raw []byte) (map[string]Slot, error) {
	slots := map[string]Slot{}
	if len(raw) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("decoding save slots: %w", err)
	}
	for name, slot := range slots {
		slot.Name = name
		if slot.Scores == nil {
			slot.Scores = league.Scores{}
		}
		slots[name] = slot
	}
	return slots, nil
}
