package ruledb

import (
	"sort"
	"sync"

	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
)

// MemoryRepository is an in-memory Repository used by tests, where a
// sqlite round-trip would only add noise.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]RuleRecord
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]RuleRecord)}
}

func (m *MemoryRepository) ListBy(purpose semtype.Type, status rule.Status) ([]RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RuleRecord
	for _, rec := range m.records {
		if rec.Purpose == purpose && rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out, nil
}

func (m *MemoryRepository) Get(ruleID string) (RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[ruleID]
	if !ok {
		return RuleRecord{}, &rerr.RuleNotFoundError{RuleID: ruleID}
	}
	return rec, nil
}

func (m *MemoryRepository) Put(record RuleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.RuleID] = record
	return nil
}
