package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trubax/trubax-core/internal/domain"
)

const defaultMaxBatchOps = 500

// MemoryStore is the in-process backend used by tests and local development.
// A single mutex is the atomicity unit, which trivially satisfies the
// all-or-nothing batch contract.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	indexes map[string]map[string]int64
	maxOps  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		indexes: make(map[string]map[string]int64),
		maxOps:  defaultMaxBatchOps,
	}
}

func (s *MemoryStore) MaxBatchOps() int { return s.maxOps }

// SetMaxBatchOps lowers the batch bound; tests use it to force chunking.
func (s *MemoryStore) SetMaxBatchOps(n int) {
	if n > 0 {
		s.maxOps = n
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.NotFoundf("record %s", key)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, fields Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(key, fields)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) AtomicBatch(_ context.Context, ops []Op) error {
	if err := CheckBatchSize(s, ops); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// All conditions first; nothing is applied if any fails.
	for _, op := range ops {
		rec, ok := s.records[op.Key]
		var snapshot Record
		if ok {
			snapshot = rec
		}
		if !op.Condition.Evaluate(snapshot) {
			return domain.Conflictf("precondition failed for %s", op.Key)
		}
	}

	for _, op := range ops {
		if op.Delete {
			delete(s.records, op.Key)
		} else if op.Fields != nil {
			s.merge(op.Key, op.Fields)
		}
		if op.Index != nil {
			s.applyIndex(op.Key, op.Index)
		}
	}
	return nil
}

func (s *MemoryStore) ScanPrefix(_ context.Context, prefix string, fn func(key string, rec Record) error) error {
	s.mu.RLock()
	keys := make([]string, 0)
	for k := range s.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make([]Record, len(keys))
	for i, k := range keys {
		snapshot[i] = cloneRecord(s.records[k])
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if err := fn(k, snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) ScanIndex(_ context.Context, name string, maxScore int64, fn func(key string) error) error {
	s.mu.RLock()
	var keys []string
	for k, score := range s.indexes[name] {
		if score <= maxScore {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) merge(key string, fields Record) {
	rec, ok := s.records[key]
	if !ok {
		rec = make(Record, len(fields))
		s.records[key] = rec
	}
	for f, v := range fields {
		rec[f] = v
	}
}

func (s *MemoryStore) applyIndex(key string, entry *IndexEntry) {
	idx, ok := s.indexes[entry.Name]
	if !ok {
		if entry.Remove {
			return
		}
		idx = make(map[string]int64)
		s.indexes[entry.Name] = idx
	}
	if entry.Remove {
		delete(idx, key)
		return
	}
	idx[key] = entry.Score
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
