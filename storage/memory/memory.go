// Package memory provides an in-memory Storage backend for tests and
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lanternsoft/authbridge/core"
)

// Store is an in-memory core.Storage implementation.
type Store struct {
	mu   sync.RWMutex
	data map[string][]map[string]interface{} // model -> records
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string][]map[string]interface{}),
	}
}

// ID returns the storage identifier.
func (s *Store) ID() string {
	return "memory"
}

// Create stores a new record.
func (s *Store) Create(ctx context.Context, model string, data map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := copyMap(data)
	s.data[model] = append(s.data[model], record)
	return copyMap(record), nil
}

// FindOne returns the first record matching the query, or nil.
func (s *Store) FindOne(ctx context.Context, query *core.Query) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.match(query) {
		return copyMap(record), nil
	}
	return nil, nil
}

// FindMany returns all records matching the query.
func (s *Store) FindMany(ctx context.Context, query *core.Query) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(query)
	if len(query.OrderBy) > 0 {
		ob := query.OrderBy[0]
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][ob.Field], matched[j][ob.Field])
			if ob.Desc {
				return !less
			}
			return less
		})
	}
	if query.Offset > 0 && query.Offset < len(matched) {
		matched = matched[query.Offset:]
	} else if query.Offset >= len(matched) {
		matched = nil
	}
	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}

	out := make([]map[string]interface{}, len(matched))
	for i, record := range matched {
		out[i] = copyMap(record)
	}
	return out, nil
}

// Update modifies the first matching record and returns it.
func (s *Store) Update(ctx context.Context, query *core.Query, data map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.data[query.Model] {
		if matches(record, query.Where) {
			for k, v := range data {
				record[k] = v
			}
			return copyMap(record), nil
		}
	}
	return nil, nil
}

// Delete removes all matching records.
func (s *Store) Delete(ctx context.Context, query *core.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.data[query.Model]
	kept := records[:0]
	for _, record := range records {
		if !matches(record, query.Where) {
			kept = append(kept, record)
		}
	}
	s.data[query.Model] = kept
	return nil
}

// Count returns the number of matching records.
func (s *Store) Count(ctx context.Context, query *core.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(query))), nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close clears the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]map[string]interface{})
	return nil
}

func (s *Store) match(query *core.Query) []map[string]interface{} {
	var out []map[string]interface{}
	for _, record := range s.data[query.Model] {
		if matches(record, query.Where) {
			out = append(out, record)
		}
	}
	return out
}

func matches(record map[string]interface{}, where []core.WhereClause) bool {
	for _, w := range where {
		value := record[w.Field]
		switch w.Operator {
		case core.OpEqual, "":
			if value != w.Value {
				return false
			}
		case core.OpNotEqual:
			if value == w.Value {
				return false
			}
		case core.OpGreaterThan:
			if !compareValues(w.Value, value) {
				return false
			}
		case core.OpLessThan:
			if !compareValues(value, w.Value) {
				return false
			}
		case core.OpIn:
			values, ok := w.Value.([]interface{})
			if !ok {
				return false
			}
			found := false
			for _, v := range values {
				if v == value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func compareValues(a, b interface{}) bool {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	return false
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
