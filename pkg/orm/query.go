package orm

import (
	"context"
	"iter"
	"maps"
	"strings"
	"sync"

	"github.com/mizuchilabs/vegaorm/pkg/errors"
	"github.com/mizuchilabs/vegaorm/pkg/record"
	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// Query is a lazily evaluated selection of records of one model. The first
// evaluating call fetches and caches the result; later calls and filters
// work on the cache only.
type Query struct {
	db    *Database
	model *schema.Model

	mu        sync.Mutex
	criteria  map[string]any
	evaluated bool
	cache     []*record.Record
}

// Query starts an unevaluated query over every record of m
func (d *Database) Query(m *schema.Model) *Query {
	return &Query{
		db:       d,
		model:    m,
		criteria: map[string]any{},
	}
}

// Filter narrows the query to records equal to every criterion. Criteria are
// validated immediately. On an evaluated query the cache is narrowed in place
// without another round trip.
func (q *Query) Filter(criteria map[string]any) (*Query, error) {
	if err := q.model.Validate(criteria); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for name, v := range criteria {
		q.criteria[strings.ToLower(name)] = v
	}

	if q.evaluated {
		narrowed := q.cache[:0:0]
		for _, r := range q.cache {
			if r.Matches(q.criteria) {
				narrowed = append(narrowed, r)
			}
		}
		q.cache = narrowed
	}
	return q, nil
}

// Criteria returns a copy of the accumulated criteria
func (q *Query) Criteria() map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return maps.Clone(q.criteria)
}

// Evaluated reports whether the result set has been fetched
func (q *Query) Evaluated() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evaluated
}

// evaluate fetches with limit unless the cache is populated and returns the
// cached records. Callers hold q.mu.
func (q *Query) evaluate(ctx context.Context, limit int) ([]*record.Record, error) {
	if q.evaluated {
		return q.cache, nil
	}

	records, err := q.db.Fetch(ctx, q.model, q.criteria, limit)
	if err != nil {
		return nil, err
	}
	q.cache = records
	q.evaluated = true
	return q.cache, nil
}

// All returns every matching record
func (q *Query) All(ctx context.Context) ([]*record.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.evaluate(ctx, 0)
	if err != nil {
		return nil, err
	}
	return append([]*record.Record(nil), records...), nil
}

// Len returns the number of matching records
func (q *Query) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.evaluate(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Get returns the i-th matching record
func (q *Query) Get(ctx context.Context, i int) (*record.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.evaluate(ctx, 0)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(records) {
		return nil, errors.IndexOutOfRange(i, len(records))
	}
	return records[i], nil
}

// First returns the first matching record. An unevaluated query fetches a
// single row and caches it as its result.
func (q *Query) First(ctx context.Context) (*record.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.evaluate(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.IndexOutOfRange(0, 0)
	}
	return records[0], nil
}

// Contains evaluates the query and reports whether a saved record of the
// same model is part of the result. Records are compared by id.
func (q *Query) Contains(ctx context.Context, r *record.Record) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.evaluate(ctx, 0)
	if err != nil {
		return false, err
	}

	if r == nil || r.Model() != q.model {
		return false, nil
	}
	id, ok := r.ID()
	if !ok {
		return false, nil
	}
	for _, candidate := range records {
		if other, ok := candidate.ID(); ok && other == id {
			return true, nil
		}
	}
	return false, nil
}

// Iter evaluates the query and yields the cached records with their index.
// The evaluation error, if any, is returned before iteration starts.
func (q *Query) Iter(ctx context.Context) (iter.Seq2[int, *record.Record], error) {
	records, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	return func(yield func(int, *record.Record) bool) {
		for i, r := range records {
			if !yield(i, r) {
				return
			}
		}
	}, nil
}
