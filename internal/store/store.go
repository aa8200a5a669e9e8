package store

import (
	"context"

	"github.com/trubax/trubax-core/internal/domain"
)

// Record is a flat document. Values must be JSON scalars (string or bool);
// timestamps are stored as RFC3339 strings so that equality is stable across
// backends. Numeric ordering lives in index entries, not in record fields.
type Record map[string]any

// ConditionKind selects how a Condition is evaluated at commit time.
type ConditionKind int

const (
	// RecordExists requires the keyed record to be present.
	RecordExists ConditionKind = iota
	// RecordMissing requires the keyed record to be absent.
	RecordMissing
	// FieldEquals requires Field to be present and equal to Equals.
	FieldEquals
)

// Condition is evaluated by the store inside the same atomic unit as the
// write it guards. A caller-side read is advisory only and must never be the
// sole concurrency guard.
type Condition struct {
	Kind   ConditionKind
	Field  string
	Equals any
}

// IndexEntry maintains a secondary score index atomically with the write it
// rides on. Remove drops the key from the index instead of upserting it.
type IndexEntry struct {
	Name   string
	Score  int64
	Remove bool
}

// Op is one write inside an atomic batch: either a field merge (Fields) or a
// record deletion (Delete), optionally guarded by a Condition and optionally
// updating a secondary index.
type Op struct {
	Key       string
	Fields    Record
	Delete    bool
	Condition *Condition
	Index     *IndexEntry
}

// Store is the relationship-store contract. AtomicBatch commits all ops or
// none; a failed Condition surfaces as domain.ErrConflict with no partial
// writes, backend failures as domain.ErrTransientStore. Batches are bounded
// by MaxBatchOps.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Set(ctx context.Context, key string, fields Record) error
	Delete(ctx context.Context, key string) error
	AtomicBatch(ctx context.Context, ops []Op) error
	ScanPrefix(ctx context.Context, prefix string, fn func(key string, rec Record) error) error
	// ScanIndex visits keys whose index score is <= maxScore, in no
	// particular order.
	ScanIndex(ctx context.Context, name string, maxScore int64, fn func(key string) error) error
	MaxBatchOps() int
}

// PutOp builds an unconditional field merge.
func PutOp(key string, fields Record) Op {
	return Op{Key: key, Fields: fields}
}

// DeleteOp builds an unconditional record deletion.
func DeleteOp(key string) Op {
	return Op{Key: key, Delete: true}
}

// IfExists guards the op on the record being present.
func (o Op) IfExists() Op {
	o.Condition = &Condition{Kind: RecordExists}
	return o
}

// IfMissing guards the op on the record being absent.
func (o Op) IfMissing() Op {
	o.Condition = &Condition{Kind: RecordMissing}
	return o
}

// IfFieldEquals guards the op on a field holding the given scalar.
func (o Op) IfFieldEquals(field string, value any) Op {
	o.Condition = &Condition{Kind: FieldEquals, Field: field, Equals: value}
	return o
}

// WithIndex attaches a score-index upsert to the op.
func (o Op) WithIndex(name string, score int64) Op {
	o.Index = &IndexEntry{Name: name, Score: score}
	return o
}

// DropIndex attaches a score-index removal to the op.
func (o Op) DropIndex(name string) Op {
	o.Index = &IndexEntry{Name: name, Remove: true}
	return o
}

// CheckBatchSize rejects batches the store cannot commit atomically.
func CheckBatchSize(s Store, ops []Op) error {
	if len(ops) == 0 {
		return domain.Validationf("empty batch")
	}
	if max := s.MaxBatchOps(); len(ops) > max {
		return domain.Validationf("batch of %d ops exceeds limit %d", len(ops), max)
	}
	return nil
}

// Evaluate checks a condition against a record snapshot (nil means absent).
// Shared by backends that evaluate conditions in application code under
// their own atomicity guard.
func (c *Condition) Evaluate(rec Record) bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case RecordExists:
		return rec != nil
	case RecordMissing:
		return rec == nil
	case FieldEquals:
		if rec == nil {
			return false
		}
		got, ok := rec[c.Field]
		return ok && got == c.Equals
	default:
		return false
	}
}
