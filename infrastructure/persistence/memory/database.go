// Package memory is an in-process store with the same change-tracking and commit
// semantics as gormstore. Rows are kept per table behind one lock, so a commit
// is applied all at once or not at all.
package memory

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateKey is returned when an insert collides with a committed row
var ErrDuplicateKey = errors.New("duplicate primary key")

// Database is the committed state shared by every unit of work created on it
type Database struct {
	mu     sync.RWMutex
	tables map[string]any
	seqs   map[string]int64
}

func NewDatabase() *Database {
	return &Database{tables: make(map[string]any), seqs: make(map[string]int64)}
}

// Sequence returns an id generator for table. Generators for the same table share
// one counter. It is only called while a commit holds the database lock.
func (db *Database) Sequence(table string) func() int64 {
	return func() int64 {
		db.seqs[table]++
		return db.seqs[table]
	}
}

type table[ID comparable, R any] struct {
	rows     map[ID]R
	versions map[ID]int
	order    []ID
}

func (t *table[ID, R]) insert(id ID, row R, version int) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
	t.versions[id] = version
}

func (t *table[ID, R]) remove(id ID) {
	delete(t.rows, id)
	delete(t.versions, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			return
		}
	}
}

// scan returns the rows in insertion order
func (t *table[ID, R]) scan() []R {
	out := make([]R, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// tableFor returns the table called name, creating it on first use
func tableFor[ID comparable, R any](db *Database, name string) (*table[ID, R], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.tables[name]; ok {
		t, ok := existing.(*table[ID, R])
		if !ok {
			return nil, fmt.Errorf("table %s already holds rows of type %T", name, existing)
		}
		return t, nil
	}
	t := &table[ID, R]{rows: make(map[ID]R), versions: make(map[ID]int)}
	db.tables[name] = t
	return t, nil
}
