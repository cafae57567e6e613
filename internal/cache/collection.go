package cache

import (
	"context"
	"reflect"
	"sort"
)

// Collection is a change-tracked arena of documents of one entity type.
// It holds the working copies alongside a snapshot of the last-saved state;
// the difference between the two is what a save writes.
//
// Documents handed out by Get, FindOne and FindAll are the live working
// copies: mutating them mutates the collection. Callers that need an
// isolated copy take one themselves with the entity's DeepCopy.
type Collection[T any] struct {
	name     string
	idOf     func(*T) string
	deepCopy func(*T) *T

	docs  map[string]*T
	saved map[string]*T
}

// NewCollection creates an empty collection. idOf extracts a document's
// identifier; deepCopy produces the independent copies used for the saved
// snapshot.
func NewCollection[T any](name string, idOf func(*T) string, deepCopy func(*T) *T) *Collection[T] {
	return &Collection[T]{
		name:     name,
		idOf:     idOf,
		deepCopy: deepCopy,
		docs:     make(map[string]*T),
		saved:    make(map[string]*T),
	}
}

// Name returns the collection's label, used in logs and assertion errors.
func (c *Collection[T]) Name() string { return c.name }

// Preload seeds the collection with documents loaded from the repository.
// The loaded state becomes the saved baseline, so an immediate save writes
// nothing.
func (c *Collection[T]) Preload(docs []T) {
	for i := range docs {
		doc := &docs[i]
		id := c.idOf(doc)
		c.docs[id] = c.deepCopy(doc)
		c.saved[id] = c.deepCopy(doc)
	}
}

// Insert adds a new document. The id must not already be present.
func (c *Collection[T]) Insert(doc *T) error {
	id := c.idOf(doc)
	if _, exists := c.docs[id]; exists {
		return ErrDuplicateID
	}
	c.docs[id] = doc
	return nil
}

// Replace adds or overwrites a document unconditionally.
func (c *Collection[T]) Replace(doc *T) {
	c.docs[c.idOf(doc)] = doc
}

// UpdateStatus reports what an Update did to its document.
type UpdateStatus int

const (
	// Unchanged means the mutator left the document equal to its prior value.
	Unchanged UpdateStatus = iota

	// Changed means the document now differs from its prior value.
	Changed

	// Removed means the mutator asked for the document to be dropped.
	Removed
)

// Update applies mutate to the document with the given id. The mutator
// returns whether to keep the document; returning false removes it. The
// status reflects the actual effect, so callers can skip downstream work
// after a no-op mutation.
func (c *Collection[T]) Update(id string, mutate func(*T) bool) (UpdateStatus, error) {
	doc, ok := c.docs[id]
	if !ok {
		return Unchanged, ErrDocNotFound
	}
	before := c.deepCopy(doc)
	if keep := mutate(doc); !keep {
		delete(c.docs, id)
		return Removed, nil
	}
	if reflect.DeepEqual(doc, before) {
		return Unchanged, nil
	}
	return Changed, nil
}

// UpdateAll applies mutate to every document and returns how many calls
// reported a change. The count is informational only; actual persistence
// is still decided by the save-time diff.
func (c *Collection[T]) UpdateAll(mutate func(*T) bool) int {
	changed := 0
	for _, doc := range c.docs {
		if mutate(doc) {
			changed++
		}
	}
	return changed
}

// Remove deletes a document from the working set. The deletion is persisted
// at save time if the document existed in the saved baseline.
func (c *Collection[T]) Remove(id string) bool {
	if _, ok := c.docs[id]; !ok {
		return false
	}
	delete(c.docs, id)
	return true
}

// Get returns the working copy for id.
func (c *Collection[T]) Get(id string) (*T, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// FindOne returns the first document matching pred. Iteration order over the
// arena is unspecified; callers needing determinism use FindAll and sort.
func (c *Collection[T]) FindOne(pred func(*T) bool) (*T, bool) {
	for _, doc := range c.docs {
		if pred(doc) {
			return doc, true
		}
	}
	return nil, false
}

// FindAll returns every document matching pred, ordered by id for
// deterministic iteration.
func (c *Collection[T]) FindAll(pred func(*T) bool) []*T {
	var out []*T
	for _, doc := range c.docs {
		if pred(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return c.idOf(out[i]) < c.idOf(out[j])
	})
	return out
}

// All returns every document in the working set, ordered by id.
func (c *Collection[T]) All() []*T {
	return c.FindAll(func(*T) bool { return true })
}

// Len reports the number of documents in the working set.
func (c *Collection[T]) Len() int { return len(c.docs) }

// Changes diffs the working set against the saved baseline.
func (c *Collection[T]) Changes() (upserts []T, deletedIDs []string) {
	for id, doc := range c.docs {
		base, existed := c.saved[id]
		if !existed || !reflect.DeepEqual(doc, base) {
			upserts = append(upserts, *c.deepCopy(doc))
		}
	}
	for id := range c.saved {
		if _, stillExists := c.docs[id]; !stillExists {
			deletedIDs = append(deletedIDs, id)
		}
	}
	sort.Slice(upserts, func(i, j int) bool {
		return c.idOf(&upserts[i]) < c.idOf(&upserts[j])
	})
	sort.Strings(deletedIDs)
	return upserts, deletedIDs
}

// Dirty reports whether a save would issue any writes.
func (c *Collection[T]) Dirty() bool {
	if len(c.docs) != len(c.saved) {
		return true
	}
	for id, doc := range c.docs {
		base, existed := c.saved[id]
		if !existed || !reflect.DeepEqual(doc, base) {
			return true
		}
	}
	return false
}

// markSaved promotes the current working set to the saved baseline.
func (c *Collection[T]) markSaved() {
	c.saved = make(map[string]*T, len(c.docs))
	for id, doc := range c.docs {
		c.saved[id] = c.deepCopy(doc)
	}
}

// Discard drops all unsaved mutations, restoring the working set from the
// saved baseline.
func (c *Collection[T]) Discard() {
	c.docs = make(map[string]*T, len(c.saved))
	for id, doc := range c.saved {
		c.docs[id] = c.deepCopy(doc)
	}
}

// Saveable is the collection-facing surface a Cache drives during a save.
type Saveable interface {
	// Name labels the collection in logs and assertion failures.
	Name() string

	// Dirty reports whether the collection has unsaved changes.
	Dirty() bool

	// Save writes the collection's changes and promotes the baseline.
	Save(ctx context.Context) error

	// Discard drops unsaved changes.
	Discard()
}

// binding pairs a Collection with its repository batch writers.
type binding[T any] struct {
	col    *Collection[T]
	upsert func(context.Context, []T) error
	delete func(context.Context, []string) error
}

// Bind wires a Collection to the repository functions that persist it.
// Each save calls upsert at most once with every changed document and
// delete at most once with every removed id.
func Bind[T any](col *Collection[T], upsert func(context.Context, []T) error, del func(context.Context, []string) error) Saveable {
	return &binding[T]{col: col, upsert: upsert, delete: del}
}

func (b *binding[T]) Name() string { return b.col.Name() }
func (b *binding[T]) Dirty() bool  { return b.col.Dirty() }
func (b *binding[T]) Discard()     { b.col.Discard() }

func (b *binding[T]) Save(ctx context.Context) error {
	upserts, deletedIDs := b.col.Changes()
	if len(deletedIDs) > 0 {
		if err := b.delete(ctx, deletedIDs); err != nil {
			return err
		}
	}
	if len(upserts) > 0 {
		if err := b.upsert(ctx, upserts); err != nil {
			return err
		}
	}
	b.col.markSaved()
	return nil
}
