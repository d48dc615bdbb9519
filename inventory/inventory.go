// Package inventory keeps an ordered collection of items in memory and
// persists the whole collection after every mutation.
//
// Manager is not safe for concurrent use. It's meant to be owned by a
// single goroutine (e.g. an interactive command loop).
package inventory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/recordstore"
)

var (
	// ErrNotFound is returned when there's no item with a given id
	ErrNotFound = errors.New("inventory: item not found")
	// ErrClosed is returned by operations after Close
	ErrClosed = errors.New("inventory: closed")
)

// Store loads and saves the whole collection.
// recordstore.Store is the default implementation
type Store interface {
	Load(path string) ([]item.Item, error)
	Save(path string, items []item.Item) error
}

const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes a mutation applied to the collection
type Change struct {
	Op   string
	Item item.Item
	// false if the mutation was applied in memory but saving failed
	Persisted bool
}

// PersistError is returned when a mutation was applied in memory
// but saving the collection failed. Memory and disk differ until the
// next successful save.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("inventory: %s applied but saving '%s' failed: %s", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type Options struct {
	// defaults to recordstore.Store{}
	Store Store
	// called after every applied mutation, including ones that
	// failed to persist
	OnChange func(Change)
}

// Manager owns the collection of items stored in a single file
type Manager struct {
	path     string
	store    Store
	onChange func(Change)
	items    []item.Item
	isNew    bool
	closed   bool
}

// Open loads items from path.
// If the file doesn't exist, the manager starts empty and IsNew() is true.
// If the file exists but can't be read, Open returns an empty, usable
// manager together with the error so that the caller can decide whether
// to continue.
func Open(path string, opts *Options) (*Manager, error) {
	m := &Manager{
		path:  path,
		store: recordstore.Store{},
	}
	if opts != nil {
		if opts.Store != nil {
			m.store = opts.Store
		}
		m.onChange = opts.OnChange
	}
	items, err := m.store.Load(path)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			m.isNew = true
			return m, nil
		}
		return m, fmt.Errorf("inventory: loading '%s': %w", path, err)
	}
	m.items = items
	return m, nil
}

// Path returns the path of the file backing the collection
func (m *Manager) Path() string {
	return m.path
}

// IsNew returns true if the file didn't exist when the manager was opened
func (m *Manager) IsNew() bool {
	return m.isNew
}

// Len returns number of items
func (m *Manager) Len() int {
	return len(m.items)
}

// List returns a copy of all items in insertion order
func (m *Manager) List() []item.Item {
	return slices.Clone(m.items)
}

func (m *Manager) indexOf(id int32) int {
	return slices.IndexFunc(m.items, func(it item.Item) bool {
		return it.ID == id
	})
}

func (m *Manager) persist(op string, it item.Item) error {
	err := m.store.Save(m.path, m.items)
	if m.onChange != nil {
		m.onChange(Change{Op: op, Item: it, Persisted: err == nil})
	}
	if err != nil {
		return &PersistError{Op: op, Path: m.path, Err: err}
	}
	return nil
}

// Add validates it and appends it to the end of the collection.
// Invalid items are rejected with *item.ValidationError and nothing is saved.
func (m *Manager) Add(it item.Item) error {
	if m.closed {
		return ErrClosed
	}
	it.Name = item.TrimName(it.Name)
	it.Category = item.CategoryFromInt(int(it.Category))
	if err := it.Validate(); err != nil {
		return err
	}
	m.items = append(m.items, it)
	return m.persist(OpAdd, it)
}

// Search returns the first item with a given id
func (m *Manager) Search(id int32) (item.Item, error) {
	if m.closed {
		return item.Item{}, ErrClosed
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return item.Item{}, ErrNotFound
	}
	return m.items[idx], nil
}

// UpdateQuantity sets the quantity of the first item with a given id.
// The quantity is not validated.
func (m *Manager) UpdateQuantity(id int32, qty int32) error {
	if m.closed {
		return ErrClosed
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	m.items[idx].Quantity = qty
	return m.persist(OpUpdate, m.items[idx])
}

// Delete removes the first item with a given id, keeping the order of
// the remaining items
func (m *Manager) Delete(id int32) error {
	if m.closed {
		return ErrClosed
	}
	idx := m.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	it := m.items[idx]
	m.items = slices.Delete(m.items, idx, idx+1)
	// don't hold on to a mostly unused backing array
	if cap(m.items) > 16 && len(m.items) < cap(m.items)/4 {
		m.items = slices.Clone(m.items)
	}
	return m.persist(OpDelete, it)
}

// Save writes the collection to disk
func (m *Manager) Save() error {
	if m.closed {
		return ErrClosed
	}
	return m.store.Save(m.path, m.items)
}

// Close saves the collection one more time and releases it.
// Calling Close more than once is a no-op.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	err := m.store.Save(m.path, m.items)
	m.items = nil
	m.closed = true
	return err
}
