package inventory

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/recordstore"
)

// countingStore wraps recordstore.Store, counts saves and can fail them
type countingStore struct {
	recordstore.Store
	nSaves  int
	failErr error
}

func (s *countingStore) Save(path string, items []item.Item) error {
	s.nSaves++
	if s.failErr != nil {
		return s.failErr
	}
	return s.Store.Save(path, items)
}

func widget(id int32) item.Item {
	return item.Item{ID: id, Name: "Widget", Quantity: 5, Price: 9.99, Category: item.Other}
}

func openTest(t *testing.T) (*Manager, *countingStore) {
	path := filepath.Join(t.TempDir(), "items.dat")
	store := &countingStore{}
	m, err := Open(path, &Options{Store: store})
	assert.NoError(t, err)
	assert.True(t, m.IsNew())
	assert.Equal(t, 0, m.Len())
	return m, store
}

func ids(items []item.Item) []int32 {
	var res []int32
	for _, it := range items {
		res = append(res, it.ID)
	}
	return res
}

func TestAddThenSearch(t *testing.T) {
	m, store := openTest(t)
	exp := widget(1)
	err := m.Add(exp)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.nSaves)

	got, err := m.Search(1)
	assert.NoError(t, err)
	assert.Equal(t, exp, got)

	_, err = m.Search(2)
	assert.True(t, err == ErrNotFound)

	// it's on disk
	items, err := recordstore.Load(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, []item.Item{exp}, items)
}

func TestAddNormalizesInput(t *testing.T) {
	m, _ := openTest(t)
	it := widget(3)
	it.Name = "Lamp\r\n"
	it.Category = item.Category(9)
	assert.NoError(t, m.Add(it))
	got, err := m.Search(3)
	assert.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
	assert.Equal(t, item.Other, got.Category)
}

func TestInsertionOrder(t *testing.T) {
	m, _ := openTest(t)
	for _, id := range []int32{5, 1, 3} {
		assert.NoError(t, m.Add(widget(id)))
	}
	assert.Equal(t, []int32{5, 1, 3}, ids(m.List()))
}

func TestValidationRejects(t *testing.T) {
	m, store := openTest(t)
	assert.NoError(t, m.Add(widget(1)))
	nSaves := store.nSaves

	bad := []item.Item{
		{ID: 2, Name: "x", Quantity: -1, Price: 1},
		{ID: 0, Name: "x", Quantity: 1, Price: 1},
		{ID: 2, Name: "\n", Quantity: 1, Price: 1},
		{ID: 2, Name: "x", Quantity: 1, Price: 0},
	}
	for i, it := range bad {
		err := m.Add(it)
		assert.True(t, errors.Is(err, item.ErrInvalid), "case %d: %v", i, err)
	}
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, nSaves, store.nSaves)
}

func TestDeletePreservesOrder(t *testing.T) {
	m, store := openTest(t)
	for _, id := range []int32{1, 2, 3} {
		assert.NoError(t, m.Add(widget(id)))
	}
	assert.NoError(t, m.Delete(2))
	assert.Equal(t, []int32{1, 3}, ids(m.List()))
	assert.Equal(t, 4, store.nSaves)

	items, err := recordstore.Load(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, ids(items))

	err = m.Delete(2)
	assert.True(t, err == ErrNotFound)
	assert.Equal(t, 4, store.nSaves)

	assert.NoError(t, m.Delete(1))
	assert.NoError(t, m.Delete(3))
	assert.Equal(t, 0, m.Len())
	st, err := os.Stat(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), st.Size())
}

func TestDeleteShrinks(t *testing.T) {
	m, _ := openTest(t)
	for id := int32(1); id <= 100; id++ {
		assert.NoError(t, m.Add(widget(id)))
	}
	for id := int32(1); id <= 95; id++ {
		assert.NoError(t, m.Delete(id))
	}
	assert.Equal(t, []int32{96, 97, 98, 99, 100}, ids(m.List()))
	assert.True(t, cap(m.items) < 100, "cap: %d", cap(m.items))
}

func TestUpdateNonexistent(t *testing.T) {
	m, store := openTest(t)
	assert.NoError(t, m.Add(widget(1)))
	before, err := os.ReadFile(m.Path())
	assert.NoError(t, err)
	nSaves := store.nSaves

	err = m.UpdateQuantity(99, 5)
	assert.True(t, err == ErrNotFound)
	assert.Equal(t, nSaves, store.nSaves)
	assert.Equal(t, []item.Item{widget(1)}, m.List())
	after, err := os.ReadFile(m.Path())
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))
}

func TestUpdateQuantity(t *testing.T) {
	m, _ := openTest(t)
	assert.NoError(t, m.Add(widget(1)))
	// no validation of the new value
	assert.NoError(t, m.UpdateQuantity(1, -4))
	got, err := m.Search(1)
	assert.NoError(t, err)
	assert.Equal(t, int32(-4), got.Quantity)

	items, err := recordstore.Load(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, int32(-4), items[0].Quantity)
}

func TestDuplicateIDsFirstMatchWins(t *testing.T) {
	m, _ := openTest(t)
	a := widget(7)
	a.Name = "first"
	b := widget(7)
	b.Name = "second"
	assert.NoError(t, m.Add(a))
	assert.NoError(t, m.Add(b))

	got, err := m.Search(7)
	assert.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	assert.NoError(t, m.UpdateQuantity(7, 100))
	items := m.List()
	assert.Equal(t, int32(100), items[0].Quantity)
	assert.Equal(t, int32(5), items[1].Quantity)

	assert.NoError(t, m.Delete(7))
	got, err = m.Search(7)
	assert.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	m, store := openTest(t)
	assert.NoError(t, m.Add(widget(1)))

	var changes []Change
	m.onChange = func(c Change) {
		changes = append(changes, c)
	}
	store.failErr = recordstore.ErrWrite

	err := m.Add(widget(2))
	var perr *PersistError
	assert.True(t, errors.As(err, &perr), "err: %v", err)
	assert.Equal(t, OpAdd, perr.Op)
	assert.True(t, errors.Is(err, recordstore.ErrWrite))
	// not rolled back
	assert.Equal(t, []int32{1, 2}, ids(m.List()))

	err = m.UpdateQuantity(1, 3)
	assert.True(t, errors.Is(err, recordstore.ErrWrite))
	err = m.Delete(2)
	assert.True(t, errors.Is(err, recordstore.ErrWrite))
	assert.Equal(t, []int32{1}, ids(m.List()))

	// disk still has the state from before the failures
	items, err := recordstore.Load(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, []item.Item{widget(1)}, items)

	assert.Equal(t, 3, len(changes))
	for _, c := range changes {
		assert.False(t, c.Persisted)
	}
	assert.Equal(t, OpDelete, changes[2].Op)
	assert.Equal(t, int32(2), changes[2].Item.ID)

	// next successful save brings them back in sync
	store.failErr = nil
	assert.NoError(t, m.Save())
	items, err = recordstore.Load(m.Path())
	assert.NoError(t, err)
	assert.Equal(t, m.List(), items)
}

func TestReopen(t *testing.T) {
	m, _ := openTest(t)
	for _, id := range []int32{3, 1, 2} {
		assert.NoError(t, m.Add(widget(id)))
	}
	assert.NoError(t, m.UpdateQuantity(1, 50))
	assert.NoError(t, m.Close())
	// Close is idempotent and later operations fail
	assert.NoError(t, m.Close())
	assert.True(t, m.Add(widget(9)) == ErrClosed)
	_, err := m.Search(3)
	assert.True(t, err == ErrClosed)

	m2, err := Open(m.Path(), nil)
	assert.NoError(t, err)
	assert.False(t, m2.IsNew())
	assert.Equal(t, []int32{3, 1, 2}, ids(m2.List()))
	got, err := m2.Search(1)
	assert.NoError(t, err)
	assert.Equal(t, int32(50), got.Quantity)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.dat")
	assert.NoError(t, os.WriteFile(path, []byte("not a multiple of record size"), 0644))
	m, err := Open(path, nil)
	assert.True(t, errors.Is(err, recordstore.ErrRead), "err: %v", err)
	assert.NotNil(t, m)
	assert.False(t, m.IsNew())
	assert.Equal(t, 0, m.Len())
	// still usable
	assert.NoError(t, m.Add(widget(1)))
}
