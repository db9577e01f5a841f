package store

import (
	"fmt"
	"sort"
	"sync"
)

type memObject struct {
	data   []byte
	sealed bool
}

// MemStore is an in-process Client used by tests and by runs that do
// not have a store endpoint available. It keeps objects on the Go heap
// but honors the same create/seal/get lifecycle as the real store.
type MemStore struct {
	mu      sync.Mutex
	objects map[ObjectID]*memObject
	closed  bool
}

// NewMemStore returns an empty in-memory store client.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[ObjectID]*memObject)}
}

func (m *MemStore) Create(id ObjectID, size int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("create %s: client disconnected", id)
	}

	if _, ok := m.objects[id]; ok {
		return nil, fmt.Errorf("create %s: %w", id, ErrObjectExists)
	}

	obj := &memObject{data: make([]byte, size)}
	m.objects[id] = obj

	return obj.data, nil
}

func (m *MemStore) Seal(id ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[id]
	if !ok {
		return fmt.Errorf("seal %s: %w", id, ErrNotFound)
	}

	if obj.sealed {
		return fmt.Errorf("seal %s: %w", id, ErrAlreadySealed)
	}

	obj.sealed = true

	return nil
}

func (m *MemStore) GetBuffers(ids []ObjectID) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bufs := make([][]byte, 0, len(ids))

	for _, id := range ids {
		obj, ok := m.objects[id]
		if !ok {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
		}

		if !obj.sealed {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotSealed)
		}

		bufs = append(bufs, obj.data)
	}

	return bufs, nil
}

func (m *MemStore) Put(value []byte) (ObjectID, error) {
	id := RandomID()

	buf, err := m.Create(id, len(value))
	if err != nil {
		return id, err
	}

	copy(buf, value)

	if err := m.Seal(id); err != nil {
		return id, err
	}

	return id, nil
}

func (m *MemStore) Get(id ObjectID) ([]byte, error) {
	bufs, err := m.GetBuffers([]ObjectID{id})
	if err != nil {
		return nil, err
	}

	return bufs[0], nil
}

func (m *MemStore) List() ([]ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]ObjectID, 0, len(m.objects))

	for id, obj := range m.objects {
		if obj.sealed {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids, nil
}

func (m *MemStore) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects = nil
	m.closed = true

	return nil
}
