// Package store defines the client boundary to a shared-memory object
// store. Objects are created with a fixed size, filled in place, sealed
// exactly once, and read back as immutable buffers. The store itself is
// an external service; this package only provides the client handle and
// a portable in-memory implementation for tests.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// IDSize is the length of an ObjectID in bytes.
const IDSize = 20

// ObjectID names a single object slot in the store. IDs are generated
// fresh per transfer and never reused.
type ObjectID [IDSize]byte

// RandomID returns a fresh random ObjectID.
func RandomID() ObjectID {
	var id ObjectID
	// crypto/rand.Read never returns an error on supported platforms.
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("store: read random id: %v", err))
	}

	return id
}

// ParseID decodes a 40-character hex string into an ObjectID.
func ParseID(s string) (ObjectID, error) {
	var id ObjectID

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse object id %q: %w", s, err)
	}

	if len(raw) != IDSize {
		return id, fmt.Errorf("parse object id %q: want %d bytes, got %d",
			s, IDSize, len(raw))
	}

	copy(id[:], raw)

	return id, nil
}

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

var (
	// ErrObjectExists is returned by Create when the id is already in use.
	ErrObjectExists = errors.New("object already exists")

	// ErrNotFound is returned when no object with the given id exists.
	ErrNotFound = errors.New("object not found")

	// ErrNotSealed is returned by GetBuffers for an unsealed object.
	ErrNotSealed = errors.New("object not sealed")

	// ErrAlreadySealed is returned by Seal when called twice on an id.
	ErrAlreadySealed = errors.New("object already sealed")
)

// ConnectError reports a failure to reach the store at startup.
// It is fatal for a benchmark run.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to store at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Client is a handle to a connected store. All methods are intended for
// sequential use from a single goroutine; the benchmark never shares a
// client across goroutines.
type Client interface {
	// Create allocates an object of the given size and returns a
	// writable buffer backed by store memory. The buffer stays valid
	// until Seal.
	Create(id ObjectID, size int) ([]byte, error)

	// Seal freezes a created object. After sealing the object is
	// immutable and readable via GetBuffers.
	Seal(id ObjectID) error

	// GetBuffers returns read-only buffers for the given sealed
	// objects, in order. Buffers stay valid until Disconnect.
	GetBuffers(ids []ObjectID) ([][]byte, error)

	// Put stores a value under a fresh id and seals it. Used for the
	// connectivity smoke check.
	Put(value []byte) (ObjectID, error)

	// Get reads back a sealed object by id.
	Get(id ObjectID) ([]byte, error)

	// List returns the ids of all sealed objects currently in the store.
	List() ([]ObjectID, error)

	// Disconnect releases all buffers and closes the connection.
	Disconnect() error
}
