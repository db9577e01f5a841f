//go:build unix

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// openSuffix marks objects that have been created but not yet sealed.
// Sealing renames the backing file to the bare hex id, which makes the
// seal visible atomically to other clients of the same directory.
const openSuffix = ".open"

type shmObject struct {
	file *os.File
	mem  []byte
}

// ShmStore is a Client backed by a shared-memory directory (typically
// on tmpfs, e.g. /dev/shm/transferoor). Each object is one file in the
// directory, mapped into this process with mmap so payload copies go
// straight into store memory.
type ShmStore struct {
	dir    string
	open   map[ObjectID]*shmObject // created, not yet sealed
	mapped []*shmObject            // sealed read mappings, freed on Disconnect
}

// Dial connects to the store directory at endpoint. It fails with a
// *ConnectError when the directory does not exist or is not writable.
func Dial(endpoint string) (*ShmStore, error) {
	info, err := os.Stat(endpoint)
	if err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}

	if !info.IsDir() {
		return nil, &ConnectError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("not a directory"),
		}
	}

	// A store that cannot allocate is as good as unreachable, so probe
	// writability up front rather than failing mid-benchmark.
	probe, err := os.CreateTemp(endpoint, ".probe-*")
	if err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}

	probe.Close()
	os.Remove(probe.Name())

	return &ShmStore{
		dir:  endpoint,
		open: make(map[ObjectID]*shmObject),
	}, nil
}

func (s *ShmStore) sealedPath(id ObjectID) string {
	return filepath.Join(s.dir, id.String())
}

func (s *ShmStore) openPath(id ObjectID) string {
	return filepath.Join(s.dir, id.String()+openSuffix)
}

func (s *ShmStore) Create(id ObjectID, size int) ([]byte, error) {
	if _, ok := s.open[id]; ok {
		return nil, fmt.Errorf("create %s: %w", id, ErrObjectExists)
	}

	if _, err := os.Stat(s.sealedPath(id)); err == nil {
		return nil, fmt.Errorf("create %s: %w", id, ErrObjectExists)
	}

	f, err := os.OpenFile(s.openPath(id), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(s.openPath(id))

		return nil, fmt.Errorf("create %s: resize to %d: %w", id, size, err)
	}

	obj := &shmObject{file: f}

	if size > 0 {
		mem, err := unix.Mmap(int(f.Fd()), 0, size,
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			os.Remove(s.openPath(id))

			return nil, fmt.Errorf("create %s: mmap %d bytes: %w", id, size, err)
		}

		obj.mem = mem
	}

	s.open[id] = obj

	return obj.mem, nil
}

func (s *ShmStore) Seal(id ObjectID) error {
	obj, ok := s.open[id]
	if !ok {
		if _, err := os.Stat(s.sealedPath(id)); err == nil {
			return fmt.Errorf("seal %s: %w", id, ErrAlreadySealed)
		}

		return fmt.Errorf("seal %s: %w", id, ErrNotFound)
	}

	if obj.mem != nil {
		if err := unix.Msync(obj.mem, unix.MS_SYNC); err != nil {
			return fmt.Errorf("seal %s: msync: %w", id, err)
		}

		if err := unix.Munmap(obj.mem); err != nil {
			return fmt.Errorf("seal %s: munmap: %w", id, err)
		}
	}

	if err := obj.file.Close(); err != nil {
		return fmt.Errorf("seal %s: close: %w", id, err)
	}

	if err := os.Rename(s.openPath(id), s.sealedPath(id)); err != nil {
		return fmt.Errorf("seal %s: %w", id, err)
	}

	delete(s.open, id)

	return nil
}

func (s *ShmStore) GetBuffers(ids []ObjectID) ([][]byte, error) {
	bufs := make([][]byte, 0, len(ids))

	for _, id := range ids {
		if _, ok := s.open[id]; ok {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotSealed)
		}

		f, err := os.Open(s.sealedPath(id))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
			}

			return nil, fmt.Errorf("get %s: %w", id, err)
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("get %s: %w", id, err)
		}

		size := int(info.Size())
		if size == 0 {
			f.Close()
			bufs = append(bufs, nil)

			continue
		}

		mem, err := unix.Mmap(int(f.Fd()), 0, size,
			unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("get %s: mmap: %w", id, err)
		}

		s.mapped = append(s.mapped, &shmObject{file: f, mem: mem})
		bufs = append(bufs, mem)
	}

	return bufs, nil
}

func (s *ShmStore) Put(value []byte) (ObjectID, error) {
	id := RandomID()

	buf, err := s.Create(id, len(value))
	if err != nil {
		return id, err
	}

	copy(buf, value)

	if err := s.Seal(id); err != nil {
		return id, err
	}

	return id, nil
}

func (s *ShmStore) Get(id ObjectID) ([]byte, error) {
	bufs, err := s.GetBuffers([]ObjectID{id})
	if err != nil {
		return nil, err
	}

	return bufs[0], nil
}

func (s *ShmStore) List() ([]ObjectID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	ids := make([]ObjectID, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, openSuffix) {
			continue
		}

		id, err := ParseID(name)
		if err != nil {
			// Not one of ours.
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Disconnect unmaps all read buffers and aborts any unsealed objects.
// Buffers returned by GetBuffers must not be used afterwards.
func (s *ShmStore) Disconnect() error {
	var firstErr error

	for id, obj := range s.open {
		if obj.mem != nil {
			if err := unix.Munmap(obj.mem); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("abort %s: munmap: %w", id, err)
			}
		}

		obj.file.Close()
		os.Remove(s.openPath(id))
	}

	s.open = make(map[ObjectID]*shmObject)

	for _, obj := range s.mapped {
		if err := unix.Munmap(obj.mem); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("munmap: %w", err)
		}

		obj.file.Close()
	}

	s.mapped = nil

	return firstErr
}
