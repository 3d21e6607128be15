package recovery

import (
	"os"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
)

// Store is the persistent slot the snapshot record lives in. On the
// printer this is a reserved flash page; on a host it is a file.
type Store interface {
	// Read returns the stored record, or nil if the slot is empty.
	Read() ([]byte, error)

	// Write replaces the stored record.
	Write(data []byte) error

	// Erase clears the slot.
	Erase() error
}

// FileStore keeps the snapshot record in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreIOError("read", err)
	}
	return data, nil
}

func (s *FileStore) Write(data []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.StoreIOError("write", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.StoreIOError("write", err)
	}
	return nil
}

func (s *FileStore) Erase() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.StoreIOError("erase", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and the simulator.
type MemStore struct {
	data []byte
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Read() ([]byte, error) {
	if s.data == nil {
		return nil, nil
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp, nil
}

func (s *MemStore) Write(data []byte) error {
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

func (s *MemStore) Erase() error {
	s.data = nil
	return nil
}
