package mem

import (
	"fmt"
	"sync"
)

// Memory capacity units.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// A Storage keeps the data of the simulated memory.
//
// The storage is managed in units. Units that are never touched by Read or
// Write do not allocate any host memory.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the given capacity.
func NewStorage(capacity uint64) *Storage {
	s := new(Storage)
	s.unitSize = 4096
	s.capacity = capacity
	s.data = make(map[uint64][]byte)
	return s
}

// Capacity returns the number of bytes that the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, fmt.Errorf(
			"accessing address 0x%x beyond the storage capacity 0x%x",
			address, s.capacity)
	}

	baseAddr := address / s.unitSize * s.unitSize
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

// Read returns a copy of the data stored at the given address range.
func (s *Storage) Read(address, byteSize uint64) ([]byte, error) {
	s.Lock()
	defer s.Unlock()

	res := make([]byte, byteSize)

	offset := uint64(0)
	for offset < byteSize {
		currAddr := address + offset
		unit, err := s.unit(currAddr)
		if err != nil {
			return nil, err
		}

		inUnitAddr := currAddr % s.unitSize
		n := copy(res[offset:], unit[inUnitAddr:])
		offset += uint64(n)
	}

	return res, nil
}

// Write stores data at the given address.
func (s *Storage) Write(address uint64, data []byte) error {
	s.Lock()
	defer s.Unlock()

	offset := uint64(0)
	for offset < uint64(len(data)) {
		currAddr := address + offset
		unit, err := s.unit(currAddr)
		if err != nil {
			return err
		}

		inUnitAddr := currAddr % s.unitSize
		n := copy(unit[inUnitAddr:], data[offset:])
		offset += uint64(n)
	}

	return nil
}
