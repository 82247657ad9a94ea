// Package memory models the emulated main memory that both the command
// producer and the FIFO decoder address.
package memory

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultAddressMask strips the cached/uncached mirror bits so that
// 0x80xxxxxx, 0xC0xxxxxx and 0x00xxxxxx name the same physical byte.
const DefaultAddressMask = 0x3FFFFFFF

// ErrOutOfRange is wrapped by accesses beyond the storage capacity.
var ErrOutOfRange = errors.New("access beyond the storage capacity")

// A Storage keeps the data of the guest system.
//
// The storage manages its bytes in units, similar to pages. Units that are
// never touched by Read or Write are never allocated. A Storage is safe for
// concurrent use.
type Storage struct {
	lock     sync.RWMutex
	unitSize uint32
	capacity uint32
	addrMask uint32
	data     map[uint32][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint32) *Storage {
	storage := new(Storage)

	storage.unitSize = 4096
	storage.capacity = capacity
	storage.addrMask = DefaultAddressMask
	storage.data = make(map[uint32][]byte)

	return storage
}

// WithAddressMask replaces the mask applied to every incoming address.
func (s *Storage) WithAddressMask(mask uint32) *Storage {
	s.addrMask = mask
	return s
}

// Capacity returns the number of addressable bytes.
func (s *Storage) Capacity() uint32 {
	return s.capacity
}

func (s *Storage) checkRange(address, length uint32) error {
	if uint64(address)+uint64(length) > uint64(s.capacity) {
		return fmt.Errorf("%w: 0x%08x+0x%x (capacity 0x%x)",
			ErrOutOfRange, address, length, s.capacity)
	}

	return nil
}

// unit returns the unit holding address, creating it if needed. The write
// lock must be held when create is true.
func (s *Storage) unit(address uint32, create bool) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint32) (baseAddr, inUnitAddr uint32) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read copies length bytes starting at address.
func (s *Storage) Read(address uint32, length uint32) ([]byte, error) {
	address &= s.addrMask
	if err := s.checkRange(address, length); err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]byte, length)
	currAddr := address
	dataOffset := uint32(0)

	for dataOffset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		if unit := s.unit(currAddr, false); unit != nil {
			copy(res[dataOffset:dataOffset+lenToRead],
				unit[inUnitAddr:inUnitAddr+lenToRead])
		}

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint32, data []byte) error {
	address &= s.addrMask
	if err := s.checkRange(address, uint32(len(data))); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	currAddr := address
	dataOffset := uint32(0)
	length := uint32(len(data))

	for dataOffset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToWrite := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		unit := s.unit(currAddr, true)
		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])

		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// Resolve returns a private copy of size bytes at address. The FIFO uses it
// both to fetch producer chunks and to load sub-streams.
func (s *Storage) Resolve(address uint32, size uint32) ([]byte, error) {
	return s.Read(address, size)
}
