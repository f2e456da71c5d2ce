// Package arenatest builds synthetic FDB result arenas for tests and benches.
//
// Records are laid out with the wasm32 FDB C ABI (packed to 4 bytes, little
// endian). Every array is placed at an odd offset so consumers cannot rely on
// alignment.
package arenatest

import (
	"encoding/binary"

	"github.com/wippyai/fdb-wasm/errors"
)

// Memory is a byte-slice backed arena.
type Memory struct {
	buf []byte
}

// NewMemory creates a zeroed arena of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{buf: make([]byte, size)}
}

func (m *Memory) bounds(offset, length uint32) bool {
	end := uint64(offset) + uint64(length)
	return end <= uint64(len(m.buf))
}

// Read returns a view of length bytes at offset.
func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	if !m.bounds(offset, length) {
		return nil, errors.OutOfBounds(errors.PhaseView, offset, length)
	}
	return m.buf[offset : offset+length : offset+length], nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.bounds(offset, uint32(len(data))) {
		return errors.OutOfBounds(errors.PhaseGuest, offset, uint32(len(data)))
	}
	copy(m.buf[offset:], data)
	return nil
}

func (m *Memory) WriteU32(offset, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return m.Write(offset, b[:])
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.buf))
}

// Scribble overwrites the whole arena with v, the way a guest allocator may
// reuse freed memory.
func (m *Memory) Scribble(v byte) {
	for i := range m.buf {
		m.buf[i] = v
	}
}
