package persist

import (
	"fmt"
	"io"
)

// Medium is block-erasable persistent memory with NOR-flash semantics:
// erase sets a whole block to ErasedValue, program can only clear bits.
type Medium interface {
	io.ReaderAt
	// EraseBlock resets every byte of block to ErasedValue.
	EraseBlock(block int) error
	// Program writes data at off. The stored result is old & data.
	Program(off int64, data []byte) error
	BlockSize() int
	Size() int64
	ErasedValue() byte
}

// MemMedium is a Medium held entirely in memory.
type MemMedium struct {
	data      []byte
	blockSize int
}

// NewMemMedium returns an erased medium of blocks*blockSize bytes.
func NewMemMedium(blocks, blockSize int) *MemMedium {
	m := &MemMedium{data: make([]byte, blocks*blockSize), blockSize: blockSize}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

func (m *MemMedium) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("read at %d: out of range", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemMedium) EraseBlock(block int) error {
	if block < 0 || (block+1)*m.blockSize > len(m.data) {
		return fmt.Errorf("erase block %d: out of range", block)
	}
	b := m.data[block*m.blockSize : (block+1)*m.blockSize]
	for i := range b {
		b[i] = 0xFF
	}
	return nil
}

func (m *MemMedium) Program(off int64, data []byte) error {
	if off < 0 || off+int64(len(data)) > int64(len(m.data)) {
		return fmt.Errorf("program %d bytes at %d: out of range", len(data), off)
	}
	dst := m.data[off:]
	for i, v := range data {
		dst[i] &= v
	}
	return nil
}

func (m *MemMedium) BlockSize() int    { return m.blockSize }
func (m *MemMedium) Size() int64       { return int64(len(m.data)) }
func (m *MemMedium) ErasedValue() byte { return 0xFF }

// Bytes exposes the raw contents; the slice aliases the medium.
func (m *MemMedium) Bytes() []byte { return m.data }
