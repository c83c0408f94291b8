package persist

import (
	"bytes"
	"fmt"
	"os"
)

// FileMedium is a flash image on disk. The file is locked exclusively for
// as long as it is open, so two servers cannot share one image.
type FileMedium struct {
	f         *os.File
	path      string
	size      int64
	blockSize int
	sync      bool
	erased    []byte
}

// OpenFileMedium opens or creates the image at path. A missing or short
// file is extended with erased blocks; a longer one is rejected.
func OpenFileMedium(path string, size int64, blockSize int, sync bool) (*FileMedium, error) {
	if blockSize <= 0 || size <= 0 || size%int64(blockSize) != 0 {
		return nil, fmt.Errorf("medium size %d is not a multiple of block size %d", size, blockSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock image %s: %w", path, err)
	}

	m := &FileMedium{
		f:         f,
		path:      path,
		size:      size,
		blockSize: blockSize,
		sync:      sync,
		erased:    bytes.Repeat([]byte{0xFF}, blockSize),
	}

	st, err := f.Stat()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}
	if st.Size() > size {
		m.Close()
		return nil, fmt.Errorf("image %s is %d bytes, configured region is %d", path, st.Size(), size)
	}
	if st.Size()%int64(blockSize) != 0 {
		m.Close()
		return nil, fmt.Errorf("image %s size %d is not block aligned", path, st.Size())
	}
	for off := st.Size(); off < size; off += int64(blockSize) {
		if _, err := f.WriteAt(m.erased, off); err != nil {
			m.Close()
			return nil, fmt.Errorf("extend image %s: %w", path, err)
		}
	}
	if err := m.flush(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *FileMedium) ReadAt(p []byte, off int64) (int, error) {
	return m.f.ReadAt(p, off)
}

func (m *FileMedium) EraseBlock(block int) error {
	off := int64(block) * int64(m.blockSize)
	if block < 0 || off+int64(m.blockSize) > m.size {
		return fmt.Errorf("erase block %d: out of range", block)
	}
	if _, err := m.f.WriteAt(m.erased, off); err != nil {
		return fmt.Errorf("erase block %d: %w", block, err)
	}
	return m.flush()
}

func (m *FileMedium) Program(off int64, data []byte) error {
	if off < 0 || off+int64(len(data)) > m.size {
		return fmt.Errorf("program %d bytes at %d: out of range", len(data), off)
	}
	cur := make([]byte, len(data))
	if _, err := m.f.ReadAt(cur, off); err != nil {
		return fmt.Errorf("program read-back at %d: %w", off, err)
	}
	for i, v := range data {
		cur[i] &= v
	}
	if _, err := m.f.WriteAt(cur, off); err != nil {
		return fmt.Errorf("program at %d: %w", off, err)
	}
	return m.flush()
}

func (m *FileMedium) flush() error {
	if !m.sync {
		return nil
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("sync image %s: %w", m.path, err)
	}
	return nil
}

func (m *FileMedium) BlockSize() int    { return m.blockSize }
func (m *FileMedium) Size() int64       { return m.size }
func (m *FileMedium) ErasedValue() byte { return 0xFF }
func (m *FileMedium) Path() string      { return m.path }

// Close releases the lock and closes the image.
func (m *FileMedium) Close() error {
	unlockFile(m.f)
	return m.f.Close()
}
