package persist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// SlotsPerBlock is the number of frames packed into one erase block.
const SlotsPerBlock = 4

var (
	ErrSlotRange = errors.New("slot out of range")
	ErrFrameSize = errors.New("invalid frame size")
)

// MediumError reports a failed read, erase or program on the medium.
// The store never retries: after a failure the block contents are unknown
// and must be re-read before anything else is attempted.
type MediumError struct {
	Op    string // "read", "erase" or "program"
	Block int
	Err   error
}

func (e *MediumError) Error() string {
	return fmt.Sprintf("medium %s block %d: %v", e.Op, e.Block, e.Err)
}

func (e *MediumError) Unwrap() error { return e.Err }

// Stats counts medium operations since the store was opened.
type Stats struct {
	Programs       uint64
	Erases         uint64
	Rebuilds       uint64
	MaxBlockErases uint32
}

// Store packs fixed-size frames four to a block. Slot n lives in block
// n/4, quadrant n%4. Writing into an erased quadrant is a plain program;
// writing over data rebuilds the block from an in-memory snapshot.
//
// Every medium access holds mu, so the erase-then-reprogram sequence of a
// rebuild is never interleaved with a read or another write. A power loss
// during a rebuild loses the block: the snapshot lives only in memory and
// there is no journal.
type Store struct {
	mu        sync.Mutex
	m         Medium
	frameSize int
	quarter   int
	capacity  int
	scratch   []byte // one block, reused as the rebuild snapshot
	erases    []uint32
	stats     Stats
	log       *zap.Logger
}

// NewStore lays frames of frameSize bytes over m. Each quadrant
// (BlockSize/4) must hold a whole frame; the remainder is padding.
func NewStore(m Medium, frameSize int, log *zap.Logger) (*Store, error) {
	bs := m.BlockSize()
	if bs <= 0 || bs%SlotsPerBlock != 0 {
		return nil, fmt.Errorf("block size %d is not divisible into %d quadrants", bs, SlotsPerBlock)
	}
	quarter := bs / SlotsPerBlock
	if frameSize <= 0 || frameSize > quarter {
		return nil, fmt.Errorf("%w: frame of %d bytes does not fit a %d-byte quadrant", ErrFrameSize, frameSize, quarter)
	}
	blocks := int(m.Size() / int64(bs))
	return &Store{
		m:         m,
		frameSize: frameSize,
		quarter:   quarter,
		capacity:  blocks * SlotsPerBlock,
		scratch:   make([]byte, bs),
		erases:    make([]uint32, blocks),
		log:       log,
	}, nil
}

// Capacity returns the number of slots.
func (s *Store) Capacity() int {
	return s.capacity
}

// FrameSize returns the payload size of one slot.
func (s *Store) FrameSize() int {
	return s.frameSize
}

func (s *Store) checkSlot(slot int) error {
	if slot < 0 || slot >= s.capacity {
		return fmt.Errorf("%w: %d (capacity %d)", ErrSlotRange, slot, s.capacity)
	}
	return nil
}

// WriteFrame stores frame at slot, erasing and rebuilding the block only
// when the target quadrant already holds data.
func (s *Store) WriteFrame(slot int, frame []byte) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if len(frame) != s.frameSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), s.frameSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	block, quadrant := slot/SlotsPerBlock, slot%SlotsPerBlock
	base := int64(block) * int64(len(s.scratch))

	// One read serves as both the erased-state scan and the snapshot.
	if _, err := s.m.ReadAt(s.scratch, base); err != nil {
		return &MediumError{Op: "read", Block: block, Err: err}
	}
	erased := s.scan(s.scratch)

	if erased[quadrant] {
		if err := s.program(block, base+int64(quadrant*s.quarter), frame); err != nil {
			return err
		}
		s.log.Debug("frame programmed", zap.Int("slot", slot), zap.Int("block", block))
		return nil
	}

	if err := s.m.EraseBlock(block); err != nil {
		return &MediumError{Op: "erase", Block: block, Err: err}
	}
	s.stats.Erases++
	s.stats.Rebuilds++
	s.erases[block]++
	if s.erases[block] > s.stats.MaxBlockErases {
		s.stats.MaxBlockErases = s.erases[block]
	}

	restored := 0
	for i := 0; i < SlotsPerBlock; i++ {
		off := base + int64(i*s.quarter)
		switch {
		case i == quadrant:
			if err := s.program(block, off, frame); err != nil {
				return err
			}
		case !erased[i]:
			if err := s.program(block, off, s.scratch[i*s.quarter:(i+1)*s.quarter]); err != nil {
				return err
			}
			restored++
		}
	}

	s.log.Debug("block rebuilt",
		zap.Int("slot", slot),
		zap.Int("block", block),
		zap.Int("restored", restored),
		zap.Uint32("block_erases", s.erases[block]),
	)
	return nil
}

func (s *Store) program(block int, off int64, data []byte) error {
	if err := s.m.Program(off, data); err != nil {
		return &MediumError{Op: "program", Block: block, Err: err}
	}
	s.stats.Programs++
	return nil
}

// scan reports, per quadrant of a block image, whether every byte is erased.
func (s *Store) scan(block []byte) [SlotsPerBlock]bool {
	var erased [SlotsPerBlock]bool
	ev := s.m.ErasedValue()
	for i := range erased {
		erased[i] = isErased(block[i*s.quarter:(i+1)*s.quarter], ev)
	}
	return erased
}

func isErased(b []byte, ev byte) bool {
	for _, v := range b {
		if v != ev {
			return false
		}
	}
	return true
}

func (s *Store) offset(slot int) (block int, off int64) {
	block = slot / SlotsPerBlock
	return block, int64(block)*int64(len(s.scratch)) + int64((slot%SlotsPerBlock)*s.quarter)
}

// ReadFrame returns a copy of the frame stored at slot. An unwritten slot
// reads back as erased bytes.
func (s *Store) ReadFrame(slot int) ([]byte, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	buf := make([]byte, s.frameSize)
	block, off := s.offset(slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.m.ReadAt(buf, off); err != nil {
		return nil, &MediumError{Op: "read", Block: block, Err: err}
	}
	return buf, nil
}

// SlotErased reports whether the whole quadrant of slot is erased.
func (s *Store) SlotErased(slot int) (bool, error) {
	if err := s.checkSlot(slot); err != nil {
		return false, err
	}
	buf := make([]byte, s.quarter)
	block, off := s.offset(slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.m.ReadAt(buf, off); err != nil {
		return false, &MediumError{Op: "read", Block: block, Err: err}
	}
	return isErased(buf, s.m.ErasedValue()), nil
}

// Checksum returns the BLAKE3-256 digest of the frame at slot.
func (s *Store) Checksum(slot int) ([32]byte, error) {
	frame, err := s.ReadFrame(slot)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(frame), nil
}

// Stats returns a snapshot of the operation counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
