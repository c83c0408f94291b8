package persist

import (
	"bytes"
	"errors"
	"testing"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

const (
	testBlockSize = 4096
	testFrameSize = 768
	testQuarter   = testBlockSize / SlotsPerBlock
)

func frameOf(seed byte) []byte {
	f := make([]byte, testFrameSize)
	for i := range f {
		f[i] = byte(i)*3 + seed
	}
	return f
}

func newTestStore(t *testing.T, blocks int) (*Store, *MemMedium) {
	t.Helper()
	m := NewMemMedium(blocks, testBlockSize)
	s, err := NewStore(m, testFrameSize, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return s, m
}

// recordingMedium remembers every Program offset.
type recordingMedium struct {
	Medium
	programs []int64
	failOp   string
}

func (r *recordingMedium) Program(off int64, data []byte) error {
	if r.failOp == "program" {
		return errors.New("injected program failure")
	}
	r.programs = append(r.programs, off)
	return r.Medium.Program(off, data)
}

func (r *recordingMedium) EraseBlock(block int) error {
	if r.failOp == "erase" {
		return errors.New("injected erase failure")
	}
	return r.Medium.EraseBlock(block)
}

func blockHash(m *MemMedium, block int) [32]byte {
	return blake3.Sum256(m.Bytes()[block*testBlockSize : (block+1)*testBlockSize])
}

func quadrantBytes(m *MemMedium, slot int) []byte {
	off := (slot/SlotsPerBlock)*testBlockSize + (slot%SlotsPerBlock)*testQuarter
	return m.Bytes()[off : off+testQuarter]
}

func TestNewStore_Capacity(t *testing.T) {
	s, _ := newTestStore(t, 320)
	if s.Capacity() != 1280 {
		t.Errorf("Capacity() = %d, want 1280", s.Capacity())
	}
}

func TestNewStore_FrameTooLarge(t *testing.T) {
	m := NewMemMedium(1, 1024) // 256-byte quadrants
	if _, err := NewStore(m, testFrameSize, zap.NewNop()); !errors.Is(err, ErrFrameSize) {
		t.Errorf("NewStore() error = %v, want ErrFrameSize", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 4)
	for slot := 0; slot < s.Capacity(); slot++ {
		if err := s.WriteFrame(slot, frameOf(byte(slot))); err != nil {
			t.Fatalf("WriteFrame(%d) error: %v", slot, err)
		}
	}
	// Overwrite every slot once more to exercise the rebuild path.
	for slot := 0; slot < s.Capacity(); slot++ {
		if err := s.WriteFrame(slot, frameOf(byte(slot)+100)); err != nil {
			t.Fatalf("WriteFrame(%d) second pass error: %v", slot, err)
		}
	}
	for slot := 0; slot < s.Capacity(); slot++ {
		got, err := s.ReadFrame(slot)
		if err != nil {
			t.Fatalf("ReadFrame(%d) error: %v", slot, err)
		}
		if !bytes.Equal(got, frameOf(byte(slot)+100)) {
			t.Errorf("ReadFrame(%d) does not match last write", slot)
		}
	}
}

func TestStore_ErasedQuadrantWriteLeavesNeighborsUntouched(t *testing.T) {
	s, m := newTestStore(t, 2)
	if err := s.WriteFrame(4, frameOf(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFrame(6, frameOf(2)); err != nil {
		t.Fatal(err)
	}

	before := [][]byte{
		append([]byte(nil), quadrantBytes(m, 4)...),
		append([]byte(nil), quadrantBytes(m, 6)...),
		append([]byte(nil), quadrantBytes(m, 7)...),
	}
	other := blockHash(m, 0)

	if err := s.WriteFrame(5, frameOf(3)); err != nil {
		t.Fatalf("WriteFrame(5) error: %v", err)
	}
	for i, slot := range []int{4, 6, 7} {
		if !bytes.Equal(quadrantBytes(m, slot), before[i]) {
			t.Errorf("slot %d changed after writing its erased neighbor", slot)
		}
	}
	if blockHash(m, 0) != other {
		t.Error("unrelated block changed")
	}
	if st := s.Stats(); st.Erases != 0 {
		t.Errorf("Erases = %d, want 0 for writes into erased quadrants", st.Erases)
	}
}

func TestStore_RebuildPreservesNeighbors(t *testing.T) {
	m := NewMemMedium(1, testBlockSize)
	rec := &recordingMedium{Medium: m}
	s, err := NewStore(rec, testFrameSize, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	// Slots 0 and 2 hold data; 1 and 3 stay erased.
	if err := s.WriteFrame(0, frameOf(10)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFrame(2, frameOf(20)); err != nil {
		t.Fatal(err)
	}
	slot2 := append([]byte(nil), quadrantBytes(m, 2)...)
	rec.programs = nil

	// Overwrite slot 0: forces erase + rebuild.
	if err := s.WriteFrame(0, frameOf(30)); err != nil {
		t.Fatalf("WriteFrame(0) overwrite error: %v", err)
	}

	if !bytes.Equal(quadrantBytes(m, 2), slot2) {
		t.Error("non-erased neighbor slot 2 not restored exactly")
	}
	for _, slot := range []int{1, 3} {
		if !isErased(quadrantBytes(m, slot), 0xFF) {
			t.Errorf("erased neighbor slot %d no longer erased", slot)
		}
	}
	for _, off := range rec.programs {
		if off == testQuarter || off == 3*testQuarter {
			t.Errorf("erased quadrant at offset %d was reprogrammed", off)
		}
	}
	if len(rec.programs) != 2 {
		t.Errorf("rebuild issued %d programs, want 2", len(rec.programs))
	}
	got, _ := s.ReadFrame(0)
	if !bytes.Equal(got, frameOf(30)) {
		t.Error("target slot does not hold the new frame")
	}
	if st := s.Stats(); st.Erases != 1 || st.Rebuilds != 1 || st.MaxBlockErases != 1 {
		t.Errorf("Stats() = %+v, want one erase and one rebuild", st)
	}
}

func TestStore_PaddingStaysErased(t *testing.T) {
	s, m := newTestStore(t, 1)
	if err := s.WriteFrame(1, frameOf(5)); err != nil {
		t.Fatal(err)
	}
	if !isErased(quadrantBytes(m, 1)[testFrameSize:], 0xFF) {
		t.Error("quadrant padding was programmed")
	}
	erased, err := s.SlotErased(1)
	if err != nil || erased {
		t.Errorf("SlotErased(1) = %v, %v; want false", erased, err)
	}
	erased, err = s.SlotErased(2)
	if err != nil || !erased {
		t.Errorf("SlotErased(2) = %v, %v; want true", erased, err)
	}
}

func TestStore_WriteZeroFrameOverData(t *testing.T) {
	// 0x00 programs over anything, but 0xFF over data needs the erase.
	s, _ := newTestStore(t, 1)
	full := bytes.Repeat([]byte{0xFF}, testFrameSize)
	if err := s.WriteFrame(0, frameOf(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFrame(0, full); err != nil {
		t.Fatal(err)
	}
	got, _ := s.ReadFrame(0)
	if !bytes.Equal(got, full) {
		t.Error("all-0xFF frame did not replace existing data")
	}
}

func TestStore_SlotRange(t *testing.T) {
	s, _ := newTestStore(t, 1)
	if err := s.WriteFrame(4, frameOf(0)); !errors.Is(err, ErrSlotRange) {
		t.Errorf("WriteFrame(4) error = %v, want ErrSlotRange", err)
	}
	if _, err := s.ReadFrame(-1); !errors.Is(err, ErrSlotRange) {
		t.Errorf("ReadFrame(-1) error = %v, want ErrSlotRange", err)
	}
	if err := s.WriteFrame(0, frameOf(0)[:10]); !errors.Is(err, ErrFrameSize) {
		t.Errorf("WriteFrame(short) error = %v, want ErrFrameSize", err)
	}
}

func TestStore_MediumErrorsSurface(t *testing.T) {
	for _, op := range []string{"erase", "program"} {
		t.Run(op, func(t *testing.T) {
			rec := &recordingMedium{Medium: NewMemMedium(1, testBlockSize)}
			s, err := NewStore(rec, testFrameSize, zap.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			if err := s.WriteFrame(0, frameOf(1)); err != nil {
				t.Fatal(err)
			}
			rec.failOp = op

			err = s.WriteFrame(0, frameOf(2))
			var merr *MediumError
			if !errors.As(err, &merr) {
				t.Fatalf("WriteFrame() error = %v, want *MediumError", err)
			}
			if merr.Op != op || merr.Block != 0 {
				t.Errorf("MediumError = %+v, want op %s block 0", merr, op)
			}
		})
	}
}

func TestStore_Checksum(t *testing.T) {
	s, _ := newTestStore(t, 1)
	f := frameOf(42)
	if err := s.WriteFrame(3, f); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Checksum(3)
	if err != nil {
		t.Fatalf("Checksum() error: %v", err)
	}
	if sum != blake3.Sum256(f) {
		t.Error("Checksum() does not match BLAKE3 of the written frame")
	}
}
