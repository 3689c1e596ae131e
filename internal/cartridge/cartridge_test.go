package cartridge

import "testing"

func TestReadROM8WithinImage(t *testing.T) {
	c := New([]byte{0xAA, 0xBB, 0xCC})
	if got := c.ReadROM8(1); got != 0xBB {
		t.Fatalf("ReadROM8(1) = %#x, want 0xbb", got)
	}
}

func TestReadROM8PastImageEndIsHalfwordIndex(t *testing.T) {
	c := New([]byte{0x01, 0x02})
	// Offset 4 is past the two-byte image: halfword index = 4/2 = 2.
	if got := c.ReadROM8(4); got != 2 {
		t.Fatalf("ReadROM8(4) past end = %#x, want 2 (low byte of halfword index)", got)
	}
	if got := c.ReadROM8(5); got != 0 {
		t.Fatalf("ReadROM8(5) past end = %#x, want 0 (high byte of halfword index 2)", got)
	}
}

func TestWriteROMIsNoOp(t *testing.T) {
	c := New([]byte{0x11, 0x22})
	c.WriteROM(0, 0xFF)
	if got := c.ReadROM8(0); got != 0x11 {
		t.Fatalf("ROM byte changed after write: got %#x, want 0x11 (ROM is read-only)", got)
	}
}

func TestSRAMReadWriteRoundTrip(t *testing.T) {
	c := New(nil)
	c.WriteSRAM8(100, 0x42)
	if got := c.ReadSRAM8(100); got != 0x42 {
		t.Fatalf("SRAM[100] = %#x, want 0x42", got)
	}
}

func TestSRAMWrapsAtSize(t *testing.T) {
	c := New(nil)
	c.WriteSRAM8(SRAMSize, 0x7)
	if got := c.ReadSRAM8(0); got != 0x7 {
		t.Fatalf("SRAM write at SRAMSize should wrap to offset 0, got %#x at [0]", got)
	}
}
