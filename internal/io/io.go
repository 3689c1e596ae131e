// Package io implements the 1 KiB memory-mapped register window at
// 0x04000000-0x040003FF. Each address can carry a read-mask, a write-mask
// and optional read/write callbacks, so the bit-level semantics of a
// register (read-only status bits, write-1-to-clear flags, side effects
// that arm a DMA channel or restart a timer) are declared once instead of
// scattered through bus code.
//
// Packed C-style bit-fields are deliberately not used here: every
// multi-bit field is reached through an explicit getter/setter over the
// plain backing byte array, which keeps the layout endian-free and
// directly testable.
package io

const Size = 0x400

// Well-known register offsets within the 1 KiB I/O window.
const (
	DISPCNT  = 0x000
	DISPSTAT = 0x004
	VCOUNT   = 0x006

	DMA0SAD   = 0x0B0
	DMA0DAD   = 0x0B4
	DMA0CNT_L = 0x0B8
	DMA0CNT_H = 0x0BA
	DMA1SAD   = 0x0BC
	DMA1DAD   = 0x0C0
	DMA1CNT_L = 0x0C4
	DMA1CNT_H = 0x0C6
	DMA2SAD   = 0x0C8
	DMA2DAD   = 0x0CC
	DMA2CNT_L = 0x0D0
	DMA2CNT_H = 0x0D2
	DMA3SAD   = 0x0D4
	DMA3DAD   = 0x0D8
	DMA3CNT_L = 0x0DC
	DMA3CNT_H = 0x0DE

	TM0CNT_L = 0x100
	TM0CNT_H = 0x102
	TM1CNT_L = 0x104
	TM1CNT_H = 0x106
	TM2CNT_L = 0x108
	TM2CNT_H = 0x10A
	TM3CNT_L = 0x10C
	TM3CNT_H = 0x10E

	SIOCNT = 0x128

	KEYINPUT = 0x130
	KEYCNT   = 0x132

	FIFO_A = 0x0A0
	FIFO_B = 0x0A4

	IE   = 0x200
	IF   = 0x202
	IME  = 0x208
)

// WriteCallback observes a masked byte write after it has been applied to
// the backing store, receiving the value before and after the write.
type WriteCallback func(old, new uint8)

// descriptor is the per-address register behavior. A nil descriptor means
// "plain read/write byte, no restrictions" for addresses inside Size, and
// "reads as 0, writes dropped" for addresses past the 1 KiB window.
type descriptor struct {
	readMask  uint8 // bits of the stored byte returned on read; 0xFF if unset
	writeMask uint8 // bits a CPU/DMA write may modify; 0xFF if unset
	clearOnWrite bool // write-1-to-clear semantics (IF)
	onWrite   WriteCallback
}

// File is the register file itself.
type File struct {
	regs  [Size]byte
	descs map[uint32]*descriptor
}

// New creates an empty register file (all-zero, as at reset).
func New() *File {
	return &File{descs: make(map[uint32]*descriptor)}
}

// Describe installs a descriptor for a single byte address. Call once per
// address during core construction; subsequent calls replace it.
func (f *File) Describe(addr uint32, readMask, writeMask uint8, clearOnWrite bool, onWrite WriteCallback) {
	f.descs[addr] = &descriptor{readMask: readMask, writeMask: writeMask, clearOnWrite: clearOnWrite, onWrite: onWrite}
}

// OnWrite registers a callback for an address without touching its masks.
func (f *File) OnWrite(addr uint32, cb WriteCallback) {
	d := f.descFor(addr)
	d.onWrite = cb
}

func (f *File) descFor(addr uint32) *descriptor {
	d, ok := f.descs[addr]
	if !ok {
		d = &descriptor{readMask: 0xFF, writeMask: 0xFF}
		f.descs[addr] = d
	}
	return d
}

// Read8 returns the masked byte at addr. Addresses outside the 1 KiB window
// read as 0.
func (f *File) Read8(addr uint32) uint8 {
	if addr >= Size {
		return 0
	}
	d, ok := f.descs[addr]
	if !ok {
		return f.regs[addr]
	}
	mask := d.readMask
	if mask == 0 {
		mask = 0xFF
	}
	return f.regs[addr] & mask
}

// Write8 applies value to addr through its write-mask, preserving bits the
// mask doesn't cover, then fires any registered callback. Addresses outside
// the window are dropped.
func (f *File) Write8(addr uint32, value uint8) {
	if addr >= Size {
		return
	}
	d, ok := f.descs[addr]
	if !ok {
		f.regs[addr] = value
		return
	}
	old := f.regs[addr]
	if d.clearOnWrite {
		f.regs[addr] = old &^ value
	} else {
		mask := d.writeMask
		f.regs[addr] = (old &^ mask) | (value & mask)
	}
	if d.onWrite != nil {
		d.onWrite(old, f.regs[addr])
	}
}

// RawSet bypasses the write-mask entirely. Used by privileged internal
// writers (the video timing stub setting VCOUNT, the timer controller
// setting its own counters) that must update a nominally read-only
// register without going through CPU-facing write rules.
func (f *File) RawSet(addr uint32, value uint8) {
	if addr >= Size {
		return
	}
	f.regs[addr] = value
}

// RawGet reads the stored byte with no mask applied, for internal readers
// such as the DMA controller latching control-register fields.
func (f *File) RawGet(addr uint32) uint8 {
	if addr >= Size {
		return 0
	}
	return f.regs[addr]
}

// GetU16 / SetU16Raw are convenience helpers over two adjacent raw bytes,
// little-endian. Used internally by subsystems (DMA, timers) that need a
// 16-bit view of a register pair; CPU-facing 16/32-bit access decomposes
// into Read8/Write8 pairs at the bus layer instead.
func (f *File) GetU16(addr uint32) uint16 {
	return uint16(f.RawGet(addr)) | uint16(f.RawGet(addr+1))<<8
}

func (f *File) SetU16Raw(addr uint32, v uint16) {
	f.RawSet(addr, uint8(v))
	f.RawSet(addr+1, uint8(v>>8))
}

func (f *File) GetU32(addr uint32) uint32 {
	return uint32(f.GetU16(addr)) | uint32(f.GetU16(addr+2))<<16
}
