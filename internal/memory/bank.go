// Package memory owns the raw byte arrays backing every GBA RAM region and
// the aligned, width-aware accessors over them. Address decoding (which
// region a 32-bit address lands in, and the mirror mask to apply) is the
// address decoder's job and lives in package bus; this package only knows
// about offsets already resolved into a single region.
package memory

// Region sizes.
const (
	BIOSSize   = 16 * 1024
	EWRAMSize  = 256 * 1024
	IWRAMSize  = 32 * 1024
	PALRAMSize = 1024
	VRAMSize   = 96 * 1024
	OAMSize    = 1024
)

// VRAM's OBJ tile data starts after the background charblocks. In tile
// modes (0-2) the background area is 0x10000 bytes; in bitmap modes (3-5)
// the larger framebuffer pushes that boundary out to 0x14000. 8-bit writes
// into the OBJ area are dropped; 8-bit writes into the BG area are
// replicated across both bytes of the containing halfword.
const (
	vramObjBoundaryTile   = 0x10000
	vramObjBoundaryBitmap = 0x14000
)

// BIOS is the 16 KiB boot ROM. Read-only: writes are silently dropped by
// the caller before ever reaching here (see bus.Bus).
type BIOS struct {
	data [BIOSSize]byte
}

// NewBIOS constructs a BIOS bank pre-loaded with the given image. Images
// shorter than BIOSSize leave the remainder zeroed; longer images are
// truncated.
func NewBIOS(image []byte) *BIOS {
	b := &BIOS{}
	copy(b.data[:], image)
	return b
}

func (b *BIOS) Read8(off uint32) uint8 { return b.data[off%BIOSSize] }

// EWRAM is the 256 KiB external work RAM.
type EWRAM struct {
	data [EWRAMSize]byte
}

func NewEWRAM() *EWRAM { return &EWRAM{} }

func (e *EWRAM) Read8(off uint32) uint8        { return e.data[off%EWRAMSize] }
func (e *EWRAM) Write8(off uint32, v uint8)     { e.data[off%EWRAMSize] = v }

// IWRAM is the 32 KiB internal work RAM.
type IWRAM struct {
	data [IWRAMSize]byte
}

func NewIWRAM() *IWRAM { return &IWRAM{} }

func (i *IWRAM) Read8(off uint32) uint8    { return i.data[off%IWRAMSize] }
func (i *IWRAM) Write8(off uint32, v uint8) { i.data[off%IWRAMSize] = v }

// PALRAM is the 1 KiB palette RAM. 8-bit writes are ignored — the hardware
// only supports half-word/word writes here.
type PALRAM struct {
	data [PALRAMSize]byte
}

func NewPALRAM() *PALRAM { return &PALRAM{} }

func (p *PALRAM) Read8(off uint32) uint8 { return p.data[off%PALRAMSize] }

// Write8 is a documented no-op: 8-bit writes to palette RAM are ignored.
func (p *PALRAM) Write8(off uint32, v uint8) {}

// Write16 and Write32 perform the real byte-level store; the bus routes
// half-word/word palette writes here directly instead of decomposing them
// into ignored byte writes.
func (p *PALRAM) Write16(off uint32, v uint16) {
	off %= PALRAMSize
	p.data[off] = uint8(v)
	p.data[(off+1)%PALRAMSize] = uint8(v >> 8)
}

func (p *PALRAM) Write32(off uint32, v uint32) {
	p.Write16(off, uint16(v))
	p.Write16(off+2, uint16(v>>16))
}

// BGMode reports the current video mode (0-5) so VRAM can decide whether an
// address falls in its background or OBJ area. The video mode lives in the
// I/O register file, which is a separate component (C); VRAM is wired to it
// through this narrow function rather than importing package io, keeping
// the Memory Bank free of a dependency on the register file.
type BGMode func() uint8

// VRAM is the 96 KiB video RAM. It is not a power of two in size, so its
// mirror folds bit 16 onto the top 32 KiB rather than wrapping the full
// region — see bus.Bus for the masking. 8-bit writes need to know the
// current video mode to decide BG-vs-OBJ behavior.
type VRAM struct {
	data [VRAMSize]byte
	mode BGMode
}

func NewVRAM(mode BGMode) *VRAM {
	if mode == nil {
		mode = func() uint8 { return 0 }
	}
	return &VRAM{mode: mode}
}

// SetModeProvider rewires the mode source after construction — needed
// because the Bus that can answer "what video mode is active" is itself
// constructed from an already-built VRAM bank, so the dependency has to be
// patched in after the fact rather than passed to the constructor.
func (v *VRAM) SetModeProvider(mode BGMode) {
	if mode != nil {
		v.mode = mode
	}
}

func (v *VRAM) Read8(off uint32) uint8 {
	if int(off) >= len(v.data) {
		return 0
	}
	return v.data[off]
}

// Write8 replicates the byte across the containing half-word when the
// address falls in the background area, and drops the write entirely in
// the OBJ area.
func (v *VRAM) Write8(off uint32, val uint8) {
	if int(off) >= len(v.data) {
		return
	}
	boundary := uint32(vramObjBoundaryTile)
	switch v.mode() {
	case 3, 4, 5:
		boundary = vramObjBoundaryBitmap
	}
	if off >= boundary {
		return
	}
	half := off &^ 1
	v.data[half] = val
	if int(half+1) < len(v.data) {
		v.data[half+1] = val
	}
}

func (v *VRAM) Write16(off uint32, val uint16) {
	if int(off)+1 >= len(v.data) {
		return
	}
	v.data[off] = uint8(val)
	v.data[off+1] = uint8(val >> 8)
}

func (v *VRAM) Write32(off uint32, val uint32) {
	v.Write16(off, uint16(val))
	v.Write16(off+2, uint16(val>>16))
}

// OAM is the 1 KiB object attribute memory. Like PALRAM, 8-bit writes are
// ignored.
type OAM struct {
	data [OAMSize]byte
}

func NewOAM() *OAM { return &OAM{} }

func (o *OAM) Read8(off uint32) uint8 { return o.data[off%OAMSize] }

// Write8 is a no-op: 8-bit writes to OAM are ignored.
func (o *OAM) Write8(off uint32, v uint8) {}

func (o *OAM) Write16(off uint32, v uint16) {
	off %= OAMSize
	o.data[off] = uint8(v)
	o.data[(off+1)%OAMSize] = uint8(v >> 8)
}

func (o *OAM) Write32(off uint32, v uint32) {
	o.Write16(off, uint16(v))
	o.Write16(off+2, uint16(v>>16))
}
