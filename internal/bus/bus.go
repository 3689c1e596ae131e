// Package bus implements the address decoder and wires it directly to the
// memory bank, the I/O register file and the cartridge, so a single
// Read8/16/32 or Write8/16/32 call on Bus is the core's entire
// memory-access surface. Classification is by the top nibble of the
// address; each region then applies its own mirror/mask before touching
// backing storage.
package bus

import (
	"goba/internal/cartridge"
	"goba/internal/dbg"
	"goba/internal/io"
	"goba/internal/memory"
)

const (
	bitsBIOS   = 0x0
	bitsEWRAM  = 0x2
	bitsIWRAM  = 0x3
	bitsIO     = 0x4
	bitsPALRAM = 0x5
	bitsVRAM   = 0x6
	bitsOAM    = 0x7
	bitsSRAM   = 0xE
)

// Bus is the assembled address space. Construct with New, then wire
// OpenBus once the CPU exists (open bus reads return the CPU's prefetch
// latch).
type Bus struct {
	BIOS   *memory.BIOS
	EWRAM  *memory.EWRAM
	IWRAM  *memory.IWRAM
	PALRAM *memory.PALRAM
	VRAM   *memory.VRAM
	OAM    *memory.OAM
	IO     *io.File
	Cart   *cartridge.Cartridge

	// OpenBus returns the value backing an open-bus read: the most
	// recently prefetched instruction word. Set by core after the CPU is
	// constructed.
	OpenBus func() uint32

	pcInBIOS bool
}

// New assembles a Bus from its already-constructed regions.
func New(bios *memory.BIOS, ewram *memory.EWRAM, iwram *memory.IWRAM, palram *memory.PALRAM, vram *memory.VRAM, oam *memory.OAM, ioRegs *io.File, cart *cartridge.Cartridge) *Bus {
	return &Bus{
		BIOS: bios, EWRAM: ewram, IWRAM: iwram,
		PALRAM: palram, VRAM: vram, OAM: oam,
		IO: ioRegs, Cart: cart,
		OpenBus: func() uint32 { return 0 },
	}
}

// NotifyPC tells the decoder whether the program counter currently sits
// inside the BIOS region, which gates BIOS reads: reads from the BIOS
// window while executing outside it return open bus instead of BIOS bytes,
// the documented anti-bios-dumping behavior.
func (b *Bus) NotifyPC(pc uint32) {
	b.pcInBIOS = pc < memory.BIOSSize
}

// Read8 classifies addr by its top nibble and returns the byte there, or
// the open-bus value if addr falls outside every mapped region.
func (b *Bus) Read8(addr uint32) uint8 {
	switch addr >> 24 {
	case bitsBIOS:
		if !b.pcInBIOS {
			return uint8(b.OpenBus())
		}
		return b.BIOS.Read8(addr)
	case bitsEWRAM:
		return b.EWRAM.Read8(addr & (memory.EWRAMSize - 1))
	case bitsIWRAM:
		return b.IWRAM.Read8(addr & (memory.IWRAMSize - 1))
	case bitsIO:
		off := addr & 0xFFFFFF
		if off < io.Size {
			return b.IO.Read8(off)
		}
		return uint8(b.OpenBus())
	case bitsPALRAM:
		return b.PALRAM.Read8(addr & (memory.PALRAMSize - 1))
	case bitsVRAM:
		return b.VRAM.Read8(vramFold(addr))
	case bitsOAM:
		return b.OAM.Read8(addr & (memory.OAMSize - 1))
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		return b.Cart.ReadROM8(addr & cartridge.ROMMask)
	case bitsSRAM:
		return b.Cart.ReadSRAM8(addr & (cartridge.SRAMSize - 1))
	default:
		return uint8(b.OpenBus())
	}
}

// Write8 applies the same classification for stores. Writes to read-only
// regions (BIOS, ROM) are silently dropped.
func (b *Bus) Write8(addr uint32, value uint8) {
	switch addr >> 24 {
	case bitsBIOS:
		// read-only, dropped
	case bitsEWRAM:
		b.EWRAM.Write8(addr&(memory.EWRAMSize-1), value)
	case bitsIWRAM:
		b.IWRAM.Write8(addr&(memory.IWRAMSize-1), value)
	case bitsIO:
		off := addr & 0xFFFFFF
		if off < io.Size {
			b.IO.Write8(off, value)
		}
	case bitsPALRAM:
		b.PALRAM.Write8(addr&(memory.PALRAMSize-1), value)
	case bitsVRAM:
		b.VRAM.Write8(vramFold(addr), value)
	case bitsOAM:
		b.OAM.Write8(addr&(memory.OAMSize-1), value)
	case 0x8, 0x9, 0xA, 0xB, 0xC, 0xD:
		// ROM region is read-only; the cartridge is free to special-case
		// addresses it recognizes as backup-chip command writes, which
		// this core does not attempt to decode (no flash/EEPROM backup
		// chip protocol).
		b.Cart.WriteROM(addr&cartridge.ROMMask, value)
	case bitsSRAM:
		b.Cart.WriteSRAM8(addr&(cartridge.SRAMSize-1), value)
	default:
		dbg.Printf("bus: write to unmapped address %08X\n", addr)
	}
}

// vramFold applies VRAM's asymmetric mirror: a 128 KiB granularity repeat
// across the region's address window, with the last 32 KiB of each repeat
// (96 KiB..128 KiB) folded onto the top 32 KiB of the real 96 KiB bank
// rather than continuing the mirror, since 96 KiB is not a power of two.
func vramFold(addr uint32) uint32 {
	off := addr & 0x1FFFF
	if off&0x10000 != 0 {
		off = 0x10000 | (off & 0x7FFF)
	}
	return off
}

// Read16 reads a little-endian half-word. Misaligned addresses rotate the
// word fetched at the aligned address right by (addr&1)*8 bits, the
// documented ARM7 behavior.
func (b *Bus) Read16(addr uint32) uint16 {
	aligned := addr &^ 1
	v := uint16(b.Read8(aligned)) | uint16(b.Read8(aligned+1))<<8
	if addr&1 != 0 {
		v = v>>8 | v<<8
	}
	return v
}

// Write16 force-aligns addr before writing. Palette RAM, VRAM and OAM only
// ever see half-word/word stores on real hardware — decomposing into two
// byte writes would hit their 8-bit write rules (OBJ-area drop, BG-area
// byte replication) instead of storing the half-word, so those three
// regions route to their own Write16 instead.
func (b *Bus) Write16(addr uint32, value uint16) {
	addr &^= 1
	switch addr >> 24 {
	case bitsPALRAM:
		b.PALRAM.Write16(addr&(memory.PALRAMSize-1), value)
	case bitsVRAM:
		b.VRAM.Write16(vramFold(addr), value)
	case bitsOAM:
		b.OAM.Write16(addr&(memory.OAMSize-1), value)
	default:
		b.Write8(addr, uint8(value))
		b.Write8(addr+1, uint8(value>>8))
	}
}

// Read32 reads a little-endian word, rotating right by (addr&3)*8 bits for
// misaligned addresses.
func (b *Bus) Read32(addr uint32) uint32 {
	aligned := addr &^ 3
	v := uint32(b.Read8(aligned)) |
		uint32(b.Read8(aligned+1))<<8 |
		uint32(b.Read8(aligned+2))<<16 |
		uint32(b.Read8(aligned+3))<<24
	rot := (addr & 3) * 8
	if rot != 0 {
		v = v>>rot | v<<(32-rot)
	}
	return v
}

// Write32 force-aligns addr before writing, routing to PALRAM/VRAM/OAM's
// own Write32 for the same reason Write16 does.
func (b *Bus) Write32(addr uint32, value uint32) {
	addr &^= 3
	switch addr >> 24 {
	case bitsPALRAM:
		b.PALRAM.Write32(addr&(memory.PALRAMSize-1), value)
	case bitsVRAM:
		b.VRAM.Write32(vramFold(addr), value)
	case bitsOAM:
		b.OAM.Write32(addr&(memory.OAMSize-1), value)
	default:
		b.Write16(addr, uint16(value))
		b.Write16(addr+2, uint16(value>>16))
	}
}

// VideoMode reads DISPCNT's mode field (bits 0-2), used by VRAM to decide
// BG-vs-OBJ 8-bit write behavior. Exposed as a function value so
// memory.VRAM can be wired to it (via SetModeProvider) without importing
// package io.
func (b *Bus) VideoMode() uint8 {
	return b.IO.RawGet(io.DISPCNT) & 0x7
}
