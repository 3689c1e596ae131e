// Package core assembles the bus, CPU, DMA controller, timers and the
// scanline timing stub into the single host-facing object this emulator
// exposes, and implements its external interface directly: init, reset,
// run_for, register access and raise_irq.
package core

import (
	"fmt"

	"goba/internal/apu"
	"goba/internal/bus"
	"goba/internal/cartridge"
	"goba/internal/cpu"
	"goba/internal/dbg"
	"goba/internal/dma"
	"goba/internal/io"
	"goba/internal/memory"
	"goba/internal/timer"
	"goba/internal/video"
)

// Interrupt source bit positions within IE/IF (GBATEK's documented layout).
const (
	irqVBlank = 0
	irqHBlank = 1
	irqVCount = 2
	irqTimer0 = 3
	irqTimer1 = 4
	irqTimer2 = 5
	irqTimer3 = 6
	irqSerial = 7
	irqDMA0   = 8
	irqDMA1   = 9
	irqDMA2   = 10
	irqDMA3   = 11
	irqKeypad = 12
	irqGamePak = 13
)

// Config carries host policy this core leaves open: whether reset() enters
// through the BIOS vector or jumps straight to the cartridge entry point.
type Config struct {
	// SkipBIOSBoot, when true, starts PC at the cartridge entry point
	// (0x08000000) rather than the BIOS reset vector (0x00000000).
	SkipBIOSBoot bool

	// PanicOnUnimplemented is carried for the host but not read by the
	// core: an undecoded opcode always takes the undefined-instruction
	// trap, in debug and release builds alike, and only the internal/dbg
	// trace differs between the two.
	PanicOnUnimplemented bool
}

// UnsupportedOperationError is returned by WriteRegister/ReadRegister for
// host misuse (e.g. an out-of-range register index): host misuse returns
// a typed error without mutating emulator state.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("goba: unsupported operation: %s", e.Op)
}

// Core is the assembled system.
type Core struct {
	CPU    *cpu.CPU
	Bus    *bus.Bus
	DMA    *dma.Controller
	Timers *timer.Controller
	Video  *video.Scheduler
	APU    *apu.APU
	Cart   *cartridge.Cartridge

	cfg Config
}

// New wires every subsystem together. biosImage and romImage are raw bytes
// exactly as read from disk by the host; this core never interprets a
// loader format beyond copying them into their backing banks.
func New(biosImage, romImage []byte, cfg Config) *Core {
	ewram := memory.NewEWRAM()
	iwram := memory.NewIWRAM()
	palram := memory.NewPALRAM()
	oam := memory.NewOAM()
	biosBank := memory.NewBIOS(biosImage)
	cart := cartridge.New(romImage)
	ioRegs := io.New()
	vram := memory.NewVRAM(nil)

	b := bus.New(biosBank, ewram, iwram, palram, vram, oam, ioRegs, cart)
	vram.SetModeProvider(b.VideoMode)

	core := &Core{
		Bus:    b,
		DMA:    dma.New(),
		Timers: &timer.Controller{},
		APU:    apu.New(),
		Cart:   cart,
		cfg:    cfg,
	}

	core.CPU = &cpu.CPU{Bus: b}
	b.OpenBus = func() uint32 { return core.CPU.OpenBusWord() }

	core.DMA.Bus = b
	core.DMA.RequestIRQ = func(channel int) {
		core.raiseIRQBit(irqDMA0 + channel)
	}
	core.DMA.ClearEnable = func(channel int) {
		addr := dmaCntHAddr(channel) + 1 // enable bit is bit 15 overall: bit 7 of the high byte
		ioRegs.RawSet(addr, ioRegs.RawGet(addr)&^0x80)
	}

	core.Timers.RequestIRQ = func(index int) {
		core.raiseIRQBit(irqTimer0 + index)
	}
	core.Timers.OnAudioOverflow = func(index int) {
		channel := byte('A')
		if index == 1 {
			channel = 'B'
		}
		if core.APU.OnTimerOverflow(channel) {
			ch := 1
			if channel == 'B' {
				ch = 2
			}
			core.DMA.RequestSpecial(ch)
		}
	}

	core.Video = video.New(video.Hooks{
		OnHBlank: func() { core.DMA.OnHBlank() },
		OnVBlank: func() { core.DMA.OnVBlank() },
	})
	core.Video.SetVCount = func(line uint16) { ioRegs.RawSet(io.VCOUNT, uint8(line)) }
	core.Video.SetVBlankFlag = func(set bool) {
		core.setDISPSTATFlag(0, set)
		if set && core.dispstatIRQEnabled(3) {
			core.raiseIRQBit(irqVBlank)
		}
	}
	core.Video.SetHBlankFlag = func(set bool) {
		core.setDISPSTATFlag(1, set)
		if set && core.dispstatIRQEnabled(4) {
			core.raiseIRQBit(irqHBlank)
		}
	}

	core.installRegisterCallbacks()

	core.CPU.IRQPending = func() bool {
		if ioRegs.RawGet(io.IME)&1 == 0 {
			return false
		}
		return ioRegs.GetU16(io.IE)&ioRegs.GetU16(io.IF) != 0
	}

	return core
}

func dmaCntHAddr(channel int) uint32 {
	switch channel {
	case 0:
		return io.DMA0CNT_H
	case 1:
		return io.DMA1CNT_H
	case 2:
		return io.DMA2CNT_H
	default:
		return io.DMA3CNT_H
	}
}

func (c *Core) setDISPSTATFlag(bit int, set bool) {
	v := c.Bus.IO.RawGet(io.DISPSTAT)
	if set {
		v |= 1 << uint(bit)
	} else {
		v &^= 1 << uint(bit)
	}
	c.Bus.IO.RawSet(io.DISPSTAT, v)
}

func (c *Core) dispstatIRQEnabled(bit int) bool {
	return c.Bus.IO.RawGet(io.DISPSTAT)&(1<<uint(bit)) != 0
}

func (c *Core) raiseIRQBit(bit int) {
	addr := uint32(io.IF) + uint32(bit/8)
	shift := uint(bit % 8)
	c.Bus.IO.RawSet(addr, c.Bus.IO.RawGet(addr)|(1<<shift))
}

// installRegisterCallbacks wires the handful of I/O writes that must do
// more than store a byte: arming a DMA channel on its enable-bit 0->1
// edge, starting/reloading a timer, and routing FIFO writes to the APU
// stub. It also declares the few registers whose bit-level behavior isn't
// a plain read/write byte.
func (c *Core) installRegisterCallbacks() {
	// IF is write-1-to-clear: the CPU acknowledges an interrupt by writing
	// a 1 to the bit it's handling, which clears it, rather than writing
	// the bit pattern it wants the register to hold.
	c.Bus.IO.Describe(io.IF, 0xFF, 0xFF, true, nil)
	c.Bus.IO.Describe(io.IF+1, 0xFF, 0xFF, true, nil)

	// VCOUNT and the VBlank/HBlank/VCounter status bits of DISPSTAT are
	// maintained by the video timing scheduler; the CPU can only read
	// them, never write them directly.
	c.Bus.IO.Describe(io.VCOUNT, 0xFF, 0x00, false, nil)
	c.Bus.IO.Describe(io.DISPSTAT, 0xFF, 0xF8, false, nil)

	for ch := 0; ch < 4; ch++ {
		ch := ch
		cntH := dmaCntHAddr(ch)
		c.Bus.IO.OnWrite(cntH+1, func(old, new uint8) {
			wasEnabled := old&0x80 != 0
			nowEnabled := new&0x80 != 0
			if nowEnabled && !wasEnabled {
				c.armDMA(ch)
			}
		})
	}

	for i := 0; i < 4; i++ {
		i := i
		cntH := timerCntHAddr(i)
		c.Bus.IO.OnWrite(cntH, func(old, new uint8) {
			c.Timers.WriteControl(i, new)
		})
	}

	c.Bus.IO.OnWrite(io.FIFO_A, func(old, new uint8) { c.latchFIFO('A', io.FIFO_A) })
	c.Bus.IO.OnWrite(io.FIFO_B, func(old, new uint8) { c.latchFIFO('B', io.FIFO_B) })
}

func (c *Core) armDMA(channel int) {
	base := dmaSADAddr(channel)
	src := c.Bus.IO.GetU32(base)
	dst := c.Bus.IO.GetU32(base + 4)
	count := c.Bus.IO.GetU16(base + 8)
	control := c.Bus.IO.GetU16(base + 10)
	c.DMA.Arm(channel, src, dst, count, control)
}

func dmaSADAddr(channel int) uint32 {
	switch channel {
	case 0:
		return io.DMA0SAD
	case 1:
		return io.DMA1SAD
	case 2:
		return io.DMA2SAD
	default:
		return io.DMA3SAD
	}
}

func timerCntHAddr(index int) uint32 {
	switch index {
	case 0:
		return io.TM0CNT_H
	case 1:
		return io.TM1CNT_H
	case 2:
		return io.TM2CNT_H
	default:
		return io.TM3CNT_H
	}
}

func (c *Core) latchFIFO(channel byte, addr uint32) {
	var data [4]byte
	for i := range data {
		data[i] = c.Bus.IO.RawGet(addr + uint32(i))
	}
	c.APU.WriteFIFO(channel, data)
}

// Reset sets PC, mode and the T bit to their documented post-reset values,
// with every general register zeroed.
func (c *Core) Reset() {
	entry := uint32(vectorResetAddr)
	if c.cfg.SkipBIOSBoot {
		entry = cartridgeEntryPoint
	}
	c.CPU.Reset(entry)
	c.DMA.Reset()
	c.Timers.Reset()
}

const (
	vectorResetAddr     = 0x00000000
	cartridgeEntryPoint = 0x08000000
)

// RunFor advances the system by at least the requested number of CPU
// cycles (it may slightly overrun to finish the instruction in flight) and
// returns the number of cycles actually consumed.
func (c *Core) RunFor(cycles int) int {
	consumed := 0
	for consumed < cycles {
		step := c.CPU.Step()
		c.Timers.Tick(step)
		c.Video.Tick(step)
		consumed += step
	}
	return consumed
}

// ReadRegister returns r0-r15 (index 0-15). An out-of-range index is host
// misuse: returns a typed error without mutating state.
func (c *Core) ReadRegister(index uint8) (uint32, error) {
	if index > 15 {
		return 0, &UnsupportedOperationError{Op: fmt.Sprintf("read_register(%d)", index)}
	}
	return c.CPU.Regs.GetReg(index), nil
}

func (c *Core) WriteRegister(index uint8, value uint32) error {
	if index > 15 {
		return &UnsupportedOperationError{Op: fmt.Sprintf("write_register(%d)", index)}
	}
	c.CPU.Regs.SetReg(index, value)
	if index == 15 {
		dbg.Printf("core: write_register(15, %08X) does not itself flush the pipeline; use a branch instruction instead", value)
	}
	return nil
}

func (c *Core) ReadCPSR() uint32 { return c.CPU.Regs.CPSR() }

// RaiseIRQ sets the given interrupt source bits directly in IF, for a host
// driving an interrupt source this core doesn't model itself (keypad,
// serial, game pak).
func (c *Core) RaiseIRQ(sourceBits uint16) {
	for bit := 0; bit < 14; bit++ {
		if sourceBits&(1<<uint(bit)) != 0 {
			c.raiseIRQBit(bit)
		}
	}
}
