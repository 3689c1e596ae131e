// Package cpu implements the ARM7TDMI execution engine (spec components
// E-I): the banked register file, the barrel shifter/ALU, the ARM and
// Thumb decoders and executors, and the two-stage prefetch pipeline that
// glues fetch, decode and execute together one instruction at a time.
package cpu

// Bus is the narrow memory interface the CPU needs. It is defined here,
// not in a shared interfaces package, so the consumer (this package) owns
// the contract it depends on; internal/bus.Bus satisfies it directly.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	NotifyPC(pc uint32)
}

// Exception vectors, fixed entries in the BIOS's vector table.
const (
	vectorReset         = 0x00000000
	vectorUndefined     = 0x00000004
	vectorSWI           = 0x00000008
	vectorPrefetchAbort = 0x0000000C
	vectorDataAbort     = 0x00000010
	vectorIRQ           = 0x00000018
	vectorFIQ           = 0x0000001C
)

// CPU is the pipeline/scheduler glue wrapped around the register file and
// the ARM/Thumb executors.
type CPU struct {
	Regs Registers
	Bus  Bus

	// IRQPending is polled once per instruction boundary (never mid
	// instruction): it should report whether the interrupt controller
	// currently has an unmasked, IME-enabled request asserted. Wired by
	// core construction to the IE/IF/IME register logic.
	IRQPending func() bool

	pipeline        [2]uint32
	flushedThisStep bool
}

// Reset sets up registers zeroed, PC at entry, System mode, ARM state,
// then primes the pipeline with the first two fetches so the first Step()
// call executes the instruction at entry.
func (c *CPU) Reset(entry uint32) {
	c.Regs.Reset(entry)
	c.flushPipeline()
}

// Step executes exactly one instruction (already sitting in the pipeline's
// first slot), refills the pipeline, and returns an approximate cycle
// count. Pending interrupts are only ever sampled here, between
// instructions — never while one is mid-execution.
//
// The instruction executes before the pipeline is refilled for the next
// one: r.pc already holds the correct "current+2*width" bias left over
// from the previous refill (or from flushPipeline, after a branch), and
// refilling first would advance it one width too far before execARM/
// execThumb ever reads GetReg(15). refill is skipped entirely when the
// instruction itself flushed the pipeline (a taken branch, BX, a load into
// pc, exception entry) — flushPipeline already leaves both slots and r.pc
// correctly primed for the next Step, and refilling again on top of that
// would discard the very instruction it just fetched.
func (c *CPU) Step() int {
	if c.IRQPending != nil && !c.Regs.IRQDisabled() && c.IRQPending() {
		c.enterException(ModeIRQ, vectorIRQ, true)
		return 3
	}

	c.flushedThisStep = false
	if c.Regs.Thumb() {
		instr := uint16(c.pipeline[0])
		c.execThumb(instr)
		if !c.flushedThisStep {
			c.refill(2)
		}
	} else {
		instr := c.pipeline[0]
		c.execARM(instr)
		if !c.flushedThisStep {
			c.refill(4)
		}
	}
	return 1
}

// refill slides the pipeline forward by one fetch of the given instruction
// width and advances the fetch pointer (r.pc) past it. r.pc always holds
// the address of the *next* fetch, which is why GetReg(15) needs no extra
// bias: at the top of the next Step, r.pc sits exactly 2*width past the
// instruction about to execute.
func (c *CPU) refill(width uint32) {
	c.pipeline[0] = c.pipeline[1]
	fetchAddr := c.Regs.GetReg(15)
	c.Bus.NotifyPC(fetchAddr)
	if width == 2 {
		c.pipeline[1] = uint32(c.Bus.Read16(fetchAddr))
	} else {
		c.pipeline[1] = c.Bus.Read32(fetchAddr)
	}
	c.Regs.SetReg(15, fetchAddr+width)
}

// flushPipeline re-primes both pipeline slots after any write to r15 —
// taken branches, BX, loads into pc, block transfers loading pc, and
// exception entry. Detecting "did this instruction write r15" is left to
// each executor calling this directly rather than a generic post-hoc
// check, since only the executor knows whether the write was real (e.g. an
// STM never reaches here, an LDM only when r15 was in its list).
func (c *CPU) flushPipeline() {
	width := uint32(4)
	if c.Regs.Thumb() {
		width = 2
	}
	pc := c.Regs.GetReg(15)
	for i := 0; i < 2; i++ {
		c.Bus.NotifyPC(pc)
		if width == 2 {
			c.pipeline[i] = uint32(c.Bus.Read16(pc))
		} else {
			c.pipeline[i] = c.Bus.Read32(pc)
		}
		pc += width
	}
	c.Regs.SetReg(15, pc)
	c.flushedThisStep = true
}

// OpenBusWord is read by the bus's open-bus handler: the most recently
// prefetched word, reproduced as a 32-bit value the way unmapped reads
// observe it on real hardware.
func (c *CPU) OpenBusWord() uint32 { return c.pipeline[0] }

// RaiseIRQ is the host hook: the host (or the interrupt controller) calls
// this whenever an IE/IF/IME evaluation may have changed, i.e. on register
// writes. The CPU doesn't track interrupt source bits itself — see
// IRQPending — so this only exists to give core a single documented entry
// point for "something may need to interrupt now"; CPU re-evaluates
// IRQPending on the very next Step() boundary regardless of whether this
// is called.
func (c *CPU) RaiseIRQ() {}

// enterException performs the documented ARM7TDMI exception entry
// sequence: save CPSR to the new mode's SPSR, switch mode (and, for FIQ,
// mask further FIQs), always mask IRQ, force ARM state, set LR to the
// correct return address, and vector.
//
// isInterrupt distinguishes IRQ/FIQ (asynchronous: LR must point 4 bytes
// past the *next* instruction to execute, so "SUBS pc, lr, #4" resumes
// correctly) from SWI/undefined (synchronous: LR already is the correct
// "MOVS pc, lr" return address, the instruction right after the trap).
func (c *CPU) enterException(mode uint8, vector uint32, isInterrupt bool) {
	width := uint32(4)
	if c.Regs.Thumb() {
		width = 2
	}
	pcVisible := c.Regs.GetReg(15)

	var lr uint32
	if isInterrupt {
		lr = pcVisible - 2*width + 4
	} else {
		lr = pcVisible - width
	}

	savedCPSR := c.Regs.CPSR()
	c.Regs.SetMode(mode)
	c.Regs.SetSPSR(savedCPSR)
	c.Regs.SetReg(14, lr)
	c.Regs.SetIRQDisabled(true)
	if mode == ModeFIQ {
		c.Regs.SetFIQDisabled(true)
	}
	c.Regs.SetThumb(false)
	c.Regs.SetReg(15, vector)
	c.flushPipeline()
}
