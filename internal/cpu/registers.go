package cpu

import (
	"fmt"
)

// ARM7TDMI CPU operating modes (CPSR bits 4-0).
const (
	ModeUSR = 0b10000
	ModeFIQ = 0b10001
	ModeIRQ = 0b10010
	ModeSVC = 0b10011
	ModeABT = 0b10111
	ModeUND = 0b11011
	ModeSYS = 0b11111
)

// CPSR flag/control bit positions.
const (
	flagN = 31
	flagZ = 30
	flagC = 29
	flagV = 28
	bitI  = 7
	bitF  = 6
	bitT  = 5
)

// bank identifies one set of banked r13/r14/SPSR. USR and SYS share bank 0 —
// they have no SPSR and are otherwise register-identical. This replaces the
// mode-keyed switch a straightforward port would use with a single lookup
// table indexed by mode, per the banked-register design called for
// alongside the rest of this core's state layout.
type bank int

const (
	bankUSR bank = iota
	bankFIQ
	bankSVC
	bankABT
	bankIRQ
	bankUND
	numBanks
)

func bankFor(mode uint8) bank {
	switch mode {
	case ModeFIQ:
		return bankFIQ
	case ModeSVC:
		return bankSVC
	case ModeABT:
		return bankABT
	case ModeIRQ:
		return bankIRQ
	case ModeUND:
		return bankUND
	default: // ModeUSR, ModeSYS, and any unrecognized mode fall back to USR
		return bankUSR
	}
}

// Registers holds the full ARM7TDMI register file: r0-r7 shared by every
// mode, r8-r12 shared by every mode except FIQ (which banks its own copy),
// and r13/r14/SPSR banked per bank above. r15 is tracked separately as the
// pipeline's fetch pointer — see cpu.go's pipeline glue for why reading it
// via GetReg needs no extra bias arithmetic here.
type Registers struct {
	low    [8]uint32  // r0-r7, never banked
	mid    [5]uint32  // r8-r12, shared by every mode but FIQ
	fiqMid [5]uint32  // r8-r12_fiq
	sp     [numBanks]uint32
	lr     [numBanks]uint32
	spsr   [numBanks]uint32 // spsr[bankUSR] is unused; USR/SYS has no SPSR

	pc   uint32
	cpsr uint32
}

// Reset sets PC to entry, System mode, ARM state, every general register
// zeroed.
func (r *Registers) Reset(entry uint32) {
	*r = Registers{}
	r.pc = entry
	r.cpsr = uint32(ModeSYS)
}

func (r *Registers) Mode() uint8 { return uint8(r.cpsr & 0x1F) }

// SetMode rewrites the CPSR mode field. Bank selection for every subsequent
// GetReg/SetReg/SPSR access follows automatically from bankFor.
func (r *Registers) SetMode(mode uint8) {
	r.cpsr = (r.cpsr &^ 0x1F) | uint32(mode&0x1F)
}

// GetReg returns r0-r15. r15 reads return the raw pc field, which the
// pipeline glue maintains as the value ARM/Thumb code actually observes
// (already biased by two instructions' worth of prefetch) — see cpu.go.
func (r *Registers) GetReg(n uint8) uint32 {
	switch {
	case n < 8:
		return r.low[n]
	case n == 15:
		return r.pc
	case n >= 8 && n <= 12:
		if r.Mode() == ModeFIQ {
			return r.fiqMid[n-8]
		}
		return r.mid[n-8]
	case n == 13:
		return r.sp[bankFor(r.Mode())]
	case n == 14:
		return r.lr[bankFor(r.Mode())]
	}
	panic(fmt.Sprintf("cpu: register index out of range: r%d", n))
}

// SetReg writes r0-r15. Writing r15 only updates the raw pc field; whether
// that write should also trigger a pipeline refill is the executor's
// decision (see cpu.go's flushPipeline), not this type's.
func (r *Registers) SetReg(n uint8, v uint32) {
	switch {
	case n < 8:
		r.low[n] = v
	case n == 15:
		r.pc = v
	case n >= 8 && n <= 12:
		if r.Mode() == ModeFIQ {
			r.fiqMid[n-8] = v
		} else {
			r.mid[n-8] = v
		}
	case n == 13:
		r.sp[bankFor(r.Mode())] = v
	case n == 14:
		r.lr[bankFor(r.Mode())] = v
	default:
		panic(fmt.Sprintf("cpu: register index out of range: r%d", n))
	}
}

func (r *Registers) CPSR() uint32     { return r.cpsr }
func (r *Registers) SetCPSR(v uint32) { r.cpsr = v }

// SPSR returns the saved PSR for the current mode, or 0 in USR/SYS where no
// SPSR exists (GBATEK: "SPSR_usr and SPSR_sys do not exist").
func (r *Registers) SPSR() uint32 {
	b := bankFor(r.Mode())
	if b == bankUSR {
		return 0
	}
	return r.spsr[b]
}

// SetSPSR writes the saved PSR for the current mode. A no-op in USR/SYS.
func (r *Registers) SetSPSR(v uint32) {
	b := bankFor(r.Mode())
	if b == bankUSR {
		return
	}
	r.spsr[b] = v
}

func (r *Registers) Thumb() bool    { return r.cpsr&(1<<bitT) != 0 }
func (r *Registers) IRQDisabled() bool { return r.cpsr&(1<<bitI) != 0 }
func (r *Registers) FIQDisabled() bool { return r.cpsr&(1<<bitF) != 0 }

func (r *Registers) setBit(bit int, set bool) {
	if set {
		r.cpsr |= 1 << uint(bit)
	} else {
		r.cpsr &^= 1 << uint(bit)
	}
}

func (r *Registers) SetThumb(v bool)       { r.setBit(bitT, v) }
func (r *Registers) SetIRQDisabled(v bool) { r.setBit(bitI, v) }
func (r *Registers) SetFIQDisabled(v bool) { r.setBit(bitF, v) }

func (r *Registers) FlagN() bool { return r.cpsr&(1<<flagN) != 0 }
func (r *Registers) FlagZ() bool { return r.cpsr&(1<<flagZ) != 0 }
func (r *Registers) FlagC() bool { return r.cpsr&(1<<flagC) != 0 }
func (r *Registers) FlagV() bool { return r.cpsr&(1<<flagV) != 0 }

func (r *Registers) SetFlagN(v bool) { r.setBit(flagN, v) }
func (r *Registers) SetFlagZ(v bool) { r.setBit(flagZ, v) }
func (r *Registers) SetFlagC(v bool) { r.setBit(flagC, v) }
func (r *Registers) SetFlagV(v bool) { r.setBit(flagV, v) }

// SetNZ is the common case: derive N and Z from a computed 32-bit result.
func (r *Registers) SetNZ(result uint32) {
	r.SetFlagN(result&0x80000000 != 0)
	r.SetFlagZ(result == 0)
}

func modeName(mode uint8) string {
	switch mode {
	case ModeUSR:
		return "USR"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSVC:
		return "SVC"
	case ModeABT:
		return "ABT"
	case ModeUND:
		return "UND"
	case ModeSYS:
		return "SYS"
	default:
		return fmt.Sprintf("?%02X?", mode)
	}
}

// String renders a register dump in the conventional debugger layout.
func (r *Registers) String() string {
	state := "ARM"
	if r.Thumb() {
		state = "THUMB"
	}
	return fmt.Sprintf(
		"R0 =%08X  R1 =%08X  R2 =%08X  R3 =%08X\n"+
			"R4 =%08X  R5 =%08X  R6 =%08X  R7 =%08X\n"+
			"R8 =%08X  R9 =%08X  R10=%08X  R11=%08X\n"+
			"R12=%08X  SP =%08X  LR =%08X  PC =%08X\n"+
			"CPSR=%08X (%s %s N:%t Z:%t C:%t V:%t I:%t F:%t)",
		r.GetReg(0), r.GetReg(1), r.GetReg(2), r.GetReg(3),
		r.GetReg(4), r.GetReg(5), r.GetReg(6), r.GetReg(7),
		r.GetReg(8), r.GetReg(9), r.GetReg(10), r.GetReg(11),
		r.GetReg(12), r.GetReg(13), r.GetReg(14), r.GetReg(15),
		r.cpsr, modeName(r.Mode()), state,
		r.FlagN(), r.FlagZ(), r.FlagC(), r.FlagV(),
		r.IRQDisabled(), r.FIQDisabled(),
	)
}
