package cpu

import "goba/internal/dbg"

// execARM runs one ARM-state instruction. The pipeline glue in cpu.go has
// already advanced r.pc by two instructions' worth past the address the
// instruction was fetched from, so r.GetReg(15) already reads as that
// address+8 without any extra bias here.
func (c *CPU) execARM(instr uint32) {
	cond := Condition((instr >> 28) & 0xF)
	if !cond.Eval(&c.Regs) {
		return
	}

	switch inst := decodeARM(instr, &c.Regs).(type) {
	case dataProcessing:
		c.execDataProcessing(inst)
	case branch:
		c.execBranch(inst)
	case branchExchange:
		c.execBranchExchange(inst)
	case multiply:
		c.execMultiply(inst)
	case multiplyLong:
		c.execMultiplyLong(inst)
	case singleDataSwap:
		c.execSingleDataSwap(inst)
	case singleDataTransfer:
		c.execSingleDataTransfer(inst)
	case halfwordTransfer:
		c.execHalfwordTransfer(inst)
	case blockDataTransfer:
		c.execBlockDataTransfer(inst)
	case psrTransferMRS:
		c.execPSRTransferMRS(inst)
	case psrTransferMSR:
		c.execPSRTransferMSR(inst)
	case softwareInterrupt:
		c.raiseSWI()
	case undefinedInstruction:
		c.raiseUndefined()
	default:
		dbg.Printf("cpu: undecoded ARM opcode %08X at %08X\n", instr, c.Regs.GetReg(15)-8)
		c.raiseUndefined()
	}
}

func (c *CPU) execDataProcessing(inst dataProcessing) {
	rn := c.Regs.GetReg(inst.rn)
	var result uint32
	var carryOut, overflow bool
	writesResult := true

	switch inst.op {
	case OpAND:
		result, carryOut = rn&inst.op2, inst.carry
	case OpEOR:
		result, carryOut = rn^inst.op2, inst.carry
	case OpSUB:
		result, carryOut, overflow = subWithFlags(rn, inst.op2, true)
	case OpRSB:
		result, carryOut, overflow = subWithFlags(inst.op2, rn, true)
	case OpADD:
		result, carryOut, overflow = addWithFlags(rn, inst.op2, false)
	case OpADC:
		result, carryOut, overflow = addWithFlags(rn, inst.op2, c.Regs.FlagC())
	case OpSBC:
		result, carryOut, overflow = subWithFlags(rn, inst.op2, c.Regs.FlagC())
	case OpRSC:
		result, carryOut, overflow = subWithFlags(inst.op2, rn, c.Regs.FlagC())
	case OpTST:
		result, carryOut, writesResult = rn&inst.op2, inst.carry, false
	case OpTEQ:
		result, carryOut, writesResult = rn^inst.op2, inst.carry, false
	case OpCMP:
		result, carryOut, overflow = subWithFlags(rn, inst.op2, true)
		writesResult = false
	case OpCMN:
		result, carryOut, overflow = addWithFlags(rn, inst.op2, false)
		writesResult = false
	case OpORR:
		result, carryOut = rn|inst.op2, inst.carry
	case OpMOV:
		result, carryOut = inst.op2, inst.carry
	case OpBIC:
		result, carryOut = rn&^inst.op2, inst.carry
	case OpMVN:
		result, carryOut = ^inst.op2, inst.carry
	}

	if writesResult {
		c.Regs.SetReg(inst.rd, result)
		if inst.rd == 15 {
			if inst.s {
				// Writing r15 with S set restores CPSR from the current
				// mode's SPSR — the documented mode-switch-on-return idiom
				// (e.g. "SUBS pc, lr, #4" from an exception handler).
				c.Regs.SetCPSR(c.Regs.SPSR())
			}
			c.flushPipeline()
			return
		}
	}

	if inst.s {
		if inst.rd == 15 {
			c.Regs.SetCPSR(c.Regs.SPSR())
			return
		}
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carryOut)
		switch inst.op {
		case OpADD, OpADC, OpSUB, OpSBC, OpRSB, OpRSC, OpCMP, OpCMN:
			c.Regs.SetFlagV(overflow)
		}
	}
}

func (c *CPU) execBranch(inst branch) {
	base := c.Regs.GetReg(15) // already PC+8 per the pipeline's bias
	if inst.link {
		c.Regs.SetReg(14, base-4)
	}
	c.Regs.SetReg(15, uint32(int32(base)+inst.offset))
	c.flushPipeline()
}

func (c *CPU) execBranchExchange(inst branchExchange) {
	target := c.Regs.GetReg(inst.rm)
	c.Regs.SetThumb(target&1 != 0)
	c.Regs.SetReg(15, target&^1)
	c.flushPipeline()
}

func (c *CPU) execMultiply(inst multiply) {
	result := c.Regs.GetReg(inst.rm) * c.Regs.GetReg(inst.rs)
	if inst.accumulate {
		result += c.Regs.GetReg(inst.rn)
	}
	c.Regs.SetReg(inst.rd, result)
	if inst.s {
		c.Regs.SetNZ(result)
	}
}

func (c *CPU) execMultiplyLong(inst multiplyLong) {
	var lo, hi uint32
	if inst.signed {
		product := int64(int32(c.Regs.GetReg(inst.rm))) * int64(int32(c.Regs.GetReg(inst.rs)))
		if inst.accumulate {
			acc := int64(c.Regs.GetReg(inst.rdHi))<<32 | int64(c.Regs.GetReg(inst.rdLo))
			product += acc
		}
		lo, hi = uint32(product), uint32(product>>32)
	} else {
		product := uint64(c.Regs.GetReg(inst.rm)) * uint64(c.Regs.GetReg(inst.rs))
		if inst.accumulate {
			acc := uint64(c.Regs.GetReg(inst.rdHi))<<32 | uint64(c.Regs.GetReg(inst.rdLo))
			product += acc
		}
		lo, hi = uint32(product), uint32(product>>32)
	}
	c.Regs.SetReg(inst.rdLo, lo)
	c.Regs.SetReg(inst.rdHi, hi)
	if inst.s {
		c.Regs.SetFlagN(hi&0x80000000 != 0)
		c.Regs.SetFlagZ(lo == 0 && hi == 0)
	}
}

func (c *CPU) execSingleDataSwap(inst singleDataSwap) {
	addr := c.Regs.GetReg(inst.rn)
	if inst.byte_ {
		old := c.Bus.Read8(addr)
		c.Bus.Write8(addr, uint8(c.Regs.GetReg(inst.rm)))
		c.Regs.SetReg(inst.rd, uint32(old))
	} else {
		old := c.Bus.Read32(addr)
		c.Bus.Write32(addr, c.Regs.GetReg(inst.rm))
		c.Regs.SetReg(inst.rd, old)
	}
}

func (c *CPU) execSingleDataTransfer(inst singleDataTransfer) {
	base := c.Regs.GetReg(inst.rn)
	delta := inst.offset
	if !inst.up {
		delta = uint32(-int32(inst.offset))
	}
	addr := base
	if inst.pre {
		addr = base + delta
	}

	if inst.load {
		var value uint32
		if inst.byte_ {
			value = uint32(c.Bus.Read8(addr))
		} else {
			value = c.Bus.Read32(addr)
		}
		c.Regs.SetReg(inst.rd, value)
		if inst.rd == 15 {
			c.Regs.SetReg(15, value&^3)
			c.flushPipeline()
		}
	} else {
		value := c.Regs.GetReg(inst.rd)
		if inst.rd == 15 {
			value += 4 // r15 reads as current+12 when stored by STR, see execBlockDataTransfer
		}
		if inst.byte_ {
			c.Bus.Write8(addr, uint8(value))
		} else {
			c.Bus.Write32(addr, value)
		}
	}

	if !inst.pre {
		addr = base + delta
	}
	if inst.writeback || !inst.pre {
		if !(inst.load && inst.rd == inst.rn) {
			c.Regs.SetReg(inst.rn, addr)
		}
	}
}

func (c *CPU) execHalfwordTransfer(inst halfwordTransfer) {
	base := c.Regs.GetReg(inst.rn)
	delta := inst.offset
	if !inst.up {
		delta = uint32(-int32(inst.offset))
	}
	addr := base
	if inst.pre {
		addr = base + delta
	}

	if inst.load {
		var value uint32
		switch {
		case inst.signExtend && inst.half:
			value = uint32(int32(int16(c.Bus.Read16(addr))))
		case inst.signExtend && !inst.half:
			value = uint32(int32(int8(c.Bus.Read8(addr))))
		default:
			value = uint32(c.Bus.Read16(addr))
		}
		c.Regs.SetReg(inst.rd, value)
	} else {
		c.Bus.Write16(addr, uint16(c.Regs.GetReg(inst.rd)))
	}

	if !inst.pre {
		addr = base + delta
	}
	if inst.writeback || !inst.pre {
		c.Regs.SetReg(inst.rn, addr)
	}
}

func (c *CPU) execBlockDataTransfer(inst blockDataTransfer) {
	base := c.Regs.GetReg(inst.rn)
	list := inst.list
	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}
	if count == 0 {
		// An empty register list transfers r15 alone and advances the base
		// by 0x40 — the documented ARM7TDMI quirk for this edge case.
		count = 16
		list = 0x8000
	}

	var start uint32
	if inst.up {
		start = base
		if inst.pre {
			start += 4
		}
	} else {
		start = base - uint32(count)*4
		if !inst.pre {
			start += 4
		}
	}

	// S-bit with no r15 in the list, or during a load with r15 present,
	// forces user-bank register access / defers the CPSR restore to the
	// final transfer; a plain STM with S set always uses the user banks.
	useUserBank := inst.psr && !(inst.load && list&0x8000 != 0)

	addr := start
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		reg := uint8(i)
		if inst.load {
			val := c.Bus.Read32(addr)
			if reg == 15 {
				if inst.psr {
					c.Regs.SetCPSR(c.Regs.SPSR())
				}
				c.Regs.SetReg(15, val&^3)
				c.flushPipeline()
			} else {
				c.setRegBanked(reg, val, useUserBank)
			}
		} else {
			val := c.getRegBanked(reg, useUserBank)
			if reg == 15 {
				val += 4 // STM stores r15 as current instruction address + 12
			}
			c.Bus.Write32(addr, val)
		}
		addr += 4
	}

	if inst.writeback {
		var final uint32
		if inst.up {
			final = base + uint32(count)*4
		} else {
			final = base - uint32(count)*4
		}
		c.Regs.SetReg(inst.rn, final)
	}
}

// getRegBanked/setRegBanked read or write a register through the USR bank
// regardless of current mode, for the S-bit "force user registers" form of
// LDM/STM.
func (c *CPU) getRegBanked(n uint8, forceUser bool) uint32 {
	if !forceUser || c.Regs.Mode() == ModeUSR || c.Regs.Mode() == ModeSYS {
		return c.Regs.GetReg(n)
	}
	saved := c.Regs.Mode()
	c.Regs.SetMode(ModeUSR)
	v := c.Regs.GetReg(n)
	c.Regs.SetMode(saved)
	return v
}

func (c *CPU) setRegBanked(n uint8, v uint32, forceUser bool) {
	if !forceUser || c.Regs.Mode() == ModeUSR || c.Regs.Mode() == ModeSYS {
		c.Regs.SetReg(n, v)
		return
	}
	saved := c.Regs.Mode()
	c.Regs.SetMode(ModeUSR)
	c.Regs.SetReg(n, v)
	c.Regs.SetMode(saved)
}

func (c *CPU) execPSRTransferMRS(inst psrTransferMRS) {
	if inst.spsr {
		c.Regs.SetReg(inst.rd, c.Regs.SPSR())
	} else {
		c.Regs.SetReg(inst.rd, c.Regs.CPSR())
	}
}

// execPSRTransferMSR writes CPSR or SPSR, following the documented
// behavior: user mode can only ever write the flag byte (bits 31-24), and
// the flags-only encoding (mask field == 0b1000) never touches the
// control byte even in a privileged mode.
func (c *CPU) execPSRTransferMSR(inst psrTransferMSR) {
	var mask uint32 = 0xFFFFFFFF
	if inst.flagsOnly || c.Regs.Mode() == ModeUSR {
		mask = 0xFF000000
	}
	write := inst.op2 & mask

	if inst.spsr {
		c.Regs.SetSPSR((c.Regs.SPSR() &^ mask) | write)
		return
	}
	c.Regs.SetCPSR((c.Regs.CPSR() &^ mask) | write)
}

func (c *CPU) raiseSWI() { c.enterException(ModeSVC, vectorSWI, false) }

func (c *CPU) raiseUndefined() { c.enterException(ModeUND, vectorUndefined, false) }
