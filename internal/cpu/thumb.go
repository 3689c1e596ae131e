package cpu

import "goba/internal/dbg"

// execThumb runs one Thumb-state instruction. Thumb has no per-instruction
// condition field except format 16 (conditional branch), so dispatch here
// is purely on the format-identifying high bits — no condition gate like
// execARM's.
func (c *CPU) execThumb(instr uint16) {
	switch {
	case instr&0xF800 == 0x1800:
		c.thumbAddSubtract(instr)
	case instr&0xE000 == 0x0000:
		c.thumbMoveShifted(instr)
	case instr&0xE000 == 0x2000:
		c.thumbImmediate(instr)
	case instr&0xFC00 == 0x4000:
		c.thumbALU(instr)
	case instr&0xFC00 == 0x4400:
		c.thumbHiRegisterOp(instr)
	case instr&0xF800 == 0x4800:
		c.thumbPCRelativeLoad(instr)
	case instr&0xF200 == 0x5000:
		c.thumbLoadStoreRegisterOffset(instr)
	case instr&0xF200 == 0x5200:
		c.thumbLoadStoreSignExtended(instr)
	case instr&0xE000 == 0x6000:
		c.thumbLoadStoreImmediate(instr)
	case instr&0xF000 == 0x8000:
		c.thumbLoadStoreHalfword(instr)
	case instr&0xF000 == 0x9000:
		c.thumbSPRelativeLoadStore(instr)
	case instr&0xF000 == 0xA000:
		c.thumbLoadAddress(instr)
	case instr&0xFF00 == 0xB000:
		c.thumbAddOffsetToSP(instr)
	case instr&0xF600 == 0xB400:
		c.thumbPushPop(instr)
	case instr&0xF000 == 0xC000:
		c.thumbMultipleLoadStore(instr)
	case instr&0xFF00 == 0xDF00:
		c.raiseSWI()
	case instr&0xFF00 == 0xDE00:
		c.raiseUndefined()
	case instr&0xF000 == 0xD000:
		c.thumbConditionalBranch(instr)
	case instr&0xF800 == 0xE000:
		c.thumbUnconditionalBranch(instr)
	case instr&0xF000 == 0xF000:
		c.thumbLongBranchLink(instr)
	default:
		dbg.Printf("cpu: undecoded Thumb opcode %04X at %08X\n", instr, c.Regs.GetReg(15)-4)
		c.raiseUndefined()
	}
}

// Format 1: move shifted register — LSL/LSR/ASR Rd, Rs, #imm5.
func (c *CPU) thumbMoveShifted(instr uint16) {
	op := ShiftType((instr >> 11) & 0x3)
	imm := uint32((instr >> 6) & 0x1F)
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)

	result, carry := barrelShift(op, imm, c.Regs.GetReg(rs), true, c.Regs.FlagC())
	c.Regs.SetReg(rd, result)
	c.Regs.SetNZ(result)
	c.Regs.SetFlagC(carry)
}

// Format 2: add/subtract — register or 3-bit immediate operand.
func (c *CPU) thumbAddSubtract(instr uint16) {
	immFlag := instr&0x0400 != 0
	subtract := instr&0x0200 != 0
	rnOrImm := uint32((instr >> 6) & 0x7)
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)

	op2 := rnOrImm
	if !immFlag {
		op2 = c.Regs.GetReg(uint8(rnOrImm))
	}

	var result uint32
	var carry, overflow bool
	if subtract {
		result, carry, overflow = subWithFlags(c.Regs.GetReg(rs), op2, true)
	} else {
		result, carry, overflow = addWithFlags(c.Regs.GetReg(rs), op2, false)
	}
	c.Regs.SetReg(rd, result)
	c.Regs.SetNZ(result)
	c.Regs.SetFlagC(carry)
	c.Regs.SetFlagV(overflow)
}

// Format 3: move/compare/add/subtract immediate, 8-bit, against Rd-as-source.
func (c *CPU) thumbImmediate(instr uint16) {
	op := (instr >> 11) & 0x3
	rd := uint8((instr >> 8) & 0x7)
	imm := uint32(instr & 0xFF)

	switch op {
	case 0: // MOV
		c.Regs.SetReg(rd, imm)
		c.Regs.SetNZ(imm)
	case 1: // CMP
		result, carry, overflow := subWithFlags(c.Regs.GetReg(rd), imm, true)
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carry)
		c.Regs.SetFlagV(overflow)
	case 2: // ADD
		result, carry, overflow := addWithFlags(c.Regs.GetReg(rd), imm, false)
		c.Regs.SetReg(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carry)
		c.Regs.SetFlagV(overflow)
	case 3: // SUB
		result, carry, overflow := subWithFlags(c.Regs.GetReg(rd), imm, true)
		c.Regs.SetReg(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carry)
		c.Regs.SetFlagV(overflow)
	}
}

// Format 4: the 16 ALU operations, all against Rd in place.
func (c *CPU) thumbALU(instr uint16) {
	op := (instr >> 6) & 0xF
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	a := c.Regs.GetReg(rd)
	b := c.Regs.GetReg(rs)

	var result uint32
	var carry, overflow bool
	writesResult := true
	setsFlags := true

	switch op {
	case 0x0: // AND
		result, carry = a&b, c.Regs.FlagC()
	case 0x1: // EOR
		result, carry = a^b, c.Regs.FlagC()
	case 0x2: // LSL
		result, carry = barrelShift(ShiftLSL, b&0xFF, a, false, c.Regs.FlagC())
	case 0x3: // LSR
		result, carry = barrelShift(ShiftLSR, b&0xFF, a, false, c.Regs.FlagC())
	case 0x4: // ASR
		result, carry = barrelShift(ShiftASR, b&0xFF, a, false, c.Regs.FlagC())
	case 0x5: // ADC
		result, carry, overflow = addWithFlags(a, b, c.Regs.FlagC())
	case 0x6: // SBC
		result, carry, overflow = subWithFlags(a, b, c.Regs.FlagC())
	case 0x7: // ROR
		result, carry = barrelShift(ShiftROR, b&0xFF, a, false, c.Regs.FlagC())
	case 0x8: // TST
		result, carry, writesResult = a&b, c.Regs.FlagC(), false
	case 0x9: // NEG
		result, carry, overflow = subWithFlags(0, b, true)
	case 0xA: // CMP
		result, carry, overflow, writesResult = subFn(a, b)
	case 0xB: // CMN
		result, carry, overflow, writesResult = addFn(a, b)
	case 0xC: // ORR
		result, carry = a|b, c.Regs.FlagC()
	case 0xD: // MUL
		result, setsFlags = a*b, false
		c.Regs.SetNZ(result)
	case 0xE: // BIC
		result, carry = a&^b, c.Regs.FlagC()
	case 0xF: // MVN
		result, carry = ^b, c.Regs.FlagC()
	}

	if writesResult {
		c.Regs.SetReg(rd, result)
	}
	if setsFlags {
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carry)
		switch op {
		case 0x5, 0x6, 0x9, 0xA, 0xB:
			c.Regs.SetFlagV(overflow)
		}
	}
}

func subFn(a, b uint32) (uint32, bool, bool, bool) {
	r, c, v := subWithFlags(a, b, true)
	return r, c, v, false
}

func addFn(a, b uint32) (uint32, bool, bool, bool) {
	r, c, v := addWithFlags(a, b, false)
	return r, c, v, false
}

// Format 5: hi-register operations and BX, the only way Thumb code can
// reach r8-r15 with a full ALU-style operation (or branch-exchange into
// ARM state).
func (c *CPU) thumbHiRegisterOp(instr uint16) {
	op := (instr >> 8) & 0x3
	h1 := instr&0x80 != 0
	h2 := instr&0x40 != 0
	rs := uint8((instr>>3)&0x7) + boolToOffset(h2)
	rd := uint8(instr&0x7) + boolToOffset(h1)

	switch op {
	case 0: // ADD
		c.Regs.SetReg(rd, c.Regs.GetReg(rd)+c.Regs.GetReg(rs))
		if rd == 15 {
			c.flushPipeline()
		}
	case 1: // CMP
		result, carry, overflow := subWithFlags(c.Regs.GetReg(rd), c.Regs.GetReg(rs), true)
		c.Regs.SetNZ(result)
		c.Regs.SetFlagC(carry)
		c.Regs.SetFlagV(overflow)
	case 2: // MOV
		c.Regs.SetReg(rd, c.Regs.GetReg(rs))
		if rd == 15 {
			c.flushPipeline()
		}
	case 3: // BX (and the unimplemented-on-ARM7 BLX)
		target := c.Regs.GetReg(rs)
		c.Regs.SetThumb(target&1 != 0)
		c.Regs.SetReg(15, target&^1)
		c.flushPipeline()
	}
}

func boolToOffset(h bool) uint8 {
	if h {
		return 8
	}
	return 0
}

// Format 6: PC-relative load — LDR Rd, [PC, #imm8*4], PC word-aligned down.
func (c *CPU) thumbPCRelativeLoad(instr uint16) {
	rd := uint8((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2
	base := c.Regs.GetReg(15) &^ 3
	c.Regs.SetReg(rd, c.Bus.Read32(base+imm))
}

// Format 7: load/store with register offset, word or byte.
func (c *CPU) thumbLoadStoreRegisterOffset(instr uint16) {
	load := instr&0x0800 != 0
	byteXfer := instr&0x0400 != 0
	ro := uint8((instr >> 6) & 0x7)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	addr := c.Regs.GetReg(rb) + c.Regs.GetReg(ro)

	switch {
	case load && byteXfer:
		c.Regs.SetReg(rd, uint32(c.Bus.Read8(addr)))
	case load && !byteXfer:
		c.Regs.SetReg(rd, c.Bus.Read32(addr))
	case !load && byteXfer:
		c.Bus.Write8(addr, uint8(c.Regs.GetReg(rd)))
	default:
		c.Bus.Write32(addr, c.Regs.GetReg(rd))
	}
}

// Format 8: load/store sign-extended byte/halfword with register offset.
func (c *CPU) thumbLoadStoreSignExtended(instr uint16) {
	hFlag := instr&0x0800 != 0
	sFlag := instr&0x0400 != 0
	ro := uint8((instr >> 6) & 0x7)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	addr := c.Regs.GetReg(rb) + c.Regs.GetReg(ro)

	switch {
	case !sFlag && !hFlag: // STRH
		c.Bus.Write16(addr, uint16(c.Regs.GetReg(rd)))
	case !sFlag && hFlag: // LDRH
		c.Regs.SetReg(rd, uint32(c.Bus.Read16(addr)))
	case sFlag && !hFlag: // LDSB
		c.Regs.SetReg(rd, uint32(int32(int8(c.Bus.Read8(addr)))))
	default: // LDSH
		c.Regs.SetReg(rd, uint32(int32(int16(c.Bus.Read16(addr)))))
	}
}

// Format 9: load/store with 5-bit immediate offset, word or byte.
func (c *CPU) thumbLoadStoreImmediate(instr uint16) {
	byteXfer := instr&0x1000 != 0
	load := instr&0x0800 != 0
	offset5 := uint32((instr >> 6) & 0x1F)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)

	var addr uint32
	if byteXfer {
		addr = c.Regs.GetReg(rb) + offset5
	} else {
		addr = c.Regs.GetReg(rb) + offset5*4
	}

	switch {
	case load && byteXfer:
		c.Regs.SetReg(rd, uint32(c.Bus.Read8(addr)))
	case load && !byteXfer:
		c.Regs.SetReg(rd, c.Bus.Read32(addr))
	case !load && byteXfer:
		c.Bus.Write8(addr, uint8(c.Regs.GetReg(rd)))
	default:
		c.Bus.Write32(addr, c.Regs.GetReg(rd))
	}
}

// Format 10: load/store halfword with 5-bit immediate offset (*2).
func (c *CPU) thumbLoadStoreHalfword(instr uint16) {
	load := instr&0x0800 != 0
	offset5 := uint32((instr>>6)&0x1F) * 2
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	addr := c.Regs.GetReg(rb) + offset5

	if load {
		c.Regs.SetReg(rd, uint32(c.Bus.Read16(addr)))
	} else {
		c.Bus.Write16(addr, uint16(c.Regs.GetReg(rd)))
	}
}

// Format 11: SP-relative load/store.
func (c *CPU) thumbSPRelativeLoadStore(instr uint16) {
	load := instr&0x0800 != 0
	rd := uint8((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2
	addr := c.Regs.GetReg(13) + imm

	if load {
		c.Regs.SetReg(rd, c.Bus.Read32(addr))
	} else {
		c.Bus.Write32(addr, c.Regs.GetReg(rd))
	}
}

// Format 12: load address, from PC or SP, into Rd.
func (c *CPU) thumbLoadAddress(instr uint16) {
	fromSP := instr&0x0800 != 0
	rd := uint8((instr >> 8) & 0x7)
	imm := uint32(instr&0xFF) << 2

	var base uint32
	if fromSP {
		base = c.Regs.GetReg(13)
	} else {
		base = c.Regs.GetReg(15) &^ 3
	}
	c.Regs.SetReg(rd, base+imm)
}

// Format 13: add (signed) offset to the stack pointer.
func (c *CPU) thumbAddOffsetToSP(instr uint16) {
	negative := instr&0x80 != 0
	imm := uint32(instr&0x7F) << 2
	sp := c.Regs.GetReg(13)
	if negative {
		c.Regs.SetReg(13, sp-imm)
	} else {
		c.Regs.SetReg(13, sp+imm)
	}
}

// Format 14: push/pop register list, with the extra LR-on-push / PC-on-pop
// slot (the R bit).
func (c *CPU) thumbPushPop(instr uint16) {
	load := instr&0x0800 != 0
	extra := instr&0x0100 != 0
	list := instr & 0xFF

	sp := c.Regs.GetReg(13)
	if load {
		addr := sp
		for i := 0; i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				c.Regs.SetReg(uint8(i), c.Bus.Read32(addr))
				addr += 4
			}
		}
		if extra {
			val := c.Bus.Read32(addr)
			c.Regs.SetReg(15, val&^1)
			addr += 4
			c.flushPipeline()
		}
		c.Regs.SetReg(13, addr)
	} else {
		count := 0
		for i := 0; i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				count++
			}
		}
		if extra {
			count++
		}
		addr := sp - uint32(count)*4
		c.Regs.SetReg(13, addr)
		for i := 0; i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				c.Bus.Write32(addr, c.Regs.GetReg(uint8(i)))
				addr += 4
			}
		}
		if extra {
			c.Bus.Write32(addr, c.Regs.GetReg(14))
		}
	}
}

// Format 15: multiple load/store through Rb, incrementing, no writeback
// suppression the way ARM's LDM/STM has (Thumb always writes back, except
// when the base register is itself in the load list).
func (c *CPU) thumbMultipleLoadStore(instr uint16) {
	load := instr&0x0800 != 0
	rb := uint8((instr >> 8) & 0x7)
	list := instr & 0xFF

	addr := c.Regs.GetReg(rb)
	touchesBase := false
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			if load {
				c.Regs.SetReg(uint8(i), c.Bus.Read32(addr))
				if uint8(i) == rb {
					touchesBase = true
				}
			} else {
				c.Bus.Write32(addr, c.Regs.GetReg(uint8(i)))
			}
			addr += 4
		}
	}
	if !(load && touchesBase) {
		c.Regs.SetReg(rb, addr)
	}
}

// Format 16: conditional branch, PC-relative 8-bit signed offset *2.
func (c *CPU) thumbConditionalBranch(instr uint16) {
	cond := Condition((instr >> 8) & 0xF)
	if !cond.Eval(&c.Regs) {
		return
	}
	offset := int32(int8(instr & 0xFF)) * 2
	c.Regs.SetReg(15, uint32(int32(c.Regs.GetReg(15))+offset))
	c.flushPipeline()
}

// Format 18: unconditional branch, PC-relative 11-bit signed offset *2.
func (c *CPU) thumbUnconditionalBranch(instr uint16) {
	raw := uint32(instr & 0x7FF)
	offset := int32(raw<<21) >> 20 // sign-extend 11 bits, then <<1
	c.Regs.SetReg(15, uint32(int32(c.Regs.GetReg(15))+offset))
	c.flushPipeline()
}

// Format 19: long branch with link, built from two consecutive halfwords.
// The high half stashes PC+offset<<12 into LR; the low half computes the
// final target from LR and sets LR to the Thumb-bit-tagged return address.
func (c *CPU) thumbLongBranchLink(instr uint16) {
	low := instr&0x0800 != 0
	offset := uint32(instr & 0x7FF)

	if !low {
		signed := int32(offset<<21) >> 9 // sign-extend 11 bits into bits 22-12
		c.Regs.SetReg(14, uint32(int32(c.Regs.GetReg(15))+signed))
		return
	}

	next := c.Regs.GetReg(15) - 2 // return address: this halfword's own address + 2
	target := c.Regs.GetReg(14) + offset<<1
	c.Regs.SetReg(14, next|1)
	c.Regs.SetReg(15, target)
	c.flushPipeline()
}
