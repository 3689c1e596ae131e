package cpu

import "testing"

func newTestCPUThumb() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	c := &CPU{Bus: bus}
	c.Regs.Reset(0)
	c.Regs.SetThumb(true)
	c.flushPipeline()
	return c, bus
}

func (b *fakeBus) putThumb(addr uint32, halfwords ...uint16) {
	for i, h := range halfwords {
		b.Write16(addr+uint32(i*2), h)
	}
}

func TestThumbMovImmediateAndAdd(t *testing.T) {
	// MOV r0, #5; MOV r1, #3; ADD r0, r0, r1 (format2 register-add).
	c, bus := newTestCPUThumb()
	bus.putThumb(0,
		0x2005, // MOV r0, #5
		0x2103, // MOV r1, #3
		0x1840, // ADD r0, r0, r1
	)
	primeAt(c, 0)
	c.Step()
	c.Step()
	c.Step()
	if got := c.Regs.GetReg(0); got != 8 {
		t.Fatalf("r0 = %d, want 8", got)
	}
}

func TestThumbMoveShiftedRegister(t *testing.T) {
	// LSL r1, r0, #4 with r0=1 -> r1=0x10.
	c, bus := newTestCPUThumb()
	bus.putThumb(0, 0x0101) // LSL r1, r0, #4
	primeAt(c, 0)
	c.Regs.SetReg(0, 1)
	c.Step()
	if got := c.Regs.GetReg(1); got != 0x10 {
		t.Fatalf("r1 = %#x, want 0x10", got)
	}
}

func TestThumbBranchExchangeStaysInThumb(t *testing.T) {
	// BX r1, with r1 = 0x11 (bit0 set: stay in Thumb state) -> jumps to 0x10.
	c, bus := newTestCPUThumb()
	bus.putThumb(0, 0x4708) // BX r1
	bus.putThumb(0x10, 0x2007) // MOV r0, #7 at the branch target
	primeAt(c, 0)
	c.Regs.SetReg(1, 0x11)

	c.Step() // BX
	if !c.Regs.Thumb() {
		t.Fatal("BX with bit0 set must stay in Thumb state")
	}
	c.Step() // MOV r0, #7 at the new pc
	if got := c.Regs.GetReg(0); got != 7 {
		t.Fatalf("r0 after BX = %d, want 7 (branch target executed)", got)
	}
}

func TestThumbPushPopRegisters(t *testing.T) {
	// PUSH {r0, r1} then POP {r0, r1} round-trips both registers through
	// the stack and restores SP.
	c, bus := newTestCPUThumb()
	bus.putThumb(0, 0xB403, 0xBC03) // PUSH {r0,r1}; POP {r0,r1}
	primeAt(c, 0)
	const sp0 = 0x03007F00
	c.Regs.SetReg(13, sp0)
	c.Regs.SetReg(0, 0x11)
	c.Regs.SetReg(1, 0x22)

	c.Step() // PUSH
	if got := c.Regs.GetReg(13); got != sp0-8 {
		t.Fatalf("sp after PUSH {r0,r1} = %#x, want %#x", got, sp0-8)
	}
	if got := bus.Read32(sp0 - 8); got != 0x11 {
		t.Fatalf("stack[0] after PUSH = %#x, want 0x11", got)
	}
	if got := bus.Read32(sp0 - 4); got != 0x22 {
		t.Fatalf("stack[1] after PUSH = %#x, want 0x22", got)
	}

	c.Regs.SetReg(0, 0)
	c.Regs.SetReg(1, 0)
	c.Step() // POP
	if got := c.Regs.GetReg(13); got != sp0 {
		t.Fatalf("sp after POP {r0,r1} = %#x, want restored %#x", got, sp0)
	}
	if got := c.Regs.GetReg(0); got != 0x11 {
		t.Fatalf("r0 after POP = %#x, want 0x11", got)
	}
	if got := c.Regs.GetReg(1); got != 0x22 {
		t.Fatalf("r1 after POP = %#x, want 0x22", got)
	}
}

func TestThumbUnconditionalBranch(t *testing.T) {
	// B target, encoded as a +4 halfword-pair offset forward.
	c, bus := newTestCPUThumb()
	bus.putThumb(0, 0xE002) // B #8 (11-bit offset field 2, doubled to +4, plus the Thumb +4 pipeline bias)
	bus.putThumb(8, 0x2009) // MOV r0, #9 at the branch target
	primeAt(c, 0)
	c.Step()
	c.Step()
	if got := c.Regs.GetReg(0); got != 9 {
		t.Fatalf("r0 after branch = %d, want 9 (branch target executed)", got)
	}
}
