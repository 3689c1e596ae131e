package cpu

import (
	"testing"

	"goba/internal/bus"
	"goba/internal/cartridge"
	"goba/internal/io"
	"goba/internal/memory"
)

// fakeBus is a flat 16 MiB memory used only by these tests; it has no
// region decoding, no mirrors and no open-bus behavior of its own, since
// those belong to package bus and are exercised there instead.
type fakeBus struct {
	mem      [16 * 1024 * 1024]byte
	lastFetch uint32
}

func (b *fakeBus) NotifyPC(pc uint32) { b.lastFetch = pc }

func (b *fakeBus) Read8(addr uint32) uint8  { return b.mem[addr%uint32(len(b.mem))] }
func (b *fakeBus) Write8(addr uint32, v uint8) { b.mem[addr%uint32(len(b.mem))] = v }

func (b *fakeBus) Read16(addr uint32) uint16 {
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}
func (b *fakeBus) Write16(addr uint32, v uint16) {
	b.Write8(addr, uint8(v))
	b.Write8(addr+1, uint8(v>>8))
}

func (b *fakeBus) Read32(addr uint32) uint32 {
	return uint32(b.Read16(addr)) | uint32(b.Read16(addr+2))<<16
}
func (b *fakeBus) Write32(addr uint32, v uint32) {
	b.Write16(addr, uint16(v))
	b.Write16(addr+2, uint16(v>>16))
}

func (b *fakeBus) putARM(addr uint32, words ...uint32) {
	for i, w := range words {
		b.Write32(addr+uint32(i*4), w)
	}
}

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	c := &CPU{Bus: bus}
	c.Reset(0)
	return c, bus
}

// primeAt points the CPU at entry, keeping its current state, and refills
// the pipeline from the program a test has just written to the bus.
func primeAt(c *CPU, entry uint32) {
	c.Regs.SetReg(15, entry)
	c.flushPipeline()
}

func TestScenarioMovAddSequence(t *testing.T) {
	// MOV r0, #1; MOV r1, #2; ADD r2, r0, r1; B . — after enough cycles
	// r2 = 3.
	c, bus := newTestCPU()
	bus.putARM(0,
		0xE3A00001, // MOV r0, #1
		0xE3A01002, // MOV r1, #2
		0xE0802001, // ADD r2, r0, r1
		0xEAFFFFFE, // B . (branch to self)
	)
	primeAt(c, 0)
	for i := 0; i < 4; i++ {
		c.Step()
	}
	if got := c.Regs.GetReg(2); got != 3 {
		t.Fatalf("r2 = %d, want 3", got)
	}
}

func TestPipelineReloadAfterR15Write(t *testing.T) {
	// After any write to r15, the next executed instruction word is the one
	// fetched from the new PC, not from the prior stream.
	c, bus := newTestCPU()
	bus.putARM(0, 0xEA000002) // B #0x10 (skip three words)
	bus.putARM(0x10, 0xE3A00009) // MOV r0, #9
	// Poison the skipped words so executing them would be detectable.
	bus.putARM(4, 0xE3A000FF) // MOV r0, #0xFF (must never execute)
	primeAt(c, 0)

	c.Step() // the branch
	c.Step() // MOV r0, #9 at the new PC
	if got := c.Regs.GetReg(0); got != 9 {
		t.Fatalf("r0 = %#x, want 9 (branch target's instruction, not the skipped stream)", got)
	}
}

func TestScenarioUnalignedWordReadRotates(t *testing.T) {
	// Unaligned 32-bit read at addr+1 of the word 0xAABBCCDD at addr
	// returns 0xDDAABBCC (rotated). The rotation is done by the real bus
	// (fakeBus has none), so this reads through bus.Bus.
	b := bus.New(
		memory.NewBIOS(nil), memory.NewEWRAM(), memory.NewIWRAM(),
		memory.NewPALRAM(), memory.NewVRAM(nil), memory.NewOAM(),
		io.New(), cartridge.New(nil),
	)
	b.Write32(0x03000000, 0xAABBCCDD)
	got := b.Read32(0x03000001)
	if got != 0xDDAABBCC {
		t.Fatalf("unaligned Read32 = %#x, want 0xDDAABBCC", got)
	}
}

func TestOpenBusReturnsPrefetchLatch(t *testing.T) {
	c, bus := newTestCPU()
	bus.putARM(0, 0xE3A00001, 0xE3A01002, 0xE3A02003)
	primeAt(c, 0)
	c.Step() // executes MOV r0, #1
	want := bus.Read32(4) // the instruction now latched, about to execute next
	if c.OpenBusWord() != want {
		t.Fatalf("OpenBusWord() = %#x, want %#x (latched prefetch)", c.OpenBusWord(), want)
	}
}

func TestIRQEntryVectorsTo0x18(t *testing.T) {
	// Writing 0x01 to IME with IE/IF set for a pending interrupt causes the
	// core to vector to 0x18 before the next instruction.
	c, bus := newTestCPU()
	bus.putARM(0, 0xE3A00001, 0xE3A00002, 0xE3A00003)
	pending := true
	c.IRQPending = func() bool { return pending }

	c.Step()

	if c.Regs.Mode() != ModeIRQ {
		t.Fatalf("mode after IRQ entry = %d, want ModeIRQ", c.Regs.Mode())
	}
	if pc := c.Regs.GetReg(15) - 8; pc != vectorIRQ {
		t.Fatalf("pc after IRQ entry = %#x, want vector %#x", pc, vectorIRQ)
	}
	if !c.Regs.IRQDisabled() {
		t.Fatal("IRQ must be disabled on entry into the IRQ handler")
	}
}

func TestSWIEntryAndReturn(t *testing.T) {
	c, bus := newTestCPU()
	bus.putARM(0, 0xEF000000) // SWI #0
	bus.putARM(vectorSWI, 0xE1B0F00E) // MOVS pc, lr (exception return idiom)
	primeAt(c, 0)

	c.Step() // executes SWI, enters SVC mode at vector 0x8
	if c.Regs.Mode() != ModeSVC {
		t.Fatalf("mode after SWI = %d, want ModeSVC", c.Regs.Mode())
	}
	returnPC := c.Regs.GetReg(14)
	if returnPC != 4 {
		t.Fatalf("lr after SWI entry = %#x, want 4 (instruction right after the SWI)", returnPC)
	}

	c.Step() // MOVS pc, lr: returns to USR/SYS mode at pc=4
	if c.Regs.Mode() != ModeSYS {
		t.Fatalf("mode after MOVS pc,lr return = %d, want ModeSYS", c.Regs.Mode())
	}
}
