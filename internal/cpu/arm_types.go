package cpu

// DPOp is the 4-bit data-processing opcode (bits 24-21).
type DPOp uint8

const (
	OpAND DPOp = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
)

var dpMnemonics = [16]string{
	"AND", "EOR", "SUB", "RSB", "ADD", "ADC", "SBC", "RSC",
	"TST", "TEQ", "CMP", "CMN", "ORR", "MOV", "BIC", "MVN",
}

// dataProcessing is a decoded Data Processing / PSR-transfer-via-MOV-alias
// instruction. Operand2 has already been resolved to a value and the
// carry it would feed the shifter-carry-out flag path.
type dataProcessing struct {
	cond  Condition
	op    DPOp
	s     bool
	rn    uint8
	rd    uint8
	op2   uint32
	carry bool // shifter carry-out, used when s is set
}

type branch struct {
	cond   Condition
	link   bool
	offset int32 // already sign-extended and << 2
}

type branchExchange struct {
	cond Condition
	rm   uint8
}

type multiply struct {
	cond       Condition
	accumulate bool
	s          bool
	rd, rn, rs, rm uint8
}

type multiplyLong struct {
	cond                 Condition
	signed, accumulate, s bool
	rdHi, rdLo, rs, rm    uint8
}

type singleDataSwap struct {
	cond    Condition
	byte_   bool
	rn, rd, rm uint8
}

type singleDataTransfer struct {
	cond                   Condition
	pre, up, byte_, writeback, load bool
	rn, rd                 uint8
	offset                 uint32 // already resolved (immediate or shifted register)
}

type halfwordTransfer struct {
	cond                     Condition
	pre, up, writeback, load bool
	signExtend               bool // S bit: LDRSB/LDRSH
	half                     bool // H bit: halfword vs byte when signExtend
	rn, rd                   uint8
	offset                   uint32
}

type blockDataTransfer struct {
	cond                     Condition
	pre, up, psr, writeback, load bool
	rn                       uint8
	list                     uint16
}

type psrTransferMRS struct {
	cond Condition
	spsr bool
	rd   uint8
}

type psrTransferMSR struct {
	cond       Condition
	spsr       bool
	flagsOnly  bool // true when only the condition-flag byte is written
	op2        uint32
}

type softwareInterrupt struct {
	cond    Condition
	comment uint32
}

type undefinedInstruction struct {
	cond Condition
	raw  uint32
}
