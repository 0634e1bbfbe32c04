// Package benchmarks holds whole-program scenarios and cross-variant
// property checks, run against every CPU variant the same way the
// teacher's own benchmarks package exercises its pipeline.
package benchmarks

import "github.com/rvsim/rvsim/emu"

const (
	opcLoad   = 0b0000011
	opcOpImm  = 0b0010011
	opcStore  = 0b0100011
	opcOp     = 0b0110011
	opcLUI    = 0b0110111
	opcBranch = 0b1100011
	opcJALR   = 0b1100111
	opcJAL    = 0b1101111
	opcSystem = 0b1110011
)

func encR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | rs2<<20 | funct7<<25
}

func encI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | (uint32(imm)&0xfff)<<20
}

func encS(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcStore | (u&0x1f)<<7 | funct3<<12 | rs1<<15 | rs2<<20 | ((u>>5)&0x7f)<<25
}

func encB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcBranch | ((u>>11)&1)<<7 | ((u>>1)&0xf)<<8 | funct3<<12 |
		rs1<<15 | rs2<<20 | ((u>>5)&0x3f)<<25 | ((u>>12)&1)<<31
}

func encJAL(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcJAL | rd<<7 | ((u>>12)&0xff)<<12 | ((u>>11)&1)<<20 |
		((u>>1)&0x3ff)<<21 | ((u>>20)&1)<<31
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encI(opcOpImm, rd, 0x0, rs1, imm) }
func andi(rd, rs1 uint32, imm int32) uint32 { return encI(opcOpImm, rd, 0x7, rs1, imm) }
func slli(rd, rs1 uint32, shamt int32) uint32 {
	return encI(opcOpImm, rd, 0x1, rs1, shamt&0x3f)
}
func srli(rd, rs1 uint32, shamt int32) uint32 {
	return encI(opcOpImm, rd, 0x5, rs1, shamt&0x3f)
}
func add(rd, rs1, rs2 uint32) uint32  { return encR(opcOp, rd, 0x0, rs1, rs2, 0x00) }
func sub(rd, rs1, rs2 uint32) uint32  { return encR(opcOp, rd, 0x0, rs1, rs2, 0x20) }
func and_(rd, rs1, rs2 uint32) uint32 { return encR(opcOp, rd, 0x7, rs1, rs2, 0x00) }
func xor_(rd, rs1, rs2 uint32) uint32 { return encR(opcOp, rd, 0x4, rs1, rs2, 0x00) }
func slt(rd, rs1, rs2 uint32) uint32  { return encR(opcOp, rd, 0x2, rs1, rs2, 0x00) }
func lw(rd, rs1 uint32, imm int32) uint32  { return encI(opcLoad, rd, 0x2, rs1, imm) }
func ld(rd, rs1 uint32, imm int32) uint32  { return encI(opcLoad, rd, 0x3, rs1, imm) }
func sw(rs1, rs2 uint32, imm int32) uint32 { return encS(0x2, rs1, rs2, imm) }
func sd(rs1, rs2 uint32, imm int32) uint32 { return encS(0x3, rs1, rs2, imm) }
func beq(rs1, rs2 uint32, imm int32) uint32 { return encB(0x0, rs1, rs2, imm) }
func bne(rs1, rs2 uint32, imm int32) uint32 { return encB(0x1, rs1, rs2, imm) }
func blt(rs1, rs2 uint32, imm int32) uint32 { return encB(0x4, rs1, rs2, imm) }
func bge(rs1, rs2 uint32, imm int32) uint32 { return encB(0x5, rs1, rs2, imm) }
func jal(rd uint32, imm int32) uint32       { return encJAL(rd, imm) }
func jalr(rd, rs1 uint32, imm int32) uint32 { return encI(opcJALR, rd, 0x0, rs1, imm) }
func ecall() uint32                         { return encI(opcSystem, 0, 0x0, 0, 0) }
func xori(rd, rs1 uint32, imm int32) uint32 { return encI(opcOpImm, rd, 0x4, rs1, imm) }
func sh(rs1, rs2 uint32, imm int32) uint32  { return encS(0x1, rs1, rs2, imm) }
func lhu(rd, rs1 uint32, imm int32) uint32  { return encI(opcLoad, rd, 0x5, rs1, imm) }
func lui(rd uint32, imm20 int32) uint32     { return opcLUI | rd<<7 | (uint32(imm20)&0xfffff)<<12 }

func loadWords(memory *emu.Memory, base uint64, words []uint32) {
	for i, w := range words {
		memory.Write32(base+uint64(i*4), w)
	}
}

// haltSequence appends the three instructions every test program ends
// with: a0 <- status, a7 <- 93 (HaltSyscallNumber), ecall.
func haltSequence(status int32) []uint32 {
	return []uint32{
		addi(10, 0, status),
		addi(17, 0, 93),
		ecall(),
	}
}
