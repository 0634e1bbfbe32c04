// Package cpu implements the single-cycle and multi-cycle RV64IFD CPU
// variants. Both share the same decode-once, execute-via-functional-units
// architecture as the pipeline variant in timing/pipeline; only the
// staging of ticks differs.
package cpu

import (
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
)

// IntResult computes the integer result of a decoded RV64I/M instruction
// given its (possibly forwarded) operand values. It is a pure function of
// its arguments so the pipeline's EX stage can call it with forwarded
// operands instead of live register-file reads, and so the single-cycle
// and multi-cycle CPUs can share the exact same dispatch table.
func IntResult(alu *emu.ALU, inst *insts.Instruction, rs1, rs2 uint64, pc uint64) uint64 {
	imm := uint64(inst.Imm)
	switch inst.Op {
	case insts.OpLUI:
		return imm
	case insts.OpAUIPC:
		return pc + imm

	case insts.OpADDI, insts.OpADD:
		return alu.Add(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSUB:
		return alu.Sub(rs1, rs2)
	case insts.OpSLTI, insts.OpSLT:
		return alu.Slt(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSLTIU, insts.OpSLTU:
		return alu.Sltu(rs1, opOrImm(inst, rs2, imm))
	case insts.OpXORI, insts.OpXOR:
		return alu.Xor(rs1, opOrImm(inst, rs2, imm))
	case insts.OpORI, insts.OpOR:
		return alu.Or(rs1, opOrImm(inst, rs2, imm))
	case insts.OpANDI, insts.OpAND:
		return alu.And(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSLLI, insts.OpSLL:
		return alu.Sll(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSRLI, insts.OpSRL:
		return alu.Srl(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSRAI, insts.OpSRA:
		return alu.Sra(rs1, opOrImm(inst, rs2, imm))

	case insts.OpADDIW, insts.OpADDW:
		return alu.AddW(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSUBW:
		return alu.SubW(rs1, rs2)
	case insts.OpSLLIW, insts.OpSLLW:
		return alu.SllW(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSRLIW, insts.OpSRLW:
		return alu.SrlW(rs1, opOrImm(inst, rs2, imm))
	case insts.OpSRAIW, insts.OpSRAW:
		return alu.SraW(rs1, opOrImm(inst, rs2, imm))

	case insts.OpMUL:
		return alu.Mul(rs1, rs2)
	case insts.OpMULH:
		return alu.Mulh(rs1, rs2)
	case insts.OpMULHSU:
		return alu.Mulhsu(rs1, rs2)
	case insts.OpMULHU:
		return alu.Mulhu(rs1, rs2)
	case insts.OpDIV:
		return alu.Div(rs1, rs2)
	case insts.OpDIVU:
		return alu.Divu(rs1, rs2)
	case insts.OpREM:
		return alu.Rem(rs1, rs2)
	case insts.OpREMU:
		return alu.Remu(rs1, rs2)

	case insts.OpMULW:
		return alu.MulW(rs1, rs2)
	case insts.OpDIVW:
		return alu.DivW(rs1, rs2)
	case insts.OpDIVUW:
		return alu.DivuW(rs1, rs2)
	case insts.OpREMW:
		return alu.RemW(rs1, rs2)
	case insts.OpREMUW:
		return alu.RemuW(rs1, rs2)

	case insts.OpJAL, insts.OpJALR:
		return pc + 4

	default:
		return 0
	}
}

// opOrImm returns rs2 for register-register ops and the decoded immediate
// for register-immediate ops, keyed off the instruction's Format.
func opOrImm(inst *insts.Instruction, rs2, imm uint64) uint64 {
	if inst.Format == insts.FormatI {
		return imm
	}
	return rs2
}

// EffectiveAddress computes a load/store address from the base register
// and the instruction's sign-extended immediate offset.
func EffectiveAddress(rs1 uint64, inst *insts.Instruction) uint64 {
	return rs1 + uint64(inst.Imm)
}

// BranchOutcome evaluates a conditional branch's comparator against its
// (possibly forwarded) operands.
func BranchOutcome(inst *insts.Instruction, rs1, rs2 uint64) bool {
	cond, ok := branchCond(inst.Op)
	if !ok {
		return false
	}
	return emu.EvalBranchCond(cond, rs1, rs2)
}

func branchCond(op insts.Op) (emu.BranchCond, bool) {
	switch op {
	case insts.OpBEQ:
		return emu.CondBEQ, true
	case insts.OpBNE:
		return emu.CondBNE, true
	case insts.OpBLT:
		return emu.CondBLT, true
	case insts.OpBGE:
		return emu.CondBGE, true
	case insts.OpBLTU:
		return emu.CondBLTU, true
	case insts.OpBGEU:
		return emu.CondBGEU, true
	default:
		return 0, false
	}
}

// JumpTarget computes the destination PC for JAL/JALR given the
// instruction's captured PC and (possibly forwarded) rs1 value. The link
// value (pc+4) is computed separately by IntResult.
func JumpTarget(inst *insts.Instruction, pc, rs1 uint64) uint64 {
	if inst.Op == insts.OpJALR {
		return (rs1 + uint64(inst.Imm)) &^ 1
	}
	return uint64(int64(pc) + inst.Imm)
}
