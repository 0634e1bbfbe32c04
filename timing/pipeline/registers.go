// Package pipeline implements the 5-stage pipelined RV64IFD CPU variant
// (C7): IF, ID, EX, MEM, WB latches updated in reverse order each tick, a
// pluggable data-hazard policy (naive-stall / data-forward), a pluggable
// control-hazard policy (all-stall / always-not-taken / always-taken /
// dynamic-predict), and the Predictor (C8) dynamic-predict consults.
package pipeline

import "github.com/rvsim/rvsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	Valid bool

	PC              uint64
	InstructionWord uint32

	// PredictedTaken/PredictedTarget carry the IF-stage prediction (under
	// dynamic-predict) forward so ID/EX can compare it against the
	// resolved outcome.
	PredictedTaken  bool
	PredictedTarget uint64
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
//
// RISC-V's integer and FP register files are separate namespaces, so each
// source/destination register number carries a companion *IsFP flag: the
// hazard unit and forwarding network must never forward an integer result
// into an FP consumer or vice versa.
type IDEXRegister struct {
	Valid bool

	PC   uint64
	Inst *insts.Instruction

	Rs1Value uint64
	Rs2Value uint64
	Rs3Value uint64

	Rd  uint8
	Rs1 uint8
	Rs2 uint8
	Rs3 uint8

	RdIsFP  bool
	Rs1IsFP bool
	Rs2IsFP bool
	Rs3IsFP bool

	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
	IsBranch bool
	IsJump   bool

	PredictedTaken  bool
	PredictedTarget uint64
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid bool

	PC   uint64
	Inst *insts.Instruction

	// ALUResult is the effective address for a load/store, or the
	// computed result for every other instruction kind, including an FP
	// result still in raw bit-pattern form.
	ALUResult uint64

	// StoreValue is the value to write for a store instruction.
	StoreValue uint64

	Rd     uint8
	RdIsFP bool

	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid bool

	PC   uint64
	Inst *insts.Instruction

	ALUResult uint64
	MemData   uint64

	Rd     uint8
	RdIsFP bool

	RegWrite bool
	MemToReg bool
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}
