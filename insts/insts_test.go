package insts_test

import (
	"testing"

	"github.com/rvsim/rvsim/insts"
)

func TestInstructionClassifiers(t *testing.T) {
	cases := []struct {
		name       string
		inst       insts.Instruction
		isBranch   bool
		isJump     bool
		isLoad     bool
		isStore    bool
		writesInt  bool
		writesFP   bool
		isCall     bool
		isReturn   bool
	}{
		{
			name:      "BEQ is a branch only",
			inst:      insts.Instruction{Op: insts.OpBEQ, Format: insts.FormatB},
			isBranch:  true,
		},
		{
			name:      "JAL into ra is a call",
			inst:      insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1},
			isJump:    true,
			writesInt: true,
			isCall:    true,
		},
		{
			name:      "JAL into x0 is not a call",
			inst:      insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 0},
			isJump:    true,
			writesInt: false,
		},
		{
			name:     "JALR x0, ra, 0 is a return",
			inst:     insts.Instruction{Op: insts.OpJALR, Format: insts.FormatI, Rd: 0, Rs1: 1, Imm: 0},
			isJump:   true,
			isReturn: true,
		},
		{
			name:      "JALR into ra is neither call nor return (only JAL/rd=ra counts as call)",
			inst:      insts.Instruction{Op: insts.OpJALR, Format: insts.FormatI, Rd: 1, Rs1: 1, Imm: 0},
			isJump:    true,
			writesInt: true,
		},
		{
			name:      "LW writes an integer register",
			inst:      insts.Instruction{Op: insts.OpLW, Format: insts.FormatI, Rd: 5, Width: 4, Signed: true},
			isLoad:    true,
			writesInt: true,
		},
		{
			name:    "SW is a store",
			inst:    insts.Instruction{Op: insts.OpSW, Format: insts.FormatS, Width: 4},
			isStore: true,
		},
		{
			name:     "FLW loads into an FP register",
			inst:     insts.Instruction{Op: insts.OpFLW, Format: insts.FormatI, Rd: 1, Width: 4, IsFP: true},
			isLoad:   true,
			writesFP: true,
		},
		{
			name:    "FSD stores a double",
			inst:    insts.Instruction{Op: insts.OpFSD, Format: insts.FormatS, Width: 8, IsFP: true, Double: true},
			isStore: true,
		},
		{
			name:      "ADDI writes x0 is inert (x0 never observably written)",
			inst:      insts.Instruction{Op: insts.OpADDI, Format: insts.FormatI, Rd: 0},
			writesInt: false,
		},
		{
			name:      "FADD.S writes an FP register",
			inst:      insts.Instruction{Op: insts.OpFADD_S, Format: insts.FormatR, Rd: 1, IsFP: true},
			writesFP:  true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.inst.IsBranch(); got != c.isBranch {
				t.Errorf("IsBranch() = %v, want %v", got, c.isBranch)
			}
			if got := c.inst.IsJump(); got != c.isJump {
				t.Errorf("IsJump() = %v, want %v", got, c.isJump)
			}
			if got := c.inst.IsLoad(); got != c.isLoad {
				t.Errorf("IsLoad() = %v, want %v", got, c.isLoad)
			}
			if got := c.inst.IsStore(); got != c.isStore {
				t.Errorf("IsStore() = %v, want %v", got, c.isStore)
			}
			if got := c.inst.WritesIntReg(); got != c.writesInt {
				t.Errorf("WritesIntReg() = %v, want %v", got, c.writesInt)
			}
			if got := c.inst.WritesFPReg(); got != c.writesFP {
				t.Errorf("WritesFPReg() = %v, want %v", got, c.writesFP)
			}
			if got := c.inst.IsCall(); got != c.isCall {
				t.Errorf("IsCall() = %v, want %v", got, c.isCall)
			}
			if got := c.inst.IsReturn(); got != c.isReturn {
				t.Errorf("IsReturn() = %v, want %v", got, c.isReturn)
			}
		})
	}
}
