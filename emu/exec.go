package emu

import "github.com/rvsim/rvsim/insts"

// ExecuteFP dispatches a decoded F/D-extension instruction to the FPU,
// operating purely on raw register bit patterns so every CPU variant
// (single-cycle, multi-cycle, pipeline) can call it with either live
// register-file contents or a forwarded value. b1/b2/b3 correspond to
// rs1/rs2/rs3; for FMV.W.X/FMV.D.X and the integer-to-float FCVTs, b1
// instead carries the integer source's bits.
//
// It returns the result's raw bits and whether that result belongs in the
// integer register file (true for FCVT.*.S/D, FMV.X.*, FEQ/FLT/FLE,
// FCLASS) rather than the FP register file.
func ExecuteFP(fpu *FPU, inst *insts.Instruction, b1, b2, b3 uint64) (result uint64, toIntReg bool) {
	switch inst.Op {
	case insts.OpFADD_S:
		return uint64(float32Bits(fpu.AddS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFSUB_S:
		return uint64(float32Bits(fpu.SubS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFMUL_S:
		return uint64(float32Bits(fpu.MulS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFDIV_S:
		return uint64(float32Bits(fpu.DivS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFSQRT_S:
		return uint64(float32Bits(fpu.SqrtS(float32FromBits(uint32(b1))))), false
	case insts.OpFSGNJ_S:
		return uint64(float32Bits(fpu.SgnjS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFSGNJN_S:
		return uint64(float32Bits(fpu.SgnjnS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFSGNJX_S:
		return uint64(float32Bits(fpu.SgnjxS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFMIN_S:
		return uint64(float32Bits(fpu.MinS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false
	case insts.OpFMAX_S:
		return uint64(float32Bits(fpu.MaxS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2))))), false

	case insts.OpFADD_D:
		return float64Bits(fpu.AddD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFSUB_D:
		return float64Bits(fpu.SubD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFMUL_D:
		return float64Bits(fpu.MulD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFDIV_D:
		return float64Bits(fpu.DivD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFSQRT_D:
		return float64Bits(fpu.SqrtD(float64FromBits(b1))), false
	case insts.OpFSGNJ_D:
		return float64Bits(fpu.SgnjD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFSGNJN_D:
		return float64Bits(fpu.SgnjnD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFSGNJX_D:
		return float64Bits(fpu.SgnjxD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFMIN_D:
		return float64Bits(fpu.MinD(float64FromBits(b1), float64FromBits(b2))), false
	case insts.OpFMAX_D:
		return float64Bits(fpu.MaxD(float64FromBits(b1), float64FromBits(b2))), false

	case insts.OpFEQ_S:
		return boolBits(fpu.EqS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)))), true
	case insts.OpFLT_S:
		return boolBits(fpu.LtS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)))), true
	case insts.OpFLE_S:
		return boolBits(fpu.LeS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)))), true
	case insts.OpFEQ_D:
		return boolBits(fpu.EqD(float64FromBits(b1), float64FromBits(b2))), true
	case insts.OpFLT_D:
		return boolBits(fpu.LtD(float64FromBits(b1), float64FromBits(b2))), true
	case insts.OpFLE_D:
		return boolBits(fpu.LeD(float64FromBits(b1), float64FromBits(b2))), true

	case insts.OpFCLASS_S:
		return uint64(fpu.ClassS(float32FromBits(uint32(b1)))), true
	case insts.OpFCLASS_D:
		return uint64(fpu.ClassD(float64FromBits(b1))), true

	case insts.OpFCVT_W_S:
		return fpu.CvtWS(float32FromBits(uint32(b1))), true
	case insts.OpFCVT_WU_S:
		return fpu.CvtWuS(float32FromBits(uint32(b1))), true
	case insts.OpFCVT_L_S:
		return fpu.CvtLS(float32FromBits(uint32(b1))), true
	case insts.OpFCVT_LU_S:
		return fpu.CvtLuS(float32FromBits(uint32(b1))), true
	case insts.OpFCVT_W_D:
		return fpu.CvtWD(float64FromBits(b1)), true
	case insts.OpFCVT_WU_D:
		return fpu.CvtWuD(float64FromBits(b1)), true
	case insts.OpFCVT_L_D:
		return fpu.CvtLD(float64FromBits(b1)), true
	case insts.OpFCVT_LU_D:
		return fpu.CvtLuD(float64FromBits(b1)), true

	case insts.OpFCVT_S_W:
		return uint64(float32Bits(fpu.CvtSW(int32(uint32(b1))))), false
	case insts.OpFCVT_S_WU:
		return uint64(float32Bits(fpu.CvtSWu(uint32(b1)))), false
	case insts.OpFCVT_S_L:
		return uint64(float32Bits(fpu.CvtSL(int64(b1)))), false
	case insts.OpFCVT_S_LU:
		return uint64(float32Bits(fpu.CvtSLu(b1))), false
	case insts.OpFCVT_D_W:
		return float64Bits(fpu.CvtDW(int32(uint32(b1)))), false
	case insts.OpFCVT_D_WU:
		return float64Bits(fpu.CvtDWu(uint32(b1))), false
	case insts.OpFCVT_D_L:
		return float64Bits(fpu.CvtDL(int64(b1))), false
	case insts.OpFCVT_D_LU:
		return float64Bits(fpu.CvtDLu(b1)), false

	case insts.OpFCVT_S_D:
		return uint64(float32Bits(fpu.CvtSD(float64FromBits(b1)))), false
	case insts.OpFCVT_D_S:
		return float64Bits(fpu.CvtDS(float32FromBits(uint32(b1)))), false

	case insts.OpFMV_X_W:
		return uint64(int64(int32(uint32(b1)))), true
	case insts.OpFMV_X_D:
		return b1, true
	case insts.OpFMV_W_X:
		return uint64(uint32(b1)), false
	case insts.OpFMV_D_X:
		return b1, false

	case insts.OpFMADD_S:
		return uint64(float32Bits(fpu.FmaS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)), float32FromBits(uint32(b3))))), false
	case insts.OpFMSUB_S:
		return uint64(float32Bits(fpu.FmaS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)), -float32FromBits(uint32(b3))))), false
	case insts.OpFNMSUB_S:
		return uint64(float32Bits(-fpu.FmaS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)), -float32FromBits(uint32(b3))))), false
	case insts.OpFNMADD_S:
		return uint64(float32Bits(-fpu.FmaS(float32FromBits(uint32(b1)), float32FromBits(uint32(b2)), float32FromBits(uint32(b3))))), false
	case insts.OpFMADD_D:
		return float64Bits(fpu.FmaD(float64FromBits(b1), float64FromBits(b2), float64FromBits(b3))), false
	case insts.OpFMSUB_D:
		return float64Bits(fpu.FmaD(float64FromBits(b1), float64FromBits(b2), -float64FromBits(b3))), false
	case insts.OpFNMSUB_D:
		return float64Bits(-fpu.FmaD(float64FromBits(b1), float64FromBits(b2), -float64FromBits(b3))), false
	case insts.OpFNMADD_D:
		return float64Bits(-fpu.FmaD(float64FromBits(b1), float64FromBits(b2), float64FromBits(b3))), false
	}
	return 0, false
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
