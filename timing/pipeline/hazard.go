package pipeline

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed; use the register-file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM forwards from the EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB forwards from the MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingResult carries forwarding decisions for every operand EX may
// need: rs1 and rs2 (rs2 is also a store's data operand) and, for the
// fused multiply-add family, the third FP source rs3.
type ForwardingResult struct {
	ForwardRs1 ForwardSource
	ForwardRs2 ForwardSource
	ForwardRs3 ForwardSource
}

// HazardUnit detects data hazards and determines forwarding/stall signals
// under the data-forward policy; under naive-stall the pipeline skips
// DetectForwarding entirely and always stalls on any RAW dependency
// instead (see Pipeline.tickID).
type HazardUnit struct{}

// NewHazardUnit creates a hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines forwarding sources for ID/EX's operands. A
// register number is only a forwarding candidate if its namespace
// (integer vs FP) matches the producing instruction's destination
// namespace — RISC-V's two register files never alias.
func (h *HazardUnit) DetectForwarding(idex *IDEXRegister, exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardingResult {
	result := ForwardingResult{}
	if !idex.Valid {
		return result
	}

	result.ForwardRs1 = h.detectForwardForReg(idex.Rs1, idex.Rs1IsFP, exmem, memwb)
	result.ForwardRs2 = h.detectForwardForReg(idex.Rs2, idex.Rs2IsFP, exmem, memwb)
	if idex.Rs3IsFP {
		result.ForwardRs3 = h.detectForwardForReg(idex.Rs3, idex.Rs3IsFP, exmem, memwb)
	}

	return result
}

func (h *HazardUnit) detectForwardForReg(reg uint8, isFP bool, exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardSource {
	// x0 always reads as zero, f-registers have no such special case but
	// an untagged zero reg number (the common case for "operand unused")
	// never matches a real producer, so no forwarding is needed either way.
	if !isFP && reg == 0 {
		return ForwardNone
	}

	if exmem.Valid && exmem.RegWrite && exmem.RdIsFP == isFP && exmem.Rd == reg {
		return ForwardFromEXMEM
	}
	if memwb.Valid && memwb.RegWrite && memwb.RdIsFP == isFP && memwb.Rd == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// DetectLoadUseHazard reports whether the load instruction in ID/EX's
// destination is an operand of the next instruction now in ID — the one
// case a forwarding network cannot resolve without a stall, since the
// loaded value isn't available until MEM.
func (h *HazardUnit) DetectLoadUseHazard(idex *IDEXRegister, nextRs1, nextRs2, nextRs3 uint8, nextRs1IsFP, nextRs2IsFP, nextRs3IsFP bool) bool {
	if !idex.Valid || !idex.MemRead {
		return false
	}
	if !idex.RdIsFP && idex.Rd == 0 {
		return false
	}
	if nextRs1IsFP == idex.RdIsFP && nextRs1 == idex.Rd {
		return true
	}
	if nextRs2IsFP == idex.RdIsFP && nextRs2 == idex.Rd {
		return true
	}
	if nextRs3IsFP == idex.RdIsFP && nextRs3 == idex.Rd {
		return true
	}
	return false
}

// GetForwardedValue resolves a forwarding decision into the value EX
// should actually use.
func (h *HazardUnit) GetForwardedValue(forward ForwardSource, originalValue uint64, exmem *EXMEMRegister, memwb *MEMWBRegister) uint64 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		if memwb.MemToReg {
			return memwb.MemData
		}
		return memwb.ALUResult
	default:
		return originalValue
	}
}
