package pipeline

import (
	"github.com/rvsim/rvsim/cpu"
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
)

// operandNamespaces reports, for a decoded instruction, whether each of
// its up-to-three source registers and its destination are read from/
// written to the FP register file rather than the integer one. RISC-V's
// two register files never alias, so the hazard unit and forwarding
// network must carry this alongside each register number.
func operandNamespaces(inst *insts.Instruction) (rs1FP, rs2FP, rs3FP, rdFP bool) {
	// A store never has a destination register; WritesFPReg already
	// reports false for FSW/FSD, and the IsStore check states it here too.
	rdFP = inst.WritesFPReg() && !inst.IsStore()
	if inst.IsLoad() || inst.IsStore() {
		return false, inst.IsFP, false, rdFP
	}
	if inst.IsFP {
		if cpu.ReadsIntSource(inst.Op) {
			return false, false, false, rdFP
		}
		return true, true, true, rdFP
	}
	return false, false, false, rdFP
}

// tickIF fetches one instruction into the IF/ID latch, unless a stall is
// in effect, and decides the speculative next fetch PC per the active
// control-hazard policy. It is the last stage to run in a tick's reverse
// order so it observes every redirect decision EX and ID made earlier in
// the same tick.
func (p *Pipeline) tickIF() {
	if p.stallFetch {
		return
	}

	pc := p.fetchPC
	raw := p.Memory.FetchInstruction(pc)
	next := IFIDRegister{Valid: true, PC: pc, InstructionWord: raw}

	// Only a conditional branch consults the BHT/BTB: JAL redirects in ID
	// and JALR resolves in EX, neither through the predictor. Peeking the
	// decode here (discarded; ID performs the authoritative decode and
	// illegal-instruction check) keeps PredictorStats counting actual
	// branch predictions instead of every fetched instruction.
	if p.controlPolicy == DynamicPredict && p.decoder.Decode(raw).IsBranch() {
		pred := p.predictor.Predict(pc)
		if pred.Taken && pred.TargetKnown {
			next.PredictedTaken = true
			next.PredictedTarget = pred.Target
			p.fetchPC = pred.Target
		} else {
			p.fetchPC = pc + 4
		}
	} else {
		p.fetchPC = pc + 4
	}

	p.ifid = next
}

// tickID decodes the IF/ID latch into the ID/EX latch, reads source
// operands from the register file, detects data hazards per the active
// data-hazard policy, and resolves JAL (the one control transfer fully
// known at decode time). It returns a fatal error if the fetched word is
// illegal and no older instruction is still in flight.
func (p *Pipeline) tickID() error {
	if !p.ifid.Valid {
		p.idex.Clear()
		return nil
	}

	pc, raw := p.ifid.PC, p.ifid.InstructionWord
	inst := p.decoder.Decode(raw)
	if inst.Op == insts.OpIllegal {
		// An older instruction still in EX/MEM or MEM/WB may squash this
		// fetch or halt the run, so the word is held in IF/ID (with a
		// bubble into ID/EX) until nothing older remains.
		if p.exmem.Valid || p.memwb.Valid {
			p.idex.Clear()
			p.stallFetch = true
			return nil
		}
		return emu.NewIllegalInstructionError(pc, raw)
	}

	rs1FP, rs2FP, rs3FP, rdFP := operandNamespaces(inst)

	rs1v := p.readReg(inst.Rs1, rs1FP)
	var rs2v uint64
	if inst.IsStore() {
		rs2v = p.readReg(inst.Rs2, inst.IsFP)
	} else {
		rs2v = p.readReg(inst.Rs2, rs2FP)
	}
	var rs3v uint64
	if rs3FP {
		rs3v = p.Regs.FRead(inst.Rs3)
	}

	var hazard bool
	if p.dataPolicy == NaiveStall {
		hazard = p.registerInFlight(inst.Rs1, rs1FP) || p.registerInFlight(inst.Rs2, rs2FP)
		if rs3FP {
			hazard = hazard || p.registerInFlight(inst.Rs3, rs3FP)
		}
	} else {
		hazard = p.hazard.DetectLoadUseHazard(&p.idex, inst.Rs1, inst.Rs2, inst.Rs3, rs1FP, rs2FP, rs3FP)
	}

	if hazard {
		p.idex.Clear()
		p.stallFetch = true
		p.stats.DataHazards++
		p.stats.Stalls++
		return nil
	}

	next := IDEXRegister{
		Valid:    true,
		PC:       pc,
		Inst:     inst,
		Rs1Value: rs1v,
		Rs2Value: rs2v,
		Rs3Value: rs3v,
		Rd:       inst.Rd,
		Rs1:      inst.Rs1,
		Rs2:      inst.Rs2,
		Rs3:      inst.Rs3,
		RdIsFP:   rdFP,
		Rs1IsFP:  rs1FP,
		Rs2IsFP:  rs2FP,
		Rs3IsFP:  rs3FP,
		MemRead:  inst.IsLoad(),
		MemWrite: inst.IsStore(),
		RegWrite: !inst.IsStore() && (inst.WritesIntReg() || inst.WritesFPReg()),
		MemToReg: inst.IsLoad(),
		IsBranch: inst.IsBranch(),
		IsJump:   inst.IsJump(),
	}

	switch {
	case inst.Op == insts.OpJAL:
		p.fetchPC = uint64(int64(pc) + inst.Imm)

	case inst.IsBranch():
		switch p.controlPolicy {
		case AllStall:
			p.awaitingBranchResolve = true
			p.stallFetch = true
		case AlwaysTaken:
			target := uint64(int64(pc) + inst.Imm)
			next.PredictedTaken = true
			next.PredictedTarget = target
			p.fetchPC = target
		case AlwaysNotTaken:
			next.PredictedTaken = false
			next.PredictedTarget = pc + 4
		case DynamicPredict:
			next.PredictedTaken = p.ifid.PredictedTaken
			if next.PredictedTaken {
				next.PredictedTarget = p.ifid.PredictedTarget
			} else {
				next.PredictedTarget = pc + 4
			}
		}

	case inst.Op == insts.OpJALR:
		if p.controlPolicy == AllStall {
			p.awaitingBranchResolve = true
			p.stallFetch = true
		} else {
			next.PredictedTarget = pc + 4
		}
	}

	p.idex = next
	return nil
}

func (p *Pipeline) readReg(reg uint8, isFP bool) uint64 {
	if isFP {
		return p.Regs.FRead(reg)
	}
	return p.Regs.IRead(reg)
}

// registerInFlight reports whether any instruction currently in ID/EX,
// EX/MEM, or MEM/WB will write the given register. Used by the
// naive-stall policy, under which every RAW dependency stalls, not just
// the load-use case a forwarding network cannot otherwise resolve.
func (p *Pipeline) registerInFlight(reg uint8, isFP bool) bool {
	if !isFP && reg == 0 {
		return false
	}
	if p.idex.Valid && p.idex.RegWrite && p.idex.RdIsFP == isFP && p.idex.Rd == reg {
		return true
	}
	if p.exmem.Valid && p.exmem.RegWrite && p.exmem.RdIsFP == isFP && p.exmem.Rd == reg {
		return true
	}
	if p.memwb.Valid && p.memwb.RegWrite && p.memwb.RdIsFP == isFP && p.memwb.Rd == reg {
		return true
	}
	return false
}

// tickEX executes the ID/EX latch's instruction, applying forwarding
// (under data-forward) from the pre-tick EX/MEM and MEM/WB snapshots, and
// resolves conditional branches and JALR.
func (p *Pipeline) tickEX(oldExMem EXMEMRegister, oldMemWb MEMWBRegister) {
	if !p.idex.Valid {
		p.exmem.Clear()
		return
	}

	idex := p.idex
	inst := idex.Inst
	rs1, rs2, rs3 := idex.Rs1Value, idex.Rs2Value, idex.Rs3Value

	if p.dataPolicy == DataForward {
		fwd := p.hazard.DetectForwarding(&idex, &oldExMem, &oldMemWb)
		rs1 = p.hazard.GetForwardedValue(fwd.ForwardRs1, rs1, &oldExMem, &oldMemWb)
		rs2 = p.hazard.GetForwardedValue(fwd.ForwardRs2, rs2, &oldExMem, &oldMemWb)
		rs3 = p.hazard.GetForwardedValue(fwd.ForwardRs3, rs3, &oldExMem, &oldMemWb)
		if fwd.ForwardRs1 != ForwardNone || fwd.ForwardRs2 != ForwardNone || fwd.ForwardRs3 != ForwardNone {
			p.stats.DataHazards++
		}
	}

	next := EXMEMRegister{
		Valid:    true,
		PC:       idex.PC,
		Inst:     inst,
		Rd:       idex.Rd,
		RdIsFP:   idex.RdIsFP,
		MemRead:  idex.MemRead,
		MemWrite: idex.MemWrite,
		RegWrite: idex.RegWrite,
		MemToReg: idex.MemToReg,
	}

	switch {
	case inst.IsLoad() || inst.IsStore():
		next.ALUResult = cpu.EffectiveAddress(rs1, inst)
		next.StoreValue = rs2

	case inst.IsBranch():
		taken := cpu.BranchOutcome(inst, rs1, rs2)
		target := idex.PC + 4
		if taken {
			target = uint64(int64(idex.PC) + inst.Imm)
		}
		p.resolveControl(idex, target)

	case inst.Op == insts.OpJAL:
		next.ALUResult = idex.PC + 4

	case inst.Op == insts.OpJALR:
		target := cpu.JumpTarget(inst, idex.PC, rs1)
		next.ALUResult = idex.PC + 4
		p.resolveControl(idex, target)

	case inst.IsFP:
		result, toIntReg := emu.ExecuteFP(p.fpu, inst, rs1, rs2, rs3)
		next.ALUResult = result
		if toIntReg {
			next.RdIsFP = false
		}

	default:
		next.ALUResult = cpu.IntResult(p.alu, inst, rs1, rs2, idex.PC)
	}

	p.exmem = next
}

// resolveControl compares a resolved branch/jump's actual target against
// the prediction it was decoded with, updates the predictor (under
// dynamic-predict, for conditional branches), and squashes the two
// wrong-path latches (the stale IF/ID content and the bubble ID/EX
// produces from it this same tick) on a misprediction. Called only from
// EX, for conditional branches and JALR.
func (p *Pipeline) resolveControl(idex IDEXRegister, target uint64) {
	if p.awaitingBranchResolve {
		p.awaitingBranchResolve = false
		p.stallFetch = false
		p.fetchPC = target
		p.stats.BranchPredictions++
		p.stats.BranchCorrect++
		return
	}

	if p.controlPolicy == DynamicPredict && idex.Inst.IsBranch() {
		p.predictor.Update(idex.PC, target != idex.PC+4, target)
	}

	p.stats.BranchPredictions++
	if target != idex.PredictedTarget {
		p.stats.BranchMispredictions++
		p.stats.Flushes += 2
		p.ifid.Clear()
		p.fetchPC = target
	} else {
		p.stats.BranchCorrect++
	}
}

// tickMEM performs the memory access (if any) for the EX/MEM latch's
// instruction and produces the MEM/WB latch.
func (p *Pipeline) tickMEM() {
	if !p.exmem.Valid {
		p.memwb.Clear()
		return
	}

	exmem := p.exmem
	inst := exmem.Inst
	next := MEMWBRegister{
		Valid:     true,
		PC:        exmem.PC,
		Inst:      inst,
		ALUResult: exmem.ALUResult,
		Rd:        exmem.Rd,
		RdIsFP:    exmem.RdIsFP,
		RegWrite:  exmem.RegWrite,
		MemToReg:  exmem.MemToReg,
	}

	switch {
	case inst.IsLoad():
		addr := exmem.ALUResult
		if inst.IsFP {
			if inst.Double {
				next.MemData = p.lsu.LoadFloat64(addr)
			} else {
				next.MemData = nanBox32 | uint64(p.lsu.LoadFloat32(addr))
			}
		} else {
			next.MemData = p.lsu.Load(addr, inst.Width, inst.Signed)
		}
		p.trace.TraceMem(addr, inst.Width, next.MemData, false)

	case inst.IsStore():
		addr := exmem.ALUResult
		if inst.IsFP {
			if inst.Double {
				p.lsu.StoreFloat64(addr, exmem.StoreValue)
			} else {
				p.lsu.StoreFloat32(addr, uint32(exmem.StoreValue))
			}
		} else {
			p.lsu.Store(addr, inst.Width, exmem.StoreValue)
		}
		p.trace.TraceMem(addr, inst.Width, exmem.StoreValue, true)
	}

	p.memwb = next
}

// tickWB commits the MEM/WB latch's instruction to architectural state:
// the only stage permitted to mutate the register file or halt status.
func (p *Pipeline) tickWB() {
	if !p.memwb.Valid {
		return
	}

	memwb := p.memwb
	inst := memwb.Inst

	switch {
	case inst.Op == insts.OpECALL:
		result := p.syscall.Handle()
		if result.Halted {
			p.Halted = true
			p.HaltStatus = result.HaltStatus
		}

	case memwb.RegWrite:
		value := memwb.ALUResult
		if memwb.MemToReg {
			value = memwb.MemData
		}
		if memwb.RdIsFP {
			if inst.Double {
				p.Regs.FWrite(memwb.Rd, value)
			} else {
				p.Regs.FWrite(memwb.Rd, nanBox32|value)
			}
		} else {
			p.Regs.IWrite(memwb.Rd, value)
		}
	}

	p.Retired++
	p.stats.Instructions++
	p.trace.Trace(memwb.PC, inst, inst.Raw)
}

// nanBox32 mirrors cpu's NaN-boxing constant for single-precision values
// stored in the 64-bit FP register file.
const nanBox32 = 0xFFFFFFFF00000000
