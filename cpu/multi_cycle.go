package cpu

import (
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
)

// Stage identifies a multi-cycle CPU's current micro-operation.
type Stage int

// The five stages a MultiCycle instruction passes through, one per Tick.
const (
	StageFetch Stage = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback
)

// MultiCycleOption is a functional option for constructing a MultiCycle
// CPU.
type MultiCycleOption func(*MultiCycle)

// WithMultiCycleTrace attaches trace hooks to a MultiCycle CPU.
func WithMultiCycleTrace(trace emu.TraceConfig) MultiCycleOption {
	return func(c *MultiCycle) { c.trace = trace }
}

// WithMultiCycleSyscallHandler overrides the default syscall handler.
func WithMultiCycleSyscallHandler(handler emu.SyscallHandler) MultiCycleOption {
	return func(c *MultiCycle) { c.syscall = handler }
}

// scratch holds the per-instruction values threaded between a
// MultiCycle's stages. Nothing here is architectural state: only
// Writeback commits to the register file or memory.
type scratch struct {
	pc         uint64
	raw        uint32
	inst       *insts.Instruction
	rs1        uint64
	rs2        uint64
	rs3        uint64
	aluResult  uint64
	toIntReg   bool
	memResult  uint64
	memAddr    uint64
	branchNext uint64
	branchLink uint64
}

// MultiCycle implements C6: the same architectural effects as SingleCycle,
// but spread one stage per Tick so that an instruction takes five ticks to
// retire and only Writeback ever commits to architectural state. At most
// one instruction is ever in flight, so there are no inter-instruction
// hazards to model here — that is the pipeline variant's job.
type MultiCycle struct {
	Regs   *emu.RegFile
	Memory *emu.Memory

	decoder *insts.Decoder
	alu     *emu.ALU
	fpu     *emu.FPU
	lsu     *emu.LoadStoreUnit
	syscall emu.SyscallHandler

	trace emu.TraceConfig

	stage scratch
	at    Stage

	Halted     bool
	HaltStatus uint64
	Cycles     uint64
	Retired    uint64
}

// NewMultiCycle creates a multi-cycle CPU over the given memory, PC set to
// entryPC.
func NewMultiCycle(memory *emu.Memory, entryPC uint64, opts ...MultiCycleOption) *MultiCycle {
	regs := &emu.RegFile{PC: entryPC}
	c := &MultiCycle{
		Regs:    regs,
		Memory:  memory,
		decoder: insts.NewDecoder(),
		alu:     emu.NewALU(regs),
		fpu:     emu.NewFPU(regs),
		lsu:     emu.NewLoadStoreUnit(regs, memory),
		at:      StageFetch,
	}
	c.syscall = emu.NewDefaultSyscallHandler(regs, memory, nopWriter{}, nopWriter{})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ticks the CPU until it halts or a guest-fatal error occurs.
func (c *MultiCycle) Run() error {
	for !c.Halted {
		if err := c.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick advances the current instruction by exactly one stage.
func (c *MultiCycle) Tick() error {
	c.Cycles++
	switch c.at {
	case StageFetch:
		c.stage = scratch{pc: c.Regs.PC}
		c.stage.raw = c.Memory.FetchInstruction(c.stage.pc)
		c.at = StageDecode

	case StageDecode:
		inst := c.decoder.Decode(c.stage.raw)
		if inst.Op == insts.OpIllegal {
			return emu.NewIllegalInstructionError(c.stage.pc, c.stage.raw)
		}
		c.stage.inst = inst
		c.stage.rs1, c.stage.rs2, c.stage.rs3 = readOperandsFrom(c.Regs, inst)
		c.at = StageExecute

	case StageExecute:
		c.execute()
		c.at = StageMemory

	case StageMemory:
		c.access()
		c.at = StageWriteback

	case StageWriteback:
		c.writeback()
		c.at = StageFetch
	}
	return nil
}

func (c *MultiCycle) execute() {
	s := &c.stage
	inst := s.inst
	s.branchNext = s.pc + 4
	s.branchLink = s.pc + 4

	switch {
	case inst.Op == insts.OpECALL, inst.Op == insts.OpEBREAK, inst.Op == insts.OpFENCE:
	case inst.IsBranch():
		if BranchOutcome(inst, s.rs1, s.rs2) {
			s.branchNext = uint64(int64(s.pc) + inst.Imm)
		}
	case inst.Op == insts.OpJAL || inst.Op == insts.OpJALR:
		s.branchNext = JumpTarget(inst, s.pc, s.rs1)
	case inst.IsLoad() || inst.IsStore():
		s.memAddr = EffectiveAddress(s.rs1, inst)
	case inst.IsFP:
		s.aluResult, s.toIntReg = emu.ExecuteFP(c.fpu, inst, s.rs1, s.rs2, s.rs3)
	default:
		s.aluResult = IntResult(c.alu, inst, s.rs1, s.rs2, s.pc)
	}
}

func (c *MultiCycle) access() {
	s := &c.stage
	inst := s.inst
	switch {
	case inst.IsLoad():
		if inst.IsFP {
			if inst.Double {
				s.memResult = c.lsu.LoadFloat64(s.memAddr)
			} else {
				s.memResult = nanBox32 | uint64(c.lsu.LoadFloat32(s.memAddr))
			}
		} else {
			s.memResult = c.lsu.Load(s.memAddr, inst.Width, inst.Signed)
		}
		c.trace.TraceMem(s.memAddr, inst.Width, s.memResult, false)
	case inst.IsStore():
		if inst.IsFP {
			if inst.Double {
				c.lsu.StoreFloat64(s.memAddr, s.rs2)
			} else {
				c.lsu.StoreFloat32(s.memAddr, uint32(s.rs2))
			}
		} else {
			c.lsu.Store(s.memAddr, inst.Width, s.rs2)
		}
		c.trace.TraceMem(s.memAddr, inst.Width, s.rs2, true)
	}
}

func (c *MultiCycle) writeback() {
	s := &c.stage
	inst := s.inst

	switch {
	case inst.Op == insts.OpECALL:
		result := c.syscall.Handle()
		if result.Halted {
			c.Halted = true
			c.HaltStatus = result.HaltStatus
		}
	case inst.IsBranch():
	case inst.Op == insts.OpJAL || inst.Op == insts.OpJALR:
		c.Regs.IWrite(inst.Rd, s.branchLink)
	case inst.IsLoad():
		if inst.IsFP {
			c.Regs.FWrite(inst.Rd, s.memResult)
		} else {
			c.Regs.IWrite(inst.Rd, s.memResult)
		}
	case inst.IsStore():
	case inst.IsFP:
		if s.toIntReg {
			c.Regs.IWrite(inst.Rd, s.aluResult)
		} else if inst.Double {
			c.Regs.FWrite(inst.Rd, s.aluResult)
		} else {
			c.Regs.FWrite(inst.Rd, nanBox32|s.aluResult)
		}
	default:
		c.Regs.IWrite(inst.Rd, s.aluResult)
	}

	if inst.IsBranch() || inst.Op == insts.OpJAL || inst.Op == insts.OpJALR {
		c.Regs.PC = s.branchNext
	} else {
		c.Regs.PC = s.pc + 4
	}

	c.Retired++
	c.trace.Trace(s.pc, inst, s.raw)
}

// readOperandsFrom mirrors SingleCycle.readOperands but operates on a
// plain *emu.RegFile, so both CPU variants share the exact same operand
// resolution rules without one depending on the other's type.
func readOperandsFrom(regs *emu.RegFile, inst *insts.Instruction) (rs1, rs2, rs3 uint64) {
	if inst.IsLoad() {
		return regs.IRead(inst.Rs1), 0, 0
	}
	if inst.IsStore() {
		rs1 = regs.IRead(inst.Rs1)
		if inst.IsFP {
			rs2 = regs.FRead(inst.Rs2)
		} else {
			rs2 = regs.IRead(inst.Rs2)
		}
		return rs1, rs2, 0
	}
	if inst.IsFP {
		rs1, rs2, rs3 = regs.FRead(inst.Rs1), regs.FRead(inst.Rs2), regs.FRead(inst.Rs3)
		if ReadsIntSource(inst.Op) {
			rs1 = regs.IRead(inst.Rs1)
		}
		return rs1, rs2, rs3
	}
	return regs.IRead(inst.Rs1), regs.IRead(inst.Rs2), 0
}
