package cpu

import (
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
)

// SingleCycleOption is a functional option for constructing a SingleCycle
// CPU, mirroring the teacher's WithStdout/WithStderr-style construction of
// its emulator.
type SingleCycleOption func(*SingleCycle)

// WithSingleCycleTrace attaches trace hooks to a SingleCycle CPU.
func WithSingleCycleTrace(trace emu.TraceConfig) SingleCycleOption {
	return func(c *SingleCycle) { c.trace = trace }
}

// WithSingleCycleSyscallHandler overrides the default syscall handler.
func WithSingleCycleSyscallHandler(handler emu.SyscallHandler) SingleCycleOption {
	return func(c *SingleCycle) { c.syscall = handler }
}

// SingleCycle implements the oracle CPU model (C5): fetch, decode,
// execute, and commit an entire instruction in one Tick. Every other CPU
// variant's architectural state must match this one's at every commit
// boundary, for the same program.
type SingleCycle struct {
	Regs   *emu.RegFile
	Memory *emu.Memory

	decoder *insts.Decoder
	alu     *emu.ALU
	fpu     *emu.FPU
	lsu     *emu.LoadStoreUnit
	syscall emu.SyscallHandler

	trace emu.TraceConfig

	Halted     bool
	HaltStatus uint64
	Cycles     uint64
	Retired    uint64
}

// NewSingleCycle creates a single-cycle CPU over the given memory, with a
// fresh, zeroed register file except for PC, which is set to entryPC.
func NewSingleCycle(memory *emu.Memory, entryPC uint64, opts ...SingleCycleOption) *SingleCycle {
	regs := &emu.RegFile{PC: entryPC}
	c := &SingleCycle{
		Regs:    regs,
		Memory:  memory,
		decoder: insts.NewDecoder(),
		alu:     emu.NewALU(regs),
		fpu:     emu.NewFPU(regs),
		lsu:     emu.NewLoadStoreUnit(regs, memory),
	}
	c.syscall = emu.NewDefaultSyscallHandler(regs, memory, nopWriter{}, nopWriter{})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ticks the CPU until it halts or a guest-fatal error occurs.
func (c *SingleCycle) Run() error {
	for !c.Halted {
		if err := c.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick fetches, decodes, executes, and commits exactly one instruction.
func (c *SingleCycle) Tick() error {
	pc := c.Regs.PC
	raw := c.Memory.FetchInstruction(pc)
	inst := c.decoder.Decode(raw)

	if inst.Op == insts.OpIllegal {
		return emu.NewIllegalInstructionError(pc, raw)
	}

	c.Cycles++
	nextPC := pc + 4

	rs1, rs2, rs3 := c.readOperands(inst)

	switch {
	case inst.Op == insts.OpECALL:
		result := c.syscall.Handle()
		if result.Halted {
			c.Halted = true
			c.HaltStatus = result.HaltStatus
		}

	case inst.Op == insts.OpEBREAK || inst.Op == insts.OpFENCE:
		// No architectural effect modeled.

	case inst.IsBranch():
		if BranchOutcome(inst, rs1, rs2) {
			nextPC = uint64(int64(pc) + inst.Imm)
		}

	case inst.Op == insts.OpJAL || inst.Op == insts.OpJALR:
		link := pc + 4
		nextPC = JumpTarget(inst, pc, rs1)
		c.Regs.IWrite(inst.Rd, link)

	case inst.IsLoad():
		c.execLoad(inst, rs1)

	case inst.IsStore():
		c.execStore(inst, rs1, rs2, rs3)

	case inst.IsFP:
		c.execFP(inst, rs1, rs2, rs3)

	default:
		result := IntResult(c.alu, inst, rs1, rs2, pc)
		c.Regs.IWrite(inst.Rd, result)
	}

	c.Regs.PC = nextPC
	c.Retired++
	c.trace.Trace(pc, inst, raw)
	return nil
}

// readOperands resolves an instruction's source operands from the
// register file, respecting RISC-V's separate integer and FP register
// namespaces: a load/store's base address register (Rs1) is always an
// integer register even for FLW/FSD, and the integer-source FCVT/FMV
// variants read Rs1 from the integer file despite being IsFP.
func (c *SingleCycle) readOperands(inst *insts.Instruction) (rs1, rs2, rs3 uint64) {
	if inst.IsLoad() {
		return c.Regs.IRead(inst.Rs1), 0, 0
	}
	if inst.IsStore() {
		rs1 = c.Regs.IRead(inst.Rs1)
		if inst.IsFP {
			rs2 = c.Regs.FRead(inst.Rs2)
		} else {
			rs2 = c.Regs.IRead(inst.Rs2)
		}
		return rs1, rs2, 0
	}
	if inst.IsFP {
		rs1, rs2, rs3 = c.Regs.FRead(inst.Rs1), c.Regs.FRead(inst.Rs2), c.Regs.FRead(inst.Rs3)
		if ReadsIntSource(inst.Op) {
			rs1 = c.Regs.IRead(inst.Rs1)
		}
		return rs1, rs2, rs3
	}
	return c.Regs.IRead(inst.Rs1), c.Regs.IRead(inst.Rs2), 0
}

// ReadsIntSource reports whether an FP-tagged instruction actually reads
// its first operand from the integer register file: the int-to-float
// FCVTs and FMV.W.X/FMV.D.X.
func ReadsIntSource(op insts.Op) bool {
	switch op {
	case insts.OpFCVT_S_W, insts.OpFCVT_S_WU, insts.OpFCVT_S_L, insts.OpFCVT_S_LU,
		insts.OpFCVT_D_W, insts.OpFCVT_D_WU, insts.OpFCVT_D_L, insts.OpFCVT_D_LU,
		insts.OpFMV_W_X, insts.OpFMV_D_X:
		return true
	default:
		return false
	}
}

// nanBox32 is the F-extension's NaN-boxing pattern: a float32 value
// stored in the lower half of a 64-bit FP register whose upper half is all
// ones, so a later 64-bit read observes a quiet NaN rather than a stale
// value.
const nanBox32 = 0xFFFFFFFF00000000

func (c *SingleCycle) execLoad(inst *insts.Instruction, rs1 uint64) {
	addr := EffectiveAddress(rs1, inst)
	if inst.IsFP {
		if inst.Double {
			c.Regs.FWrite(inst.Rd, c.lsu.LoadFloat64(addr))
		} else {
			c.Regs.FWrite(inst.Rd, nanBox32|uint64(c.lsu.LoadFloat32(addr)))
		}
		c.trace.TraceMem(addr, inst.Width, 0, false)
		return
	}
	value := c.lsu.Load(addr, inst.Width, inst.Signed)
	c.Regs.IWrite(inst.Rd, value)
	c.trace.TraceMem(addr, inst.Width, value, false)
}

func (c *SingleCycle) execStore(inst *insts.Instruction, rs1, rs2 uint64, _ uint64) {
	addr := EffectiveAddress(rs1, inst)
	if inst.IsFP {
		if inst.Double {
			c.lsu.StoreFloat64(addr, rs2)
		} else {
			c.lsu.StoreFloat32(addr, uint32(rs2))
		}
		c.trace.TraceMem(addr, inst.Width, rs2, true)
		return
	}
	c.lsu.Store(addr, inst.Width, rs2)
	c.trace.TraceMem(addr, inst.Width, rs2, true)
}

func (c *SingleCycle) execFP(inst *insts.Instruction, rs1, rs2, rs3 uint64) {
	result, toIntReg := emu.ExecuteFP(c.fpu, inst, rs1, rs2, rs3)
	if toIntReg {
		c.Regs.IWrite(inst.Rd, result)
		return
	}
	if inst.Double {
		c.Regs.FWrite(inst.Rd, result)
	} else {
		c.Regs.FWrite(inst.Rd, nanBox32|result)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
