package emu

import "github.com/rvsim/rvsim/insts"

// CallKind distinguishes a call from a return for FTrace.
type CallKind int

const (
	// CallKindCall marks a JAL with rd=ra.
	CallKindCall CallKind = iota
	// CallKindReturn marks a JALR with rd=x0, rs1=ra.
	CallKindReturn
)

// TraceConfig holds the optional event hooks a CPU variant invokes
// synchronously as it runs. Every hook is a plain function value; a nil
// hook is simply not called. Disabling every hook must not change any
// architectural outcome — callers pass an empty TraceConfig{} to get a
// silent run instead of a special "tracing off" mode.
type TraceConfig struct {
	// ITrace is invoked once per committed instruction.
	ITrace func(pc uint64, inst *insts.Instruction, raw uint32)

	// MTrace is invoked once per memory access, committed or not.
	MTrace func(addr uint64, width int, value uint64, isWrite bool)

	// FTrace is invoked when a committed instruction is a call or
	// return, per the JAL(rd=ra)/JALR(rd=x0,rs1=ra) convention.
	FTrace func(callerPC, targetPC uint64, kind CallKind)

	// PipelineInfo is the hook for a formatted per-tick pipeline
	// snapshot. cmd/rvsim sets it when any of the
	// --pre/--post/--pipeline-info flags are enabled, but no CPU variant
	// in this module calls it, so it produces no output.
	PipelineInfo func(tag string, snapshot string)
}

func (t TraceConfig) trace(pc uint64, inst *insts.Instruction, raw uint32) {
	if t.ITrace != nil {
		t.ITrace(pc, inst, raw)
	}
	if t.FTrace != nil {
		if inst.IsCall() {
			t.FTrace(pc, pc+uint64(inst.Imm), CallKindCall)
		} else if inst.IsReturn() {
			t.FTrace(pc, 0, CallKindReturn)
		}
	}
}

// Trace records a committed instruction and, if it is a call or return,
// also fires FTrace. CPU variants call this once per retired instruction
// rather than invoking ITrace/FTrace separately, so the call/return
// detection logic lives in one place.
func (t TraceConfig) Trace(pc uint64, inst *insts.Instruction, raw uint32) {
	t.trace(pc, inst, raw)
}

// TraceMem records a memory access, committed or not.
func (t TraceConfig) TraceMem(addr uint64, width int, value uint64, isWrite bool) {
	if t.MTrace != nil {
		t.MTrace(addr, width, value, isWrite)
	}
}
