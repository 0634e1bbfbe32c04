package pipeline

import (
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
)

// DataHazardPolicy selects how the pipeline resolves register
// read-after-write hazards between in-flight instructions.
type DataHazardPolicy int

const (
	// NaiveStall stalls IF/ID on any in-flight RAW dependency, whether or
	// not a forwarding path could have resolved it.
	NaiveStall DataHazardPolicy = iota
	// DataForward forwards EX/MEM and MEM/WB results into EX, stalling
	// only on the load-use hazard a forwarding network cannot beat.
	DataForward
)

// ControlHazardPolicy selects how the pipeline handles conditional
// branches and JALR, whose targets are not known until EX.
type ControlHazardPolicy int

const (
	// AllStall never guesses: IF and ID stall until the branch/JALR
	// resolves in EX, so it never mispredicts by construction.
	AllStall ControlHazardPolicy = iota
	// AlwaysNotTaken guesses fall-through and squashes on a taken branch.
	AlwaysNotTaken
	// AlwaysTaken guesses the branch target and squashes on not-taken.
	AlwaysTaken
	// DynamicPredict consults a Predictor (one-bit or two-bit, per
	// PredictPolicy) backed by a branch target buffer.
	DynamicPredict
)

// PredictPolicy selects the dynamic predictor implementation used under
// DynamicPredict.
type PredictPolicy int

const (
	// OneBitPredict uses a single-bit last-outcome predictor.
	OneBitPredict PredictPolicy = iota
	// TwoBitPredict uses a two-bit saturating-counter predictor.
	TwoBitPredict
)

// Statistics accumulates the pipeline's running counters, read out at the
// end of a run to compute CPI and other diagnostics.
type Statistics struct {
	Cycles               uint64
	Instructions         uint64
	Stalls               uint64
	Flushes              uint64
	DataHazards          uint64
	BranchPredictions    uint64
	BranchCorrect        uint64
	BranchMispredictions uint64
}

// CPI returns cycles retired per instruction, or 0 if none have retired.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for constructing a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineTrace attaches trace hooks to the pipeline.
func WithPipelineTrace(trace emu.TraceConfig) PipelineOption {
	return func(p *Pipeline) { p.trace = trace }
}

// WithPipelineSyscallHandler overrides the default syscall handler.
func WithPipelineSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) { p.syscall = handler }
}

// WithDataHazardPolicy selects the data-hazard policy; default NaiveStall.
func WithDataHazardPolicy(policy DataHazardPolicy) PipelineOption {
	return func(p *Pipeline) { p.dataPolicy = policy }
}

// WithControlHazardPolicy selects the control-hazard policy; default
// AllStall.
func WithControlHazardPolicy(policy ControlHazardPolicy) PipelineOption {
	return func(p *Pipeline) { p.controlPolicy = policy }
}

// WithPredictorConfig selects the dynamic predictor implementation and its
// table sizes, used only under DynamicPredict.
func WithPredictorConfig(policy PredictPolicy, cfg PredictorConfig) PipelineOption {
	return func(p *Pipeline) {
		if policy == TwoBitPredict {
			p.predictor = NewTwoBitPredictor(cfg)
		} else {
			p.predictor = NewOneBitPredictor(cfg)
		}
	}
}

// Pipeline implements C7: a 5-stage in-order RV64IFD pipeline (IF, ID, EX,
// MEM, WB) over the same functional units (ALU, FPU, LoadStoreUnit) the
// single-cycle and multi-cycle variants use, so all three agree on
// architectural effects and differ only in timing.
//
// Tick updates the four latches in reverse pipeline order — WB, MEM, EX,
// ID, IF — so each stage's primary input latch is always consumed before
// its writer stage overwrites it for the next instruction. EX's
// forwarding lookups are the one exception: they read "as of this tick's
// start" snapshots of EX/MEM and MEM/WB, taken before WB/MEM run, since
// those stages' own writes this tick must not be visible to forwarding
// until the following tick.
type Pipeline struct {
	Regs   *emu.RegFile
	Memory *emu.Memory

	decoder *insts.Decoder
	alu     *emu.ALU
	fpu     *emu.FPU
	lsu     *emu.LoadStoreUnit
	syscall emu.SyscallHandler

	trace emu.TraceConfig

	hazard        *HazardUnit
	predictor     Predictor
	dataPolicy    DataHazardPolicy
	controlPolicy ControlHazardPolicy

	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	fetchPC uint64

	// stallFetch/awaitingBranchResolve carry state across ticks for the
	// all-stall policy: once ID decodes a branch/JALR under all-stall, IF
	// stays stalled and IF/ID forcibly invalid every tick until EX
	// resolves it.
	stallFetch            bool
	awaitingBranchResolve bool

	stats Statistics

	Halted     bool
	HaltStatus uint64
	Retired    uint64
}

// NewPipeline creates a 5-stage pipeline CPU over the given memory, with
// NaiveStall/AllStall as the default policies (the most conservative,
// always-correct choice) until overridden by options.
func NewPipeline(memory *emu.Memory, entryPC uint64, opts ...PipelineOption) *Pipeline {
	regs := &emu.RegFile{PC: entryPC}
	p := &Pipeline{
		Regs:          regs,
		Memory:        memory,
		decoder:       insts.NewDecoder(),
		alu:           emu.NewALU(regs),
		fpu:           emu.NewFPU(regs),
		lsu:           emu.NewLoadStoreUnit(regs, memory),
		hazard:        NewHazardUnit(),
		predictor:     NewTwoBitPredictor(DefaultPredictorConfig()),
		dataPolicy:    NaiveStall,
		controlPolicy: AllStall,
		fetchPC:       entryPC,
	}
	p.syscall = emu.NewDefaultSyscallHandler(regs, memory, nopWriter{}, nopWriter{})
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the pipeline's running statistics.
func (p *Pipeline) Stats() Statistics { return p.stats }

// Run ticks the pipeline until it halts or a guest-fatal error occurs.
func (p *Pipeline) Run() error {
	for !p.Halted {
		if err := p.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick advances every pipeline stage by one cycle. Stages run in reverse
// order (WB, MEM, EX, ID, IF) so each consumes its input latch before
// that latch's writer stage runs later in the same Tick; EX receives
// pre-tick snapshots of EX/MEM and MEM/WB for forwarding specifically
// because those two stages' own writes happen earlier in this same
// sequence and must not leak into this tick's forwarding decisions.
func (p *Pipeline) Tick() error {
	p.stats.Cycles++

	oldExMem := p.exmem
	oldMemWb := p.memwb

	if p.awaitingBranchResolve {
		p.ifid.Clear()
		p.stallFetch = true
	} else {
		p.stallFetch = false
	}

	p.tickWB()
	if p.Halted {
		// Nothing younger than the halting instruction may change
		// architectural state, so the remaining stages do not run.
		return nil
	}
	p.tickMEM()
	p.tickEX(oldExMem, oldMemWb)
	if err := p.tickID(); err != nil {
		return err
	}
	p.tickIF()

	return nil
}

type nopWriter struct{}

func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }
