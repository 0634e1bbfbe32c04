// Package main provides the entry point for rvsim, a cycle-level RV64IFD
// instruction-set simulator with pluggable single-cycle, multi-cycle, and
// 5-stage pipeline CPU variants.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rvsim/rvsim/config"
	"github.com/rvsim/rvsim/cpu"
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/insts"
	"github.com/rvsim/rvsim/loader"
	"github.com/rvsim/rvsim/timing/pipeline"
)

func main() {
	cfg, image := parseFlags()

	cfg.ImagePath = image
	cfg = config.Resolve(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	os.Exit(run(cfg, os.Stdout, os.Stderr))
}

func parseFlags() (config.RunConfig, string) {
	var cfg config.RunConfig
	var cpuMode, dataPolicy, controlPolicy, predictPolicy, image string

	flag.StringVar(&image, "i", "", "ELF image path (a positional argument is also accepted)")
	flag.StringVar(&cpuMode, "cpu-mode", "", "CPU variant: single, multi, or pipeline")
	flag.StringVar(&dataPolicy, "data-hazard-policy", "", "pipeline data-hazard policy: naive-stall or data-forward")
	flag.StringVar(&controlPolicy, "control-policy", "", "pipeline control-hazard policy: all-stall, always-not-taken, always-taken, or dynamic-predict")
	flag.StringVar(&predictPolicy, "predict-policy", "", "dynamic predictor: one-bit-predict or two-bits-predict")

	flag.BoolVar(&cfg.Debug, "debug", false, "step the simulation under the interactive debugger")
	flag.BoolVar(&cfg.ITrace, "itrace", false, "print one line per committed instruction")
	flag.BoolVar(&cfg.MTrace, "mtrace", false, "print one line per memory access")
	flag.BoolVar(&cfg.FTrace, "ftrace", false, "print one line per call/return")
	flag.BoolVar(&cfg.PrePipelineInfo, "pre-pipeline-info", false, "accepted; no pipeline latch dump is emitted")
	flag.BoolVar(&cfg.PipelineInfo, "pipeline-info", false, "accepted; no pipeline latch dump is emitted")
	flag.BoolVar(&cfg.PostPipelineInfo, "post-pipeline-info", false, "accepted; no pipeline latch dump is emitted")
	flag.BoolVar(&cfg.ControlHazardInfo, "control-hazard-info", false, "accepted; no control-hazard events are printed")
	flag.BoolVar(&cfg.DataHazardInfo, "data-hazard-info", false, "accepted; no data-hazard events are printed")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rvsim [options] -i <program.elf>\n       rvsim [options] <program.elf>\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.CPUMode = config.CPUMode(cpuMode)
	cfg.DataHazardPolicy = config.DataHazardPolicy(dataPolicy)
	cfg.ControlPolicy = config.ControlPolicy(controlPolicy)
	cfg.PredictPolicy = config.PredictPolicy(predictPolicy)

	if image == "" && flag.NArg() > 0 {
		image = flag.Arg(0)
	}
	return cfg, image
}

// exitCodeFor maps a run's terminal error to the process exit code: 0
// pass and 1 guest-fail are produced by run itself on a clean halt, so
// this path only ever sees a *emu.SimError (configuration, i/o, or a
// guest-fatal condition the run could not continue past).
func exitCodeFor(err error) int {
	if simErr, ok := err.(*emu.SimError); ok {
		return simErr.ExitCode()
	}
	return 2
}

func run(cfg config.RunConfig, stdout, stderr *os.File) int {
	prog, err := loader.Load(cfg.ImagePath)
	if err != nil {
		fmt.Fprintf(stderr, "rvsim: %v\n", err)
		return exitCodeFor(emu.NewIOError(err.Error()))
	}

	memory := emu.NewMemory()
	for _, seg := range prog.Segments {
		memory.LoadSegment(seg.VirtAddr, seg.Data, seg.MemSize)
	}

	trace := buildTrace(cfg, stdout)

	switch cfg.CPUMode {
	case config.CPUSingle:
		c := cpu.NewSingleCycle(memory, prog.EntryPoint,
			cpu.WithSingleCycleTrace(trace),
			withSingleCycleIO(memory, stdout, stderr))
		if cfg.Debug {
			return runDebugger(singleCycleHandle(c), os.Stdin, stdout)
		}
		return runSingleCycle(c, stdout, stderr)

	case config.CPUMulti:
		c := cpu.NewMultiCycle(memory, prog.EntryPoint,
			cpu.WithMultiCycleTrace(trace),
			withMultiCycleIO(memory, stdout, stderr))
		if cfg.Debug {
			return runDebugger(multiCycleHandle(c), os.Stdin, stdout)
		}
		return runMultiCycle(c, stdout, stderr)

	default:
		opts := []pipeline.PipelineOption{
			pipeline.WithPipelineTrace(trace),
			withPipelineIO(memory, stdout, stderr),
		}
		opts = append(opts, pipelineHazardOptions(cfg)...)
		p := pipeline.NewPipeline(memory, prog.EntryPoint, opts...)
		if cfg.Debug {
			return runDebugger(pipelineHandle(p), os.Stdin, stdout)
		}
		return runPipeline(p, stdout, stderr)
	}
}

// withSingleCycleIO wires the real process stdout/stderr into the CPU's
// syscall handler. The handler must be built against the CPU's own
// register file, which NewSingleCycle allocates internally, so this
// option reads c.Regs back out at apply time rather than constructing
// the handler up front.
func withSingleCycleIO(memory *emu.Memory, stdout, stderr *os.File) cpu.SingleCycleOption {
	return func(c *cpu.SingleCycle) {
		cpu.WithSingleCycleSyscallHandler(emu.NewDefaultSyscallHandler(c.Regs, memory, stdout, stderr))(c)
	}
}

func withMultiCycleIO(memory *emu.Memory, stdout, stderr *os.File) cpu.MultiCycleOption {
	return func(c *cpu.MultiCycle) {
		cpu.WithMultiCycleSyscallHandler(emu.NewDefaultSyscallHandler(c.Regs, memory, stdout, stderr))(c)
	}
}

func withPipelineIO(memory *emu.Memory, stdout, stderr *os.File) pipeline.PipelineOption {
	return func(p *pipeline.Pipeline) {
		pipeline.WithPipelineSyscallHandler(emu.NewDefaultSyscallHandler(p.Regs, memory, stdout, stderr))(p)
	}
}

func pipelineHazardOptions(cfg config.RunConfig) []pipeline.PipelineOption {
	var opts []pipeline.PipelineOption

	if cfg.DataHazardPolicy == config.DataHazardDataForward {
		opts = append(opts, pipeline.WithDataHazardPolicy(pipeline.DataForward))
	}

	switch cfg.ControlPolicy {
	case config.ControlAlwaysNotTaken:
		opts = append(opts, pipeline.WithControlHazardPolicy(pipeline.AlwaysNotTaken))
	case config.ControlAlwaysTaken:
		opts = append(opts, pipeline.WithControlHazardPolicy(pipeline.AlwaysTaken))
	case config.ControlDynamicPredict:
		opts = append(opts, pipeline.WithControlHazardPolicy(pipeline.DynamicPredict))
		predict := pipeline.TwoBitPredict
		if cfg.PredictPolicy == config.PredictOneBit {
			predict = pipeline.OneBitPredict
		}
		opts = append(opts, pipeline.WithPredictorConfig(predict, pipeline.DefaultPredictorConfig()))
	}

	return opts
}

func buildTrace(cfg config.RunConfig, out *os.File) emu.TraceConfig {
	var trace emu.TraceConfig

	if cfg.ITrace {
		trace.ITrace = func(pc uint64, inst *insts.Instruction, raw uint32) {
			fmt.Fprintf(out, "itrace: pc=0x%08x raw=0x%08x op=%v\n", pc, raw, inst.Op)
		}
	}
	if cfg.MTrace {
		trace.MTrace = func(addr uint64, width int, value uint64, isWrite bool) {
			dir := "read "
			if isWrite {
				dir = "write"
			}
			fmt.Fprintf(out, "mtrace: %s addr=0x%08x width=%d value=0x%x\n", dir, addr, width, value)
		}
	}
	if cfg.FTrace {
		trace.FTrace = func(callerPC, targetPC uint64, kind emu.CallKind) {
			if kind == emu.CallKindCall {
				fmt.Fprintf(out, "ftrace: call pc=0x%08x -> 0x%08x\n", callerPC, targetPC)
			} else {
				fmt.Fprintf(out, "ftrace: return pc=0x%08x\n", callerPC)
			}
		}
	}
	if cfg.PrePipelineInfo || cfg.PipelineInfo || cfg.PostPipelineInfo {
		trace.PipelineInfo = func(tag, snapshot string) {
			fmt.Fprintf(out, "%s: %s\n", tag, snapshot)
		}
	}

	return trace
}

func runSingleCycle(c *cpu.SingleCycle, stdout, stderr *os.File) int {
	if err := c.Run(); err != nil {
		return reportError(err, stderr)
	}
	fmt.Fprintf(stdout, "\nhalted: status=%d cycles=%d instructions=%d\n", c.HaltStatus, c.Cycles, c.Retired)
	return haltExitCode(c.HaltStatus)
}

func runMultiCycle(c *cpu.MultiCycle, stdout, stderr *os.File) int {
	if err := c.Run(); err != nil {
		return reportError(err, stderr)
	}
	fmt.Fprintf(stdout, "\nhalted: status=%d cycles=%d instructions=%d\n", c.HaltStatus, c.Cycles, c.Retired)
	return haltExitCode(c.HaltStatus)
}

func runPipeline(p *pipeline.Pipeline, stdout, stderr *os.File) int {
	if err := p.Run(); err != nil {
		return reportError(err, stderr)
	}
	stats := p.Stats()
	fmt.Fprintf(stdout, "\nhalted: status=%d cycles=%d instructions=%d cpi=%.3f\n",
		p.HaltStatus, stats.Cycles, p.Retired, stats.CPI())
	fmt.Fprintf(stdout, "stalls=%d flushes=%d data-hazards=%d branch-predictions=%d branch-correct=%d branch-mispredictions=%d\n",
		stats.Stalls, stats.Flushes, stats.DataHazards,
		stats.BranchPredictions, stats.BranchCorrect, stats.BranchMispredictions)
	return haltExitCode(p.HaltStatus)
}

func reportError(err error, stderr *os.File) int {
	fmt.Fprintf(stderr, "rvsim: %v\n", err)
	return exitCodeFor(err)
}

// haltExitCode maps the guest's requested halt status to this process's
// exit code: a zero status is a passing run (exit 0); any other status is
// a guest-reported failure (exit 1), distinct from the simulator-error
// bucket exitCodeFor produces.
func haltExitCode(status uint64) int {
	if status == 0 {
		return 0
	}
	return 1
}
