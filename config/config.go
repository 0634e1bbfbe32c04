// Package config assembles a validated RunConfig from CLI flags with
// RVSIM_* environment-variable fallbacks, mirroring the teacher's own
// flag-driven construction but resolving environment overrides through
// github.com/xyproto/env/v2 wherever a flag was left at its zero value.
package config

import (
	"github.com/rvsim/rvsim/emu"
	"github.com/xyproto/env/v2"
)

// CPUMode selects which CPU variant a run constructs.
type CPUMode string

// The three pluggable CPU execution models.
const (
	CPUSingle   CPUMode = "single"
	CPUMulti    CPUMode = "multi"
	CPUPipeline CPUMode = "pipeline"
)

// DataHazardPolicy selects the pipeline's data-hazard handling.
type DataHazardPolicy string

// The two supported data-hazard policies.
const (
	DataHazardNaiveStall  DataHazardPolicy = "naive-stall"
	DataHazardDataForward DataHazardPolicy = "data-forward"
)

// ControlPolicy selects the pipeline's control-hazard handling.
type ControlPolicy string

// The four supported control-hazard policies.
const (
	ControlAllStall       ControlPolicy = "all-stall"
	ControlAlwaysNotTaken ControlPolicy = "always-not-taken"
	ControlAlwaysTaken    ControlPolicy = "always-taken"
	ControlDynamicPredict ControlPolicy = "dynamic-predict"
)

// PredictPolicy selects the dynamic predictor implementation, consulted
// only when ControlPolicy is ControlDynamicPredict.
type PredictPolicy string

// The two supported predictor implementations.
const (
	PredictOneBit  PredictPolicy = "one-bit-predict"
	PredictTwoBits PredictPolicy = "two-bits-predict"
)

// RunConfig is the immutable, validated record a run is constructed from:
// CLI flags with RVSIM_* environment-variable fallbacks resolved, per §13.
type RunConfig struct {
	ImagePath string

	Debug bool

	ITrace bool
	MTrace bool
	FTrace bool

	CPUMode          CPUMode
	DataHazardPolicy DataHazardPolicy
	ControlPolicy    ControlPolicy
	PredictPolicy    PredictPolicy

	PrePipelineInfo   bool
	PipelineInfo      bool
	PostPipelineInfo  bool
	ControlHazardInfo bool
	DataHazardInfo    bool
}

// Defaults returns the configuration a run falls back to absent any flag
// or environment override.
func Defaults() RunConfig {
	return RunConfig{
		CPUMode:          CPUSingle,
		DataHazardPolicy: DataHazardNaiveStall,
		ControlPolicy:    ControlAllStall,
		PredictPolicy:    PredictTwoBits,
	}
}

// Resolve fills any field in cfg that was left at its zero value with its
// RVSIM_* environment variable, falling back to Defaults()'s value if
// neither a flag nor an environment variable set it. Flags the caller
// explicitly set always win over the environment.
func Resolve(cfg RunConfig) RunConfig {
	d := Defaults()

	cfg.ImagePath = orEnvStr(cfg.ImagePath, "RVSIM_IMAGE", "")

	if cfg.CPUMode == "" {
		cfg.CPUMode = CPUMode(env.Str("RVSIM_CPU_MODE", string(d.CPUMode)))
	}
	if cfg.DataHazardPolicy == "" {
		cfg.DataHazardPolicy = DataHazardPolicy(env.Str("RVSIM_DATA_HAZARD_POLICY", string(d.DataHazardPolicy)))
	}
	if cfg.ControlPolicy == "" {
		cfg.ControlPolicy = ControlPolicy(env.Str("RVSIM_CONTROL_POLICY", string(d.ControlPolicy)))
	}
	if cfg.PredictPolicy == "" {
		cfg.PredictPolicy = PredictPolicy(env.Str("RVSIM_PREDICT_POLICY", string(d.PredictPolicy)))
	}

	cfg.Debug = cfg.Debug || env.Bool("RVSIM_DEBUG")
	cfg.ITrace = cfg.ITrace || env.Bool("RVSIM_ITRACE")
	cfg.MTrace = cfg.MTrace || env.Bool("RVSIM_MTRACE")
	cfg.FTrace = cfg.FTrace || env.Bool("RVSIM_FTRACE")
	cfg.PrePipelineInfo = cfg.PrePipelineInfo || env.Bool("RVSIM_PRE_PIPELINE_INFO")
	cfg.PipelineInfo = cfg.PipelineInfo || env.Bool("RVSIM_PIPELINE_INFO")
	cfg.PostPipelineInfo = cfg.PostPipelineInfo || env.Bool("RVSIM_POST_PIPELINE_INFO")
	cfg.ControlHazardInfo = cfg.ControlHazardInfo || env.Bool("RVSIM_CONTROL_HAZARD_INFO")
	cfg.DataHazardInfo = cfg.DataHazardInfo || env.Bool("RVSIM_DATA_HAZARD_INFO")

	return cfg
}

func orEnvStr(flagValue, envVar, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	return env.Str(envVar, fallback)
}

// Validate implements the configuration-error bucket of §7: it rejects
// invalid or incompatible settings before any simulation state is
// constructed.
func (c RunConfig) Validate() error {
	if c.ImagePath == "" {
		return emu.NewConfigurationError("no image path given (-i, or RVSIM_IMAGE)")
	}

	switch c.CPUMode {
	case CPUSingle, CPUMulti, CPUPipeline:
	default:
		return emu.NewConfigurationError("unknown --cpu-mode: " + string(c.CPUMode))
	}

	switch c.DataHazardPolicy {
	case DataHazardNaiveStall, DataHazardDataForward:
	default:
		return emu.NewConfigurationError("unknown --data-hazard-policy: " + string(c.DataHazardPolicy))
	}

	switch c.ControlPolicy {
	case ControlAllStall, ControlAlwaysNotTaken, ControlAlwaysTaken, ControlDynamicPredict:
	default:
		return emu.NewConfigurationError("unknown --control-policy: " + string(c.ControlPolicy))
	}

	switch c.PredictPolicy {
	case PredictOneBit, PredictTwoBits:
	default:
		return emu.NewConfigurationError("unknown --predict-policy: " + string(c.PredictPolicy))
	}

	if c.CPUMode != CPUPipeline {
		if c.DataHazardPolicy != DataHazardNaiveStall || c.ControlPolicy != ControlAllStall {
			return emu.NewConfigurationError("--data-hazard-policy/--control-policy only apply to --cpu-mode pipeline")
		}
	}

	if c.ControlPolicy != ControlDynamicPredict && c.PredictPolicy != PredictTwoBits {
		return emu.NewConfigurationError("--predict-policy requires --control-policy dynamic-predict")
	}

	return nil
}
