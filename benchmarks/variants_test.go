package benchmarks

import (
	"testing"

	"github.com/rvsim/rvsim/cpu"
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/timing/pipeline"
)

// runToHalt runs memory (already loaded with a program starting at base)
// to completion on the named CPU variant and returns its halt status,
// failing the test on any simulator error.
func runToHalt(t *testing.T, variant string, memory *emu.Memory) uint64 {
	t.Helper()

	switch variant {
	case "single":
		c := cpu.NewSingleCycle(memory, base)
		if err := c.Run(); err != nil {
			t.Fatalf("%s: run: %v", variant, err)
		}
		return c.HaltStatus

	case "multi":
		c := cpu.NewMultiCycle(memory, base)
		if err := c.Run(); err != nil {
			t.Fatalf("%s: run: %v", variant, err)
		}
		return c.HaltStatus

	case "pipeline":
		p := pipeline.NewPipeline(memory, base)
		if err := p.Run(); err != nil {
			t.Fatalf("%s: run: %v", variant, err)
		}
		return p.HaltStatus

	default:
		t.Fatalf("unknown variant %q", variant)
		return 0
	}
}
