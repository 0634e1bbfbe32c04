package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/timing/pipeline"
)

// Minimal RV64 encoders, grounded on the same bit layouts insts' own
// decoder tests use, extended to the S/B/J forms a pipeline needs to
// exercise loads, stores, and control transfers.

const (
	opcLoad   = 0b0000011
	opcOpImm  = 0b0010011
	opcStore  = 0b0100011
	opcOp     = 0b0110011
	opcBranch = 0b1100011
	opcJAL    = 0b1101111
	opcSystem = 0b1110011
)

func encR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | rs2<<20 | funct7<<25
}

func encI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return opcode | rd<<7 | funct3<<12 | rs1<<15 | (uint32(imm)&0xfff)<<20
}

func encS(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcStore | (u&0x1f)<<7 | funct3<<12 | rs1<<15 | rs2<<20 | ((u>>5)&0x7f)<<25
}

func encB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcBranch | ((u>>11)&1)<<7 | ((u>>1)&0xf)<<8 | funct3<<12 |
		rs1<<15 | rs2<<20 | ((u>>5)&0x3f)<<25 | ((u>>12)&1)<<31
}

func encJAL(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcJAL | rd<<7 | ((u>>12)&0xff)<<12 | ((u>>11)&1)<<20 |
		((u>>1)&0x3ff)<<21 | ((u>>20)&1)<<31
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encI(opcOpImm, rd, 0x0, rs1, imm) }
func add(rd, rs1, rs2 uint32) uint32        { return encR(opcOp, rd, 0x0, rs1, rs2, 0x00) }
func sub(rd, rs1, rs2 uint32) uint32        { return encR(opcOp, rd, 0x0, rs1, rs2, 0x20) }
func lw(rd, rs1 uint32, imm int32) uint32   { return encI(opcLoad, rd, 0x2, rs1, imm) }
func sw(rs1, rs2 uint32, imm int32) uint32  { return encS(0x2, rs1, rs2, imm) }
func beq(rs1, rs2 uint32, imm int32) uint32 { return encB(0x0, rs1, rs2, imm) }
func ecall() uint32                         { return encI(opcSystem, 0, 0x0, 0, 0) }

func loadWords(memory *emu.Memory, base uint64, words []uint32) {
	for i, w := range words {
		memory.Write32(base+uint64(i*4), w)
	}
}

// haltSequence appends the three instructions every test program ends with:
// a0 <- status, a7 <- 93, ecall.
func haltSequence(status int32) []uint32 {
	return []uint32{
		addi(10, 0, status), // a0 = status
		addi(17, 0, 93),     // a7 = HaltSyscallNumber
		ecall(),
	}
}

var _ = Describe("Pipeline", func() {
	const base = 0x1000

	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	Describe("sequential arithmetic", func() {
		It("retires straight-line code and commits the expected result", func() {
			prog := []uint32{
				addi(1, 0, 5),
				addi(2, 0, 7),
				add(3, 1, 2),
			}
			prog = append(prog, haltSequence(0)...)
			loadWords(memory, base, prog)

			p := pipeline.NewPipeline(memory, base)
			Expect(p.Run()).To(Succeed())

			Expect(p.Halted).To(BeTrue())
			Expect(p.HaltStatus).To(BeEquivalentTo(0))
			Expect(p.Regs.IRead(3)).To(BeEquivalentTo(12))
			Expect(p.Retired).To(BeEquivalentTo(len(prog)))
		})
	})

	Describe("load-use hazard", func() {
		program := func() []uint32 {
			prog := []uint32{
				addi(1, 0, 0x100),  // x1 = 0x100 (address)
				addi(2, 0, 42),     // x2 = 42
				sw(1, 2, 0),        // mem[x1] = 42
				lw(3, 1, 0),        // x3 = mem[x1]  (load)
				add(4, 3, 3),       // x4 = x3 + x3  (uses x3 right after the load)
			}
			return append(prog, haltSequence(0)...)
		}

		It("produces the correct result whether or not it forwards", func() {
			for _, policy := range []pipeline.DataHazardPolicy{pipeline.NaiveStall, pipeline.DataForward} {
				prog := program()
				m := emu.NewMemory()
				loadWords(m, base, prog)

				p := pipeline.NewPipeline(m, base, pipeline.WithDataHazardPolicy(policy))
				Expect(p.Run()).To(Succeed())
				Expect(p.Regs.IRead(4)).To(BeEquivalentTo(84))
			}
		})

		It("never needs more cycles under data-forward than under naive-stall", func() {
			progNaive := program()
			mNaive := emu.NewMemory()
			loadWords(mNaive, base, progNaive)
			pNaive := pipeline.NewPipeline(mNaive, base, pipeline.WithDataHazardPolicy(pipeline.NaiveStall))
			Expect(pNaive.Run()).To(Succeed())

			progFwd := program()
			mFwd := emu.NewMemory()
			loadWords(mFwd, base, progFwd)
			pFwd := pipeline.NewPipeline(mFwd, base, pipeline.WithDataHazardPolicy(pipeline.DataForward))
			Expect(pFwd.Run()).To(Succeed())

			Expect(pFwd.Stats().Cycles).To(BeNumerically("<=", pNaive.Stats().Cycles))
		})
	})

	Describe("control hazards", func() {
		// A forward branch that is never taken (x1 != x2), followed by a
		// candidate wrong-path instruction the branch should still reach
		// correctly regardless of policy.
		notTakenProgram := func() []uint32 {
			prog := []uint32{
				addi(1, 0, 1),
				addi(2, 0, 2),
				beq(1, 2, 16), // not taken: falls through
				addi(5, 0, 111),
			}
			return append(prog, haltSequence(0)...)
		}

		It("commits the correct architectural state under every control policy", func() {
			policies := []pipeline.ControlHazardPolicy{
				pipeline.AllStall, pipeline.AlwaysNotTaken, pipeline.AlwaysTaken, pipeline.DynamicPredict,
			}
			for _, policy := range policies {
				prog := notTakenProgram()
				m := emu.NewMemory()
				loadWords(m, base, prog)

				p := pipeline.NewPipeline(m, base, pipeline.WithControlHazardPolicy(policy))
				Expect(p.Run()).To(Succeed())
				Expect(p.Regs.IRead(5)).To(BeEquivalentTo(111))
			}
		})

		It("never mispredicts under all-stall", func() {
			prog := notTakenProgram()
			m := emu.NewMemory()
			loadWords(m, base, prog)

			p := pipeline.NewPipeline(m, base, pipeline.WithControlHazardPolicy(pipeline.AllStall))
			Expect(p.Run()).To(Succeed())
			Expect(p.Stats().BranchMispredictions).To(BeEquivalentTo(0))
		})

		It("mispredicts a not-taken branch under always-taken", func() {
			prog := notTakenProgram()
			m := emu.NewMemory()
			loadWords(m, base, prog)

			p := pipeline.NewPipeline(m, base, pipeline.WithControlHazardPolicy(pipeline.AlwaysTaken))
			Expect(p.Run()).To(Succeed())
			Expect(p.Stats().BranchMispredictions).To(BeNumerically(">=", 1))
		})
	})

	Describe("two-bit predictor convergence", func() {
		It("mispredicts a mostly-not-taken loop exit at most once", func() {
			// x1 counts down from 6 to 0. The loop-exit branch is
			// not-taken on every iteration but the last, so a two-bit
			// predictor starting weakly-not-taken should predict every
			// iteration correctly except the final, taken one.
			prog := []uint32{
				addi(1, 0, 6),       // x1 = 6
				addi(1, 1, -1),      // loop: x1--
				beq(1, 0, 8),        // x1==0: exit (taken); else fall to the back-jump
				encJAL(0, -8),       // back to loop
			}
			prog = append(prog, haltSequence(0)...)

			m := emu.NewMemory()
			loadWords(m, base, prog)

			p := pipeline.NewPipeline(m, base,
				pipeline.WithControlHazardPolicy(pipeline.DynamicPredict),
				pipeline.WithPredictorConfig(pipeline.TwoBitPredict, pipeline.DefaultPredictorConfig()))
			Expect(p.Run()).To(Succeed())

			Expect(p.Regs.IRead(1)).To(BeEquivalentTo(0))
			stats := p.Stats()
			Expect(stats.BranchPredictions).To(BeEquivalentTo(6))
			Expect(stats.BranchMispredictions).To(BeNumerically("<=", 1))
		})
	})
})
