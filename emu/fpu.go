package emu

import "math"

// FPU implements the F/D extension's arithmetic, comparison, and
// conversion operations. Every numeric result is computed by Go's math
// package and the host float32/float64 types; this unit's job is limited
// to bit-level plumbing (NaN-boxing, sign manipulation, classification)
// around that host arithmetic, per this simulator's choice to delegate FP
// numerics to the host rather than reimplement IEEE 754 rounding modes.
type FPU struct {
	regFile *RegFile
}

// NewFPU creates a new FPU connected to the given register file.
func NewFPU(regFile *RegFile) *FPU {
	return &FPU{regFile: regFile}
}

// AddS, SubS, MulS, DivS implement FADD.S/FSUB.S/FMUL.S/FDIV.S.
func (f *FPU) AddS(a, b float32) float32 { return a + b }
func (f *FPU) SubS(a, b float32) float32 { return a - b }
func (f *FPU) MulS(a, b float32) float32 { return a * b }
func (f *FPU) DivS(a, b float32) float32 { return a / b }

// SqrtS implements FSQRT.S.
func (f *FPU) SqrtS(a float32) float32 { return float32(math.Sqrt(float64(a))) }

// AddD, SubD, MulD, DivD implement the double-precision equivalents.
func (f *FPU) AddD(a, b float64) float64 { return a + b }
func (f *FPU) SubD(a, b float64) float64 { return a - b }
func (f *FPU) MulD(a, b float64) float64 { return a * b }
func (f *FPU) DivD(a, b float64) float64 { return a / b }

// SqrtD implements FSQRT.D.
func (f *FPU) SqrtD(a float64) float64 { return math.Sqrt(a) }

// MinS and MaxS implement FMIN.S/FMAX.S with RISC-V's NaN-propagation
// rule: if exactly one operand is NaN, the other is returned; if both are
// NaN, a quiet NaN is returned.
func (f *FPU) MinS(a, b float32) float32 {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a < b || (a == 0 && b == 0 && math.Signbit(float64(a))) {
		return a
	}
	return b
}

func (f *FPU) MaxS(a, b float32) float32 {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return float32(math.NaN())
	}
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a > b || (a == 0 && b == 0 && !math.Signbit(float64(a))) {
		return a
	}
	return b
}

func (f *FPU) MinD(a, b float64) float64 {
	if math.IsNaN(a) && math.IsNaN(b) {
		return math.NaN()
	}
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a < b || (a == 0 && b == 0 && math.Signbit(a)) {
		return a
	}
	return b
}

func (f *FPU) MaxD(a, b float64) float64 {
	if math.IsNaN(a) && math.IsNaN(b) {
		return math.NaN()
	}
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a > b || (a == 0 && b == 0 && !math.Signbit(a)) {
		return a
	}
	return b
}

// SgnjS, SgnjnS, SgnjxS implement FSGNJ.S/FSGNJN.S/FSGNJX.S: combine the
// magnitude of a with a sign derived from b.
func (f *FPU) SgnjS(a, b float32) float32 {
	return f.withSignS(a, math.Signbit(float64(b)))
}
func (f *FPU) SgnjnS(a, b float32) float32 {
	return f.withSignS(a, !math.Signbit(float64(b)))
}
func (f *FPU) SgnjxS(a, b float32) float32 {
	return f.withSignS(a, math.Signbit(float64(a)) != math.Signbit(float64(b)))
}

func (f *FPU) withSignS(a float32, neg bool) float32 {
	bits := math.Float32bits(a) &^ (1 << 31)
	if neg {
		bits |= 1 << 31
	}
	return math.Float32frombits(bits)
}

// SgnjD, SgnjnD, SgnjxD are the double-precision equivalents.
func (f *FPU) SgnjD(a, b float64) float64  { return f.withSignD(a, math.Signbit(b)) }
func (f *FPU) SgnjnD(a, b float64) float64 { return f.withSignD(a, !math.Signbit(b)) }
func (f *FPU) SgnjxD(a, b float64) float64 {
	return f.withSignD(a, math.Signbit(a) != math.Signbit(b))
}

func (f *FPU) withSignD(a float64, neg bool) float64 {
	bits := math.Float64bits(a) &^ (1 << 63)
	if neg {
		bits |= 1 << 63
	}
	return math.Float64frombits(bits)
}

// EqS, LtS, LeS implement FEQ.S/FLT.S/FLE.S: a quiet comparison that
// yields 0 rather than trapping whenever either operand is NaN.
func (f *FPU) EqS(a, b float32) bool { return a == b }
func (f *FPU) LtS(a, b float32) bool { return a < b }
func (f *FPU) LeS(a, b float32) bool { return a <= b }

func (f *FPU) EqD(a, b float64) bool { return a == b }
func (f *FPU) LtD(a, b float64) bool { return a < b }
func (f *FPU) LeD(a, b float64) bool { return a <= b }

// ClassS implements FCLASS.S, returning the ten-bit class mask defined by
// the F extension (bit 0 = -inf ... bit 9 = quiet NaN).
func (f *FPU) ClassS(a float32) uint64 {
	return classify(float64(a), math.Signbit(float64(a)), isSubnormal32(a))
}

// ClassD implements FCLASS.D.
func (f *FPU) ClassD(a float64) uint64 {
	return classify(a, math.Signbit(a), isSubnormal64(a))
}

func isSubnormal32(a float32) bool {
	bits := math.Float32bits(a)
	exp := (bits >> 23) & 0xff
	mant := bits & 0x7fffff
	return exp == 0 && mant != 0
}

func isSubnormal64(a float64) bool {
	bits := math.Float64bits(a)
	exp := (bits >> 52) & 0x7ff
	mant := bits & 0xfffffffffffff
	return exp == 0 && mant != 0
}

func classify(a float64, neg, subnormal bool) uint64 {
	switch {
	case math.IsNaN(a):
		// This simulator does not distinguish signaling from quiet NaN
		// bit patterns produced by the host; every NaN classifies quiet.
		return 1 << 9
	case math.IsInf(a, -1):
		return 1 << 0
	case math.IsInf(a, 1):
		return 1 << 7
	case a == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	case subnormal:
		if neg {
			return 1 << 2
		}
		return 1 << 5
	default:
		if neg {
			return 1 << 1
		}
		return 1 << 6
	}
}

// CvtWS, CvtWuS, CvtLS, CvtLuS implement FCVT.W.S/WU.S/L.S/LU.S: convert a
// float32 to a signed/unsigned 32- or 64-bit integer, saturating at the
// representable range's bounds instead of trapping on overflow, per the
// F extension's conversion rules.
func (f *FPU) CvtWS(a float32) uint64  { return signExtend32(uint32(satI32(float64(a)))) }
func (f *FPU) CvtWuS(a float32) uint64 { return signExtend32(satU32(float64(a))) }
func (f *FPU) CvtLS(a float32) uint64  { return uint64(satI64(float64(a))) }
func (f *FPU) CvtLuS(a float32) uint64 { return satU64(float64(a)) }

func (f *FPU) CvtWD(a float64) uint64  { return signExtend32(uint32(satI32(a))) }
func (f *FPU) CvtWuD(a float64) uint64 { return signExtend32(satU32(a)) }
func (f *FPU) CvtLD(a float64) uint64  { return uint64(satI64(a)) }
func (f *FPU) CvtLuD(a float64) uint64 { return satU64(a) }

func satI32(a float64) int32 {
	if math.IsNaN(a) {
		return 0
	}
	if a >= math.MaxInt32 {
		return math.MaxInt32
	}
	if a <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(a)
}

func satU32(a float64) uint32 {
	if math.IsNaN(a) || a <= 0 {
		return 0
	}
	if a >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(a)
}

func satI64(a float64) int64 {
	if math.IsNaN(a) {
		return 0
	}
	if a >= math.MaxInt64 {
		return math.MaxInt64
	}
	if a <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(a)
}

func satU64(a float64) uint64 {
	if math.IsNaN(a) || a <= 0 {
		return 0
	}
	if a >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(a)
}

// CvtSW, CvtSWu, CvtSL, CvtSLu implement FCVT.S.W/WU/L/LU: convert an
// integer to float32.
func (f *FPU) CvtSW(a int32) float32  { return float32(a) }
func (f *FPU) CvtSWu(a uint32) float32 { return float32(a) }
func (f *FPU) CvtSL(a int64) float32  { return float32(a) }
func (f *FPU) CvtSLu(a uint64) float32 { return float32(a) }

// CvtDW, CvtDWu, CvtDL, CvtDLu convert an integer to float64.
func (f *FPU) CvtDW(a int32) float64  { return float64(a) }
func (f *FPU) CvtDWu(a uint32) float64 { return float64(a) }
func (f *FPU) CvtDL(a int64) float64  { return float64(a) }
func (f *FPU) CvtDLu(a uint64) float64 { return float64(a) }

// CvtSD implements FCVT.S.D (narrowing).
func (f *FPU) CvtSD(a float64) float32 { return float32(a) }

// CvtDS implements FCVT.D.S (widening, always exact).
func (f *FPU) CvtDS(a float32) float64 { return float64(a) }

// FmaS implements the fused multiply-add family (FMADD/FMSUB/FNMSUB/
// FNMADD).S: a*b+c with ±a and ±c applied by the caller per the specific
// fused op.
func (f *FPU) FmaS(a, b, c float32) float32 { return float32(math.FMA(float64(a), float64(b), float64(c))) }

// FmaD implements the double-precision fused multiply-add.
func (f *FPU) FmaD(a, b, c float64) float64 { return math.FMA(a, b, c) }
