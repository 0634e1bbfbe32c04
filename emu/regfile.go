package emu

// RegFile holds the RV64IFD architectural register state: 32 integer
// registers, 32 floating-point registers, and the program counter. X[0] is
// hardwired to zero; IWrite silently discards writes to it rather than the
// caller having to special-case register 0 everywhere.
type RegFile struct {
	// X holds the integer registers x0-x31. X[0] always reads as zero.
	X [32]uint64

	// F holds the floating-point registers f0-f31, bit-patterns for either
	// a float32 (NaN-boxed in the upper 32 bits per the F extension) or a
	// float64 value. Numerics themselves are delegated to math/host float
	// operations; this field only carries the bits between instructions.
	F [32]uint64

	// PC is the program counter, kept outside the register file proper.
	PC uint64
}

// IRead reads an integer register. x0 always reads as zero.
func (r *RegFile) IRead(i uint8) uint64 {
	if i == 0 {
		return 0
	}
	return r.X[i]
}

// IWrite writes an integer register. Writes to x0 are silently discarded.
func (r *RegFile) IWrite(i uint8, v uint64) {
	if i == 0 {
		return
	}
	r.X[i] = v
}

// FRead reads a floating-point register's raw bit pattern.
func (r *RegFile) FRead(i uint8) uint64 {
	return r.F[i]
}

// FWrite writes a floating-point register's raw bit pattern.
func (r *RegFile) FWrite(i uint8, v uint64) {
	r.F[i] = v
}

// FReadFloat32 reads register i as a NaN-boxed float32.
func (r *RegFile) FReadFloat32(i uint8) float32 {
	return float32FromBits(uint32(r.F[i]))
}

// FWriteFloat32 writes a float32 into register i, NaN-boxed into the upper
// 32 bits per the F extension so a later 64-bit read of the register
// (FSD, FMV.X.D, a D-extension op) sees a quiet NaN rather than a stale
// 64-bit value.
func (r *RegFile) FWriteFloat32(i uint8, v float32) {
	r.F[i] = 0xFFFFFFFF00000000 | uint64(float32Bits(v))
}

// FReadFloat64 reads register i as a float64.
func (r *RegFile) FReadFloat64(i uint8) float64 {
	return float64FromBits(r.F[i])
}

// FWriteFloat64 writes a float64 into register i.
func (r *RegFile) FWriteFloat64(i uint8, v float64) {
	r.F[i] = float64Bits(v)
}

// abiNames maps RISC-V ABI register names to integer register indices.
var abiNames = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// RegByABIName resolves a RISC-V ABI register name (e.g. "a0", "sp") to an
// integer register index. The second return value is false for unknown
// names.
func RegByABIName(name string) (uint8, bool) {
	i, ok := abiNames[name]
	return i, ok
}
