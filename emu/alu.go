package emu

// ALU implements RV64I integer arithmetic, logic, shift, and comparison
// operations, plus the M extension's multiply and divide family. It holds
// no state of its own; every operation takes its operands as plain values
// and returns a result, leaving the caller to decide which register gets
// written.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file. The
// register file is unused by the arithmetic methods themselves (they are
// pure functions of their operands) but is kept so the ALU's construction
// mirrors every other functional unit's.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Add computes rs1 + rs2 (doubleword).
func (a *ALU) Add(rs1, rs2 uint64) uint64 { return rs1 + rs2 }

// Sub computes rs1 - rs2 (doubleword).
func (a *ALU) Sub(rs1, rs2 uint64) uint64 { return rs1 - rs2 }

// And computes rs1 & rs2.
func (a *ALU) And(rs1, rs2 uint64) uint64 { return rs1 & rs2 }

// Or computes rs1 | rs2.
func (a *ALU) Or(rs1, rs2 uint64) uint64 { return rs1 | rs2 }

// Xor computes rs1 ^ rs2.
func (a *ALU) Xor(rs1, rs2 uint64) uint64 { return rs1 ^ rs2 }

// Sll computes a logical left shift by the low 6 bits of the shift amount.
func (a *ALU) Sll(rs1, shamt uint64) uint64 { return rs1 << (shamt & 0x3f) }

// Srl computes a logical right shift by the low 6 bits of the shift amount.
func (a *ALU) Srl(rs1, shamt uint64) uint64 { return rs1 >> (shamt & 0x3f) }

// Sra computes an arithmetic right shift by the low 6 bits of the shift
// amount, sign-extending from bit 63.
func (a *ALU) Sra(rs1, shamt uint64) uint64 {
	return uint64(int64(rs1) >> (shamt & 0x3f))
}

// Slt computes the signed less-than comparison, 1 or 0.
func (a *ALU) Slt(rs1, rs2 uint64) uint64 {
	if int64(rs1) < int64(rs2) {
		return 1
	}
	return 0
}

// Sltu computes the unsigned less-than comparison, 1 or 0.
func (a *ALU) Sltu(rs1, rs2 uint64) uint64 {
	if rs1 < rs2 {
		return 1
	}
	return 0
}

func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// AddW computes the 32-bit sum of rs1 and rs2, sign-extended to 64 bits.
func (a *ALU) AddW(rs1, rs2 uint64) uint64 {
	return signExtend32(uint32(rs1) + uint32(rs2))
}

// SubW computes the 32-bit difference, sign-extended to 64 bits.
func (a *ALU) SubW(rs1, rs2 uint64) uint64 {
	return signExtend32(uint32(rs1) - uint32(rs2))
}

// SllW computes a 32-bit logical left shift by the low 5 bits of the shift
// amount, sign-extended to 64 bits.
func (a *ALU) SllW(rs1, shamt uint64) uint64 {
	return signExtend32(uint32(rs1) << (shamt & 0x1f))
}

// SrlW computes a 32-bit logical right shift by the low 5 bits of the
// shift amount, sign-extended to 64 bits.
func (a *ALU) SrlW(rs1, shamt uint64) uint64 {
	return signExtend32(uint32(rs1) >> (shamt & 0x1f))
}

// SraW computes a 32-bit arithmetic right shift by the low 5 bits of the
// shift amount, sign-extended to 64 bits.
func (a *ALU) SraW(rs1, shamt uint64) uint64 {
	return signExtend32(uint32(int32(uint32(rs1)) >> (shamt & 0x1f)))
}

// Mul computes the low 64 bits of rs1*rs2. The low bits of a product don't
// depend on operand signedness, so this serves both signed and unsigned
// multiplication.
func (a *ALU) Mul(rs1, rs2 uint64) uint64 { return rs1 * rs2 }

// MulW computes the low 32 bits of rs1*rs2, sign-extended to 64 bits.
func (a *ALU) MulW(rs1, rs2 uint64) uint64 {
	return signExtend32(uint32(rs1) * uint32(rs2))
}

// bits64Mul returns the full 128-bit unsigned product of x and y as
// (high 64 bits, low 64 bits).
func bits64Mul(x, y uint64) (hi, lo uint64) {
	const mask32 = 0xffffffff
	x0, x1 := x&mask32, x>>32
	y0, y1 := y&mask32, y>>32
	t := x0 * y0
	w0 := t & mask32
	k := t >> 32
	t = x1*y0 + k
	w1 := t & mask32
	w2 := t >> 32
	t = x0*y1 + w1
	k = t >> 32
	lo = t<<32 | w0
	hi = x1*y1 + w2 + k
	return hi, lo
}

// Mulh computes the high 64 bits of the signed 128-bit product of rs1 and
// rs2.
func (a *ALU) Mulh(rs1, rs2 uint64) uint64 {
	negX, negY := int64(rs1) < 0, int64(rs2) < 0
	ux, uy := rs1, rs2
	if negX {
		ux = -rs1
	}
	if negY {
		uy = -rs2
	}
	hi, lo := bits64Mul(ux, uy)
	if negX != negY {
		lo = ^lo + 1
		hi = ^hi
		if lo == 0 {
			hi++
		}
	}
	return hi
}

// Mulhu computes the high 64 bits of the unsigned 128-bit product of rs1
// and rs2.
func (a *ALU) Mulhu(rs1, rs2 uint64) uint64 {
	hi, _ := bits64Mul(rs1, rs2)
	return hi
}

// Mulhsu computes the high 64 bits of the 128-bit product of signed rs1
// and unsigned rs2.
func (a *ALU) Mulhsu(rs1, rs2 uint64) uint64 {
	neg := int64(rs1) < 0
	ux := rs1
	if neg {
		ux = -rs1
	}
	hi, lo := bits64Mul(ux, rs2)
	if !neg {
		return hi
	}
	lo = ^lo + 1
	hi = ^hi
	if lo == 0 {
		hi++
	}
	return hi
}

var minInt64 int64 = -1 << 63
var minInt32 int32 = -1 << 31

// Div computes signed division. Division by zero yields all-ones (-1), per
// the RISC-V base ISA's non-trapping convention; the single representable
// overflow case, INT64_MIN / -1, yields INT64_MIN.
func (a *ALU) Div(rs1, rs2 uint64) uint64 {
	n, d := int64(rs1), int64(rs2)
	if d == 0 {
		return ^uint64(0)
	}
	if n == minInt64 && d == -1 {
		return uint64(minInt64)
	}
	return uint64(n / d)
}

// Divu computes unsigned division. Division by zero yields all-ones.
func (a *ALU) Divu(rs1, rs2 uint64) uint64 {
	if rs2 == 0 {
		return ^uint64(0)
	}
	return rs1 / rs2
}

// Rem computes the signed remainder. Division by zero yields the dividend
// unchanged. INT64_MIN % -1 yields 0.
func (a *ALU) Rem(rs1, rs2 uint64) uint64 {
	n, d := int64(rs1), int64(rs2)
	if d == 0 {
		return rs1
	}
	if n == minInt64 && d == -1 {
		return 0
	}
	return uint64(n % d)
}

// Remu computes the unsigned remainder. Division by zero yields the
// dividend unchanged.
func (a *ALU) Remu(rs1, rs2 uint64) uint64 {
	if rs2 == 0 {
		return rs1
	}
	return rs1 % rs2
}

// DivW computes the 32-bit signed division, sign-extended to 64 bits, with
// the same zero-divisor and overflow conventions as Div.
func (a *ALU) DivW(rs1, rs2 uint64) uint64 {
	n, d := int32(uint32(rs1)), int32(uint32(rs2))
	if d == 0 {
		return ^uint64(0)
	}
	if n == minInt32 && d == -1 {
		return signExtend32(uint32(minInt32))
	}
	return signExtend32(uint32(n / d))
}

// DivuW computes the 32-bit unsigned division, sign-extended to 64 bits.
func (a *ALU) DivuW(rs1, rs2 uint64) uint64 {
	n, d := uint32(rs1), uint32(rs2)
	if d == 0 {
		return ^uint64(0)
	}
	return signExtend32(n / d)
}

// RemW computes the 32-bit signed remainder, sign-extended to 64 bits.
func (a *ALU) RemW(rs1, rs2 uint64) uint64 {
	n, d := int32(uint32(rs1)), int32(uint32(rs2))
	if d == 0 {
		return signExtend32(uint32(n))
	}
	if n == minInt32 && d == -1 {
		return 0
	}
	return signExtend32(uint32(n % d))
}

// RemuW computes the 32-bit unsigned remainder, sign-extended to 64 bits.
func (a *ALU) RemuW(rs1, rs2 uint64) uint64 {
	n, d := uint32(rs1), uint32(rs2)
	if d == 0 {
		return signExtend32(n)
	}
	return signExtend32(n % d)
}
