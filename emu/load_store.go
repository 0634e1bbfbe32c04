package emu

// LoadStoreUnit implements RV64I's byte/half/word/doubleword loads and
// stores, plus the F/D extension's FLW/FLD/FSW/FSD. Address generation
// (base register + sign-extended offset) is the caller's job, since the
// offset's encoding differs between the I-type loads and the S-type
// stores; this unit only ever sees a resolved address.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile, memory: memory}
}

// Load reads width bytes from addr and returns them sign- or
// zero-extended to 64 bits per signed, for LB/LH/LW/LD/LBU/LHU/LWU.
func (lsu *LoadStoreUnit) Load(addr uint64, width int, signed bool) uint64 {
	v := lsu.memory.Read(addr, width)
	if !signed {
		return v
	}
	switch width {
	case 1:
		return uint64(int64(int8(v)))
	case 2:
		return uint64(int64(int16(v)))
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

// Store writes the low width bytes of value to addr, for SB/SH/SW/SD.
func (lsu *LoadStoreUnit) Store(addr uint64, width int, value uint64) {
	lsu.memory.Write(addr, width, value)
}

// LoadFloat32 reads a 32-bit value from addr for FLW. The caller is
// responsible for NaN-boxing it into the destination FP register.
func (lsu *LoadStoreUnit) LoadFloat32(addr uint64) uint32 {
	return lsu.memory.Read32(addr)
}

// StoreFloat32 writes the low 32 bits of an FP register's bit pattern to
// addr for FSW.
func (lsu *LoadStoreUnit) StoreFloat32(addr uint64, bits uint32) {
	lsu.memory.Write32(addr, bits)
}

// LoadFloat64 reads a 64-bit value from addr for FLD.
func (lsu *LoadStoreUnit) LoadFloat64(addr uint64) uint64 {
	return lsu.memory.Read64(addr)
}

// StoreFloat64 writes a 64-bit FP register's bit pattern to addr for FSD.
func (lsu *LoadStoreUnit) StoreFloat64(addr uint64, bits uint64) {
	lsu.memory.Write64(addr, bits)
}
