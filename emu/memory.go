// Package emu provides functional RV64IFD emulation: the register file,
// memory, and the stateless functional units every CPU variant is built on.
package emu

// Memory is flat byte-addressed guest RAM. Reads of an address that was
// never written return zero; writes to any address always succeed. Both
// properties hold regardless of alignment — there is no fault path.
//
// Storage is sparse (page-backed) because guest address spaces place code
// and data at a low base and the stack near the top of a 64-bit range;
// allocating a contiguous slice sized to the highest touched address would
// waste gigabytes for a few kilobytes of actual content.
type Memory struct {
	pages map[uint64][]byte
}

const pageSize = 4096
const pageMask = pageSize - 1

// NewMemory creates an empty guest address space.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

func (m *Memory) page(addr uint64, create bool) []byte {
	base := addr &^ uint64(pageMask)
	p, ok := m.pages[base]
	if !ok {
		if !create {
			return nil
		}
		p = make([]byte, pageSize)
		m.pages[base] = p
	}
	return p
}

// Read8 reads a single byte.
func (m *Memory) Read8(addr uint64) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes a single byte.
func (m *Memory) Write8(addr uint64, v uint8) {
	p := m.page(addr, true)
	p[addr&pageMask] = v
}

// Read16 reads a little-endian halfword. Misaligned addresses are handled
// bytewise with no fault.
func (m *Memory) Read16(addr uint64) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, v uint16) {
	m.Write8(addr, uint8(v))
	m.Write8(addr+1, uint8(v>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, v uint32) {
	m.Write16(addr, uint16(v))
	m.Write16(addr+2, uint16(v>>16))
}

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	return uint64(m.Read32(addr)) | uint64(m.Read32(addr+4))<<32
}

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint64, v uint64) {
	m.Write32(addr, uint32(v))
	m.Write32(addr+4, uint32(v>>32))
}

// Read reads width bytes (1, 2, 4, or 8) and returns them zero-extended.
// Sign-extension, if the caller's instruction requires it, is applied by
// the caller — Memory itself has no notion of signedness.
func (m *Memory) Read(addr uint64, width int) uint64 {
	switch width {
	case 1:
		return uint64(m.Read8(addr))
	case 2:
		return uint64(m.Read16(addr))
	case 4:
		return uint64(m.Read32(addr))
	case 8:
		return m.Read64(addr)
	default:
		panic("emu: unsupported memory access width")
	}
}

// Write stores the low width bytes (1, 2, 4, or 8) of value.
func (m *Memory) Write(addr uint64, width int, value uint64) {
	switch width {
	case 1:
		m.Write8(addr, uint8(value))
	case 2:
		m.Write16(addr, uint16(value))
	case 4:
		m.Write32(addr, uint32(value))
	case 8:
		m.Write64(addr, value)
	default:
		panic("emu: unsupported memory access width")
	}
}

// FetchInstruction reads the 32-bit instruction word at addr. Instruction
// fetch has no separate semantics from a regular 4-byte load; the method
// exists so call sites read clearly.
func (m *Memory) FetchInstruction(addr uint64) uint32 {
	return m.Read32(addr)
}

// LoadSegment copies data into memory starting at addr, then zero-fills up
// to memSize bytes (the BSS tail of an ELF segment whose file size is
// smaller than its memory size).
func (m *Memory) LoadSegment(addr uint64, data []byte, memSize uint64) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
	for i := uint64(len(data)); i < memSize; i++ {
		m.Write8(addr+i, 0)
	}
}
