package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rvsim/rvsim/cpu"
	"github.com/rvsim/rvsim/emu"
	"github.com/rvsim/rvsim/timing/pipeline"
)

// cpuHandle is the minimal surface the debugger needs from any CPU
// variant. It never mutates architectural state itself: every command
// below either reads state back out or forwards to the variant's own
// Tick, so enabling the debugger cannot change a run's outcome.
type cpuHandle struct {
	tick       func() error
	halted     func() bool
	haltStatus func() uint64
	pc         func() uint64
	intReg     func(i uint8) uint64
	fpReg      func(i uint8) uint64
	mem        *emu.Memory
}

func singleCycleHandle(c *cpu.SingleCycle) cpuHandle {
	return cpuHandle{
		tick:       c.Tick,
		halted:     func() bool { return c.Halted },
		haltStatus: func() uint64 { return c.HaltStatus },
		pc:         func() uint64 { return c.Regs.PC },
		intReg:     c.Regs.IRead,
		fpReg:      c.Regs.FRead,
		mem:        c.Memory,
	}
}

func multiCycleHandle(c *cpu.MultiCycle) cpuHandle {
	return cpuHandle{
		tick:       c.Tick,
		halted:     func() bool { return c.Halted },
		haltStatus: func() uint64 { return c.HaltStatus },
		pc:         func() uint64 { return c.Regs.PC },
		intReg:     c.Regs.IRead,
		fpReg:      c.Regs.FRead,
		mem:        c.Memory,
	}
}

func pipelineHandle(p *pipeline.Pipeline) cpuHandle {
	return cpuHandle{
		tick:       p.Tick,
		halted:     func() bool { return p.Halted },
		haltStatus: func() uint64 { return p.HaltStatus },
		pc:         func() uint64 { return p.Regs.PC },
		intReg:     p.Regs.IRead,
		fpReg:      p.Regs.FRead,
		mem:        p.Memory,
	}
}

// runDebugger drives handle one REPL command at a time, reading from in
// and writing prompts/output to out, until a "quit" command or the
// program halts under "step" or "continue".
func runDebugger(handle cpuHandle, in io.Reader, out io.Writer) int {
	scanner := bufio.NewScanner(in)
	breakpoints := map[uint64]bool{}

	for {
		fmt.Fprintf(out, "(rvsim) ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step":
			n := 1
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			for i := 0; i < n && !handle.halted(); i++ {
				if err := handle.tick(); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return exitCodeFor(err)
				}
			}
			if handle.halted() {
				return reportHalt(handle, out)
			}

		case "continue":
			for first := true; !handle.halted(); first = false {
				// The breakpoint the run is currently stopped at does not
				// stop it again.
				if !first && breakpoints[handle.pc()] {
					fmt.Fprintf(out, "breakpoint hit at pc=0x%x\n", handle.pc())
					break
				}
				if err := handle.tick(); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return exitCodeFor(err)
				}
			}
			if handle.halted() {
				return reportHalt(handle, out)
			}

		case "break":
			if len(fields) < 2 {
				fmt.Fprintf(out, "usage: break <pc>\n")
				continue
			}
			addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 64)
			if err != nil {
				fmt.Fprintf(out, "bad address: %v\n", err)
				continue
			}
			breakpoints[addr] = true

		case "print-reg":
			if len(fields) < 2 {
				fmt.Fprintf(out, "usage: print-reg <name>\n")
				continue
			}
			printReg(handle, out, fields[1])

		case "print-mem":
			if len(fields) < 3 {
				fmt.Fprintf(out, "usage: print-mem <addr> <width>\n")
				continue
			}
			printMem(handle, out, fields[1], fields[2])

		case "quit":
			return 0

		default:
			fmt.Fprintf(out, "unknown command: %s\n", fields[0])
		}
	}

	return 0
}

func printReg(handle cpuHandle, out io.Writer, name string) {
	if name == "pc" {
		fmt.Fprintf(out, "pc = 0x%x\n", handle.pc())
		return
	}
	if strings.HasPrefix(name, "f") && name != "fp" {
		if i, err := strconv.Atoi(name[1:]); err == nil && i >= 0 && i < 32 {
			fmt.Fprintf(out, "%s = 0x%x\n", name, handle.fpReg(uint8(i)))
			return
		}
	}
	if i, ok := emu.RegByABIName(name); ok {
		fmt.Fprintf(out, "%s = 0x%x\n", name, handle.intReg(i))
		return
	}
	fmt.Fprintf(out, "unknown register: %s\n", name)
}

func printMem(handle cpuHandle, out io.Writer, addrStr, widthStr string) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(addrStr, "0x"), 16, 64)
	if err != nil {
		fmt.Fprintf(out, "bad address: %v\n", err)
		return
	}
	width, err := strconv.Atoi(widthStr)
	if err != nil {
		fmt.Fprintf(out, "bad width: %v\n", err)
		return
	}
	fmt.Fprintf(out, "mem[0x%x:%d] = 0x%x\n", addr, width, handle.mem.Read(addr, width))
}

func reportHalt(handle cpuHandle, out io.Writer) int {
	fmt.Fprintf(out, "halted: status=%d\n", handle.haltStatus())
	return haltExitCode(handle.haltStatus())
}
