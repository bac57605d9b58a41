package debugger

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/ezrec/ls8/cpu"
)

// MEM_ROW_SIZE is the number of bytes in each row of a memory dump.
const MEM_ROW_SIZE = 8

// newTable returns a table writer with the debugger's formatting.
func newTable(w io.Writer, header ...string) (table *tablewriter.Table) {
	table = tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return
}

// registerTable renders the register bank, PC and flags.
func (dbg *Debugger) registerTable(w io.Writer) (err error) {
	table := newTable(w, "Reg", "Hex", "Dec", "Bin")

	row := func(name string, value uint8) []string {
		return []string{name, fmt.Sprintf("%02X", value), fmt.Sprintf("%d", value), fmt.Sprintf("%08b", value)}
	}

	for n, value := range dbg.Cpu.Register {
		name := fmt.Sprintf("R%d", n)
		if n == cpu.REG_SP {
			name = "SP"
		}
		table.Append(row(name, value))
	}
	table.Append(row("PC", dbg.Cpu.Pc))

	fl := row("FL", dbg.Cpu.Fl)
	fl[2] = cpu.FlagString(dbg.Cpu.Fl)
	table.Append(fl)

	table.SetFooter([]string{"Ticks", fmt.Sprintf("%d", dbg.Cpu.Ticks), "", ""})
	table.Render()

	return
}

// memoryTable renders n bytes of memory starting at addr. Addresses wrap.
func (dbg *Debugger) memoryTable(w io.Writer, addr uint8, n int) (err error) {
	header := []string{"Addr"}
	for col := range MEM_ROW_SIZE {
		header = append(header, fmt.Sprintf("+%d", col))
	}
	table := newTable(w, header...)

	for offset := 0; offset < n; offset += MEM_ROW_SIZE {
		base := addr + uint8(offset)
		cells := []string{fmt.Sprintf("0x%02x", base)}
		for col := range MEM_ROW_SIZE {
			if offset+col >= n {
				cells = append(cells, "")
				continue
			}
			at := base + uint8(col)
			cell := fmt.Sprintf("%02X", dbg.Cpu.Memory[at])
			if at == dbg.Cpu.Pc {
				cell = dbg.here.Sprint(cell)
			}
			cells = append(cells, cell)
		}
		table.Append(cells)
	}

	table.Render()

	return
}
