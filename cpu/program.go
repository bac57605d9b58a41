package cpu

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Line represents a line of source with its location and generated bytes.
type Line struct {
	LineNo  int
	Pc      int
	Words   []string
	Bytes   []uint8
	Comment string
}

// Program is a listing of source lines.
type Program struct {
	Lines  []Line
	Labels map[string]int // Addresses of labels, if assembled.
}

type Debug struct {
	*Line
	Index int
}

// Debug finds the line that generated the byte at pc.
func (prog *Program) Debug(pc uint8) (dbg Debug) {
	for n, line := range prog.Lines {
		if int(pc) >= line.Pc && int(pc) < line.Pc+len(line.Bytes) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(pc) - line.Pc,
			}
			break
		}
	}

	return
}

// Size returns the size of the program image, in bytes.
func (prog *Program) Size() (size int) {
	for _, line := range prog.Lines {
		size = max(size, line.Pc+len(line.Bytes))
	}
	return
}

// Binary returns the program image, starting at address 0.
func (prog *Program) Binary() (bins []uint8) {
	bins = make([]uint8, prog.Size())
	for pc, value := range prog.Bytes() {
		bins[pc] = value
	}

	return
}

// Bytes iterates over every generated byte and its address.
func (prog *Program) Bytes() iter.Seq2[int, uint8] {
	return func(yield func(pc int, value uint8) bool) {
		for _, line := range prog.Lines {
			for n, value := range line.Bytes {
				if !yield(line.Pc+n, value) {
					return
				}
			}
		}
	}
}

// Listing writes the program as binary literals, one byte per line,
// annotated with the source that generated them.
func (prog *Program) Listing(w io.Writer) (err error) {
	for _, line := range prog.Lines {
		for n, value := range line.Bytes {
			text := fmt.Sprintf("%08b", value)
			if n == 0 {
				var notes []string
				if len(line.Words) > 0 {
					notes = append(notes, strings.Join(line.Words, " "))
				}
				if len(line.Comment) > 0 {
					notes = append(notes, line.Comment)
				}
				if len(notes) > 0 {
					text += " # " + strings.Join(notes, " ; ")
				}
			}
			_, err = fmt.Fprintln(w, text)
			if err != nil {
				return
			}
		}
	}

	return
}
