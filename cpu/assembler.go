// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ls8/internal"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%#v", MEMORY_SIZE),
	"STACK_TOP":   fmt.Sprintf("%#v", STACK_TOP),
	"FL_EQUAL":    fmt.Sprintf("%#v", FL_EQUAL),
	"FL_GREATER":  fmt.Sprintf("%#v", FL_GREATER),
	"FL_LESS":     fmt.Sprintf("%#v", FL_LESS),
}

// Register names.
var regMap = map[string]uint8{
	"R0": 0, "R1": 1, "R2": 2, "R3": 3,
	"R4": 4, "R5": 5, "R6": 6, "R7": 7,
	"SP": REG_SP,
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Expr", Pattern: `\$\((?:[^()\n]|\([^()\n]*\))*\)`},
	{Name: "Label", Pattern: `[A-Za-z_][A-Za-z0-9_]*:`},
	{Name: "Number", Pattern: `0[bB][01_]+|0[xX][0-9a-fA-F_]+|[0-9][0-9_]*`},
	{Name: "Ident", Pattern: `\.?[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `,`},
})

// asmSource is the parse tree of a source file.
type asmSource struct {
	Lines []*asmLine `@@*`
}

// asmLine is a line of source: labels, then an optional instruction.
type asmLine struct {
	Pos lexer.Position

	Labels   []string  `@Label*`
	Mnemonic string    `( @Ident`
	Args     []*asmArg `  ( @@ ( ","? @@ )* )? )?`
	EOL      bool      `@EOL`
}

// asmArg is a single operand.
type asmArg struct {
	Expr   string `  @Expr`
	Number string `| @Number`
	Ident  string `| @Ident`
}

func (arg *asmArg) String() string {
	switch {
	case len(arg.Expr) > 0:
		return arg.Expr
	case len(arg.Number) > 0:
		return arg.Number
	}
	return arg.Ident
}

var asmParser = participle.MustBuild[asmSource](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Assembler is a two pass assembler for the LS-8.
//
// Source lines are:
//
//	[LABEL:]... [MNEMONIC [ARG[, ARG]...]] [; comment]
//
// Arguments are registers (R0-R7, SP), numbers (decimal, 0x, or 0b), labels,
// equates, or $(...) expressions evaluated at compile time.
// The directives are '.equ NAME VALUE' and '.db VALUE[, VALUE]...'.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of jump labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// pending is an instruction laid out in pass one, encoded in pass two.
type pending struct {
	line *asmLine
	op   Opcode
	pc   int
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	text, err := io.ReadAll(input)
	if err != nil {
		return
	}
	source := string(text)
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	lines := strings.Split(source, "\n")

	clear(asm.Label)
	if asm.Label == nil {
		asm.Label = make(map[string]int, 16)
	}
	asm.Lines = asm.Lines[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	tree, err := asmParser.ParseString("", source)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			lineno = perr.Position().Line
			line = sourceLine(lines, lineno)
			err = errors.New(perr.Message())
		}
		return
	}

	// Pass one: lay out labels and equates.
	var todo []pending
	pc := 0
	for _, al := range tree.Lines {
		lineno = al.Pos.Line
		line = sourceLine(lines, lineno)

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		for _, label := range al.Labels {
			label = strings.TrimSuffix(label, ":")
			_, ok := asm.Label[label]
			if ok {
				err = ErrLabelDuplicate
				return
			}
			asm.Label[label] = pc
		}

		switch {
		case len(al.Mnemonic) == 0:
			continue
		case al.Mnemonic == ".equ":
			if len(al.Args) != 2 || len(al.Args[0].Ident) == 0 {
				err = ErrEquateSyntax
				return
			}
			name := al.Args[0].Ident
			_, ok := asm.Equate[name]
			if ok {
				err = ErrEquateDuplicate
				return
			}
			asm.Equate[name] = al.Args[1].String()
		case al.Mnemonic == ".db":
			if len(al.Args) == 0 {
				err = ErrOpcodeValueMissing
				return
			}
			todo = append(todo, pending{line: al, pc: pc})
			pc += len(al.Args)
		default:
			op, ok := LookupMnemonic(al.Mnemonic)
			if !ok {
				err = ErrInstructionInvalid
				return
			}
			todo = append(todo, pending{line: al, op: op, pc: pc})
			pc += int(op.Length())
		}
	}

	// Pass two: encode.
	for _, p := range todo {
		lineno = p.line.Pos.Line
		line = sourceLine(lines, lineno)
		asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

		var bytes []uint8
		bytes, err = asm.encode(p)
		if err != nil {
			return
		}

		words := []string{p.line.Mnemonic}
		for _, arg := range p.line.Args {
			words = append(words, arg.String())
		}

		asm.Lines = append(asm.Lines, Line{LineNo: lineno, Pc: p.pc, Words: words, Bytes: bytes})
	}

	prog = &Program{
		Lines:  asm.Lines,
		Labels: maps.Clone(asm.Label),
	}
	asm.Lines = nil

	return
}

// sourceLine returns the text of a 1-based line number.
func sourceLine(lines []string, lineno int) string {
	if lineno < 1 || lineno > len(lines) {
		return ""
	}
	return lines[lineno-1]
}

// encode generates the bytes of a single instruction or .db directive.
func (asm *Assembler) encode(p pending) (bytes []uint8, err error) {
	args := p.line.Args

	if p.line.Mnemonic == ".db" {
		for _, arg := range args {
			var value uint8
			value, err = asm.valueOf(arg.String())
			if err != nil {
				return
			}
			bytes = append(bytes, value)
		}
		return
	}

	ins, _ := p.op.Instruction()
	switch {
	case len(args) < len(ins.Args):
		err = ErrOpcodeValueMissing
		return
	case len(args) > len(ins.Args):
		err = ErrOpcodeExtraArgs
		return
	}

	bytes = append(bytes, uint8(p.op))
	for n, kind := range ins.Args {
		var value uint8
		switch kind {
		case ARG_REG:
			value, err = asm.registerOf(args[n].String())
		case ARG_IMM:
			value, err = asm.valueOf(args[n].String())
		}
		if err != nil {
			return
		}
		bytes = append(bytes, value)
	}

	return
}

// maxEquateDepth limits equates defined in terms of other equates.
const maxEquateDepth = 16

// registerOf returns the register index named by a word, or by the equate
// it refers to.
func (asm *Assembler) registerOf(word string) (reg uint8, err error) {
	for range maxEquateDepth {
		var ok bool
		reg, ok = regMap[strings.ToUpper(word)]
		if ok {
			return
		}
		word, ok = asm.Equate[word]
		if !ok {
			break
		}
	}

	err = ErrRegisterInvalid
	return
}

// valueOf returns the byte value of a word.
func (asm *Assembler) valueOf(word string) (value uint8, err error) {
	v64, err := asm.evaluate(word, 0)
	if err != nil {
		return
	}

	if v64 < -0x80 || v64 > 0xff {
		err = ErrParseRange
		return
	}

	value = uint8(v64)
	return
}

// evaluate returns the integer value of a number, label, equate, or
// $(...) expression.
func (asm *Assembler) evaluate(word string, depth int) (value int64, err error) {
	if depth > maxEquateDepth {
		err = ErrParseValue(word)
		return
	}

	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2:len(word)-1], depth)
	}

	if len(word) > 0 && word[0] >= '0' && word[0] <= '9' {
		value, err = strconv.ParseInt(strings.ReplaceAll(word, "_", ""), 0, 64)
		if err != nil {
			err = ErrParseNumber(word)
		}
		return
	}

	pc, ok := asm.Label[word]
	if ok {
		value = int64(pc)
		return
	}

	equate, ok := asm.Equate[word]
	if ok {
		return asm.evaluate(equate, depth+1)
	}

	_, ok = regMap[strings.ToUpper(word)]
	if ok {
		err = ErrParseValue(word)
		return
	}

	err = ErrLabelMissing(word)
	return
}

// identRe finds the names an expression may refer to.
var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// symbols returns the integer value of every label or equate named in expr.
func (asm *Assembler) symbols(expr string, depth int) starlark.StringDict {
	pred := starlark.StringDict{}
	for _, name := range identRe.FindAllString(expr, -1) {
		if _, done := pred[name]; done {
			continue
		}
		value, err := asm.evaluate(name, depth+1)
		if err != nil {
			// Ignore non-integer names. They may be registers,
			// starlark builtins, or something else.
			continue
		}
		pred[name] = starlark.MakeInt64(value)
	}
	return pred
}

// Symbols iterates over all equates, then all labels.
func (asm *Assembler) Symbols() iter.Seq2[string, string] {
	return internal.Concat2(maps.All(asm.Equate), stringLabels(asm.Label))
}

// stringLabels iterates over labels, with their addresses as strings.
func stringLabels(labels map[string]int) iter.Seq2[string, string] {
	return func(yield func(name string, value string) bool) {
		for name, pc := range labels {
			if !yield(name, fmt.Sprintf("%#02x", pc)) {
				return
			}
		}
	}
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string, depth int) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := asm.symbols(expr, depth)

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}
