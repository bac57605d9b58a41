// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/debugger"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/internal"
	"github.com/ezrec/ls8/translate"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	strictFlag = cli.BoolFlag{
		Name:  "strict",
		Usage: "Stop on unknown instructions",
	}
	stackCheckFlag = cli.BoolFlag{
		Name:  "stack-check",
		Usage: "Stop on stack overflow and underflow",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "Log the CPU state before every instruction",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "Verbose logging",
	}
	tickLimitFlag = cli.IntFlag{
		Name:  "tick-limit",
		Usage: "Stop after this many instructions (0 for no limit)",
	}

	symbolsFlag = cli.BoolFlag{
		Name:  "symbols",
		Usage: "Print the symbol table after the listing",
	}
	outputFlag = cli.StringFlag{
		Name:  "output, o",
		Usage: "Write the listing to a file",
	}
)

var (
	runCommand = cli.Command{
		Action:    runProgram,
		Name:      "run",
		Usage:     "Run a program",
		ArgsUsage: "FILE",
		Description: `Loads a binary literal listing, or an .asm source file,
and runs it until it halts.`,
	}
	asmCommand = cli.Command{
		Action:    assemble,
		Name:      "asm",
		Usage:     "Assemble a source file into a binary literal listing",
		ArgsUsage: "SRC",
		Flags:     []cli.Flag{symbolsFlag, outputFlag},
	}
	disasmCommand = cli.Command{
		Action:    disassemble,
		Name:      "disasm",
		Usage:     "Disassemble a program",
		ArgsUsage: "FILE",
	}
	debugCommand = cli.Command{
		Action:    debug,
		Name:      "debug",
		Usage:     "Run a program under the interactive debugger",
		ArgsUsage: "FILE",
	}
)

var (
	// ErrUsage is returned when the command line arguments are wrong.
	ErrUsage = errors.New(translate.From("expected a single program file"))
	// ErrOutput marks failures writing an output file.
	ErrOutput = errors.New(translate.From("output file"))
)

func newApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = "ls8"
	app.Usage = "LS-8 eight bit computer emulator"
	app.ArgsUsage = "FILE"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		configFileFlag,
		strictFlag,
		stackCheckFlag,
		traceFlag,
		verboseFlag,
		tickLimitFlag,
	}
	app.Commands = []cli.Command{
		runCommand,
		asmCommand,
		disasmCommand,
		debugCommand,
	}
	app.Action = runProgram

	return
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "ls8: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var eNumber cpu.ErrParseNumber
	var ePath *fs.PathError

	switch {
	case err == nil:
		return 0
	case errors.Is(err, emulator.ErrConfig), errors.Is(err, ErrOutput):
		return 3
	case errors.As(err, &eNumber), errors.Is(err, cpu.ErrParseRange):
		return 1
	case errors.As(err, &ePath):
		return 2
	}

	return 3
}

// makeConfig loads the emulator configuration: defaults, then the
// configuration file, then the command line flags.
func makeConfig(ctx *cli.Context) (cfg emulator.Config, err error) {
	cfg = emulator.DefaultConfig

	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		err = emulator.LoadConfig(file, &cfg)
		if err != nil {
			return
		}
	}

	if ctx.GlobalIsSet(strictFlag.Name) {
		cfg.Strict = ctx.GlobalBool(strictFlag.Name)
	}
	if ctx.GlobalIsSet(stackCheckFlag.Name) {
		cfg.StackCheck = ctx.GlobalBool(stackCheckFlag.Name)
	}
	if ctx.GlobalIsSet(traceFlag.Name) {
		cfg.Trace = ctx.GlobalBool(traceFlag.Name)
	}
	if ctx.GlobalIsSet(verboseFlag.Name) {
		cfg.Verbose = ctx.GlobalBool(verboseFlag.Name)
	}
	if ctx.GlobalIsSet(tickLimitFlag.Name) {
		cfg.TickLimit = ctx.GlobalInt(tickLimitFlag.Name)
	}

	return
}

// programFile returns the single file argument.
func programFile(ctx *cli.Context) (path string, err error) {
	if ctx.NArg() != 1 {
		err = ErrUsage
		return
	}

	path = ctx.Args().First()
	return
}

// makeEmulator creates an emulator, with the program loaded, that prints
// to the application's writer.
func makeEmulator(ctx *cli.Context) (emu *emulator.Emulator, err error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return
	}

	path, err := programFile(ctx)
	if err != nil {
		return
	}

	prog, err := emulator.ReadProgram(path, cfg.Verbose)
	if err != nil {
		return
	}

	emu = emulator.NewEmulator(cfg)
	emu.SetProgram(prog)
	emu.Tape.Output = ctx.App.Writer

	err = emu.Reset()
	return
}

func runProgram(ctx *cli.Context) (err error) {
	emu, err := makeEmulator(ctx)
	if err != nil {
		return
	}

	err = emu.Run()
	return
}

func debug(ctx *cli.Context) (err error) {
	emu, err := makeEmulator(ctx)
	if err != nil {
		return
	}

	err = debugger.NewDebugger(emu, ctx.App.Writer).Loop()
	return
}

func assemble(ctx *cli.Context) (err error) {
	path, err := programFile(ctx)
	if err != nil {
		return
	}

	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: ctx.GlobalBool(verboseFlag.Name)}
	prog, err := asm.Parse(inf)
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		return
	}

	out := ctx.App.Writer
	if file := ctx.String("output"); file != "" {
		var ouf *os.File
		ouf, err = os.Create(file)
		if err != nil {
			err = errors.Join(ErrOutput, err)
			return
		}
		defer func() {
			cerr := ouf.Close()
			if err == nil && cerr != nil {
				err = errors.Join(ErrOutput, cerr)
			}
		}()
		out = ouf
	}

	err = prog.Listing(out)
	if err != nil {
		err = errors.Join(ErrOutput, err)
		return
	}

	if ctx.Bool(symbolsFlag.Name) {
		symbolTable(ctx.App.Writer, asm.Symbols())
	}

	return
}

// symbolTable renders the assembler symbols, sorted by name.
func symbolTable(w io.Writer, symbols iter.Seq2[string, string]) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Value"})
	table.SetAutoFormatHeaders(false)
	for name, value := range internal.Sorted2(symbols) {
		table.Append([]string{name, value})
	}
	table.Render()
}

func disassemble(ctx *cli.Context) (err error) {
	path, err := programFile(ctx)
	if err != nil {
		return
	}

	prog, err := emulator.ReadProgram(path, false)
	if err != nil {
		return
	}

	image := prog.Binary()
	for pc := 0; pc < len(image); {
		text, size := cpu.Disassemble(image, uint8(pc))

		line := fmt.Sprintf("%-24s ; 0x%02x", text, pc)
		if dbg := prog.Debug(uint8(pc)); dbg.Line != nil && len(dbg.Comment) > 0 {
			line += " " + dbg.Comment
		}
		_, err = fmt.Fprintln(ctx.App.Writer, line)
		if err != nil {
			return
		}

		pc += int(size)
	}

	return
}
