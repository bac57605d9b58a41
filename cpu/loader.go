package cpu

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ParseBinary parses a binary-literal listing into a Program.
//
// Each line holds one base-2 literal in 0..255, optionally followed by a
// '#' comment. A literal may have a sign, a 0b prefix, and '_' separators
// between digits. Blank lines and lines starting with '#' are skipped.
// Successive literals are placed at successive addresses from 0.
func ParseBinary(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var text string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: text, Err: err}
		}
	}()

	prog = &Program{}
	pc := 0

	for scanner.Scan() {
		text = scanner.Text()
		lineno += 1

		data, comment, _ := strings.Cut(text, "#")
		data = strings.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var value uint8
		value, err = parseLiteral(data)
		if err != nil {
			return
		}

		prog.Lines = append(prog.Lines, Line{
			LineNo:  lineno,
			Pc:      pc,
			Bytes:   []uint8{value},
			Comment: strings.TrimSpace(comment),
		})
		pc++
	}

	err = scanner.Err()

	return
}

// parseLiteral parses a single base-2 literal.
func parseLiteral(data string) (value uint8, err error) {
	digits, negative := strings.CutPrefix(data, "-")
	if !negative {
		digits, _ = strings.CutPrefix(digits, "+")
	}

	if !strings.HasPrefix(strings.ToLower(digits), "0b") {
		if strings.HasPrefix(digits, "_") {
			err = ErrParseNumber(data)
			return
		}
		digits = "0b" + digits
	}

	// Base 0 is required for '_' separators.
	v64, perr := strconv.ParseUint(digits, 0, 64)
	if errors.Is(perr, strconv.ErrRange) {
		err = ErrParseRange
		return
	}
	if perr != nil {
		err = ErrParseNumber(data)
		return
	}

	if v64 > 0xff || (negative && v64 != 0) {
		err = ErrParseRange
		return
	}

	value = uint8(v64)
	return
}
