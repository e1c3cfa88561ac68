package hll

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"toolchain.dev/hllc/pkg/utils"
)

// ----------------------------------------------------------------------------
// Standard library ABI

// The standard library itself is out of scope (treated as an opaque data
// source yielding class -> subroutine signatures); stdlib.hlib is that data
// source, bundled into the binary with go:embed. Its format is a flat,
// indentation-based text description (one "class Name" header followed by
// its indented subroutine signatures). Every signature line is just a
// subroutine declaration prefix, so it can be fed
// straight through the same lexer/parser machinery used for real source.
//
//go:embed stdlib.hlib
var stdlibSource string

// StandardLibraryABI holds every class signature the global subroutine
// index folds in so that calls into the standard library resolve exactly
// like calls into another compilation unit.
var StandardLibraryABI = mustParseStdlib(stdlibSource)

// ParseStandardLibrary loads an ABI descriptor from an arbitrary reader, in
// the same plain-text format as the embedded default, letting a driver swap
// in a project-specific standard library without rebuilding the binary.
func ParseStandardLibrary(r io.Reader) (Program, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stdlib: unable to read descriptor: %w", err)
	}
	return parseStdlib(string(raw))
}

func mustParseStdlib(source string) Program {
	program, err := parseStdlib(source)
	if err != nil {
		panic(fmt.Sprintf("stdlib: embedded descriptor is malformed: %s", err))
	}
	return program
}

// parseStdlib reads the "class Name" / indented-signature-line format.
func parseStdlib(source string) (Program, error) {
	program := Program{}
	currentClass := ""

	for lineNo, raw := range strings.Split(source, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			fields := strings.Fields(trimmed)
			if len(fields) != 2 || fields[0] != "class" {
				return nil, fmt.Errorf("stdlib: line %d: expected 'class Name', got %q", lineNo+1, trimmed)
			}
			currentClass = fields[1]
			program[currentClass] = Class{
				Name:        currentClass,
				Fields:      utils.OrderedMap[string, Variable]{},
				Subroutines: utils.OrderedMap[string, Subroutine]{},
			}
			continue
		}

		if currentClass == "" {
			return nil, fmt.Errorf("stdlib: line %d: subroutine signature before any 'class' header", lineNo+1)
		}

		sub, err := parseStdlibSubroutine(trimmed, currentClass)
		if err != nil {
			return nil, fmt.Errorf("stdlib: line %d: %w", lineNo+1, err)
		}

		class := program[currentClass]
		class.Subroutines.Set(sub.Name, sub)
		program[currentClass] = class
	}

	return program, nil
}

// parseStdlibSubroutine parses one signature line, reusing the same cursor
// machinery Parser.parseSubroutineDec relies on for real source (minus the
// body, which signature lines don't have).
func parseStdlibSubroutine(line string, className string) (Subroutine, error) {
	tokens, err := Lex(line)
	if err != nil {
		return Subroutine{}, err
	}
	p := NewParser(tokens)

	kindTok, err := p.advance()
	if err != nil {
		return Subroutine{}, err
	}

	var kind SubroutineKind
	switch kindTok.Lexeme {
	case "constructor":
		kind = Constructor
	case "function":
		kind = Function
	case "method":
		kind = Method
	default:
		return Subroutine{}, fmt.Errorf("expected 'constructor', 'function' or 'method', got %q", kindTok.Lexeme)
	}

	returnType, returnClass, err := p.parseType()
	if err != nil {
		return Subroutine{}, err
	}

	name, err := p.expect(IdentifierTok, "")
	if err != nil {
		return Subroutine{}, fmt.Errorf("expected subroutine name: %w", err)
	}

	if _, err := p.expect(SymbolTok, "("); err != nil {
		return Subroutine{}, err
	}
	args, err := p.parseParameterList()
	if err != nil {
		return Subroutine{}, err
	}
	if _, err := p.expect(SymbolTok, ")"); err != nil {
		return Subroutine{}, err
	}

	if kind == Method {
		args = append([]Variable{{Name: "this", Type: Parameter, DataType: Object, ClassName: className}}, args...)
	}

	return Subroutine{Name: name.Lexeme, Kind: kind, Return: returnType, ReturnClass: returnClass, Arguments: args}, nil
}
