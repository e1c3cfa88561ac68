package asm

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & instruction of
// the assembly language.
//
// Each combinator either matches a full instruction (A inst, C inst, label
// decl) or some piece of one (tokens, identifiers). Line comments are handled
// here too; '/* ... */' block comments and legacy continuation lines (a leading
// '*') are stripped by 'stripLegacyComments' before the scanner ever sees them.

// Top level object, generates the traversable AST from the PCs below.
var ast = pc.NewAST("assembler", 0)

var (
	// Parser combinator for an entire assembly program (a sequence of comments and instructions)
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	// Parser combinator for a generic assembly instruction (either C, A or Label declaration)
	pInstruction = ast.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	// Parser combinator for comments in an assembly program
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	// Parser combinator for A Instructions
	pAInst = ast.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	// Parser combinator for new label declarations
	pLabelDecl = ast.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	// Parser combinator for C Instructions; dest and jump are each independently optional
	// and, per the grammar, may both be present on the same instruction.
	pCInst = ast.And("c-inst", nil,
		ast.Maybe("maybe-assign", nil, ast.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp, // 'comp' should always be provided
		ast.Maybe("maybe-goto", nil, ast.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// Generic label parser (A Instruction + Label declaration)
	// NOTE: A label can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: A label cannot begin with a leading digit (a symbol is indeed allowed).
	pLabel = ast.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Generic destination parser (C Instruction subsection)
	// NOTE: longer matches come first so the BFS combinator search doesn't stop early on a prefix.
	pDest = ast.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"), pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Generic computation parser (C Instruction subsection)
	// NOTE: longer/more-specific matches come first, same BFS-ordering concern as pDest.
	pComp = ast.OrdChoice("comp", nil,
		// - Bitwise register with register operations
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		// - Register with register operations
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		// - Increment and decrement operations
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		// - Binary and numerical negations
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		// - Constants and identities
		pc.Atom("-1", "-1"), pc.Atom("0", "0"), pc.Atom("1", "1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Generic jump parser (C Instruction subsection)
	pJump = ast.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Assembly Parser

// This section defines the Parser for the assembly language fed to the ASM stage.
//
// It uses parser combinators to obtain the AST from the source code (provided via
// a generic io.Reader); the library reads feature flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Prints on stdout a textual representation of the AST
type Parser struct{ reader io.Reader }

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parser entrypoint, divided into the 2 phases of the parsing pipeline:
// Text --> AST: Done using PCs, returns a generic traversable AST.
// AST --> IR: Done by traversing the AST and extracting the 'asm.Instruction's.
func (p *Parser) Parse() (Program, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("asm: cannot read from input: %s", err)
	}

	root, success := p.FromSource(stripLegacyComments(content))
	if !success {
		return nil, fmt.Errorf("asm: failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// stripLegacyComments removes `/* ... */` block comments, then drops lines
// that (once trimmed) are a bare '*' or start with '* ', the continuation
// marker older dialects put on each line of a block comment. The goparsec
// grammar above only knows about '//' comments, so this pre-filter keeps
// block comments and those stray lines from ever reaching it.
func stripLegacyComments(source []byte) []byte {
	source = regexp.MustCompile(`(?s)/\*.*?\*/`).ReplaceAll(source, nil)
	lines := strings.Split(string(source), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed == "*" || strings.HasPrefix(trimmed, "* ") {
			continue
		}
		kept = append(kept, line)
	}
	return []byte(strings.Join(kept, "\n"))
}

// Scans the textual input stream and returns a traversable AST (Abstract Syntax
// Tree) that can be visited to extract/transform the information available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(ast.Dotstring("\"Assembler AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, root != nil
}

// This function takes the root node of the raw parsed AST and does a DFS on it,
// parsing one subtree at a time, returning an 'asm.Program' (an in-memory,
// type-safe representation not dependent on the parsing library used).
func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	if root == nil || root.GetName() != "program" {
		return nil, fmt.Errorf("asm: expected node 'program'")
	}

	program := Program{}
	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "a-inst":
			inst, err := p.HandleAInst(child)
			if inst == nil || err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "c-inst":
			inst, err := p.HandleCInst(child)
			if inst == nil || err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "label-decl":
			inst, err := p.HandleLabelDecl(child)
			if inst == nil || err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "comment": // Comment nodes are just skipped
			continue

		default:
			return nil, fmt.Errorf("asm: unrecognized node '%s'", child.GetName())
		}
	}

	return program, nil
}

// Specialized function to convert an "a-inst" node to an 'asm.AInstruction'.
func (Parser) HandleAInst(inst pc.Queryable) (Instruction, error) {
	if inst.GetName() != "a-inst" {
		return nil, fmt.Errorf("asm: expected node 'a-inst', found %s", inst.GetName())
	}

	symbol := inst.GetChildren()[1]
	if symbol.GetName() != "INT" && symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("asm: expected token 'SYMBOL' or 'INT', got %s", symbol.GetName())
	}

	return AInstruction{Location: symbol.GetValue()}, nil
}

// Specialized function to convert a "c-inst" node to an 'asm.CInstruction'.
// Dest and jump are each read independently, so an instruction may carry both,
// either, or neither (comp alone is a legal, if useless, no-op instruction).
func (Parser) HandleCInst(inst pc.Queryable) (Instruction, error) {
	if inst.GetName() != "c-inst" {
		return nil, fmt.Errorf("asm: expected node 'c-inst', found %s", inst.GetName())
	}

	maybeAssign, comp, maybeGoto := inst.GetChildren()[0], inst.GetChildren()[1], inst.GetChildren()[2]
	result := CInstruction{Comp: comp.GetValue()}

	if maybeAssign.GetName() == "assign" && len(maybeAssign.GetChildren()) == 2 {
		result.Dest = maybeAssign.GetChildren()[0].GetValue()
	}
	if maybeGoto.GetName() == "goto" && len(maybeGoto.GetChildren()) == 2 {
		result.Jump = maybeGoto.GetChildren()[1].GetValue()
	}

	return result, nil
}

// Specialized function to extract a "label-decl" node into an 'asm.LabelDecl'.
func (Parser) HandleLabelDecl(decl pc.Queryable) (Instruction, error) {
	if decl.GetName() != "label-decl" {
		return nil, fmt.Errorf("asm: expected node 'label-decl', found %s", decl.GetName())
	}

	symbol := decl.GetChildren()[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("asm: expected token 'SYMBOL', got %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}
