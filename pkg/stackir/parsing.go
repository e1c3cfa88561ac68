package stackir

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & operation of
// the stack-IR language.
//
// Each combinator either manages an operation (MemoryOp, ArithmeticOp, ...) or
// some piece of it: tokens and identifiers. Comments are handled too, they can
// appear at the start of a line or trailing one.

// Top level object, generates the traversable AST from the PCs below.
var ast = pc.NewAST("stack_ir", 0)

var (
	// Parser combinator for a stack-IR module: a sequence of comments and operations.
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())

	// Parser combinator for comments in a stack-IR program
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	// Parser combinator for a generic stack-IR operation
	pOperation = ast.OrdChoice("operation", nil,
		// Stack operation + label and jump operations
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		// Function related operations and statements
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	// Memory operation, compliant with the syntax: "{push|pop} {segment} {index}"
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// Arithmetic operation, either binary or unary (only touches the stack pointer)
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// Label declaration, compliant with the syntax: "label {symbol}"
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// Jump operation, compliant with the syntax: "{if-goto|goto} {symbol}"
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// Function declaration, compliant with the syntax: "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// Function call operation, compliant with the syntax: "call {name} {n_args}"
	pFunCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// Return operation, compliant with the syntax: "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Generic identifier parser (for label and function declarations)
	// NOTE: An ident can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: An ident cannot begin with a leading digit (a symbol is allowed though).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// Available memory operation types (only push and pop, it's stack based)
	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	// Available named segments
	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// Available arithmetic operation types
	pArithOpType = ast.OrdChoice("operations", nil,
		// Comparison operations
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		// Arithmetic operations
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		// Bitwise operations
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	// Jump types can either be conditional (if-goto) or unconditional (goto).
	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("if-goto", "IF-GOTO"), pc.Atom("goto", "GOTO"))
)

// ----------------------------------------------------------------------------
// Stack-IR Parser

// This section defines the Parser for the stack-IR language produced by FET.
//
// It uses parser combinators to obtain the AST from the source code (provided
// via a generic io.Reader); the library reads feature flags (as env vars):
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
// AST --> IR: Done by traversing the AST and extracting the 'stackir.Module'.
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("stackir: cannot read from input: %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, fmt.Errorf("stackir: failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// Scans the textual input stream and returns a traversable AST that can be
// visited to extract/transform the information available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pModule, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(ast.Dotstring("\"Stack-IR AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, root != nil
}

// This function takes the root node of the raw parsed AST and does a DFS on
// it, parsing one subtree at a time, returning a 'stackir.Module' (an
// in-memory, type-safe representation not dependent on the parsing library).
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	if root == nil || root.GetName() != "module" {
		return nil, fmt.Errorf("stackir: expected node 'module'")
	}

	module := Module{}
	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "memory_op":
			op, err := p.HandleMemoryOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "arithmetic_op":
			op, err := p.HandleArithmeticOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "label_decl":
			op, err := p.HandleLabelDecl(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "goto_op":
			op, err := p.HandleGotoOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "func_decl":
			op, err := p.HandleFuncDecl(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "func_call":
			op, err := p.HandleFuncCall(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "return_op":
			op, err := p.HandleReturnOp(child)
			if err != nil {
				return nil, err
			}
			module = append(module, op)

		case "comment": // Comment nodes are just skipped
			continue

		default:
			return nil, fmt.Errorf("stackir: unrecognized node '%s'", child.GetName())
		}
	}

	return module, nil
}

// Specialized function to convert a "memory_op" node to a 'stackir.MemoryOp'.
func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "memory_op" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("stackir: malformed 'memory_op' node")
	}

	operation := OperationType(node.GetChildren()[0].GetValue())
	segment := SegmentType(node.GetChildren()[1].GetValue())
	offset, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("stackir: failed to parse offset '%s': %s", node.GetChildren()[2].GetValue(), err)
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// Specialized function to convert an "arithmetic_op" node to a 'stackir.ArithmeticOp'.
func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "arithmetic_op" || len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("stackir: malformed 'arithmetic_op' node")
	}

	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

// Specialized function to convert a "label_decl" node to a 'stackir.LabelDecl'.
func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "label_decl" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("stackir: malformed 'label_decl' node")
	}

	return LabelDecl{Name: node.GetChildren()[1].GetValue()}, nil
}

// Specialized function to convert a "goto_op" node to a 'stackir.GotoOp'.
func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "goto_op" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("stackir: malformed 'goto_op' node")
	}

	return GotoOp{Jump: JumpType(node.GetChildren()[0].GetValue()), Label: node.GetChildren()[1].GetValue()}, nil
}

// Specialized function to convert a "func_decl" node to a 'stackir.FuncDecl'.
func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_decl" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("stackir: malformed 'func_decl' node")
	}

	name := node.GetChildren()[1].GetValue()
	nLocal, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("stackir: failed to parse locals count in 'function %s': %s", name, err)
	}

	return FuncDecl{Name: name, NLocal: uint16(nLocal)}, nil
}

// Specialized function to convert a "return_op" node to a 'stackir.ReturnOp'.
func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "return_op" {
		return nil, fmt.Errorf("stackir: malformed 'return_op' node")
	}

	return ReturnOp{}, nil
}

// Specialized function to convert a "func_call" node to a 'stackir.FuncCallOp'.
func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_call" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("stackir: malformed 'func_call' node")
	}

	name := node.GetChildren()[1].GetValue()
	nArgs, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("stackir: failed to parse argument count in 'call %s': %s", name, err)
	}

	return FuncCallOp{Name: name, NArgs: uint16(nArgs)}, nil
}
