package stackir

import (
	"fmt"

	"toolchain.dev/hllc/pkg/asm"
)

// ----------------------------------------------------------------------------
// Stack-IR Lowerer

// The Lowerer takes a 'stackir.Module' (the flat operation sequence for one
// compilation unit) and produces its 'asm.Program' counterpart, implementing
// the fixed caller/callee calling convention on top of a stack machine.
//
// Since the input is already a flat sequence (not a tree) lowering is a
// single linear pass: for each operation we append zero or more assembly
// instructions to the growing program, tracking just enough state (the
// enclosing function's name, a monotonic counter for unique labels) to keep
// every generated label collision-free across the whole compilation set.
type Lowerer struct {
	file     string // Compilation unit name, used for 'static' segment and label namespacing
	function string // Fully-qualified name of the function currently being lowered
	nLabel   uint   // Monotonically increasing counter, reserved at label-creation time
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// 'file' names the compilation unit (used for the 'static' segment and for
// namespacing generated labels so they can't collide across files).
func NewLowerer(file string) Lowerer {
	return Lowerer{file: file}
}

// Lower translates every operation of 'module' into assembly instructions, in
// order, appending to a single flat 'asm.Program'.
func (l *Lowerer) Lower(module Module) (asm.Program, error) {
	program := asm.Program{}

	for _, operation := range module {
		var lowered []asm.Instruction
		var err error

		switch op := operation.(type) {
		case MemoryOp:
			lowered, err = l.handleMemoryOp(op)
		case ArithmeticOp:
			lowered, err = l.handleArithmeticOp(op)
		case LabelDecl:
			lowered, err = l.handleLabelDecl(op)
		case GotoOp:
			lowered, err = l.handleGotoOp(op)
		case FuncDecl:
			lowered, err = l.handleFuncDecl(op)
		case FuncCallOp:
			lowered, err = l.handleFuncCallOp(op)
		case ReturnOp:
			lowered, err = l.handleReturnOp(op)
		default:
			err = fmt.Errorf("stackir: unrecognized operation type '%T'", operation)
		}

		if err != nil {
			return nil, err
		}
		program = append(program, lowered...)
	}

	return program, nil
}

// ----------------------------------------------------------------------------
// Small builders, kept terse since they're used dozens of times below.

func aInst(location string) asm.AInstruction  { return asm.AInstruction{Location: location} }
func cInst(dest, comp, jump string) asm.CInstruction {
	return asm.CInstruction{Dest: dest, Comp: comp, Jump: jump}
}

// freshLabel reserves a new, globally unique label name at creation time (per
// the Design Notes: derive uniqueness from a monotonic counter, never from a
// "statements translated so far" count which undercounts nested bodies).
func (l *Lowerer) freshLabel(suffix string) string {
	l.nLabel++
	return fmt.Sprintf("%s:%s:%d:%s", l.file, l.function, l.nLabel, suffix)
}

// ----------------------------------------------------------------------------
// Memory operations

// segmentBase returns the symbol backing a directly-addressed segment
// (constant/temp/pointer/static); 'direct' is false for local/argument/
// this/that, which need base+offset resolution through R13 instead.
func (l *Lowerer) segmentBase(segment SegmentType, offset uint16) (location string, direct bool, err error) {
	switch segment {
	case Temp:
		if offset > 7 {
			return "", false, fmt.Errorf("stackir: 'temp' offset %d out of range [0,7]", offset)
		}
		return fmt.Sprintf("%d", 5+offset), true, nil
	case Pointer:
		switch offset {
		case 0:
			return "THIS", true, nil
		case 1:
			return "THAT", true, nil
		default:
			return "", false, fmt.Errorf("stackir: 'pointer' offset %d out of range [0,1]", offset)
		}
	case Static:
		return fmt.Sprintf("%s.%d", l.file, offset), true, nil
	case Local:
		return "LCL", false, nil
	case Argument:
		return "ARG", false, nil
	case This:
		return "THIS", false, nil
	case That:
		return "THAT", false, nil
	default:
		return "", false, fmt.Errorf("stackir: segment '%s' has no base address", segment)
	}
}

func (l *Lowerer) handleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	if op.Operation == Push && op.Segment == Constant {
		return []asm.Instruction{
			aInst(fmt.Sprintf("%d", op.Offset)), cInst("D", "A", ""),
			aInst("SP"), cInst("A", "M", ""), cInst("M", "D", ""),
			aInst("SP"), cInst("M", "M+1", ""),
		}, nil
	}
	if op.Operation == Pop && op.Segment == Constant {
		return nil, fmt.Errorf("stackir: cannot 'pop' into the 'constant' segment")
	}

	location, direct, err := l.segmentBase(op.Segment, op.Offset)
	if err != nil {
		return nil, err
	}

	if direct {
		if op.Operation == Push {
			return []asm.Instruction{
				aInst(location), cInst("D", "M", ""),
				aInst("SP"), cInst("A", "M", ""), cInst("M", "D", ""),
				aInst("SP"), cInst("M", "M+1", ""),
			}, nil
		}
		return []asm.Instruction{
			aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
			aInst(location), cInst("M", "D", ""),
		}, nil
	}

	// Indirect: compute base+offset into R13, then transfer through it.
	effectiveAddress := []asm.Instruction{
		aInst(location), cInst("D", "M", ""),
		aInst(fmt.Sprintf("%d", op.Offset)), cInst("D", "D+A", ""),
		aInst("R13"), cInst("M", "D", ""),
	}

	if op.Operation == Push {
		return append(effectiveAddress,
			aInst("R13"), cInst("A", "M", ""), cInst("D", "M", ""),
			aInst("SP"), cInst("A", "M", ""), cInst("M", "D", ""),
			aInst("SP"), cInst("M", "M+1", ""),
		), nil
	}
	return append(effectiveAddress,
		aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
		aInst("R13"), cInst("A", "M", ""), cInst("M", "D", ""),
	), nil
}

// ----------------------------------------------------------------------------
// Arithmetic operations

func (l *Lowerer) handleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Neg:
		return []asm.Instruction{aInst("SP"), cInst("A", "M-1", ""), cInst("M", "-M", "")}, nil
	case Not:
		return []asm.Instruction{aInst("SP"), cInst("A", "M-1", ""), cInst("M", "!M", "")}, nil
	case Add:
		return l.binaryOp("D+M")
	case Sub:
		return l.binaryOp("M-D")
	case And:
		return l.binaryOp("D&M")
	case Or:
		return l.binaryOp("D|M")
	case Eq:
		return l.comparisonOp("JEQ")
	case Gt:
		return l.comparisonOp("JGT")
	case Lt:
		return l.comparisonOp("JLT")
	default:
		return nil, fmt.Errorf("stackir: unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// binaryOp pops two values, combines them with 'comp' (operating on D, the
// first-popped top operand, and M, the one below it) and pushes the single
// result back.
func (l *Lowerer) binaryOp(comp string) ([]asm.Instruction, error) {
	return []asm.Instruction{
		aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
		cInst("A", "A-1", ""), cInst("M", comp, ""),
	}, nil
}

// comparisonOp pops two values, subtracts them and tests the result against
// zero with 'jump', pushing -1 (true) or 0 (false). Each call reserves a
// fresh pair of labels so comparisons never collide across the program.
func (l *Lowerer) comparisonOp(jump string) ([]asm.Instruction, error) {
	trueLabel, endLabel := l.freshLabel("TRUE"), l.freshLabel("END")

	return []asm.Instruction{
		aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
		cInst("A", "A-1", ""), cInst("D", "M-D", ""),
		aInst(trueLabel), cInst("", "D", jump),
		aInst("SP"), cInst("A", "M-1", ""), cInst("M", "0", ""),
		aInst(endLabel), cInst("", "0", "JMP"),
		asm.LabelDecl{Name: trueLabel},
		aInst("SP"), cInst("A", "M-1", ""), cInst("M", "-1", ""),
		asm.LabelDecl{Name: endLabel},
	}, nil
}

// ----------------------------------------------------------------------------
// Control flow

func (l *Lowerer) handleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	return []asm.Instruction{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

func (l *Lowerer) handleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	target := l.scopedLabel(op.Label)

	if op.Jump == Goto {
		return []asm.Instruction{aInst(target), cInst("", "0", "JMP")}, nil
	}
	if op.Jump == IfGoto {
		return []asm.Instruction{
			aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
			aInst(target), cInst("", "D", "JNE"),
		}, nil
	}
	return nil, fmt.Errorf("stackir: unrecognized jump type '%s'", op.Jump)
}

// scopedLabel composes a user-declared 'label'/'goto' name with the enclosing
// function, per the `function$label` naming scheme labels in IR are scoped to.
func (l *Lowerer) scopedLabel(name string) string {
	return fmt.Sprintf("%s$%s", l.function, name)
}

// ----------------------------------------------------------------------------
// Function declarations, calls and returns

func (l *Lowerer) handleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	l.function = op.Name

	program := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		program = append(program,
			aInst("SP"), cInst("A", "M", ""), cInst("M", "0", ""),
			aInst("SP"), cInst("M", "M+1", ""),
		)
	}
	return program, nil
}

// handleFuncCallOp implements the 6-step calling convention: push a fresh
// return label, push the 4 saved segment pointers, rebase ARG/LCL, jump to
// the callee, then define the return label right after.
func (l *Lowerer) handleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	returnLabel := l.freshLabel(fmt.Sprintf("RETURN_%s", op.Name))

	program := []asm.Instruction{
		aInst(returnLabel), cInst("D", "A", ""),
		aInst("SP"), cInst("A", "M", ""), cInst("M", "D", ""), aInst("SP"), cInst("M", "M+1", ""),
	}
	for _, saved := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program,
			aInst(saved), cInst("D", "M", ""),
			aInst("SP"), cInst("A", "M", ""), cInst("M", "D", ""), aInst("SP"), cInst("M", "M+1", ""),
		)
	}
	program = append(program,
		aInst("SP"), cInst("D", "M", ""),
		aInst("5"), cInst("D", "D-A", ""),
		aInst(fmt.Sprintf("%d", op.NArgs)), cInst("D", "D-A", ""),
		aInst("ARG"), cInst("M", "D", ""),
		aInst("SP"), cInst("D", "M", ""),
		aInst("LCL"), cInst("M", "D", ""),
		aInst(op.Name), cInst("", "0", "JMP"),
		asm.LabelDecl{Name: returnLabel},
	)
	return program, nil
}

// handleReturnOp implements the 6-step return sequence: stash the frame
// pointer and return address, place the return value where the caller
// expects it, collapse the stack, restore the saved segment pointers, jump back.
func (l *Lowerer) handleReturnOp(op ReturnOp) ([]asm.Instruction, error) {
	return []asm.Instruction{
		// R13 = LCL (frame pointer)
		aInst("LCL"), cInst("D", "M", ""), aInst("R13"), cInst("M", "D", ""),
		// R14 = *(R13 - 5) (saved return address)
		aInst("R13"), cInst("D", "M", ""), aInst("5"), cInst("A", "D-A", ""), cInst("D", "M", ""),
		aInst("R14"), cInst("M", "D", ""),
		// *ARG = pop()
		aInst("SP"), cInst("M", "M-1", ""), cInst("A", "M", ""), cInst("D", "M", ""),
		aInst("ARG"), cInst("A", "M", ""), cInst("M", "D", ""),
		// SP = ARG + 1
		aInst("ARG"), cInst("D", "M", ""), aInst("SP"), cInst("M", "D+1", ""),
		// THAT = *(R13-1), THIS = *(R13-2), ARG = *(R13-3), LCL = *(R13-4)
		aInst("R13"), cInst("D", "M", ""), aInst("1"), cInst("A", "D-A", ""), cInst("D", "M", ""),
		aInst("THAT"), cInst("M", "D", ""),
		aInst("R13"), cInst("D", "M", ""), aInst("2"), cInst("A", "D-A", ""), cInst("D", "M", ""),
		aInst("THIS"), cInst("M", "D", ""),
		aInst("R13"), cInst("D", "M", ""), aInst("3"), cInst("A", "D-A", ""), cInst("D", "M", ""),
		aInst("ARG"), cInst("M", "D", ""),
		aInst("R13"), cInst("D", "M", ""), aInst("4"), cInst("A", "D-A", ""), cInst("D", "M", ""),
		aInst("LCL"), cInst("M", "D", ""),
		// jump back to the caller
		aInst("R14"), cInst("A", "M", ""), cInst("", "0", "JMP"),
	}, nil
}
