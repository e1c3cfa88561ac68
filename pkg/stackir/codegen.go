package stackir

import "fmt"

// ----------------------------------------------------------------------------
// Code Generator

// Takes a 'stackir.Program' and spits out its textual counterpart, one file
// per module. Used when the driver's 'keep_vm' flag asks for the
// intermediate stack-IR to be dumped alongside the final machine code.
type CodeGenerator struct {
	program Program // The set of modules to convert to stack-IR text
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that the argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translates every operation of every module in 'program' to stack-IR text.
func (cg *CodeGenerator) Generate() (map[string][]string, error) {
	out := map[string][]string{}

	for name, module := range cg.program {
		for _, operation := range module {
			var generated string
			var err error

			switch op := operation.(type) {
			case MemoryOp:
				generated, err = cg.GenerateMemoryOp(op)
			case ArithmeticOp:
				generated, err = cg.GenerateArithmeticOp(op)
			case LabelDecl:
				generated, err = cg.GenerateLabelDecl(op)
			case GotoOp:
				generated, err = cg.GenerateGotoOp(op)
			case FuncDecl:
				generated, err = cg.GenerateFuncDecl(op)
			case FuncCallOp:
				generated, err = cg.GenerateFuncCallOp(op)
			case ReturnOp:
				generated, err = cg.GenerateReturnOp(op)
			default:
				err = fmt.Errorf("stackir: unrecognized operation type %T", operation)
			}

			if err != nil {
				return nil, err
			}
			out[name] = append(out[name], generated)
		}
	}

	return out, nil
}

// Specialized function to convert a 'MemoryOp' operation to stack-IR text.
func (CodeGenerator) GenerateMemoryOp(op MemoryOp) (string, error) {
	if op.Segment == Pointer && op.Offset > 1 {
		return "", fmt.Errorf("stackir: invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", fmt.Errorf("stackir: invalid 'temp' offset, got %d", op.Offset)
	}

	return fmt.Sprintf("%s %s %d", op.Operation, op.Segment, op.Offset), nil
}

// Specialized function to convert an 'ArithmeticOp' operation to stack-IR text.
func (CodeGenerator) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// Specialized function to convert a 'LabelDecl' operation to stack-IR text.
func (CodeGenerator) GenerateLabelDecl(op LabelDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("stackir: unable to produce an empty label declaration")
	}

	return fmt.Sprintf("label %s", op.Name), nil
}

// Specialized function to convert a 'GotoOp' operation to stack-IR text.
func (CodeGenerator) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", fmt.Errorf("stackir: unable to produce an empty jump label")
	}

	return fmt.Sprintf("%s %s", op.Jump, op.Label), nil
}

// Specialized function to convert a 'FuncDecl' operation to stack-IR text.
func (CodeGenerator) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("stackir: unable to produce an empty function declaration")
	}

	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

// Specialized function to convert a 'FuncCallOp' operation to stack-IR text.
func (CodeGenerator) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("stackir: unable to produce an empty function call")
	}

	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}

// Specialized function to convert a 'ReturnOp' operation to stack-IR text.
func (CodeGenerator) GenerateReturnOp(op ReturnOp) (string, error) {
	return "return", nil
}
