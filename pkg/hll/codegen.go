package hll

import (
	"fmt"
	"sort"
	"strconv"

	"toolchain.dev/hllc/pkg/stackir"
)

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator walks the typed CST built by Parser and emits stack-IR, one
// module per class. It runs the two phases described for the stage: table
// construction happens inline while walking each class/subroutine (fields
// and parameters are registered into the scope before any statement of that
// scope is visited), and IR emission follows immediately after.
type CodeGenerator struct {
	program Program
	index   GlobalIndex // Populated once, up front, so forward references resolve
	scopes  ScopeTable

	returnType DataType // Declared return type of the subroutine currently being compiled
	nLabel     uint     // Monotonic counter reserved at label-creation time, never from a statement tally
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that 'program' is non-nil; an empty program is a valid, if
// pointless, input (produces an empty stackir.Program).
func NewCodeGenerator(program Program) CodeGenerator {
	return CodeGenerator{program: program, index: NewGlobalIndex(program)}
}

// NewCodeGeneratorWithIndex builds a CodeGenerator against an index computed
// up front (e.g. merged across every compilation unit plus the standard
// library at a concurrency barrier), so each unit's lowering pass can run
// against a frozen index instead of rebuilding it from a partial program.
func NewCodeGeneratorWithIndex(index GlobalIndex) CodeGenerator {
	return CodeGenerator{index: index}
}

// Generate lowers every class of the program into its own stack-IR module.
// Classes are visited in a fixed (alphabetical) order so label numbering,
// and therefore the emitted text, is reproducible across runs.
func (cg *CodeGenerator) Generate() (stackir.Program, error) {
	names := make([]string, 0, len(cg.program))
	for name := range cg.program {
		names = append(names, name)
	}
	sort.Strings(names)

	out := stackir.Program{}
	for _, name := range names {
		ops, err := cg.HandleClass(cg.program[name])
		if err != nil {
			return nil, fmt.Errorf("resolve: error compiling class '%s': %w", name, err)
		}
		out[name] = stackir.Module(ops)
	}
	return out, nil
}

// HandleClass registers every field into the class scope, then emits every
// subroutine's IR in declaration order.
func (cg *CodeGenerator) HandleClass(class Class) ([]stackir.Operation, error) {
	cg.scopes.PushClassScope(class.Name)
	defer cg.scopes.PopClassScope()

	for field := range class.Fields.Entries() {
		cg.scopes.RegisterVariable(field)
	}

	operations := []stackir.Operation{}
	for subroutine := range class.Subroutines.Entries() {
		ops, err := cg.HandleSubroutine(class, subroutine)
		if err != nil {
			return nil, fmt.Errorf("resolve: error compiling subroutine '%s': %w", subroutine.Name, err)
		}
		operations = append(operations, ops...)
	}
	return operations, nil
}

// HandleSubroutine registers arguments, walks the body and assembles the
// function declaration plus whichever preamble the subroutine kind requires.
func (cg *CodeGenerator) HandleSubroutine(class Class, subroutine Subroutine) ([]stackir.Operation, error) {
	cg.scopes.PushSubRoutineScope(subroutine.Name)
	defer cg.scopes.PopSubroutineScope()
	cg.nLabel = 0
	cg.returnType = subroutine.Return

	for _, arg := range subroutine.Arguments {
		cg.scopes.RegisterVariable(arg)
	}

	fName := cg.scopes.GetScope()
	body := []stackir.Operation{}
	for _, stmt := range subroutine.Statements {
		ops, err := cg.HandleStatement(class.Name, stmt)
		if err != nil {
			return nil, fmt.Errorf("resolve: error in subroutine '%s': %w", fName, err)
		}
		body = append(body, ops...)
	}

	decl := stackir.FuncDecl{Name: fName, NLocal: uint16(cg.scopes.local.entries.Count())}

	switch subroutine.Kind {
	case Constructor:
		nFields := uint16(0)
		for field := range class.Fields.Entries() {
			if field.Type == Field {
				nFields++
			}
		}
		preamble := []stackir.Operation{
			stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: nFields},
			stackir.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Pointer, Offset: 0},
		}
		return append(append([]stackir.Operation{decl}, preamble...), body...), nil

	case Method:
		preamble := []stackir.Operation{
			stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Argument, Offset: 0},
			stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Pointer, Offset: 0},
		}
		return append(append([]stackir.Operation{decl}, preamble...), body...), nil

	default: // Function
		return append([]stackir.Operation{decl}, body...), nil
	}
}

// ----------------------------------------------------------------------------
// Statements

func (cg *CodeGenerator) HandleStatement(class string, stmt Statement) ([]stackir.Operation, error) {
	switch s := stmt.(type) {
	case VarStmt:
		for _, v := range s.Vars {
			cg.scopes.RegisterVariable(v)
		}
		return nil, nil

	case DoStmt:
		return cg.HandleDoStmt(class, s)
	case LetStmt:
		return cg.HandleLetStmt(class, s)
	case IfStmt:
		return cg.HandleIfStmt(class, s)
	case WhileStmt:
		return cg.HandleWhileStmt(class, s)
	case ReturnStmt:
		return cg.HandleReturnStmt(class, s)
	default:
		return nil, fmt.Errorf("resolve: unrecognized statement %T", stmt)
	}
}

// HandleDoStmt emits the call and, only when the callee is declared 'void',
// drops the placeholder zero it pushed in its place (see HandleReturnStmt).
// A non-void callee's result is left on the stack uninspected, exactly as a
// 'do' statement's value is never read.
func (cg *CodeGenerator) HandleDoStmt(class string, stmt DoStmt) ([]stackir.Operation, error) {
	ops, returnType, err := cg.HandleFuncCallExpr(class, stmt.FuncCall)
	if err != nil {
		return nil, err
	}
	if returnType != Void {
		return ops, nil
	}
	return append(ops, stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Temp, Offset: 0}), nil
}

func (cg *CodeGenerator) HandleLetStmt(class string, stmt LetStmt) ([]stackir.Operation, error) {
	rhsOps, err := cg.HandleExpression(class, stmt.Rhs)
	if err != nil {
		return nil, fmt.Errorf("resolve: error in 'let' RHS: %w", err)
	}

	if v, ok := stmt.Lhs.(VarExpr); ok {
		offset, variable, err := cg.scopes.ResolveVariable(v.Var)
		if err != nil {
			return nil, err
		}
		segment, err := segmentOf(variable.Type)
		if err != nil {
			return nil, err
		}
		return append(rhsOps, stackir.MemoryOp{Operation: stackir.Pop, Segment: segment, Offset: offset}), nil
	}

	if a, ok := stmt.Lhs.(ArrayExpr); ok {
		refOps, err := cg.arrayElementAddress(class, a)
		if err != nil {
			return nil, err
		}
		// The temp hand-off is required: 'pointer 1' must be set *after* the RHS
		// has been evaluated and pushed, since evaluating the RHS may itself
		// clobber 'that' through another array access.
		writeOps := []stackir.Operation{
			stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Temp, Offset: 0},
			stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Pointer, Offset: 1},
			stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Temp, Offset: 0},
			stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.That, Offset: 0},
		}
		return append(append(refOps, rhsOps...), writeOps...), nil
	}

	return nil, fmt.Errorf("resolve: 'let' LHS must be a variable or array element, got %T", stmt.Lhs)
}

// HandleIfStmt reserves its label suffix from nLabel at entry, before
// descending into either branch: branches may themselves contain if/while
// statements that bump nLabel further, but this statement's own counter
// value is already captured and can't be clobbered by that recursion.
func (cg *CodeGenerator) HandleIfStmt(class string, stmt IfStmt) ([]stackir.Operation, error) {
	counter := cg.nLabel
	cg.nLabel++
	scope := cg.scopes.GetScope()

	condOps, err := cg.HandleExpression(class, stmt.Condition)
	if err != nil {
		return nil, err
	}
	thenOps, err := cg.handleBlock(class, stmt.ThenBlock)
	if err != nil {
		return nil, err
	}

	if len(stmt.ElseBlock) == 0 {
		endLabel := fmt.Sprintf("%s:if:%d:END", scope, counter)
		ops := append(condOps, stackir.ArithmeticOp{Operation: stackir.Not})
		ops = append(ops, stackir.GotoOp{Jump: stackir.IfGoto, Label: endLabel})
		ops = append(ops, thenOps...)
		ops = append(ops, stackir.LabelDecl{Name: endLabel})
		return ops, nil
	}

	elseOps, err := cg.handleBlock(class, stmt.ElseBlock)
	if err != nil {
		return nil, err
	}

	elseLabel := fmt.Sprintf("%s:if:%d:EXECUTE_SECOND_STATEMENT", scope, counter)
	endLabel := fmt.Sprintf("%s:if:%d:END", scope, counter)

	ops := append(condOps, stackir.ArithmeticOp{Operation: stackir.Not})
	ops = append(ops, stackir.GotoOp{Jump: stackir.IfGoto, Label: elseLabel})
	ops = append(ops, thenOps...)
	ops = append(ops, stackir.GotoOp{Jump: stackir.Goto, Label: endLabel})
	ops = append(ops, stackir.LabelDecl{Name: elseLabel})
	ops = append(ops, elseOps...)
	ops = append(ops, stackir.LabelDecl{Name: endLabel})
	return ops, nil
}

// HandleWhileStmt reserves its label suffix the same way HandleIfStmt does:
// up front, so a while loop nested in its own body can't shift this loop's numbering.
func (cg *CodeGenerator) HandleWhileStmt(class string, stmt WhileStmt) ([]stackir.Operation, error) {
	counter := cg.nLabel
	cg.nLabel++
	scope := cg.scopes.GetScope()
	startLabel := fmt.Sprintf("%s:while:%d:START", scope, counter)
	endLabel := fmt.Sprintf("%s:while:%d:END", scope, counter)

	condOps, err := cg.HandleExpression(class, stmt.Condition)
	if err != nil {
		return nil, err
	}
	blockOps, err := cg.handleBlock(class, stmt.Block)
	if err != nil {
		return nil, err
	}

	ops := []stackir.Operation{stackir.LabelDecl{Name: startLabel}}
	ops = append(ops, condOps...)
	ops = append(ops, stackir.ArithmeticOp{Operation: stackir.Not})
	ops = append(ops, stackir.GotoOp{Jump: stackir.IfGoto, Label: endLabel})
	ops = append(ops, blockOps...)
	ops = append(ops, stackir.GotoOp{Jump: stackir.Goto, Label: startLabel})
	ops = append(ops, stackir.LabelDecl{Name: endLabel})
	return ops, nil
}

func (cg *CodeGenerator) HandleReturnStmt(class string, stmt ReturnStmt) ([]stackir.Operation, error) {
	if stmt.Expr == nil {
		if cg.returnType != Void {
			return nil, fmt.Errorf("resolve: 'return;' with no value in a subroutine declared to return '%s'", cg.returnType)
		}
		// Every subroutine leaves exactly one word on the stack (see HandleDoStmt),
		// so a void subroutine still pushes a placeholder zero before returning.
		return []stackir.Operation{
			stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: 0},
			stackir.ReturnOp{},
		}, nil
	}

	ops, err := cg.HandleExpression(class, stmt.Expr)
	if err != nil {
		return nil, err
	}
	return append(ops, stackir.ReturnOp{}), nil
}

func (cg *CodeGenerator) handleBlock(class string, block []Statement) ([]stackir.Operation, error) {
	ops := []stackir.Operation{}
	for _, stmt := range block {
		op, err := cg.HandleStatement(class, stmt)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op...)
	}
	return ops, nil
}

func segmentOf(kind VarType) (stackir.SegmentType, error) {
	switch kind {
	case Local:
		return stackir.Local, nil
	case Parameter:
		return stackir.Argument, nil
	case Field:
		return stackir.This, nil
	case Static:
		return stackir.Static, nil
	default:
		return "", fmt.Errorf("resolve: variable kind '%s' has no IR segment", kind)
	}
}

// ----------------------------------------------------------------------------
// Expressions

func (cg *CodeGenerator) HandleExpression(class string, expr Expression) ([]stackir.Operation, error) {
	switch e := expr.(type) {
	case VarExpr:
		return cg.HandleVarExpr(e)
	case LiteralExpr:
		return cg.HandleLiteralExpr(e)
	case ArrayExpr:
		return cg.HandleArrayExpr(class, e)
	case UnaryExpr:
		return cg.HandleUnaryExpr(class, e)
	case BinaryExpr:
		return cg.HandleBinaryExpr(class, e)
	case FuncCallExpr:
		ops, _, err := cg.HandleFuncCallExpr(class, e)
		return ops, err
	default:
		return nil, fmt.Errorf("resolve: unrecognized expression %T", expr)
	}
}

func (cg *CodeGenerator) HandleVarExpr(expr VarExpr) ([]stackir.Operation, error) {
	if expr.Var == "this" {
		return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Pointer, Offset: 0}}, nil
	}

	offset, variable, err := cg.scopes.ResolveVariable(expr.Var)
	if err != nil {
		return nil, err
	}
	segment, err := segmentOf(variable.Type)
	if err != nil {
		return nil, err
	}
	return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: segment, Offset: offset}}, nil
}

func (CodeGenerator) HandleLiteralExpr(expr LiteralExpr) ([]stackir.Operation, error) {
	switch expr.Type {
	case Int:
		value, err := strconv.ParseUint(expr.Value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("resolve: invalid integer literal '%s': %w", expr.Value, err)
		}
		return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: uint16(value)}}, nil

	case Bool:
		if expr.Value == "true" {
			return []stackir.Operation{
				stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: 1},
				stackir.ArithmeticOp{Operation: stackir.Neg},
			}, nil
		}
		return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: 0}}, nil

	case Object: // 'null'
		return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: 0}}, nil

	case Char:
		if len(expr.Value) != 1 {
			return nil, fmt.Errorf("resolve: invalid char literal '%s'", expr.Value)
		}
		return []stackir.Operation{stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: uint16(expr.Value[0])}}, nil

	case String:
		ops := []stackir.Operation{
			stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: uint16(len(expr.Value))},
			stackir.FuncCallOp{Name: "String.new", NArgs: 1},
		}
		for _, char := range expr.Value {
			ops = append(ops,
				stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Constant, Offset: uint16(char)},
				stackir.FuncCallOp{Name: "String.appendChar", NArgs: 2},
			)
		}
		return ops, nil

	default:
		return nil, fmt.Errorf("resolve: unrecognized literal type '%s'", expr.Type)
	}
}

// arrayElementAddress computes `base + index` and leaves the resulting address
// on the stack (callers pop it into 'pointer 1' to reach the cell); shared
// between reads (HandleArrayExpr) and the LHS of an indexed 'let'.
func (cg *CodeGenerator) arrayElementAddress(class string, expr ArrayExpr) ([]stackir.Operation, error) {
	baseOps, err := cg.HandleVarExpr(VarExpr{Var: expr.Var})
	if err != nil {
		return nil, err
	}
	indexOps, err := cg.HandleExpression(class, expr.Index)
	if err != nil {
		return nil, err
	}
	ops := append(append([]stackir.Operation{}, baseOps...), indexOps...)
	ops = append(ops, stackir.ArithmeticOp{Operation: stackir.Add})
	return ops, nil
}

func (cg *CodeGenerator) HandleArrayExpr(class string, expr ArrayExpr) ([]stackir.Operation, error) {
	ops, err := cg.arrayElementAddress(class, expr)
	if err != nil {
		return nil, err
	}
	return append(ops,
		stackir.MemoryOp{Operation: stackir.Pop, Segment: stackir.Pointer, Offset: 1},
		stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.That, Offset: 0},
	), nil
}

func (cg *CodeGenerator) HandleUnaryExpr(class string, expr UnaryExpr) ([]stackir.Operation, error) {
	ops, err := cg.HandleExpression(class, expr.Rhs)
	if err != nil {
		return nil, err
	}
	switch expr.Type {
	case Negation:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Neg}), nil
	case BoolNot:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Not}), nil
	default:
		return nil, fmt.Errorf("resolve: unrecognized unary operator '%s'", expr.Type)
	}
}

func (cg *CodeGenerator) HandleBinaryExpr(class string, expr BinaryExpr) ([]stackir.Operation, error) {
	lhsOps, err := cg.HandleExpression(class, expr.Lhs)
	if err != nil {
		return nil, err
	}
	rhsOps, err := cg.HandleExpression(class, expr.Rhs)
	if err != nil {
		return nil, err
	}
	ops := append(append([]stackir.Operation{}, lhsOps...), rhsOps...)

	switch expr.Type {
	case Plus:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Add}), nil
	case Minus:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Sub}), nil
	case Multiply:
		return append(ops, stackir.FuncCallOp{Name: "Math.multiply", NArgs: 2}), nil
	case Divide:
		return append(ops, stackir.FuncCallOp{Name: "Math.divide", NArgs: 2}), nil
	case BoolAnd:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.And}), nil
	case BoolOr:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Or}), nil
	case Equal:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Eq}), nil
	case LessThan:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Lt}), nil
	case GreatThan:
		return append(ops, stackir.ArithmeticOp{Operation: stackir.Gt}), nil
	default:
		return nil, fmt.Errorf("resolve: unrecognized binary operator '%s'", expr.Type)
	}
}

// HandleFuncCallExpr implements the four subroutine-call sub-cases, and
// additionally resolves the callee's declared return type through the
// global index (mirroring Resolver.checkFuncCall's own targetClass
// resolution), so HandleDoStmt knows whether a value was actually left on
// the stack by the call.
func (cg *CodeGenerator) HandleFuncCallExpr(class string, expr FuncCallExpr) ([]stackir.Operation, DataType, error) {
	argsOps := []stackir.Operation{}
	for _, arg := range expr.Arguments {
		ops, err := cg.HandleExpression(class, arg)
		if err != nil {
			return nil, Void, err
		}
		argsOps = append(argsOps, ops...)
	}
	nArgs := len(expr.Arguments)

	// Case 1: bare 'name(args)' is always a method call on the current object.
	if !expr.IsExtCall {
		returnType, err := cg.resolveReturnType(class, expr.FuncName)
		if err != nil {
			return nil, Void, err
		}
		fName := fmt.Sprintf("%s.%s", class, expr.FuncName)
		thisOp := stackir.MemoryOp{Operation: stackir.Push, Segment: stackir.Pointer, Offset: 0}
		ops := append([]stackir.Operation{thisOp}, argsOps...)
		return append(ops, stackir.FuncCallOp{Name: fName, NArgs: uint16(nArgs + 1)}), returnType, nil
	}

	// Case 2: 'ThisClass.name(args)', a function/constructor in the current class.
	if expr.Var == class {
		returnType, err := cg.resolveReturnType(class, expr.FuncName)
		if err != nil {
			return nil, Void, err
		}
		fName := fmt.Sprintf("%s.%s", class, expr.FuncName)
		return append(argsOps, stackir.FuncCallOp{Name: fName, NArgs: uint16(nArgs)}), returnType, nil
	}

	// Case 3: 'var.name(args)' where 'var' resolves to a local/field/parameter.
	if _, variable, err := cg.scopes.ResolveVariable(expr.Var); err == nil {
		if variable.DataType != Object {
			return nil, Void, fmt.Errorf("resolve: variable '%s' is not an object, cannot call '%s' on it", expr.Var, expr.FuncName)
		}
		returnType, err := cg.resolveReturnType(variable.ClassName, expr.FuncName)
		if err != nil {
			return nil, Void, err
		}
		receiverOps, err := cg.HandleVarExpr(VarExpr{Var: expr.Var})
		if err != nil {
			return nil, Void, err
		}
		fName := fmt.Sprintf("%s.%s", variable.ClassName, expr.FuncName)
		ops := append(receiverOps, argsOps...)
		return append(ops, stackir.FuncCallOp{Name: fName, NArgs: uint16(nArgs + 1)}), returnType, nil
	}

	// Case 4: 'OtherClass.name(args)', a function/constructor in another class
	// or the standard library.
	returnType, err := cg.resolveReturnType(expr.Var, expr.FuncName)
	if err != nil {
		return nil, Void, err
	}
	fName := fmt.Sprintf("%s.%s", expr.Var, expr.FuncName)
	return append(argsOps, stackir.FuncCallOp{Name: fName, NArgs: uint16(nArgs)}), returnType, nil
}

// resolveReturnType looks up a subroutine's declared return type in the
// global index, the same source Resolver.checkFuncCall validates call sites
// against, so codegen and name resolution can never disagree about it.
func (cg *CodeGenerator) resolveReturnType(className, subroutineName string) (DataType, error) {
	signatures, classExists := cg.index[className]
	if !classExists {
		return Void, fmt.Errorf("resolve: class '%s' not found (neither in the compilation set nor the standard library)", className)
	}
	signature, exists := signatures[subroutineName]
	if !exists {
		return Void, fmt.Errorf("resolve: subroutine '%s.%s' not found", className, subroutineName)
	}
	return signature.Return, nil
}
