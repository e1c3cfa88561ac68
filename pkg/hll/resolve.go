package hll

import "fmt"

// ----------------------------------------------------------------------------
// Resolver

// Resolver performs a lightweight name-resolution pass over a Program before
// code generation runs: every variable reference must resolve in some scope,
// and every subroutine call must resolve to a known signature with matching
// arity. It does not check expression value types beyond what name
// resolution already implies (per the Non-goals, there is no further
// source-level type checking).
type Resolver struct {
	program Program
	index   GlobalIndex
	scopes  ScopeTable
}

func NewResolver(program Program) Resolver {
	return Resolver{program: program, index: NewGlobalIndex(program)}
}

// Check walks every class of the program, returning the first resolution
// failure encountered (first-failure-stops-the-stage, no diagnostics batching).
func (r *Resolver) Check() error {
	if len(r.program) == 0 {
		return fmt.Errorf("resolve: program is empty or nil")
	}

	for name, class := range r.program {
		if err := r.checkClass(class); err != nil {
			return fmt.Errorf("resolve: class '%s': %w", name, err)
		}
	}
	return nil
}

func (r *Resolver) checkClass(class Class) error {
	r.scopes.PushClassScope(class.Name)
	defer r.scopes.PopClassScope()

	seen := map[string]bool{}
	for field := range class.Fields.Entries() {
		if seen[field.Name] {
			return fmt.Errorf("resolve: duplicate field/static name '%s'", field.Name)
		}
		seen[field.Name] = true
		r.scopes.RegisterVariable(field)
	}

	for subroutine := range class.Subroutines.Entries() {
		if err := r.checkSubroutine(class.Name, subroutine); err != nil {
			return fmt.Errorf("subroutine '%s': %w", subroutine.Name, err)
		}
	}
	return nil
}

func (r *Resolver) checkSubroutine(class string, subroutine Subroutine) error {
	r.scopes.PushSubRoutineScope(subroutine.Name)
	defer r.scopes.PopSubroutineScope()

	for _, arg := range subroutine.Arguments {
		r.scopes.RegisterVariable(arg)
	}

	for _, stmt := range subroutine.Statements {
		if err := r.checkStatement(class, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) checkStatement(class string, stmt Statement) error {
	switch s := stmt.(type) {
	case VarStmt:
		for _, v := range s.Vars {
			r.scopes.RegisterVariable(v)
		}
		return nil

	case DoStmt:
		return r.checkFuncCall(class, s.FuncCall)

	case LetStmt:
		if err := r.checkExpression(class, s.Rhs); err != nil {
			return err
		}
		return r.checkExpression(class, s.Lhs)

	case IfStmt:
		if err := r.checkExpression(class, s.Condition); err != nil {
			return err
		}
		for _, nested := range s.ThenBlock {
			if err := r.checkStatement(class, nested); err != nil {
				return err
			}
		}
		for _, nested := range s.ElseBlock {
			if err := r.checkStatement(class, nested); err != nil {
				return err
			}
		}
		return nil

	case WhileStmt:
		if err := r.checkExpression(class, s.Condition); err != nil {
			return err
		}
		for _, nested := range s.Block {
			if err := r.checkStatement(class, nested); err != nil {
				return err
			}
		}
		return nil

	case ReturnStmt:
		if s.Expr == nil {
			return nil
		}
		return r.checkExpression(class, s.Expr)

	default:
		return fmt.Errorf("unrecognized statement %T", stmt)
	}
}

func (r *Resolver) checkExpression(class string, expr Expression) error {
	switch e := expr.(type) {
	case VarExpr:
		if e.Var == "this" {
			return nil
		}
		_, _, err := r.scopes.ResolveVariable(e.Var)
		return err

	case LiteralExpr:
		return nil

	case ArrayExpr:
		if _, _, err := r.scopes.ResolveVariable(e.Var); err != nil {
			return err
		}
		return r.checkExpression(class, e.Index)

	case UnaryExpr:
		return r.checkExpression(class, e.Rhs)

	case BinaryExpr:
		if err := r.checkExpression(class, e.Lhs); err != nil {
			return err
		}
		return r.checkExpression(class, e.Rhs)

	case FuncCallExpr:
		return r.checkFuncCall(class, e)

	default:
		return fmt.Errorf("unrecognized expression %T", expr)
	}
}

// checkFuncCall resolves a call target to a signature in the global index
// (falling back through the standard library, already folded into it) and
// validates declared arity matches the call site.
func (r *Resolver) checkFuncCall(class string, call FuncCallExpr) error {
	for _, arg := range call.Arguments {
		if err := r.checkExpression(class, arg); err != nil {
			return err
		}
	}

	targetClass := class
	if call.IsExtCall {
		if _, variable, err := r.scopes.ResolveVariable(call.Var); err == nil {
			if variable.DataType != Object {
				return fmt.Errorf("resolve: variable '%s' is not an object", call.Var)
			}
			targetClass = variable.ClassName
		} else {
			targetClass = call.Var
		}
	}

	signatures, classExists := r.index[targetClass]
	if !classExists {
		return fmt.Errorf("resolve: class '%s' not found (neither in the compilation set nor the standard library)", targetClass)
	}
	signature, exists := signatures[call.FuncName]
	if !exists {
		return fmt.Errorf("resolve: subroutine '%s.%s' not found", targetClass, call.FuncName)
	}
	if signature.NArgs != len(call.Arguments) {
		return fmt.Errorf("resolve: call to '%s.%s' passes %d argument(s), want %d", targetClass, call.FuncName, len(call.Arguments), signature.NArgs)
	}
	return nil
}
