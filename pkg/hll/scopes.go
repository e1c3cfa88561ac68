package hll

import (
	"fmt"
	"strings"

	"toolchain.dev/hllc/pkg/utils"
)

// Scope is a named, stack-ordered set of variable declarations: index 0 is
// the first one declared, and re-declaring a name shadows rather than
// replaces (entries are never removed individually).
type Scope struct {
	name    string
	entries utils.Stack[Variable]
}

// ScopeTable tracks every symbol table active while walking a class: the
// class-wide static table (spans every subroutine, the 'field'/'static'
// table from the class descriptor), plus the local/parameter tables scoped
// to whichever subroutine is currently being processed.
type ScopeTable struct {
	static utils.Stack[Variable]

	local     Scope
	field     Scope
	parameter Scope
}

func NewScopeTable() *ScopeTable { return &ScopeTable{} }

func (st *ScopeTable) PushClassScope(class string) {
	st.field = Scope{name: fmt.Sprintf("%s.Global", class)}
}

func (st *ScopeTable) PopClassScope() { st.field = Scope{} }

func (st *ScopeTable) PushSubRoutineScope(method string) {
	newScope := strings.ReplaceAll(st.GetScope(), "Global", method)
	st.local = Scope{name: newScope}
	st.parameter = Scope{name: newScope}
}

func (st *ScopeTable) PopSubroutineScope() { st.local, st.parameter = Scope{}, Scope{} }

// GetScope returns the fully-qualified name of whichever scope is currently
// innermost: "Class.subroutine" while inside one, else "Class.Global", else "Global".
func (st *ScopeTable) GetScope() string {
	if st.local.name != "" && st.parameter.name != "" {
		return st.local.name
	}
	if st.field.name != "" {
		return st.field.name
	}
	return "Global"
}

func (st *ScopeTable) RegisterVariable(v Variable) {
	switch v.Type {
	case Local:
		st.local.entries.Push(v)
	case Field:
		st.field.entries.Push(v)
	case Parameter:
		st.parameter.entries.Push(v)
	case Static:
		st.static.Push(v)
	}
}

// ResolveVariable looks a name up in local, then parameter, then field, then
// static order, per the "local table shadows the class table" invariant.
func (st *ScopeTable) ResolveVariable(name string) (uint16, Variable, error) {
	scopes := []utils.Stack[Variable]{st.local.entries, st.parameter.entries, st.field.entries, st.static}

	for _, scope := range scopes {
		count, step := scope.Count(), 0
		for entry := range scope.Iterator() {
			if entry.Name == name {
				// Iterator walks top-to-bottom (most recently pushed first), so the
				// declaration-order offset is the mirror image of the walk step.
				return uint16(count - 1 - step), entry, nil
			}
			step++
		}
	}

	return 0, Variable{}, fmt.Errorf("resolve: variable '%s' undeclared, not found in any scope", name)
}

// ----------------------------------------------------------------------------
// Global subroutine index

// SubroutineSignature is the slice of a Subroutine that call-sites from
// other compilation units need: enough to resolve arity and return type
// without re-parsing the defining class.
type SubroutineSignature struct {
	Kind        SubroutineKind
	Return      DataType
	ReturnClass string
	NArgs       int
}

// GlobalIndex maps class name -> subroutine name -> signature. It is built
// once, across every compilation unit (plus the standard library), before
// code generation begins for any of them — this is what lets a `call` to a
// not-yet-seen class resolve without requiring declaration order.
type GlobalIndex map[string]map[string]SubroutineSignature

// NewGlobalIndex populates an index from a full hll.Program, folding in the
// standard library ABI so calls into it resolve identically to user code.
func NewGlobalIndex(program Program) GlobalIndex {
	index := GlobalIndex{}

	register := func(class Class) {
		signatures := map[string]SubroutineSignature{}
		for sub := range class.Subroutines.Entries() {
			nArgs := len(sub.Arguments)
			if sub.Kind == Method {
				nArgs-- // 'this' is implicit at call sites, not part of the declared arity
			}
			signatures[sub.Name] = SubroutineSignature{
				Kind: sub.Kind, Return: sub.Return, ReturnClass: sub.ReturnClass, NArgs: nArgs,
			}
		}
		index[class.Name] = signatures
	}

	for _, class := range program {
		register(class)
	}
	for _, class := range StandardLibraryABI {
		if _, exists := index[class.Name]; !exists {
			register(class)
		}
	}

	return index
}
