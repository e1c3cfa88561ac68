package hll

import "toolchain.dev/hllc/pkg/utils"

// ----------------------------------------------------------------------------
// General information

// This section contains the in-memory representation of the high level,
// class-based source language consumed by FET.
//
// A Program is a set of classes, the only top-level construct allowed; each
// class is compiled to its own stack-IR module (mirroring Java's one .class
// per source file). Besides classes, the other 4 constructs are:
// - Variables: containers of value (also used for class fields/arguments)
// - Subroutines: containers of instructions (also used for class methods)
// - Statements: side effects, conditional jumps, other control-flow changes
// - Expressions: computations that produce a value (arithmetic, calls, ...)

type Program map[string]Class

// ----------------------------------------------------------------------------
// Classes

// A Class is a set of Fields holding state and Subroutines acting on it.
//
// Both Fields and Subroutines come in a static variant (the instance is
// scoped to the whole program rather than a single object) and an instance
// variant (scoped to a single allocated object).
type Class struct {
	Name        string                                // The class name, also the instantiated object's type
	Fields      utils.OrderedMap[string, Variable]    // Static and instance fields declared by the class
	Subroutines utils.OrderedMap[string, Subroutine]  // Static and instance subroutines declared by the class
}

// ----------------------------------------------------------------------------
// Subroutines

// A Subroutine takes a series of inputs and returns an output, possibly
// mutating class fields (static or instance) along the way.
type Subroutine struct {
	Name string         // Name/id, combined with the class name identifies it uniquely
	Kind SubroutineKind // Determines the codegen strategy used during lowering

	Return      DataType // The type of value returned ('Void' for no value)
	ReturnClass string   // Concrete class name if Return == Object

	Arguments []Variable // Declared in call order: argument position IS memory offset

	Statements []Statement // The subroutine body, executed in program order
}

type SubroutineKind string

const (
	Method      SubroutineKind = "method"
	Function    SubroutineKind = "function"
	Constructor SubroutineKind = "constructor"
)

// ----------------------------------------------------------------------------
// Statements

// Statement produces a side effect in the program flow, either by mutating a
// variable or by altering control flow.
type Statement interface{}

type DoStmt struct { // Calls a subroutine and discards its return value
	FuncCall FuncCallExpr
}

type VarStmt struct { // Declares new local variables, without assigning them a value
	Vars []Variable
}

type LetStmt struct { // Assigns a value to an existing variable or array cell
	Lhs Expression // Only VarExpr and ArrayExpr are legal here
	Rhs Expression
}

type ReturnStmt struct { // Unwinds the current subroutine, optionally with a value
	Expr Expression // nil for a subroutine returning 'Void'
}

type IfStmt struct { // Forks control flow based on a boolean condition
	Condition Expression
	ThenBlock []Statement
	ElseBlock []Statement // May be empty; no 'else' was declared
}

type WhileStmt struct { // Repeats a block while a boolean condition holds
	Condition Expression
	Block     []Statement
}

// ----------------------------------------------------------------------------
// Expressions

// Expression combines zero or more sub-expressions into a new value.
type Expression interface{}

type VarExpr struct { // Reads the value currently held by a variable
	Var string
}

type LiteralExpr struct { // A constant value baked into the source
	Type  DataType
	Value string
}

type ArrayExpr struct { // Reads a single array cell
	Var   string
	Index Expression
}

type UnaryExpr struct { // Transforms a single operand (Negation, BoolNot)
	Type ExprType
	Rhs  Expression
}

type BinaryExpr struct { // Combines two operands into a new value
	Type ExprType
	Lhs  Expression
	Rhs  Expression
}

type FuncCallExpr struct { // Calls a subroutine, either bound to an object or unqualified
	IsExtCall bool   // True for 'obj.Method(...)' or 'Class.Function(...)' syntax
	Var       string // Receiver/class name ("" when IsExtCall == false)
	FuncName  string

	Arguments []Expression
}

type ExprType string

const (
	Plus     ExprType = "plus"
	Minus    ExprType = "minus" // Binary subtraction
	Negation ExprType = "negation" // Unary arithmetic negation
	Divide   ExprType = "divide"
	Multiply ExprType = "multiply"

	BoolOr  ExprType = "bool_or"
	BoolAnd ExprType = "bool_and"
	BoolNot ExprType = "bool_not"

	Equal     ExprType = "equal"
	LessThan  ExprType = "less_than"
	GreatThan ExprType = "greater_than"
)

// ----------------------------------------------------------------------------
// Variables

// Variable is a container of value, read or written through expressions and
// statements; it doubles as both a class field and a subroutine-local slot.
type Variable struct {
	Name      string
	Type      VarType
	DataType  DataType
	ClassName string // Concrete class name if DataType == Object
}

type VarType string

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

type DataType string

const (
	Int    DataType = "int"
	Bool   DataType = "bool"
	Char   DataType = "char"
	Null   DataType = "null"
	String DataType = "string"
	Void   DataType = "void"
	Object DataType = "object"
)
