package hll_test

import (
	"testing"

	"toolchain.dev/hllc/pkg/hll"
)

func parse(t *testing.T, source string) hll.Class {
	t.Helper()
	tokens, err := hll.Lex(source)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	class, err := hll.NewParser(tokens).ParseClass()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return class
}

func TestParseEmptyClass(t *testing.T) {
	class := parse(t, "class Main { }")
	if class.Name != "Main" {
		t.Errorf("expected class name 'Main', got %q", class.Name)
	}
	if class.Fields.Size() != 0 || class.Subroutines.Size() != 0 {
		t.Errorf("expected an empty class, got %+v", class)
	}
}

func TestParseFieldsAndStatics(t *testing.T) {
	class := parse(t, "class Point { field int x, y; static int count; }")

	x, ok := class.Fields.Get("x")
	if !ok || x.Type != hll.Field || x.DataType != hll.Int {
		t.Errorf("expected field 'x' to be an int field, got %+v (found=%v)", x, ok)
	}
	y, ok := class.Fields.Get("y")
	if !ok || y.Type != hll.Field {
		t.Errorf("expected field 'y' to be a field, got %+v (found=%v)", y, ok)
	}
	count, ok := class.Fields.Get("count")
	if !ok || count.Type != hll.Static {
		t.Errorf("expected 'count' to be static, got %+v (found=%v)", count, ok)
	}
}

func TestParseMethodGetsImplicitThis(t *testing.T) {
	class := parse(t, `class Point {
		field int x;
		method int getX() {
			return x;
		}
	}`)

	sub, ok := class.Subroutines.Get("getX")
	if !ok {
		t.Fatalf("expected to find subroutine 'getX'")
	}
	if len(sub.Arguments) != 1 || sub.Arguments[0].Name != "this" {
		t.Fatalf("expected method to have an implicit 'this' as argument 0, got %+v", sub.Arguments)
	}
	if sub.Arguments[0].ClassName != "Point" {
		t.Errorf("expected 'this' to be typed as the enclosing class, got %q", sub.Arguments[0].ClassName)
	}
}

func TestParseConstructorAndFunction(t *testing.T) {
	class := parse(t, `class Point {
		field int x;
		constructor Point new(int ax) {
			let x = ax;
			return this;
		}
		function void main() {
			return;
		}
	}`)

	ctor, ok := class.Subroutines.Get("new")
	if !ok || ctor.Kind != hll.Constructor {
		t.Fatalf("expected constructor 'new', got %+v (found=%v)", ctor, ok)
	}
	if len(ctor.Arguments) != 1 || ctor.Arguments[0].Name != "ax" {
		t.Errorf("expected constructor to have a single explicit argument 'ax', got %+v", ctor.Arguments)
	}

	fn, ok := class.Subroutines.Get("main")
	if !ok || fn.Kind != hll.Function || fn.Return != hll.Void {
		t.Fatalf("expected function 'main' returning void, got %+v (found=%v)", fn, ok)
	}
	if len(fn.Arguments) != 0 {
		t.Errorf("expected function to have no implicit argument, got %+v", fn.Arguments)
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	class := parse(t, `class Main {
		function void main() {
			if (true) {
				let x = 1;
			} else {
				let x = 2;
			}
			while (x) {
				let x = x;
			}
			return;
		}
	}`)

	sub, _ := class.Subroutines.Get("main")
	if len(sub.Statements) != 3 {
		t.Fatalf("expected 3 top-level statements (if, while, return), got %d", len(sub.Statements))
	}

	ifStmt, ok := sub.Statements[0].(hll.IfStmt)
	if !ok {
		t.Fatalf("expected an IfStmt, got %T", sub.Statements[0])
	}
	if len(ifStmt.ThenBlock) != 1 || len(ifStmt.ElseBlock) != 1 {
		t.Errorf("expected one statement in each branch, got then=%d else=%d", len(ifStmt.ThenBlock), len(ifStmt.ElseBlock))
	}

	whileStmt, ok := sub.Statements[1].(hll.WhileStmt)
	if !ok {
		t.Fatalf("expected a WhileStmt, got %T", sub.Statements[1])
	}
	if len(whileStmt.Block) != 1 {
		t.Errorf("expected one statement in the while body, got %d", len(whileStmt.Block))
	}
}

func TestParseArrayAssignment(t *testing.T) {
	class := parse(t, `class Main {
		function void main() {
			let a[1] = 2;
			return;
		}
	}`)
	sub, _ := class.Subroutines.Get("main")
	let, ok := sub.Statements[0].(hll.LetStmt)
	if !ok {
		t.Fatalf("expected a LetStmt, got %T", sub.Statements[0])
	}
	array, ok := let.Lhs.(hll.ArrayExpr)
	if !ok || array.Var != "a" {
		t.Fatalf("expected the lhs to be an ArrayExpr over 'a', got %+v", let.Lhs)
	}
}

func TestParseExpressionIsLeftToRight(t *testing.T) {
	class := parse(t, `class Main {
		function void main() {
			let x = 1 + 2 * 3;
			return;
		}
	}`)
	sub, _ := class.Subroutines.Get("main")
	let := sub.Statements[0].(hll.LetStmt)

	top, ok := let.Rhs.(hll.BinaryExpr)
	if !ok {
		t.Fatalf("expected a BinaryExpr, got %T", let.Rhs)
	}
	// With no precedence, '1 + 2 * 3' groups as '(1 + 2) * 3': the outermost
	// operator is the *last* one encountered when scanning left to right.
	if top.Type != hll.Multiply {
		t.Errorf("expected the outermost operator to be '*', got %v", top.Type)
	}
	inner, ok := top.Lhs.(hll.BinaryExpr)
	if !ok || inner.Type != hll.Plus {
		t.Fatalf("expected the lhs to be '1 + 2', got %+v", top.Lhs)
	}
}

func TestParseSubroutineCallVariants(t *testing.T) {
	class := parse(t, `class Main {
		function void main() {
			do draw();
			do Output.printInt(1);
			do game.run();
			return;
		}
	}`)
	sub, _ := class.Subroutines.Get("main")

	bare := sub.Statements[0].(hll.DoStmt).FuncCall
	if bare.IsExtCall || bare.FuncName != "draw" {
		t.Errorf("expected a bare self-call to 'draw', got %+v", bare)
	}

	ext := sub.Statements[1].(hll.DoStmt).FuncCall
	if !ext.IsExtCall || ext.Var != "Output" || ext.FuncName != "printInt" {
		t.Errorf("expected an external call to 'Output.printInt', got %+v", ext)
	}

	onVar := sub.Statements[2].(hll.DoStmt).FuncCall
	if !onVar.IsExtCall || onVar.Var != "game" || onVar.FuncName != "run" {
		t.Errorf("expected a call through variable 'game', got %+v", onVar)
	}
}

func TestParseUnaryAndStringLiteral(t *testing.T) {
	class := parse(t, `class Main {
		function void main() {
			let x = -1;
			let y = ~true;
			let s = "hi";
			return;
		}
	}`)
	sub, _ := class.Subroutines.Get("main")

	neg := sub.Statements[0].(hll.LetStmt).Rhs.(hll.UnaryExpr)
	if neg.Type != hll.Negation {
		t.Errorf("expected unary '-' to produce Negation, got %v", neg.Type)
	}

	not := sub.Statements[1].(hll.LetStmt).Rhs.(hll.UnaryExpr)
	if not.Type != hll.BoolNot {
		t.Errorf("expected unary '~' to produce BoolNot, got %v", not.Type)
	}

	str := sub.Statements[2].(hll.LetStmt).Rhs.(hll.LiteralExpr)
	if str.Type != hll.String || str.Value != "hi" {
		t.Errorf("expected a string literal with quotes stripped, got %+v", str)
	}
}
