package hll_test

import (
	"testing"

	"toolchain.dev/hllc/pkg/hll"
	"toolchain.dev/hllc/pkg/stackir"
)

func compileClass(t *testing.T, source string) []stackir.Operation {
	t.Helper()
	tokens, err := hll.Lex(source)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	class, err := hll.NewParser(tokens).ParseClass()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	program := hll.Program{class.Name: class}
	cg := hll.NewCodeGenerator(program)
	ops, err := cg.HandleClass(class)
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return ops
}

func TestCodegenFunctionPreambleIsEmpty(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			return;
		}
	}`)

	if len(ops) != 3 {
		t.Fatalf("expected 3 operations (decl + push constant 0 + return), got %d: %+v", len(ops), ops)
	}
	decl, ok := ops[0].(stackir.FuncDecl)
	if !ok || decl.Name != "Main.main" || decl.NLocal != 0 {
		t.Errorf("expected FuncDecl{Main.main, 0}, got %+v", ops[0])
	}
}

func TestCodegenMethodPreamble(t *testing.T) {
	ops := compileClass(t, `class Point {
		field int x;
		method int getX() {
			return x;
		}
	}`)

	// decl, push argument 0, pop pointer 0, push this 0, return
	if len(ops) != 5 {
		t.Fatalf("expected 5 operations, got %d: %+v", len(ops), ops)
	}
	push0 := ops[1].(stackir.MemoryOp)
	if push0.Operation != stackir.Push || push0.Segment != stackir.Argument || push0.Offset != 0 {
		t.Errorf("expected 'push argument 0', got %+v", push0)
	}
	popThis := ops[2].(stackir.MemoryOp)
	if popThis.Operation != stackir.Pop || popThis.Segment != stackir.Pointer || popThis.Offset != 0 {
		t.Errorf("expected 'pop pointer 0', got %+v", popThis)
	}
	fieldRead := ops[3].(stackir.MemoryOp)
	if fieldRead.Segment != stackir.This || fieldRead.Offset != 0 {
		t.Errorf("expected the field read to go through 'this 0', got %+v", fieldRead)
	}
}

func TestCodegenConstructorPreamble(t *testing.T) {
	ops := compileClass(t, `class Point {
		field int x, y;
		constructor Point new() {
			return this;
		}
	}`)

	allocSize := ops[1].(stackir.MemoryOp)
	if allocSize.Operation != stackir.Push || allocSize.Segment != stackir.Constant || allocSize.Offset != 2 {
		t.Errorf("expected 'push constant 2' (2 fields), got %+v", allocSize)
	}
	alloc := ops[2].(stackir.FuncCallOp)
	if alloc.Name != "Memory.alloc" || alloc.NArgs != 1 {
		t.Errorf("expected a call to 'Memory.alloc 1', got %+v", alloc)
	}
	setThis := ops[3].(stackir.MemoryOp)
	if setThis.Operation != stackir.Pop || setThis.Segment != stackir.Pointer || setThis.Offset != 0 {
		t.Errorf("expected 'pop pointer 0', got %+v", setThis)
	}
}

func TestCodegenDoStmtDiscardsVoidCalleeResult(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			do Output.printInt(1);
			return;
		}
	}`)

	var found bool
	for i, op := range ops {
		if call, ok := op.(stackir.FuncCallOp); ok && call.Name == "Output.printInt" {
			discard, ok := ops[i+1].(stackir.MemoryOp)
			if !ok || discard.Operation != stackir.Pop || discard.Segment != stackir.Temp {
				t.Fatalf("expected a 'void' callee's placeholder result to be discarded via 'pop temp 0', got %+v", ops[i+1])
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to find a call to 'Output.printInt', got %+v", ops)
	}
}

func TestCodegenDoStmtLeavesNonVoidCalleeResult(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			do Math.abs(1);
			return;
		}
	}`)

	var found bool
	for i, op := range ops {
		if call, ok := op.(stackir.FuncCallOp); ok && call.Name == "Math.abs" {
			if discard, ok := ops[i+1].(stackir.MemoryOp); ok && discard.Operation == stackir.Pop && discard.Segment == stackir.Temp {
				t.Fatalf("expected a non-void callee's result to be left on the stack, but it was discarded via 'pop temp 0'")
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to find a call to 'Math.abs', got %+v", ops)
	}
}

func TestCodegenArrayAssignmentTempHandoff(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			var Array a;
			let a[0] = 1;
			return;
		}
	}`)

	var sawTempPop, sawPointerPop bool
	for i, op := range ops {
		if m, ok := op.(stackir.MemoryOp); ok && m.Operation == stackir.Pop && m.Segment == stackir.Temp {
			sawTempPop = true
			next := ops[i+1].(stackir.MemoryOp)
			if next.Operation != stackir.Pop || next.Segment != stackir.Pointer || next.Offset != 1 {
				t.Fatalf("expected 'pop pointer 1' right after the temp hand-off, got %+v", next)
			}
			sawPointerPop = true
		}
	}
	if !sawTempPop || !sawPointerPop {
		t.Fatalf("expected the temp hand-off sequence for an indexed assignment, got %+v", ops)
	}
}

func TestCodegenIfElseLabelsAreScopedAndUnique(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			var int a;
			if (true) {
				let a = 1;
			} else {
				let a = 2;
			}
			return;
		}
	}`)

	labels := map[string]bool{}
	for _, op := range ops {
		if l, ok := op.(stackir.LabelDecl); ok {
			if labels[l.Name] {
				t.Fatalf("label '%s' declared more than once", l.Name)
			}
			labels[l.Name] = true
		}
	}
	if len(labels) != 2 {
		t.Fatalf("expected exactly 2 labels (else + end) for an if/else, got %d: %+v", len(labels), labels)
	}
	for _, want := range []string{"Main.main:if:0:EXECUTE_SECOND_STATEMENT", "Main.main:if:0:END"} {
		if !labels[want] {
			t.Fatalf("expected label '%s' scoped to Main.main, got %+v", want, labels)
		}
	}
}

func TestCodegenWhileLabels(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			while (true) {
				return;
			}
			return;
		}
	}`)

	var start, end bool
	for _, op := range ops {
		if l, ok := op.(stackir.LabelDecl); ok {
			if l.Name == "Main.main:while:0:START" {
				start = true
			}
			if l.Name == "Main.main:while:0:END" {
				end = true
			}
		}
	}
	if !start || !end {
		t.Fatalf("expected START/END labels scoped to 'Main.main', got %+v", ops)
	}
}

func TestCodegenBareCallIsMethodOnSelf(t *testing.T) {
	ops := compileClass(t, `class Main {
		method void helper() {
			return;
		}
		method void main() {
			do helper();
			return;
		}
	}`)

	var pushedThis bool
	for i, op := range ops {
		if call, ok := op.(stackir.FuncCallOp); ok && call.Name == "Main.helper" {
			if call.NArgs != 1 {
				t.Fatalf("expected the implicit 'this' to bump NArgs to 1, got %d", call.NArgs)
			}
			prior := ops[i-1].(stackir.MemoryOp)
			if prior.Operation != stackir.Push || prior.Segment != stackir.Pointer || prior.Offset != 0 {
				t.Fatalf("expected 'push pointer 0' right before the bare self-call, got %+v", prior)
			}
			pushedThis = true
		}
	}
	if !pushedThis {
		t.Fatalf("expected to find the self-call to 'Main.helper'")
	}
}

func TestCodegenStringLiteralAppendsPerChar(t *testing.T) {
	ops := compileClass(t, `class Main {
		function void main() {
			do Output.printString("hi");
			return;
		}
	}`)

	var newCalls, appendCalls int
	for _, op := range ops {
		if call, ok := op.(stackir.FuncCallOp); ok {
			switch call.Name {
			case "String.new":
				newCalls++
			case "String.appendChar":
				appendCalls++
			}
		}
	}
	if newCalls != 1 || appendCalls != 2 {
		t.Fatalf("expected 1 'String.new' and 2 'String.appendChar' calls for \"hi\", got new=%d append=%d", newCalls, appendCalls)
	}
}

func TestCodegenBooleanTrueIsNegatedOne(t *testing.T) {
	ops := compileClass(t, `class Main {
		function boolean main() {
			return true;
		}
	}`)

	push1 := ops[1].(stackir.MemoryOp)
	if push1.Operation != stackir.Push || push1.Segment != stackir.Constant || push1.Offset != 1 {
		t.Fatalf("expected 'push constant 1', got %+v", push1)
	}
	neg := ops[2].(stackir.ArithmeticOp)
	if neg.Operation != stackir.Neg {
		t.Fatalf("expected a 'neg' to turn 1 into -1 (all-ones, true), got %+v", neg)
	}
}
