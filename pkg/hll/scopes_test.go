package hll_test

import (
	"testing"

	"toolchain.dev/hllc/pkg/hll"
	"toolchain.dev/hllc/pkg/utils"
)

func TestClassScope(t *testing.T) {
	test := func(st hll.ScopeTable, lookup string, expectedVar hll.Variable, expectedOffset uint16, fail bool) {
		offset, variable, err := st.ResolveVariable(lookup)
		if err != nil && !fail {
			t.Fatalf("expected to find %s, got error: %v", lookup, err)
		}
		if !fail && variable != expectedVar {
			t.Errorf("expected to find variable '%s' = %+v, got %+v", lookup, expectedVar, variable)
		}
		if !fail && offset != expectedOffset {
			t.Errorf("expected to find offset %d for variable '%s', got '%d'", expectedOffset, lookup, offset)
		}
	}

	t.Run("Without variable shadowing", func(t *testing.T) {
		st := hll.ScopeTable{}
		st.PushClassScope("TestClass")

		st.RegisterVariable(hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Int})
		st.RegisterVariable(hll.Variable{Name: "test_static", Type: hll.Static, DataType: hll.String})
		st.RegisterVariable(hll.Variable{Name: "test_field_2", Type: hll.Field, DataType: hll.Char})
		st.RegisterVariable(hll.Variable{Name: "test_static_2", Type: hll.Static, DataType: hll.Bool})

		test(st, "test_field", hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Int}, 0, false)
		test(st, "test_static", hll.Variable{Name: "test_static", Type: hll.Static, DataType: hll.String}, 0, false)
		test(st, "test_field_2", hll.Variable{Name: "test_field_2", Type: hll.Field, DataType: hll.Char}, 1, false)
		test(st, "test_static_2", hll.Variable{Name: "test_static_2", Type: hll.Static, DataType: hll.Bool}, 1, false)

		test(st, "random1", hll.Variable{}, 0, true)
	})

	t.Run("With variable shadowing", func(t *testing.T) {
		st := hll.ScopeTable{}
		st.PushClassScope("TestClass")

		st.RegisterVariable(hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Int})
		st.RegisterVariable(hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Char})

		test(st, "test_field", hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Char}, 1, false)
	})

	t.Run("With scope deallocation", func(t *testing.T) {
		st := hll.ScopeTable{}
		st.PushClassScope("TestClass")

		st.RegisterVariable(hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Int})
		st.RegisterVariable(hll.Variable{Name: "test_static", Type: hll.Static, DataType: hll.String})

		test(st, "test_field", hll.Variable{Name: "test_field", Type: hll.Field, DataType: hll.Int}, 0, false)

		st.PopClassScope()

		test(st, "test_field", hll.Variable{}, 0, true)
		test(st, "test_static", hll.Variable{Name: "test_static", Type: hll.Static, DataType: hll.String}, 0, false)
	})
}

func TestSubroutineScope(t *testing.T) {
	test := func(st hll.ScopeTable, lookup string, expectedVar hll.Variable, expectedOffset uint16, fail bool) {
		offset, variable, err := st.ResolveVariable(lookup)
		if err != nil && !fail {
			t.Fatalf("expected to find %s, got error: %v", lookup, err)
		}
		if !fail && variable != expectedVar {
			t.Errorf("expected to find variable '%s' = %+v, got %+v", lookup, expectedVar, variable)
		}
	}

	t.Run("Without variable shadowing", func(t *testing.T) {
		st := hll.ScopeTable{}
		st.PushClassScope("TestClass")
		st.PushSubRoutineScope("TestSubroutine")

		st.RegisterVariable(hll.Variable{Name: "test_local", Type: hll.Local, DataType: hll.Int})
		st.RegisterVariable(hll.Variable{Name: "test_parameter", Type: hll.Parameter, DataType: hll.String})

		test(st, "test_local", hll.Variable{Name: "test_local", Type: hll.Local, DataType: hll.Int}, 0, false)
		test(st, "test_parameter", hll.Variable{Name: "test_parameter", Type: hll.Parameter, DataType: hll.String}, 0, false)
		test(st, "random1", hll.Variable{}, 0, true)
	})

	t.Run("With scope deallocation", func(t *testing.T) {
		st := hll.ScopeTable{}
		st.PushClassScope("TestClass")
		st.PushSubRoutineScope("TestSubroutine")

		st.RegisterVariable(hll.Variable{Name: "test_local", Type: hll.Local, DataType: hll.Int})

		test(st, "test_local", hll.Variable{Name: "test_local", Type: hll.Local, DataType: hll.Int}, 0, false)

		st.PopSubroutineScope()

		test(st, "test_local", hll.Variable{}, 0, true)
	})
}

func TestScopeTracking(t *testing.T) {
	test := func(st hll.ScopeTable, expected string) {
		if scope := st.GetScope(); scope != expected {
			t.Errorf("expected to get scope %s, got %+v", expected, scope)
		}
	}

	t.Run("Basic scope tracking checks", func(t *testing.T) {
		st := hll.ScopeTable{}

		st.PushClassScope("TestClass")
		test(st, "TestClass.Global")

		st.PushSubRoutineScope("TestSubroutine")
		test(st, "TestClass.TestSubroutine")

		st.PopSubroutineScope()
		test(st, "TestClass.Global")

		st.PopClassScope()
		test(st, "Global")
	})
}

func TestGlobalIndex(t *testing.T) {
	subroutines := utils.OrderedMap[string, hll.Subroutine]{}
	subroutines.Set("main", hll.Subroutine{Name: "main", Kind: hll.Function, Return: hll.Void})

	program := hll.Program{
		"Main": hll.Class{
			Name:        "Main",
			Fields:      utils.OrderedMap[string, hll.Variable]{},
			Subroutines: subroutines,
		},
	}

	index := hll.NewGlobalIndex(program)

	if _, ok := index["Main"]["main"]; !ok {
		t.Fatalf("expected 'Main.main' to be indexed")
	}
	if _, ok := index["Math"]["multiply"]; !ok {
		t.Errorf("expected the standard library's 'Math.multiply' to be folded into the index")
	}
}
