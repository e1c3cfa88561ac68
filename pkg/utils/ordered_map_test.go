package utils_test

import (
	"testing"

	"toolchain.dev/hllc/pkg/utils"
)

func TestOrderedMap(t *testing.T) {
	t.Run("preserves insertion order", func(t *testing.T) {
		om := utils.OrderedMap[string, int]{}
		om.Set("c", 3)
		om.Set("a", 1)
		om.Set("b", 2)

		got := []string{}
		for key := range om.Keys() {
			got = append(got, key)
		}

		want := []string{"c", "a", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, got)
			}
		}
	})

	t.Run("update does not move position", func(t *testing.T) {
		om := utils.OrderedMap[string, int]{}
		om.Set("a", 1)
		om.Set("b", 2)
		om.Set("a", 10)

		values := []int{}
		for v := range om.Entries() {
			values = append(values, v)
		}

		if values[0] != 10 || values[1] != 2 {
			t.Fatalf("expected [10 2], got %v", values)
		}
		if om.Size() != 2 {
			t.Fatalf("expected size 2, got %d", om.Size())
		}
	})

	t.Run("missing key", func(t *testing.T) {
		om := utils.OrderedMap[string, int]{}
		if _, found := om.Get("nope"); found {
			t.Fatal("expected 'nope' to be absent")
		}
	})

	t.Run("from pre-sorted list", func(t *testing.T) {
		om := utils.NewOrderedMapFromList([]utils.MapEntry[string, int]{
			{Key: "x", Value: 1}, {Key: "y", Value: 2},
		})
		if om.Size() != 2 {
			t.Fatalf("expected size 2, got %d", om.Size())
		}
		value, found := om.Get("y")
		if !found || value != 2 {
			t.Fatalf("expected to find 'y' = 2, got %d (found=%v)", value, found)
		}
	})
}
