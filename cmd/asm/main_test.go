package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssembler(t *testing.T) {
	test := func(t *testing.T, source string, expected []string) {
		dir := t.TempDir()
		input := filepath.Join(dir, "program.asm")
		output := filepath.Join(dir, "program.hack")

		if err := os.WriteFile(input, []byte(source), 0644); err != nil {
			t.Fatalf("unable to write fixture input: %s", err)
		}

		status := Handler([]string{input, output}, nil)
		if status != 0 {
			t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
		}

		content, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("error reading output file: %s", err)
		}

		got := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
		if len(got) != len(expected) {
			t.Fatalf("expected %d lines, got %d: %+v", len(expected), len(got), got)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("line %d: expected %q got %q", i, expected[i], got[i])
			}
		}
	}

	t.Run("Add", func(t *testing.T) {
		test(t, "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n", []string{
			"0000000000000010",
			"1110110000010000",
			"0000000000000011",
			"1110000010010000",
			"0000000000000000",
			"1110001100001000",
		})
	})

	t.Run("LabelsAndJumps", func(t *testing.T) {
		test(t, "(LOOP)\n@0\nD=M\n@LOOP\nD;JGT\n", []string{
			"0000000000000000",
			"1111110000010000",
			"0000000000000000",
			"1110001100000001",
		})
	})
}
