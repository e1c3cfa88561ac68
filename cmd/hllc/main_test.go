package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDriverEndToEnd(t *testing.T) {
	dir := t.TempDir()
	source := `class Main {
		function void main() {
			do Output.printInt(1);
			return;
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "Main.hll"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{dir}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	basename := filepath.Base(filepath.Clean(dir))
	content, err := os.ReadFile(filepath.Join(dir, basename+".bin"))
	if err != nil {
		t.Fatalf("error reading final binary artifact: %s", err)
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) == 0 {
		t.Fatalf("expected at least one line of machine code, got none")
	}
	for i, line := range lines {
		if len(line) != 16 {
			t.Fatalf("line %d: expected a 16-character binary instruction, got %q", i, line)
		}
		for _, c := range line {
			if c != '0' && c != '1' {
				t.Fatalf("line %d: expected only '0'/'1' characters, got %q", i, line)
			}
		}
	}
}

func TestDriverRejectsUnknownFlag(t *testing.T) {
	dir := t.TempDir()
	source := `class Main {
		function void main() {
			return;
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "Main.hll"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{dir}, map[string]string{"flag": "bogus_flag=yes"})
	if status == 0 {
		t.Fatalf("expected a nonzero exit status for an unknown driver flag, got 0")
	}
}

func TestDriverRejectsInvalidFlagValue(t *testing.T) {
	dir := t.TempDir()
	source := `class Main {
		function void main() {
			return;
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "Main.hll"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{dir}, map[string]string{"flag": "keep_asm=maybe"})
	if status == 0 {
		t.Fatalf("expected a nonzero exit status for an invalid flag value, got 0")
	}
}

func TestDriverKeepIntermediates(t *testing.T) {
	dir := t.TempDir()
	source := `class Main {
		function void main() {
			return;
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "Main.hll"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{dir}, map[string]string{"flag": "keep_vm=yes,keep_asm=yes"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	if _, err := os.Stat(filepath.Join(dir, "Main.sir")); err != nil {
		t.Fatalf("expected keep_vm to retain Main.sir: %s", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.asm")); err != nil {
		t.Fatalf("expected keep_asm to retain out.asm: %s", err)
	}
}
