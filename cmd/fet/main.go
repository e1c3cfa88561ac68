package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teris-io/cli"
	"toolchain.dev/hllc/pkg/hll"
	"toolchain.dev/hllc/pkg/stackir"
)

var Description = strings.ReplaceAll(`
The Front End Translator (FET) compiles programs (composed of multiple classes/files)
written in the HLL language into stack-IR modules that can be further elaborated. HLL
is a higher-level OOP language tailored for use with the TARGET computer architecture.
`, "\n", " ")

var FrontEndTranslator = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source (.hll) files or directories to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("stdlib", "Folds the built-in standard library ABI into the global index").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("resolve", "Runs name resolution over the program before emitting any output").
		WithType(cli.TypeBool)).
	WithAction(Handler)

// unit is one compilation unit's parse result: its file path (so output naming
// can mirror input naming) and the hll.Class it was parsed into.
type unit struct {
	path  string
	class hll.Class
}

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	TUs := []string{}
	for _, input := range args {
		filepath.Walk(input, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".hll" {
				return nil
			}
			TUs = append(TUs, p)
			return nil
		})
	}

	// Phase 1: lex + parse every compilation unit concurrently. Each unit is
	// self-contained at this point (no cross-file lookups happen yet), so the
	// only shared state is the slice each goroutine writes its own slot of.
	units := make([]unit, len(TUs))
	group := errgroup.Group{}
	for i, tu := range TUs {
		i, tu := i, tu
		group.Go(func() error {
			content, err := os.ReadFile(tu)
			if err != nil {
				return fmt.Errorf("io: unable to open input file '%s': %w", tu, err)
			}
			tokens, err := hll.Lex(string(content))
			if err != nil {
				return fmt.Errorf("lex: %w", err)
			}
			class, err := hll.NewParser(tokens).ParseClass()
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			units[i] = unit{path: tu, class: class}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	// Barrier: merge every unit's class into one Program before anything reads
	// across compilation units.
	program := hll.Program{}
	for _, u := range units {
		program[u.class.Name] = u.class
	}
	if _, enabled := options["stdlib"]; enabled {
		for name, class := range hll.StandardLibraryABI {
			program[name] = class
		}
	}

	if _, enabled := options["resolve"]; enabled {
		resolver := hll.NewResolver(program)
		if err := resolver.Check(); err != nil {
			fmt.Printf("ERROR: Unable to complete 'resolve' pass: %s\n", err)
			return -1
		}
	}

	// Phase 2: the global index is frozen now, so every unit's lowering can run
	// concurrently again, each against its own CodeGenerator/scope state.
	index := hll.NewGlobalIndex(program)
	modules := make([]stackir.Module, len(units))

	group = errgroup.Group{}
	for i, u := range units {
		i, u := i, u
		group.Go(func() error {
			cg := hll.NewCodeGeneratorWithIndex(index)
			ops, err := cg.HandleClass(u.class)
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			modules[i] = stackir.Module(ops)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	sirProgram := stackir.Program{}
	for i, u := range units {
		sirProgram[u.class.Name] = modules[i]
	}

	codegen := stackir.NewCodeGenerator(sirProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, u := range units {
		lines, ok := compiled[u.class.Name]
		if !ok {
			fmt.Printf("ERROR: Unable to compile module for class file '%s'\n", u.path)
			return -1
		}

		extension := path.Ext(u.path)
		output, err := os.Create(fmt.Sprintf("%s.sir", strings.TrimSuffix(u.path, extension)))
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer output.Close()

		for _, line := range lines {
			output.Write([]byte(fmt.Sprintf("%s\n", line)))
		}
	}

	return 0
}

func main() { os.Exit(FrontEndTranslator.Run(os.Args, os.Stdout)) }
