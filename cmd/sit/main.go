package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/teris-io/cli"
	"toolchain.dev/hllc/pkg/asm"
	"toolchain.dev/hllc/pkg/stackir"
)

var Description = strings.ReplaceAll(`
The Stack-IR Translator (SIT) translates programs (composed of multiple modules/files)
written in the stack-IR language into TARGET assembly code that can be further
elaborated. Stack-IR is a higher-level (bytecode-like) language tailored for use
with the TARGET computer architecture.
`, "\n", " ")

var StackIRTranslator = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The stack-IR (.sir) files to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled assembly output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	asmProgram := asm.Program{}

	if _, enabled := options["bootstrap"]; enabled {
		bootstrap, err := stackir.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to generate bootstrap code: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, bootstrap...)
	}

	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		parser := stackir.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}

		// The file name (sans extension) doubles as the translation unit's
		// symbol-table file prefix, e.g. resolving 'static' variables to 'F.i'.
		file := strings.TrimSuffix(path.Base(input), path.Ext(input))
		lowerer := stackir.NewLowerer(file)
		lowered, err := lowerer.Lower(module)
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, lowered...)
	}

	codegen := asm.NewCodeGenerator(asmProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, line := range compiled {
		output.Write([]byte(fmt.Sprintf("%s\n", line)))
	}

	return 0
}

func main() { os.Exit(StackIRTranslator.Run(os.Args, os.Stdout)) }
