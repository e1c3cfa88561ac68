package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"toolchain.dev/hllc/pkg/asm"
	"toolchain.dev/hllc/pkg/machine"
)

var Description = strings.ReplaceAll(`
The Assembler (ASM) takes assembly language code written in the TARGET assembly
language and translates it into machine code that can be executed by the TARGET
computer. The process involves parsing the assembly code, resolving symbols, and
generating bit-exact machine code.
`, "\n", " ")

var Assembler = cli.New(Description).
	WithArg(cli.NewArg("input", "The assembly (.asm) file to be compiled")).
	WithArg(cli.NewArg("output", "The compiled binary output (.hack)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	output, err := os.Create(args[1])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	parser := asm.NewParser(bytes.NewReader(input))
	asmProgram, err := parser.Parse()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	lowerer := asm.NewLowerer(asmProgram)
	machineProgram, table, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	codegen := machine.NewCodeGenerator(machineProgram, table)
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

func main() { os.Exit(Assembler.Run(os.Args, os.Stdout)) }
