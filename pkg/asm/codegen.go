package asm

import (
	"errors"
	"fmt"

	"toolchain.dev/hllc/pkg/machine"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a set of 'asm.Instruction' and spits out their textual counterparts.
//
// This is the inverse of 'Parser': it's used to pretty-print a 'Program' back
// to assembly text, e.g. when 'keep_asm' asks the driver to dump the
// intermediate artifact produced by SIT before it's handed to ASM proper.
type CodeGenerator struct {
	program Program // The set of instructions to convert to assembly text
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that the argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translates each instruction in the 'program' field to assembly text.
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch inst := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(inst)
		case CInstruction:
			generated, err = cg.GenerateCInst(inst)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(inst)
		default:
			err = fmt.Errorf("asm: unrecognized instruction type %T", instruction)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// Specialized function to convert an A Instruction to assembly text.
func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", errors.New("asm: unable to produce an A instruction with an empty location")
	}

	return fmt.Sprintf("@%s", stmt.Location), nil
}

// Specialized function to convert a C Instruction to assembly text. Dest and
// jump are printed only when present; an instruction may legally carry both.
func (CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", errors.New("asm: expected 'comp' directive in C instruction")
	}

	text := stmt.Comp
	if stmt.Dest != "" {
		text = fmt.Sprintf("%s=%s", stmt.Dest, text)
	}
	if stmt.Jump != "" {
		text = fmt.Sprintf("%s;%s", text, stmt.Jump)
	}

	return text, nil
}

// Specialized function to convert a Label Declaration to assembly text.
func (CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if _, found := machine.BuiltInTable[stmt.Name]; found {
		return "", fmt.Errorf("asm: unable to override built-in label '%s'", stmt.Name)
	}

	return fmt.Sprintf("(%s)", stmt.Name), nil
}
