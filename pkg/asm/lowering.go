package asm

import (
	"fmt"
	"strconv"

	"toolchain.dev/hllc/pkg/machine"
)

// ----------------------------------------------------------------------------
// Assembly Lowerer

// The Lowerer takes an 'asm.Program' and produces its 'machine.Program'
// counterpart plus the symbol table mapping every label declaration to the
// instruction index right after it (label declarations themselves contribute
// zero words to the final program).
//
// Since the input is a flat instruction sequence, lowering is a single linear
// pass: for each instruction we produce its 'machine.Instruction' counterpart
// (classifying A instruction locations into Raw/BuiltIn/Label along the way)
// while tallying label declarations into the symbol table as we go.
type Lowerer struct{ program Program }

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be non-nil and non-empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process, iterating instruction by instruction and
// dispatching to the specialized handler based on the instruction type.
func (l *Lowerer) Lower() (machine.Program, machine.SymbolTable, error) {
	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("asm: the given program is empty")
	}

	converted, table := machine.Program{}, machine.SymbolTable{}

	for _, inst := range l.program {
		switch tInst := inst.(type) {
		case AInstruction:
			lowered, err := l.HandleAInst(tInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, lowered)

		case CInstruction:
			lowered, err := l.HandleCInst(tInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, lowered)

		case LabelDecl:
			label, err := l.HandleLabelDecl(tInst)
			if err != nil {
				return nil, nil, err
			}
			if _, redeclared := table[label]; redeclared {
				return nil, nil, fmt.Errorf("asm: label '%s' declared more than once", label)
			}
			table[label] = uint16(len(converted))

		default:
			return nil, nil, fmt.Errorf("asm: unrecognized instruction type '%T'", inst)
		}
	}

	return converted, table, nil
}

// Specialized function to convert an 'asm.AInstruction' to a 'machine.AInstruction',
// classifying its location as BuiltIn, Raw or (user-defined) Label.
func (Lowerer) HandleAInst(inst AInstruction) (machine.Instruction, error) {
	if _, found := machine.BuiltInTable[inst.Location]; found {
		return machine.AInstruction{LocType: machine.BuiltIn, LocName: inst.Location}, nil
	}
	if _, err := strconv.ParseInt(inst.Location, 10, 32); err == nil {
		return machine.AInstruction{LocType: machine.Raw, LocName: inst.Location}, nil
	}
	return machine.AInstruction{LocType: machine.Label, LocName: inst.Location}, nil
}

// Specialized function to convert an 'asm.CInstruction' to a 'machine.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (machine.Instruction, error) {
	if inst.Comp == "" {
		return nil, fmt.Errorf("asm: 'comp' sub-instruction should always be provided")
	}

	return machine.CInstruction{Comp: inst.Comp, Dest: inst.Dest, Jump: inst.Jump}, nil
}

// Specialized function to extract the identifier out of an 'asm.LabelDecl'.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", fmt.Errorf("asm: unable to declare a label with an empty name")
	}
	return inst.Name, nil
}
