package machine

import (
	"fmt"
	"strconv"
)

// SymbolTable maps a user-defined label or variable name to the memory address
// or instruction index it has been resolved to.
type SymbolTable map[string]uint16

// ----------------------------------------------------------------------------
// Translation tables

// This section contains the translation tables cornerstone of the codegen phase.
//
// This provides a simple yet effective way to resolve everything built-in in the
// TARGET specification. Notably we have the following tables defined:
//   - 'BuiltInTable': translates BuiltIn labels in A instructions to their address
//   - 'CompTable': translates the 'Comp' opcode of C instructions
//   - 'DestTable': translates the 'Dest' opcode of C instructions
//   - 'JumpTable': translates the 'Jump' opcode of C instructions

var (
	BuiltInTable = map[string]uint16{
		// Stack-machine specific aliases (SP, local/argument/this/that base pointers)
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		// Named general purpose registers
		"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
		"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
		"R12": 12, "R13": 13, "R14": 14, "R15": 15,
		// Memory mapped I/O locations
		"SCREEN": 16384, "KBD": 24576,
	}

	CompTable = map[string]uint16{
		// - Constants and identities
		"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
		"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
		// - Binary and numerical negations
		"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
		"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
		// - Increment and decrement operations
		"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
		"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
		// - Register with register operations
		"D+A": 0b0000010, "D+M": 0b1000010,
		"D-A": 0b0010011, "D-M": 0b1010011,
		"A-D": 0b0000111, "M-D": 0b1000111,
		// - Bitwise register with register operations
		"D&A": 0b0000000, "D&M": 0b1000000,
		"D|A": 0b0010101, "D|M": 0b1010101,
	}

	DestTable = map[string]uint16{
		"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
		"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
	}

	JumpTable = map[string]uint16{
		"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
		"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
	}

	// commutativeCanonical maps a comp expression not literally present in
	// 'CompTable' to its commuted, table-present counterpart. The HLL/SIT
	// layers only ever emit the canonical ordering, but a hand-written or
	// third-party produced assembly file may use either ordering.
	commutativeCanonical = map[string]string{
		"A+D": "D+A", "M+D": "D+M", "A&D": "D&A", "M&D": "D&M", "A|D": "D|A", "M|D": "D|M",
	}
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a set of 'machine.Instruction' and spits out their binary counterparts.
//
// In order to resolve user defined labels in A instructions, a Symbol Table
// (pre-populated with every label definition's instruction index) must be
// provided at construction time; the generator itself only ever *adds* fresh
// variable entries to it as it encounters them, it never removes or rewrites
// label entries.
type CodeGenerator struct {
	program    Program     // The set of instructions to convert to TARGET binary format
	table      SymbolTable // Mapping to resolve user-defined labels/variables to their address
	nVarOffset uint16      // Internal offset to allocate memory for new variables
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires both a non-nil Program 'p' (what we want to translate) as well as
// a Symbol Table 'st' (possibly empty; nil is treated as empty) used to resolve labels.
func NewCodeGenerator(p Program, st SymbolTable) CodeGenerator {
	if st == nil {
		st = SymbolTable{}
	}
	return CodeGenerator{program: p, table: st}
}

// Translates each instruction in the 'Program' to the TARGET binary format.
//
// Each instruction passes through evaluation, validation and then conversion
// to its binary representation (a 16-character '0'/'1' string) so it can be
// further elaborated by the caller (dumping to a file, runtime interpretation...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	binary := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch inst := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(inst)
		case CInstruction:
			generated, err = cg.GenerateCInst(inst)
		default:
			err = fmt.Errorf("asm: unrecognized instruction type %T", instruction)
		}

		if err != nil {
			return nil, err
		}
		binary = append(binary, generated)
	}

	return binary, nil
}

// Specialized function to convert an A Instruction to the TARGET binary format.
//
// As part of the conversion (for both built-in and user-defined labels) there's a
// lookup on the respective symbol table to determine the 'real' location address.
// Locations that cannot be resolved, or that resolve out-of-bounds, are errors.
func (cg *CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	found, address := false, uint16(0)

	switch inst.LocType {
	case Raw: // Simply translate the raw address from 'string' to 'int'
		num, err := strconv.ParseInt(inst.LocName, 10, 32)
		if err == nil && num >= int64(MaxAddressableMemory) {
			return "", fmt.Errorf("asm: location '%s' resolved to an out-of-range address %d", inst.LocName, num)
		}
		address, found = uint16(num), err == nil && num >= 0
	case Label: // Lookup the label/variable name in the provided SymbolTable
		address, found = cg.table[inst.LocName]
		if !found { // Not yet seen: allocate a fresh variable slot starting at 16
			address, found = 16+cg.nVarOffset, true
			cg.table[inst.LocName] = address
			cg.nVarOffset++
		}
	case BuiltIn: // Lookup the registry name in the well-known table
		address, found = BuiltInTable[inst.LocName]
	}

	if !found {
		return "", fmt.Errorf("asm: unable to resolve address for location '%s'", inst.LocName)
	}
	// An A instruction always has the first bit set to zero (the opcode bit), which
	// leaves only 15 bits to address memory: an address >= 2^15 is out of bounds.
	if address >= MaxAddressableMemory {
		return "", fmt.Errorf("asm: location '%s' resolved to an out-of-range address %d", inst.LocName, address)
	}
	return fmt.Sprintf("%016b", address), nil
}

// Specialized function to convert a C Instruction to the TARGET binary format.
//
// Comp is mandatory; Dest and Jump are each optional but at least one other
// field besides Comp should usually be present (a C instruction with neither
// a destination nor a jump is legal but a no-op, so it is not rejected here).
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	command := uint16(0b111 << 13) // The fixed '111' opcode prefix of every C instruction

	opcode, found := CompTable[inst.Comp]
	if !found {
		if canonical, ok := commutativeCanonical[inst.Comp]; ok {
			opcode, found = CompTable[canonical]
		}
	}
	if !found {
		return "", fmt.Errorf("asm: unable to translate C instruction, unknown 'comp' opcode '%s'", inst.Comp)
	}
	command |= opcode << 6

	destOpcode, found := DestTable[inst.Dest]
	if !found {
		return "", fmt.Errorf("asm: unable to translate C instruction, unknown 'dest' opcode '%s'", inst.Dest)
	}
	command |= destOpcode << 3

	jumpOpcode, found := JumpTable[inst.Jump]
	if !found {
		return "", fmt.Errorf("asm: unable to translate C instruction, unknown 'jump' opcode '%s'", inst.Jump)
	}
	command |= jumpOpcode

	return fmt.Sprintf("%016b", command), nil
}
