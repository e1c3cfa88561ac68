package machine

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the TARGET instruction set.
//
// We declare a shared 'Instruction' interface for both A and C instructions as well
// as defining some useful constants for runtime assertions during the codegen phase
// such as 'MaxAddressableMemory' that defines the upper limit to memory capacity.

// Just used to put together A and C instructions struct, use a type switch to disambiguate.
type Instruction interface{}

// Program is the full sequence of machine instructions for one compilation unit,
// already lowered from 'asm.Program' with labels resolved away.
type Program []Instruction

const MaxAddressableMemory uint16 = 1 << 15 // Exclusive upper bound on addresses an A Instruction can hold.

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the TARGET architecture.
//
// The A instruction has only one functionality: it instructs the CPU to load a
// specific memory address from the computer memory (this includes both the RAM
// as well as the memory mapped I/O such as keyboard and screen).
//
// The location can be expressed in multiple ways:
// - A raw memory address (e.g. 1, 2, 3)
// - A user defined label (e.g. LOOP, ADD, TEMP)
// - A built-in symbol from the TARGET spec (e.g. SP, THIS, THAT)
type AInstruction struct {
	LocType LocationType // The type of the location identified by 'LocName'
	LocName string       // A generic "payload" (the label/builtin/raw symbol)
}

type LocationType uint8 // Enumeration for the different types of location (built-in, label, raw)

const (
	Raw     LocationType = 0 // Raw address literal (e.g. @2345, @8989)
	Label   LocationType = 1 // User-defined location with a user given name (e.g. @MAIN, @LOOP)
	BuiltIn LocationType = 2 // Predefined association from the TARGET spec (@SCREEN, @KBD, @R1)
)

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of a C Instruction for the TARGET architecture.
//
// The C instruction handles the computation side of the CPU: it instructs the
// CPU what operation to execute, which register to store the result in, and
// (optionally) a jump condition to change the execution flow at runtime.
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, define on what premise the jump to another instruction should occur
}
