package asm

// ----------------------------------------------------------------------------
// General information

// This section contains the in-memory representation of the assembly language
// fed to the ASM stage: a flat sequence of instructions and label declarations,
// not yet resolved to concrete TARGET addresses (that's '''pkg/machine'''s job).

// Just used to put together label declarations, A instructions and C instructions.
type Instruction interface{}

// Program is the full, ordered sequence of assembly instructions for one
// compilation unit (or for the fully linked output once 'cmd/sit' concatenates
// per-class assembly into a single file).
type Program []Instruction

// ----------------------------------------------------------------------------
// Label Declarations

// In memory representation of a label declaration statement.
//
// There's not much here: we just keep the user-defined name so that future
// references to it (from an A instruction) can be resolved. During lowering
// this name is mapped to the instruction index right after it, and a symbol
// table is produced to feed the codegen phase.
type LabelDecl struct {
	Name string // The symbol/ident chosen for the label
}

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction.
//
// The A instruction has only one functionality: it instructs the CPU to load a
// specific memory address/location (this includes both RAM and memory-mapped
// I/O). The location can be referenced either by an alias (label, built-in) or
// by a raw decimal address; classification into one of those three happens
// during lowering, not here.
type AInstruction struct {
	Location string // A generic "payload" (the label/builtin/raw symbol)
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of a C Instruction.
//
// The C instruction handles computation: it instructs the CPU what operation to
// perform, optionally where to store the result, and optionally on what
// condition to jump. Per the grammar, dest and jump are each independently
// optional and may both be present on the same instruction (`dest=comp;jump`).
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, define on what premise the jump to another instruction should occur
}
