package stackir

import "toolchain.dev/hllc/pkg/asm"

// EntrypointFunction is the well-known function the bootstrap sequence
// transfers control to once the stack is initialized.
const EntrypointFunction = "Sys.init"

// Bootstrap returns the fixed preamble every assembled program starts with:
// initialize SP to 256 (the stack base, above the registers at 0-15 and the
// variable area that starts at 16) and call the entrypoint with no arguments. It reuses the very
// same call-lowering logic every other 'call' site goes through, so the
// bootstrap sequence can never drift from the calling convention it relies on.
func Bootstrap() (asm.Program, error) {
	lowerer := NewLowerer("Bootstrap")

	program := asm.Program{
		aInst("256"), cInst("D", "A", ""),
		aInst("SP"), cInst("M", "D", ""),
	}

	call, err := lowerer.handleFuncCallOp(FuncCallOp{Name: EntrypointFunction, NArgs: 0})
	if err != nil {
		return nil, err
	}
	return append(program, call...), nil
}
