//go:build js && wasm

// Command wasm exposes the seek/flee engine to the browser via WebAssembly.
// After loading, it registers a global JavaScript function:
//
//	runSimulation(scenario, format?) -> string | {error: string}
//
// scenario is a SimulationInput encoded as JSON, or as YAML when format is
// "yaml". The result is the SimulationLog JSON, decoded with the same rules
// as the CLI.
package main

import (
	"syscall/js"

	"github.com/cxd309/seekflee-engine/internal/engine"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	select {}
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return jsError("runSimulation expects a scenario string")
	}

	format := engine.FormatJSON
	if len(args) > 1 && args[1].Type() == js.TypeString {
		format = engine.Format(args[1].String())
	}

	out, err := engine.RunScenario(args[0].String(), format)
	if err != nil {
		return jsError(err.Error())
	}
	return out
}

func jsError(msg string) map[string]any {
	return map[string]any{"error": msg}
}
