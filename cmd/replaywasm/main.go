//go:build js && wasm

package main

import "syscall/js"

func main() {
	js.Global().Set("__blackjackReplay", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(requestError("invalid_request", "missing request payload"))
		}
		return mustJSON(handleInit(args[0].String()))
	}))

	select {}
}
