//go:build !(js && wasm)

package main

import (
	"fmt"
	"io"
	"os"
)

// Outside the browser the same request is read from stdin, which makes tapes
// easy to produce from scripts.
func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp := handleInit(string(raw))
	fmt.Println(mustJSON(resp))
	if !resp.OK {
		os.Exit(2)
	}
}
