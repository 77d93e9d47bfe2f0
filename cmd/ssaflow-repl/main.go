// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"ssaflow/repl"
)

func main() {
	if len(os.Args) != 1 {
		fmt.Println("Usage: ssaflow-repl  (paste one or more `fun NAME { ... }` blocks on stdin)")
		os.Exit(1)
	}

	repl.Start(os.Stdin, os.Stdout)
}
