// sandboxctl runs untrusted guest scripts inside a seccomp-sandboxed child
// process, communicating with it over a pair of anonymous pipes.
//
// Commands:
//
//	run         - spawn a sandboxed guest and compile a script into it
//	guest-init  - internal re-exec target that enters the sandbox
package main

import (
	"fmt"
	"os"

	"gosandbox/cmd/sandboxctl"
)

func main() {
	if err := sandboxctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
