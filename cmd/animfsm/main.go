// Command animfsm validates, imports and runs layered animation state
// machines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/animfsm/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "animfsm:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
