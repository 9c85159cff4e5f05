// Command gitkv is a thin CLI over the gitkv library, giving the ambient
// config/logging stack a runnable home. It is deliberately minimal: every
// subcommand opens a Store, performs one operation, and closes it again.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
