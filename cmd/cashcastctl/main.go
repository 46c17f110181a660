// Command cashcastctl is the operator CLI for cashcast: it enqueues syncs,
// inspects the queue and runs the forecast pipeline once.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
