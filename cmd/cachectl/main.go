// Command cachectl inspects and maintains a shared cache store in Redis.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
