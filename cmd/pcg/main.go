// Command pcg manages and consumes partitioned consumer groups on NATS JetStream.
package main

import (
	"fmt"
	"os"

	"github.com/arloliu/pcgroups/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
