// Command waymark tracks plans, specs, and execute logs.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mesh-intelligence/waymark/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
