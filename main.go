// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/obspull/obspull-cli/cmd"
)

// main wires signal handling and hands off to the command tree.
// Ctrl-C cancels the context, which unwinds any in-flight login
// attempt and closes the browser.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.ExecuteContext(ctx)
}
