// Command pptctl issues requests to the presentation backend through the
// resilient client and prints each call's outcome as JSON.
//
// Usage:
//
//	pptctl get /presentations/42
//	pptctl post /generate --long --data @request.json
//	pptctl upload /templates --file template=./deck.pptx --field name=corporate
//	pptctl health
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
