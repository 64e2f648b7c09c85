package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/office-orders/cmd/inbox/commands"
	"github.com/garyjia/office-orders/internal/domain/apperr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperr.UserMessage(err))
		if apperr.Retryable(err) {
			fmt.Fprintln(os.Stderr, "The action can be retried.")
		}
		stop()
		os.Exit(1)
	}
}
