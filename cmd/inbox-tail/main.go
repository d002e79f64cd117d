package main

import (
	"fmt"
	"os"

	"botpos-chat-backend/internal/app"
	"botpos-chat-backend/internal/cli"
)

func main() {
	ctx, stop := app.SignalContext()
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
