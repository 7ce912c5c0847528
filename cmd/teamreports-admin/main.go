package main

import (
	"context"
	"fmt"
	"os"

	"teamreports/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(os.Getenv("LOG_LEVEL"), "admin")

	if err := cli.NewAdminCommand(cli.ConfiguredBackend).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
