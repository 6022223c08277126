package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tagwise/tagwise/cmd"
	"github.com/tagwise/tagwise/internal/conf"
)

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tagwise: %v\n", err)
		os.Exit(1)
	}
}
