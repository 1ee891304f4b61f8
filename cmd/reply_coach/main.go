// Package main provides the entry point for the reply coach CLI and server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reply_coach",
	Short: "Persuasive reply coaching for animal advocacy",
	Long:  "Reply coach rewrites comments and draft replies for maximum persuasive impact using behavioral-science strategies, with optional rebuttal simulation and self-evaluation.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
