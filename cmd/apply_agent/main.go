// Package main provides the apply_agent CLI: it scrapes freelance job postings,
// scores them against a profile and drafts applications for the best matches.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "apply_agent",
	Short: "Freelance job application agent",
	Long:  "apply_agent scrapes freelance job postings for a search query, scores each one against your profile and writes a cover letter and intro message for every job that scores 7 or higher.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
