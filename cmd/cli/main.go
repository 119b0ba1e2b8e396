package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    string = "http://localhost:8787"
	output    string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "sidechain-views",
	Short: "Sidechain views CLI - inspect post views and manage view privacy",
	Long: `Sidechain views CLI talks to the views API for per-user commands
(privacy, posts) and directly to the database for operator commands
(repair, verify, seed, token).`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to SIDECHAIN_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(privacyCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// requireToken is the PreRunE for commands that call the API
func requireToken(cmd *cobra.Command, args []string) error {
	if authToken == "" {
		authToken = os.Getenv("SIDECHAIN_TOKEN")
	}
	if authToken == "" {
		return fmt.Errorf("SIDECHAIN_TOKEN environment variable not set (export SIDECHAIN_TOKEN=<your-token>)")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
