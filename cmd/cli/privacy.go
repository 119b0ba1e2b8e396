package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var privacyCmd = &cobra.Command{
	Use:   "privacy",
	Short: "Manage who can see your view counts",
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide your view counts and viewer lists from other users",
	Long: `Hide your view counts. Other users will see null instead of:
- your posts' viewed-by counts and viewer lists
- your total post viewed-by count
Views are still recorded, and you always see your own numbers.`,
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setViewCountsHidden(true)
	},
}

var showCmd = &cobra.Command{
	Use:     "show",
	Short:   "Make your view counts visible to other users",
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setViewCountsHidden(false)
	},
}

var getMeCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show your profile and current view privacy",
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getMe()
	},
}

func init() {
	privacyCmd.AddCommand(hideCmd)
	privacyCmd.AddCommand(showCmd)
	privacyCmd.AddCommand(getMeCmd)
}

func setViewCountsHidden(hidden bool) error {
	body, err := callAPI(http.MethodPut, "/users/me/view-counts-hidden", map[string]interface{}{
		"viewCountsHidden": hidden,
	})
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	if hidden {
		fmt.Println("✓ View counts are now hidden from other users")
	} else {
		fmt.Println("✓ View counts are now visible to other users")
	}
	return nil
}

func getMe() error {
	body, err := callAPI(http.MethodGet, "/users/me", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var profile map[string]interface{}
	if err := json.Unmarshal(body, &profile); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("\n📋 Profile\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	if username, ok := profile["username"].(string); ok {
		fmt.Printf("Username: %s\n", username)
	}
	if displayName, ok := profile["displayName"].(string); ok {
		fmt.Printf("Display Name: %s\n", displayName)
	}
	fmt.Printf("Post Viewed By: %s\n", countOrHidden(profile["postViewedByCount"]))
	if hidden, ok := profile["viewCountsHidden"].(bool); ok {
		status := "🌍 Visible"
		if hidden {
			status = "🔒 Hidden"
		}
		fmt.Printf("View Counts: %s\n", status)
	}
	fmt.Printf("\n")
	return nil
}
