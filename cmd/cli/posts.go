package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Inspect posts and record views",
}

var (
	viewersLimit  int
	viewersOffset int
)

var getPostCmd = &cobra.Command{
	Use:     "get <post-id>",
	Short:   "Show a post with its view data as you are allowed to see it",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getPost(args[0])
	},
}

var viewersCmd = &cobra.Command{
	Use:     "viewers <post-id>",
	Short:   "List who viewed a post, most recent first",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listViewers(args[0])
	},
}

var viewCmd = &cobra.Command{
	Use:     "view <post-id> [post-id...]",
	Short:   "Record that you viewed one or more posts",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: requireToken,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordViews(args)
	},
}

func init() {
	viewersCmd.Flags().IntVar(&viewersLimit, "limit", 20, "Maximum viewers to return")
	viewersCmd.Flags().IntVar(&viewersOffset, "offset", 0, "Number of viewers to skip")

	postsCmd.AddCommand(getPostCmd)
	postsCmd.AddCommand(viewersCmd)
	postsCmd.AddCommand(viewCmd)
}

func getPost(postID string) error {
	body, err := callAPI(http.MethodGet, "/posts/"+url.PathEscape(postID), nil)
	if err != nil {
		return err
	}
	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var post map[string]interface{}
	if err := json.Unmarshal(body, &post); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("\n📝 %v\n", post["text"])
	fmt.Printf("Viewed By: %s\n", countOrHidden(post["viewedByCount"]))
	fmt.Printf("Your Status: %v\n", post["viewedStatus"])
	printViewers(post["viewedBy"])
	return nil
}

func listViewers(postID string) error {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", viewersLimit))
	query.Set("offset", fmt.Sprintf("%d", viewersOffset))

	body, err := callAPI(http.MethodGet, "/posts/"+url.PathEscape(postID)+"/viewers?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var page map[string]interface{}
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Printf("Viewed By: %s\n", countOrHidden(page["viewedByCount"]))
	printViewers(page["viewedBy"])
	return nil
}

func printViewers(v interface{}) {
	viewers, ok := v.([]interface{})
	if !ok {
		fmt.Println("Viewers: hidden")
		return
	}
	if len(viewers) == 0 {
		fmt.Println("No viewers yet")
		return
	}
	fmt.Printf("%-24s %-30s %s\n", "USERNAME", "DISPLAY NAME", "LAST VIEWED")
	for _, raw := range viewers {
		viewer, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("%-24v %-30v %v\n", viewer["username"], viewer["displayName"], viewer["lastViewedAt"])
	}
}

func recordViews(postIDs []string) error {
	var (
		body []byte
		err  error
	)
	if len(postIDs) == 1 {
		body, err = callAPI(http.MethodPost, "/posts/"+url.PathEscape(postIDs[0])+"/views", nil)
	} else {
		body, err = callAPI(http.MethodPost, "/views/posts", map[string]interface{}{"postIds": postIDs})
	}
	if err != nil {
		return err
	}
	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println("✓ Views submitted")
	return nil
}
