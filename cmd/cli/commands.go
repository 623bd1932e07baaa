package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var summaryTag string

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(trackedCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(statsCmd)

	summaryCmd.Flags().StringVar(&summaryTag, "tag", "", "Only summarize this player tag")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health")
	},
}

var trackedCmd = &cobra.Command{
	Use:   "tracked",
	Short: "List the tracked players and whether their poller is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/tracked")
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Send the daily trophy summary now",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/summary"
		if summaryTag != "" {
			endpoint += "?tag=" + url.QueryEscape(summaryTag)
		}
		return performRequest(http.MethodPost, endpoint)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics")
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Get the lifetime counters stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/stats")
	},
}

func performRequest(method, endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, url)

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
