package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/tasktrail/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(apiClient)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(c *client.Client) error {
	fmt.Println("\ntasktrail doctor")
	fmt.Println("================")

	results := doctorChecks(c)

	fmt.Println()
	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}

		if r.Detail != "" {
			fmt.Printf("%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("%s %s\n", mark, r.Name)
		}

		if !r.Passed && r.Hint != "" {
			fmt.Printf("   Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("❌ Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println("✅ All checks passed!")
	return nil
}

func doctorChecks(c *client.Client) []checkResult {
	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	if cfgErr != nil {
		results = append(results, checkResult{Name: "Config file", Detail: cfgPath, Hint: "Run: tasktrail-cli init"})
	} else {
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: fmt.Sprintf("found (%s)", cfgPath)})
	}

	results = append(results, checkResult{Name: "Server URL", Passed: flagURL != "", Detail: flagURL})

	if flagToken == "" {
		results = append(results, checkResult{Name: "Token", Hint: "Set --token, TASKTRAIL_TOKEN, or run tasktrail-cli init"})
	} else {
		results = append(results, checkResult{Name: "Token", Passed: true, Detail: "configured"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Detail: flagURL,
			Hint: fmt.Sprintf("Is the tasktrail server running?\n   Error: %v", err),
		})
		return results
	}

	results = append(results, checkResult{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("v%s (%s backend, database %s)", health.Version, health.Backend, health.Database),
	})

	ready, err := c.Ready(ctx)
	if err != nil {
		results = append(results, checkResult{Name: "Server ready", Hint: fmt.Sprintf("Check server logs. Error: %v", err)})
	} else {
		results = append(results, checkResult{Name: "Server ready", Passed: true, Detail: fmt.Sprintf("schema v%d", ready.SchemaVersion)})
	}

	if flagToken != "" {
		if _, err := c.Tasks.List(ctx); err != nil {
			hint := fmt.Sprintf("Error: %v", err)
			if client.IsUnauthorized(err) {
				hint = "Token invalid or expired; mint a new one with: tasktrail-cli token <user-id>"
			}
			results = append(results, checkResult{Name: "Authentication", Hint: hint})
		} else {
			results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
		}
	}

	return results
}
