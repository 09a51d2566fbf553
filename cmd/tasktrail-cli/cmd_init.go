package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/tasktrail/client"
)

func newInitCmd() *cobra.Command {
	var (
		initURL   string
		initToken string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up tasktrail CLI configuration",
		Long:  "Interactive setup wizard that creates ~/.tasktrail/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := initURL != "" || initToken != ""
			return runInit(os.Stdin, initURL, initToken, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&initURL, "server", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&initToken, "with-token", "", "Bearer token (non-interactive mode)")
	return cmd
}

func runInit(in io.Reader, url, token string, nonInteractive bool) error {
	if !nonInteractive {
		fmt.Println("\n  tasktrail setup")
		fmt.Println("  ───────────────")
		fmt.Println()

		reader := bufio.NewReader(in)

		fmt.Printf("  Server URL [%s]: ", defaultURL)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			url = line
		}

		fmt.Print("  Token: ")
		tokenLine, _ := reader.ReadString('\n')
		token = strings.TrimSpace(tokenLine)
	}

	if url == "" {
		url = defaultURL
	}

	if token == "" {
		return fmt.Errorf("token is required (mint one with: tasktrail-cli token <user-id>)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.New(url, client.WithToken(token))
	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	if _, err := c.Tasks.List(ctx); err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	cfgPath, err := writeConfig(url, token)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if nonInteractive {
		fmt.Printf("Config saved to %s\n", cfgPath)
		return nil
	}

	fmt.Printf("\n  ✓ Connected (v%s, %s backend)\n", health.Version, health.Backend)
	fmt.Printf("  ✓ Config saved to %s\n\n", cfgPath)
	fmt.Println("  Next steps:")
	fmt.Println("    tasktrail-cli task create \"Write spec\"")
	fmt.Println("    tasktrail-cli logs --format table")
	fmt.Println()

	return nil
}
